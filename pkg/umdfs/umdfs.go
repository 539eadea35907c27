// Package umdfs exposes an open UMD image as a read-only FUSE filesystem.
package umdfs

import (
	"context"
	"io"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/iso9660"
	"github.com/hansbonini/umdtools/pkg/umd"
)

const (
	dirMode  = 0555
	fileMode = 0444
)

// Root is the root directory of a mounted image. Every node shares one
// mutex, since umd.Reader does not support concurrent use.
type Root struct {
	fs.Inode

	mu      *sync.Mutex
	reader  *umd.Reader
	nextIno uint64
}

var _ = (fs.NodeOnAdder)((*Root)(nil))
var _ = (fs.NodeGetattrer)((*Root)(nil))

// NewRoot builds the root node for reader. The tree is populated when the
// root is mounted.
func NewRoot(reader *umd.Reader) *Root {
	return &Root{
		mu:      &sync.Mutex{},
		reader:  reader,
		nextIno: 2,
	}
}

// Mount serves reader at mountPoint until the returned server is unmounted
func Mount(mountPoint string, reader *umd.Reader, debug bool) (*fuse.Server, error) {
	opts := &fs.Options{}
	opts.Debug = debug
	opts.FsName = "umd"
	opts.Name = "umdtools"
	return fs.Mount(mountPoint, NewRoot(reader), opts)
}

func (r *Root) OnAdd(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addChildren(ctx, &r.Inode, "")
}

func (r *Root) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = dirMode
	return 0
}

func (r *Root) addChildren(ctx context.Context, parent *fs.Inode, dirPath string) {
	names, err := r.reader.ListDirectory(dirPath)
	if err != nil {
		common.LogError("%s: %v", common.ErrFailedToReadDirectory, err)
		return
	}

	for _, name := range names {
		if name == "." || name == "\x01" {
			continue
		}
		filePath := name
		if dirPath != "" {
			filePath = dirPath + "/" + name
		}
		info, err := r.reader.Stat(filePath)
		if err != nil {
			common.LogError("%s: %v", common.ErrFailedToReadDirectory, err)
			continue
		}

		ino := r.nextIno
		r.nextIno++

		if info.IsDir() {
			node := &dirNode{info: info}
			child := parent.NewPersistentInode(ctx, node, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: ino})
			parent.AddChild(name, child, true)
			r.addChildren(ctx, child, filePath)
			continue
		}

		file, err := r.reader.GetFile(filePath)
		if err != nil {
			common.LogError("%s: %v", common.ErrFailedToReadSectors, err)
			continue
		}
		node := &fileNode{mu: r.mu, file: file}
		child := parent.NewPersistentInode(ctx, node, fs.StableAttr{Mode: syscall.S_IFREG, Ino: ino})
		parent.AddChild(name, child, true)
	}
}

type dirNode struct {
	fs.Inode
	info *iso9660.File
}

var _ = (fs.NodeGetattrer)((*dirNode)(nil))

func (d *dirNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = dirMode
	setTimes(out, d.info.Timestamp.Unix())
	return 0
}

type fileNode struct {
	fs.Inode
	mu   *sync.Mutex
	file *umd.File
}

var _ = (fs.NodeOpener)((*fileNode)(nil))
var _ = (fs.NodeReader)((*fileNode)(nil))
var _ = (fs.NodeGetattrer)((*fileNode)(nil))

func (f *fileNode) Open(ctx context.Context, openFlags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if openFlags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.file.ReadAt(dest, off)
	if err != nil && err != io.EOF {
		common.LogError("%s: %v", common.ErrFailedToReadSectors, err)
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (f *fileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fileMode
	out.Size = uint64(f.file.Length())
	out.Blocks = uint64(common.GetSizeInSectors(f.file.Length())) * (umd.SectorLength / 512)
	setTimes(out, f.file.Timestamp().Unix())
	return 0
}

func setTimes(out *fuse.AttrOut, unix int64) {
	if unix < 0 {
		unix = 0
	}
	out.Mtime = uint64(unix)
	out.Ctime = uint64(unix)
	out.Atime = uint64(unix)
}
