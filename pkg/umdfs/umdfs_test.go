package umdfs

import (
	"bytes"
	"context"
	"sync"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbonini/umdtools/pkg/isotest"
	"github.com/hansbonini/umdtools/pkg/umd"
)

var content = bytes.Repeat([]byte("0123456789"), 500)

func openReader(t *testing.T) *umd.Reader {
	t.Helper()
	path := isotest.New().AddFile("PSP_GAME/DATA.BIN", content).WriteFile(t, "game.iso")
	r, err := umd.Open(path, umd.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestFileNodeRead(t *testing.T) {
	r := openReader(t)
	file, err := r.GetFile("PSP_GAME/DATA.BIN")
	require.NoError(t, err)
	node := &fileNode{mu: &sync.Mutex{}, file: file}

	tests := []struct {
		name     string
		off      int64
		size     int
		expected []byte
	}{
		{"start", 0, 100, content[:100]},
		{"across sectors", 2000, 100, content[2000:2100]},
		{"tail", int64(len(content) - 10), 100, content[len(content)-10:]},
		{"past end", int64(len(content) + 10), 100, []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errno := node.Read(context.Background(), nil, make([]byte, tt.size), tt.off)
			require.Equal(t, syscall.Errno(0), errno)
			data, status := result.Bytes(make([]byte, tt.size))
			require.Equal(t, fuse.OK, status)
			assert.Equal(t, tt.expected, data)
		})
	}
}

func TestFileNodeAttributes(t *testing.T) {
	r := openReader(t)
	file, err := r.GetFile("PSP_GAME/DATA.BIN")
	require.NoError(t, err)
	node := &fileNode{mu: &sync.Mutex{}, file: file}

	var out fuse.AttrOut
	assert.Equal(t, syscall.Errno(0), node.Getattr(context.Background(), nil, &out))
	assert.Equal(t, uint64(len(content)), out.Size)
	assert.Equal(t, uint32(fileMode), out.Mode)
	assert.Equal(t, uint64(isotest.Timestamp.Unix()), out.Mtime)

	_, _, errno := node.Open(context.Background(), syscall.O_RDWR)
	assert.Equal(t, syscall.EROFS, errno)
	_, _, errno = node.Open(context.Background(), syscall.O_RDONLY)
	assert.Equal(t, syscall.Errno(0), errno)
}

func TestDirNodeAttributes(t *testing.T) {
	r := openReader(t)
	info, err := r.Stat("PSP_GAME")
	require.NoError(t, err)

	var out fuse.AttrOut
	node := &dirNode{info: info}
	assert.Equal(t, syscall.Errno(0), node.Getattr(context.Background(), nil, &out))
	assert.Equal(t, uint32(dirMode), out.Mode)

	root := NewRoot(r)
	assert.Equal(t, syscall.Errno(0), root.Getattr(context.Background(), nil, &out))
	assert.Equal(t, uint32(dirMode), out.Mode)
}
