// Package pkg provides the image level operations behind the umdtools commands.
// This file contains the UMD processor used by the iso commands.
package pkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/hansbonini/umdtools/pkg/archive"
	"github.com/hansbonini/umdtools/pkg/common"
	"github.com/hansbonini/umdtools/pkg/config"
	"github.com/hansbonini/umdtools/pkg/iso9660"
	"github.com/hansbonini/umdtools/pkg/psp"
	"github.com/hansbonini/umdtools/pkg/umd"
)

// UMDProcessor opens images with one configuration and runs the iso commands
type UMDProcessor struct {
	cfg config.Config
}

var _ ImageProcessor = (*UMDProcessor)(nil)

// NewUMDProcessor creates a processor using cfg
func NewUMDProcessor(cfg config.Config) *UMDProcessor {
	return &UMDProcessor{cfg: cfg}
}

// Open stages imagePath out of an archive if needed and opens it.
// The returned function closes the reader and removes any staged copy.
// An empty imagePath with buffering enabled reopens the previous buffer.
func (p *UMDProcessor) Open(imagePath string) (*umd.Reader, func() error, error) {
	staged := &archive.Staged{}
	if imagePath != "" {
		var err error
		staged, err = archive.Stage(imagePath, p.cfg.TmpDirectory)
		if err != nil {
			return nil, nil, err
		}
	}

	r, err := umd.Open(staged.Path, p.cfg.ReaderOptions())
	if err != nil {
		return nil, nil, multierr.Append(fmt.Errorf("%s: %w", common.ErrFailedToOpenImage, err), staged.Close())
	}
	common.LogInfo(common.InfoImageOpened, r.Format(), staged.Name, r.NumSectors())

	return r, func() error {
		return multierr.Combine(r.Close(), staged.Close())
	}, nil
}

// List returns the entries of dirPath, without the "." and parent records
func (p *UMDProcessor) List(imagePath, dirPath string) (entries []Entry, err error) {
	r, closeImage, err := p.Open(imagePath)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, closeImage()) }()

	names, err := r.ListDirectory(dirPath)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if name == "." || name == "\x01" {
			continue
		}
		filePath := name
		if dirPath != "" {
			filePath = strings.TrimSuffix(dirPath, "/") + "/" + name
		}
		info, err := r.Stat(filePath)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: name, Dir: info.IsDir(), LBA: info.LBA, Size: info.Size})
	}
	return entries, nil
}

// Cat copies one file of the image to w
func (p *UMDProcessor) Cat(imagePath, filePath string, w io.Writer) (err error) {
	r, closeImage, err := p.Open(imagePath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeImage()) }()

	f, err := r.GetFile(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// Extract writes every file of the image below outputDir and returns the
// number of files written. Recording times are kept as modification times.
func (p *UMDProcessor) Extract(imagePath, outputDir string) (count int, err error) {
	r, closeImage, err := p.Open(imagePath)
	if err != nil {
		return 0, err
	}
	defer func() { err = multierr.Append(err, closeImage()) }()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", outputDir, err)
	}

	err = r.Walk(func(filePath string, info *iso9660.File) error {
		if !filepath.IsLocal(filePath) {
			common.LogWarn("Skipping entry with unsafe name: %q", filePath)
			return nil
		}
		outputPath := filepath.Join(outputDir, filepath.FromSlash(filePath))
		if info.IsDir() {
			if err := os.MkdirAll(outputPath, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", outputPath, err)
			}
			return nil
		}
		if err := extractFile(r, filePath, outputPath); err != nil {
			return err
		}
		common.LogDebug("Extracted %s (LBA %d, %d bytes)", filePath, info.LBA, info.Size)
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	common.LogInfo(common.InfoFilesExtracted, count, outputDir)
	return count, nil
}

func extractFile(r *umd.Reader, filePath, outputPath string) error {
	f, err := r.GetFile(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return common.FormatError(common.ErrFailedToCreateOutput, err)
	}
	if _, err := io.Copy(out, f); err != nil {
		return multierr.Append(fmt.Errorf("failed to write %s: %w", outputPath, err), out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}

	if ts := f.Timestamp(); !ts.IsZero() {
		return os.Chtimes(outputPath, ts, ts)
	}
	return nil
}

// Index writes the sector index of the image to outputFile, or to
// standard output when outputFile is "-"
func (p *UMDProcessor) Index(imagePath, outputFile string) (err error) {
	r, closeImage, err := p.Open(imagePath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeImage()) }()

	if outputFile == "-" {
		return r.DumpIndex(os.Stdout)
	}
	if err := r.DumpIndexFile(outputFile); err != nil {
		return err
	}
	common.LogInfo(common.InfoIndexWritten, outputFile)
	return nil
}

// Name returns the path of the entry starting at sector
func (p *UMDProcessor) Name(imagePath string, sector int) (name string, found bool, err error) {
	r, closeImage, err := p.Open(imagePath)
	if err != nil {
		return "", false, err
	}
	defer func() { err = multierr.Append(err, closeImage()) }()

	name, found = r.GetFileName(sector)
	return name, found, nil
}

// Info collects the volume descriptor, disc id and PARAM.SFO of the image
func (p *UMDProcessor) Info(imagePath string) (info *ImageInfo, err error) {
	r, closeImage, err := p.Open(imagePath)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, closeImage()) }()

	info = &ImageInfo{
		Path:    imagePath,
		Format:  r.Format().String(),
		Sectors: r.NumSectors(),
		Size:    int64(r.NumSectors()) * umd.SectorLength,
		Joliet:  r.HasJolietExtension(),
		PBP:     r.IsPBP(),
	}
	if vd := r.VolumeDescriptor(); vd != nil {
		info.SystemID = vd.SystemID
		info.VolumeID = vd.VolumeID
		info.PublisherID = vd.PublisherID
		info.ApplicationID = vd.ApplicationID
	}

	if r.HasFile(psp.UMDDataPath) {
		f, err := r.GetFile(psp.UMDDataPath)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		info.DiscID = psp.ParseUMDData(data).DiscID
	}

	data, err := r.ReadParamSFO()
	if err != nil {
		return nil, err
	}
	if data != nil {
		sfo, err := psp.ParseSFO(data)
		if err != nil {
			common.LogWarn("%v", err)
		} else {
			info.ParamSFO = sfo.Map()
			if info.DiscID == "" {
				info.DiscID = sfo.String("DISC_ID")
			}
		}
	}
	return info, nil
}
