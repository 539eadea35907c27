// Package pkg provides the image level operations behind the umdtools
// commands. This file contains the report types and the processor interface.
package pkg

import "io"

// ImageInfo is the report printed by `umdtools iso info`
type ImageInfo struct {
	Path          string                 `yaml:"path"`
	Format        string                 `yaml:"format"`
	Sectors       int                    `yaml:"sectors"`
	Size          int64                  `yaml:"size"`
	Joliet        bool                   `yaml:"joliet"`
	PBP           bool                   `yaml:"pbp"`
	SystemID      string                 `yaml:"system_id,omitempty"`
	VolumeID      string                 `yaml:"volume_id,omitempty"`
	PublisherID   string                 `yaml:"publisher_id,omitempty"`
	ApplicationID string                 `yaml:"application_id,omitempty"`
	DiscID        string                 `yaml:"disc_id,omitempty"`
	ParamSFO      map[string]interface{} `yaml:"param_sfo,omitempty"`
}

// Entry is one line of a directory listing
type Entry struct {
	Name string
	Dir  bool
	LBA  int
	Size int64
}

// ImageProcessor defines the operations available on a disc image path
type ImageProcessor interface {
	List(imagePath, dirPath string) ([]Entry, error)
	Cat(imagePath, filePath string, w io.Writer) error
	Extract(imagePath, outputDir string) (int, error)
	Index(imagePath, outputFile string) error
	Name(imagePath string, sector int) (string, bool, error)
	Info(imagePath string) (*ImageInfo, error)
}
