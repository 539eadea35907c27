package umd

import (
	"errors"
	"io"

	"github.com/hansbonini/umdtools/pkg/common"
)

// Locations of the PSP metadata files inside a UMD image
const (
	ParamSFOPath = "PSP_GAME/PARAM.SFO"
	Icon0Path    = "PSP_GAME/ICON0.PNG"
	Icon1Path    = "PSP_GAME/ICON1.PNG"
	Icon1PMFPath = "PSP_GAME/ICON1.PMF"
	Pic0Path     = "PSP_GAME/PIC0.PNG"
	Pic1Path     = "PSP_GAME/PIC1.PNG"
	Snd0Path     = "PSP_GAME/SND0.AT3"
)

// readFile returns the whole content of filePath, or nil when the image has
// no such file. A read ending early at end of file returns what was read;
// any other read error is returned.
func (r *Reader) readFile(filePath string) ([]byte, error) {
	if !r.HasFile(filePath) {
		return nil, nil
	}
	f, err := r.GetFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buffer := make([]byte, f.Length())
	n, err := io.ReadFull(f, buffer)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		common.LogDebug(common.DebugShortRead, filePath, n, len(buffer))
	case err != nil:
		return nil, err
	}
	return buffer[:n], nil
}

// ReadParamSFO returns PARAM.SFO from the container, or from PSP_GAME/
func (r *Reader) ReadParamSFO() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadParamSFO()
	}
	return r.readFile(ParamSFOPath)
}

// ReadIcon0 returns ICON0.PNG
func (r *Reader) ReadIcon0() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadIcon0()
	}
	return r.readFile(Icon0Path)
}

// ReadIcon1 returns ICON1.PNG, or ICON1.PMF when the image has no PNG
func (r *Reader) ReadIcon1() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadIcon1()
	}
	if r.HasFile(Icon1Path) {
		return r.readFile(Icon1Path)
	}
	return r.readFile(Icon1PMFPath)
}

// ReadPic0 returns PIC0.PNG
func (r *Reader) ReadPic0() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadPic0()
	}
	return r.readFile(Pic0Path)
}

// ReadPic1 returns PIC1.PNG
func (r *Reader) ReadPic1() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadPic1()
	}
	return r.readFile(Pic1Path)
}

// ReadSnd0 returns SND0.AT3
func (r *Reader) ReadSnd0() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadSnd0()
	}
	return r.readFile(Snd0Path)
}

// ReadPspData returns DATA.PSP. Plain images have none.
func (r *Reader) ReadPspData() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadPspData()
	}
	return nil, nil
}

// ReadPsarData returns DATA.PSAR. Plain images have none.
func (r *Reader) ReadPsarData() ([]byte, error) {
	if r.browser != nil {
		return r.browser.ReadPsarData()
	}
	return nil, nil
}
