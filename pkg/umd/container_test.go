package umd

import (
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbonini/umdtools/pkg/device"
	"github.com/hansbonini/umdtools/pkg/isotest"
)

var (
	pbpParamSFO = []byte("\x00PSF\x01\x01\x00\x00pbp param.sfo")
	icon0       = []byte("\x89PNG\r\n\x1a\nicon")
	dataPSP     = []byte("~PSP elf")
)

func writeImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestMetadataFromISO(t *testing.T) {
	r := openSample(t, sampleImage().AddFile("PSP_GAME/ICON0.PNG", icon0))

	sfo, err := r.ReadParamSFO()
	require.NoError(t, err)
	assert.Equal(t, paramSFO, sfo)

	data, err := r.ReadIcon0()
	require.NoError(t, err)
	assert.Equal(t, icon0, data)

	for name, read := range map[string]func() ([]byte, error){
		"ICON1": r.ReadIcon1,
		"PIC0":  r.ReadPic0,
		"PIC1":  r.ReadPic1,
		"SND0":  r.ReadSnd0,
		"PSP":   r.ReadPspData,
		"PSAR":  r.ReadPsarData,
	} {
		data, err := read()
		assert.NoError(t, err, name)
		assert.Nil(t, data, name)
	}
}

func TestReadIcon1(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nicon1")
	pmf := []byte("PSMF0012movie")

	tests := []struct {
		name  string
		files map[string][]byte
		want  []byte
	}{
		{"png", map[string][]byte{"PSP_GAME/ICON1.PNG": png}, png},
		{"pmf", map[string][]byte{"PSP_GAME/ICON1.PMF": pmf}, pmf},
		{"png preferred", map[string][]byte{"PSP_GAME/ICON1.PNG": png, "PSP_GAME/ICON1.PMF": pmf}, png},
		{"missing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleImage()
			for name, data := range tt.files {
				b.AddFile(name, data)
			}
			r := openSample(t, b)

			data, err := r.ReadIcon1()
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestReadMetadataDeviceError(t *testing.T) {
	sfo := bytes.Repeat([]byte{0x5F}, 3*SectorLength+10)
	image := isotest.New().AddFileAt("PSP_GAME/PARAM.SFO", 100, sfo).MinSectors(120).Bytes()

	dev := newCountingDevice(image)
	dev.failFrom = 103
	r, err := NewReader(dev)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadParamSFO()
	assert.ErrorIs(t, err, syscall.EIO)
	assert.Nil(t, data)
}

func TestOpenCompressed(t *testing.T) {
	image := sampleImage().Bytes()

	tests := []struct {
		name      string
		data      []byte
		format    device.Format
		cacheSize int
	}{
		{"cso 2k blocks", isotest.EncodeCSO(image, 2048), device.FormatCSO, 0},
		{"cso 8k blocks", isotest.EncodeCSO(image, 8192), device.FormatCSO, 2},
		{"zso 2k blocks", isotest.EncodeZSO(image, 2048), device.FormatZSO, 1},
		{"zso 16k blocks", isotest.EncodeZSO(image, 16384), device.FormatZSO, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Open(writeImage(t, "game.cso", tt.data), Options{BlockCacheSize: tt.cacheSize})
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, tt.format, r.Format())
			assert.Equal(t, 200, r.NumSectors())

			f, err := r.GetFile("PSP_GAME/SYSDIR/EBOOT.BIN")
			require.NoError(t, err)
			assert.Equal(t, eboot, readAll(t, f))

			f, err = r.GetFile("")
			require.NoError(t, err)
			assert.Equal(t, image, readAll(t, f))
		})
	}
}

func TestOpenPBP(t *testing.T) {
	image := sampleImage().Bytes()
	pbp := isotest.EncodePBP(pbpParamSFO, icon0, nil, nil, nil, nil, dataPSP, image)

	r, err := Open(writeImage(t, "EBOOT.PBP", pbp), Options{})
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.IsPBP())
	assert.Equal(t, device.FormatPBP, r.Format())
	assert.Equal(t, 200, r.NumSectors())

	// The package sections win over the files of the embedded image
	sfo, err := r.ReadParamSFO()
	require.NoError(t, err)
	assert.Equal(t, pbpParamSFO, sfo)

	data, err := r.ReadIcon0()
	require.NoError(t, err)
	assert.Equal(t, icon0, data)

	data, err = r.ReadIcon1()
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = r.ReadPspData()
	require.NoError(t, err)
	assert.Equal(t, dataPSP, data)

	data, err = r.ReadPsarData()
	require.NoError(t, err)
	assert.Equal(t, image, data)

	f, err := r.GetFile("A.TXT")
	require.NoError(t, err)
	assert.Equal(t, aText, readAll(t, f))
}

func TestOpenEncryptedPBP(t *testing.T) {
	psar := append([]byte("NPUMDIMG"), bytes.Repeat([]byte{0x42}, 4*SectorLength)...)
	pbp := isotest.EncodePBP(pbpParamSFO, nil, nil, nil, nil, nil, dataPSP, psar)

	r, err := Open(writeImage(t, "EBOOT.PBP", pbp), Options{})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 0, r.NumSectors())
	assert.Nil(t, r.VolumeDescriptor())

	sfo, err := r.ReadParamSFO()
	require.NoError(t, err)
	assert.Equal(t, pbpParamSFO, sfo)

	_, err = r.GetFile("PSP_GAME/PARAM.SFO")
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = r.GetFile("")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestOpenBuffered(t *testing.T) {
	filesystems := map[string]afero.Fs{
		"os":     nil,
		"memory": afero.NewMemMapFs(),
	}

	for name, fsys := range filesystems {
		t.Run(name, func(t *testing.T) {
			opts := Options{Buffering: true, BufferDir: t.TempDir(), Fs: fsys}

			r, err := Open(sampleImage().WriteFile(t, "game.iso"), opts)
			require.NoError(t, err)
			f, err := r.GetFile("PSP_GAME/SYSDIR/EBOOT.BIN")
			require.NoError(t, err)
			assert.Equal(t, eboot, readAll(t, f))

			buffered, ok := r.Device().(*device.BufferedDevice)
			require.True(t, ok)
			assert.Greater(t, buffered.BufferedSectors(), 0)
			require.NoError(t, r.Close())

			// Reopen with no image: everything read before is served from the buffer
			r, err = Open("", opts)
			require.NoError(t, err)
			assert.Equal(t, 200, r.NumSectors())
			f, err = r.GetFile("PSP_GAME/SYSDIR/EBOOT.BIN")
			require.NoError(t, err)
			assert.Equal(t, eboot, readAll(t, f))
			require.NoError(t, r.Close())

			require.NoError(t, DeleteBufferFiles(opts))
			tocPath, dataPath := device.BufferPaths(opts.BufferDir)
			for _, path := range []string{tocPath, dataPath} {
				exists, err := afero.Exists(opts.fs(), path)
				require.NoError(t, err)
				assert.False(t, exists, path)
			}
			assert.NoError(t, DeleteBufferFiles(opts))
		})
	}
}

func TestOpenBufferedWithoutBuffer(t *testing.T) {
	opts := Options{Buffering: true, BufferDir: t.TempDir(), Fs: afero.NewMemMapFs()}
	_, err := Open("", opts)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type browserDevice struct {
	sfo []byte
}

func (d *browserDevice) NumSectors() int                                 { return 0 }
func (d *browserDevice) ReadSector(int, []byte) error                    { return nil }
func (d *browserDevice) ReadSectors(_, count int, _ []byte) (int, error) { return count, nil }
func (d *browserDevice) Close() error                                    { return nil }
func (d *browserDevice) ReadParamSFO() ([]byte, error)                   { return d.sfo, nil }
func (d *browserDevice) ReadIcon0() ([]byte, error)                      { return nil, nil }
func (d *browserDevice) ReadIcon1() ([]byte, error)                      { return nil, nil }
func (d *browserDevice) ReadPic0() ([]byte, error)                       { return nil, nil }
func (d *browserDevice) ReadPic1() ([]byte, error)                       { return nil, nil }
func (d *browserDevice) ReadSnd0() ([]byte, error)                       { return nil, nil }
func (d *browserDevice) ReadPspData() ([]byte, error)                    { return nil, nil }
func (d *browserDevice) ReadPsarData() ([]byte, error)                   { return nil, nil }

func TestNewReaderWithBrowser(t *testing.T) {
	r, err := NewReader(&browserDevice{sfo: pbpParamSFO})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, device.FormatISO, r.Format())
	sfo, err := r.ReadParamSFO()
	require.NoError(t, err)
	assert.Equal(t, pbpParamSFO, sfo)

	_, err = r.GetFile("A.TXT")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.False(t, r.HasFile(""))
}
