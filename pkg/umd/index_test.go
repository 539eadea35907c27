package umd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbonini/umdtools/pkg/iso9660"
)

func TestDumpIndex(t *testing.T) {
	r := openSample(t, sampleImage())

	var out strings.Builder
	require.NoError(t, r.DumpIndex(&out))

	expected := strings.Join([]string{
		"  Start    Size       Name\n",
		"  00000064         50 A.TXT\n",
		"D 00000015       2048 PSP_GAME\n",
		"  00000065         22 PSP_GAME/PARAM.SFO\n",
		"D 00000016       2048 PSP_GAME/SYSDIR\n",
		"  00000066       6244 PSP_GAME/SYSDIR/EBOOT.BIN\n",
		"D 00000017       2048 PSP_GAME/USRDIR\n",
		"Total Size      18432\n",
		"Image Size     409600\n",
		"Missing        391168 (191 sectors)\n",
	}, "")
	assert.Equal(t, expected, out.String())
}

func TestDumpIndexFile(t *testing.T) {
	r := openSample(t, sampleImage())

	path := filepath.Join(t.TempDir(), "index.txt")
	require.NoError(t, r.DumpIndexFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "  Start    Size       Name\n"))
	assert.Contains(t, string(data), "PSP_GAME/SYSDIR/EBOOT.BIN\n")
}

func TestGetFileName(t *testing.T) {
	r := openSample(t, sampleImage())

	tests := []struct {
		sector   int
		expected string
		found    bool
	}{
		{100, "A.TXT", true},
		{21, "PSP_GAME", true},
		{101, "PSP_GAME/PARAM.SFO", true},
		{102, "PSP_GAME/SYSDIR/EBOOT.BIN", true},
		{103, "", false},
		{5, "", false},
	}

	for _, tt := range tests {
		name, found := r.GetFileName(tt.sector)
		assert.Equal(t, tt.found, found, "sector %d", tt.sector)
		assert.Equal(t, tt.expected, name, "sector %d", tt.sector)
	}
}

func TestWalk(t *testing.T) {
	r := openSample(t, sampleImage())

	var paths []string
	err := r.Walk(func(filePath string, info *iso9660.File) error {
		paths = append(paths, filePath)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"A.TXT",
		"PSP_GAME",
		"PSP_GAME/PARAM.SFO",
		"PSP_GAME/SYSDIR",
		"PSP_GAME/SYSDIR/EBOOT.BIN",
		"PSP_GAME/USRDIR",
	}, paths)
}
