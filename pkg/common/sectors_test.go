// Package common provides tests for sector arithmetic helpers
package common

import "testing"

func TestGetSizeInSectors(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		expected int64
	}{
		{"empty", 0, 0},
		{"one byte", 1, 1},
		{"exact sector", 2048, 1},
		{"one over", 2049, 2},
		{"large", 0x1428, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetSizeInSectors(tt.size); got != tt.expected {
				t.Errorf("GetSizeInSectors(%d) = %d, want %d", tt.size, got, tt.expected)
			}
		})
	}
}

func TestRoundUpToSector(t *testing.T) {
	tests := []struct {
		size     int64
		expected int64
	}{
		{0, 0},
		{50, 2048},
		{2048, 2048},
		{2049, 4096},
	}

	for _, tt := range tests {
		if got := RoundUpToSector(tt.size); got != tt.expected {
			t.Errorf("RoundUpToSector(%d) = %d, want %d", tt.size, got, tt.expected)
		}
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"PARAM.SFO;1", "PARAM.SFO"},
		{"EBOOT.BIN", "EBOOT.BIN"},
		{"DATA;12", "DATA"},
		{";1", ";1"},
	}

	for _, tt := range tests {
		if got := CleanFileName(tt.input); got != tt.expected {
			t.Errorf("CleanFileName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsSpecialDirEntry(t *testing.T) {
	if !IsSpecialDirEntry("\x00") || !IsSpecialDirEntry("\x01") {
		t.Error("IsSpecialDirEntry() should accept 0x00 and 0x01")
	}
	if IsSpecialDirEntry("A") {
		t.Error("IsSpecialDirEntry(\"A\") should be false")
	}
}

func TestExtractFromDirRecord(t *testing.T) {
	record := make([]byte, 34)
	record[2], record[3] = 0x64, 0x00
	record[10], record[11] = 0x32, 0x01

	if got := ExtractLBAFromDirRecord(record); got != 100 {
		t.Errorf("ExtractLBAFromDirRecord() = %d, want 100", got)
	}
	if got := ExtractSizeFromDirRecord(record); got != 0x132 {
		t.Errorf("ExtractSizeFromDirRecord() = %d, want %d", got, 0x132)
	}
	if got := ExtractLBAFromDirRecord(record[:4]); got != 0 {
		t.Errorf("ExtractLBAFromDirRecord() on short record = %d, want 0", got)
	}
}
