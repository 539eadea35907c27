package common

import (
	"bytes"
	"fmt"
)

// ValidateMagic checks that data starts with the expected signature
func ValidateMagic(data []byte, magic []byte, format string) error {
	if !bytes.HasPrefix(data, magic) {
		n := len(magic)
		if n > len(data) {
			n = len(data)
		}
		return fmt.Errorf("invalid %s header: expected %q, got %q", format, magic, data[:n])
	}
	return nil
}

// ZeroFill clears every byte of buffer
func ZeroFill(buffer []byte) {
	for i := range buffer {
		buffer[i] = 0
	}
}
