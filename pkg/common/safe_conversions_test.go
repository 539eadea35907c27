package common

import (
	"math"
	"testing"
)

func TestSafeInt64ToInt32(t *testing.T) {
	tests := []struct {
		name     string
		value    int64
		expected int32
		hasError bool
	}{
		{"zero", 0, 0, false},
		{"sector", 0x5fa0, 0x5fa0, false},
		{"max", math.MaxInt32, math.MaxInt32, false},
		{"negative", -1, -1, false},
		{"overflow", math.MaxInt32 + 1, 0, true},
		{"underflow", math.MinInt32 - 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeInt64ToInt32(tt.value)
			if tt.hasError {
				if err == nil {
					t.Errorf("SafeInt64ToInt32(%d) should fail", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("SafeInt64ToInt32(%d) failed: %v", tt.value, err)
			}
			if got != tt.expected {
				t.Errorf("SafeInt64ToInt32(%d) = %d, want %d", tt.value, got, tt.expected)
			}
		})
	}
}

func TestSafeUint64ToInt32(t *testing.T) {
	if got, err := SafeUint64ToInt32(1800); err != nil || got != 1800 {
		t.Errorf("SafeUint64ToInt32(1800) = %d, %v", got, err)
	}
	if _, err := SafeUint64ToInt32(math.MaxUint32); err == nil {
		t.Error("SafeUint64ToInt32(MaxUint32) should fail")
	}
}

func TestSafeIntToUint32(t *testing.T) {
	if got, err := SafeIntToUint32(42); err != nil || got != 42 {
		t.Errorf("SafeIntToUint32(42) = %d, %v", got, err)
	}
	if _, err := SafeIntToUint32(-1); err == nil {
		t.Error("SafeIntToUint32(-1) should fail")
	}
}
