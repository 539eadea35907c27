package common

import (
	"fmt"
	"math"
)

// SafeInt64ToInt32 safely converts int64 to int32 with bounds checking
func SafeInt64ToInt32(value int64) (int32, error) {
	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, fmt.Errorf("value %d out of range for int32 (%d-%d)", value, math.MinInt32, math.MaxInt32)
	}
	return int32(value), nil
}

// SafeUint64ToInt32 safely converts uint64 to int32 with bounds checking (sector counts)
func SafeUint64ToInt32(value uint64) (int32, error) {
	if value > math.MaxInt32 {
		return 0, fmt.Errorf("value %d out of range for int32 (0-%d)", value, math.MaxInt32)
	}
	return int32(value), nil
}

// SafeIntToUint32 safely converts int to uint32 with bounds checking
func SafeIntToUint32(value int) (uint32, error) {
	if value < 0 {
		return 0, fmt.Errorf("value %d is negative, cannot convert to uint32", value)
	}
	if uint64(value) > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range for uint32 (0-%d)", value, math.MaxUint32)
	}
	return uint32(value), nil
}
