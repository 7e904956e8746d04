package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var errNegativeSize = errors.New("must be non-negative")

// sizeUnits maps upper-cased suffixes to byte multipliers. Binary (IEC)
// units come first so "MIB" is not read as "MB" with a stray "I".
var sizeUnits = []struct {
	suffix string
	bytes  float64
}{
	{"TIB", 1 << 40},
	{"GIB", 1 << 30},
	{"MIB", 1 << 20},
	{"KIB", 1 << 10},
	{"TB", 1e12},
	{"GB", 1e9},
	{"MB", 1e6},
	{"KB", 1e3},
	{"B", 1},
}

// ParseSize converts a size such as "100MiB", "2.5GB" or "1048576" to bytes.
// It backs server.max_upload_size. A bare number is raw bytes; empty means 0.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	num, mult := s, float64(1)
	upper := strings.ToUpper(s)

	for _, u := range sizeUnits {
		if strings.HasSuffix(upper, u.suffix) {
			num = strings.TrimSpace(s[:len(s)-len(u.suffix)])
			mult = u.bytes

			break
		}
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("invalid size %q: expected a number with an optional unit (B, KB, KiB, MB, MiB, GB, GiB, TB, TiB)", s)
	}

	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: %w", s, errNegativeSize)
	}

	total := n * mult
	if total >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}

	return int64(total), nil
}
