package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets num out of every den events through. A zero ratio
// lets everything through.
type ratioSampler struct {
	ratio atomic.Pointer[[2]uint64]
	count atomic.Uint64
}

func newRatioSampler(num, den int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(num, den)
	return s
}

// Set replaces the ratio and restarts the cycle.
func (s *ratioSampler) Set(num, den int) {
	if num <= 0 || den <= 0 {
		s.ratio.Store(nil)
	} else {
		s.ratio.Store(&[2]uint64{uint64(min(num, den)), uint64(den)})
	}
	s.count.Store(0)
}

// Allow passes the first num events of each cycle of den.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == nil {
		return true
	}
	return (s.count.Add(1)-1)%r[1] < r[0]
}

// parseRatioSpec reads "N/M", "M" (one in M), "N%" or "all". Anything
// else disables sampling so every debug event passes.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" || spec == "all" {
		return 0, 0
	}
	if pct, ok := strings.CutSuffix(spec, "%"); ok {
		if n := atoi(pct); n > 0 && n < 100 {
			return n, 100
		}
		return 0, 0
	}
	if num, den, ok := strings.Cut(spec, "/"); ok {
		if n, d := atoi(num), atoi(den); n > 0 && d > 0 {
			return n, d
		}
		return 0, 0
	}
	if every := atoi(spec); every > 0 {
		return 1, every
	}
	return 0, 0
}

// atoi returns -1 for anything that is not a base-10 integer.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}
