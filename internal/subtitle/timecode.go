package subtitle

import (
	"fmt"
	"math"
	"strings"
)

const nanTime = "--:--:--.---"

// FormatTime renders seconds as HH:MM:SS.mmm. The millisecond field is the
// fractional part rounded to three digits with any carry dropped, so 59.9996
// renders as 00:00:59.000.
func FormatTime(t float64) string {
	if math.IsNaN(t) {
		return nanTime
	}

	h := math.Floor(t / 3600)
	m := math.Floor((t - h*3600) / 60)
	s := math.Floor(math.Mod(t, 60))
	frac := t - math.Floor(t)

	ms := fmt.Sprintf("%.3f", frac)
	if i := strings.IndexByte(ms, '.'); i >= 0 {
		ms = ms[i+1:]
	}

	return fmt.Sprintf("%02d:%02d:%02d.%s", int64(h), int64(m), int64(s), ms)
}

// splits seconds into {h, m, s, ms}; NaN input yields NaN parts
func SplitTime(t float64) [4]float64 {
	if math.IsNaN(t) {
		nan := math.NaN()
		return [4]float64{nan, nan, nan, nan}
	}

	h := math.Floor(t / 3600)
	m := math.Floor((t - h*3600) / 60)
	s := math.Floor(t - h*3600 - m*60)
	ms := math.Floor((t - math.Floor(t)) * 1000)

	return [4]float64{h, m, s, ms}
}

// ResolveTime is the inverse of SplitTime. The millisecond term carries a
// +0.99999 bias so that SplitTime(ResolveTime(p)) floors back to p[3].
func ResolveTime(p [4]float64) float64 {
	for _, v := range p {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	return p[0]*3600 + p[1]*60 + p[2] + (p[3]+0.99999)/1000
}
