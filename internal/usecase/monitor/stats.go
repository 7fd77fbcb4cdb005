package monitor

import (
	"math"
	"sync"
)

// ProfitBands are the mean profit and the bands k standard deviations away
type ProfitBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// ProfitStats summarises the recent profit history of one ratio trade
type ProfitStats struct {
	Samples int
	Mean    float64
	EMA     float64
	StdDev  float64
	ZScore  float64
}

// history keeps the last n profits of every ratio trade
type history struct {
	mu     sync.RWMutex
	n      int
	values map[string][]float64
}

func newHistory(n int) *history {
	return &history{n: n, values: make(map[string][]float64)}
}

func (h *history) add(name string, profit float64) {
	if h.n <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	v := append(h.values[name], profit)
	if len(v) > h.n {
		v = v[len(v)-h.n:]
	}
	h.values[name] = v
}

func (h *history) stats(name string) ProfitStats {
	h.mu.RLock()
	v := append([]float64(nil), h.values[name]...)
	h.mu.RUnlock()

	if len(v) == 0 {
		return ProfitStats{}
	}
	st := ProfitStats{
		Samples: len(v),
		Mean:    SMA(v, len(v)),
		EMA:     EMA(v, len(v)/2+1),
		StdDev:  StdDev(v, len(v)),
	}
	if st.StdDev > 0 {
		st.ZScore = (v[len(v)-1] - st.Mean) / st.StdDev
	}
	return st
}

// SMA calculates Simple Moving Average
func SMA(values []float64, period int) float64 {
	if len(values) < period {
		if len(values) == 0 {
			return 0
		}
		period = len(values)
	}
	if period <= 0 {
		return 0
	}

	sum := 0.0
	for _, p := range values[len(values)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// EMA calculates Exponential Moving Average
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		return SMA(values, len(values))
	}

	multiplier := 2.0 / float64(period+1)
	ema := SMA(values[:period], period)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}

	return ema
}

// StdDev calculates the population standard deviation of the last period values
func StdDev(values []float64, period int) float64 {
	if len(values) < period {
		period = len(values)
	}
	if period == 0 {
		return 0
	}

	recent := values[len(values)-period:]
	mean := SMA(recent, period)
	variance := 0.0
	for _, p := range recent {
		variance += math.Pow(p-mean, 2)
	}
	return math.Sqrt(variance / float64(period))
}

// Bands returns the mean of the last period values and the bands k standard
// deviations away. With fewer values all three collapse to the last one.
func Bands(values []float64, period int, k float64) ProfitBands {
	if len(values) == 0 {
		return ProfitBands{}
	}
	if len(values) < period {
		last := values[len(values)-1]
		return ProfitBands{Upper: last, Middle: last, Lower: last}
	}

	sma := SMA(values, period)
	sd := StdDev(values, period)
	return ProfitBands{
		Upper:  sma + k*sd,
		Middle: sma,
		Lower:  sma - k*sd,
	}
}
