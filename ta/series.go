package ta

import "math"

// Apply runs a streaming indicator over a series. NaN inputs do not update
// the indicator. Outputs are NaN until the indicator is ready.
func Apply(ind Indicator, series []float64) []float64 {
	out := make([]float64, len(series))
	for i, x := range series {
		out[i] = math.NaN()
		if math.IsNaN(x) {
			continue
		}
		ind.Update(x)
		if ind.Ready() {
			out[i] = ind.Value()
		}
	}
	return out
}

// SMAOf is the simple moving average of a series.
func SMAOf(series []float64, period int) []float64 {
	return Apply(NewSMA(period), series)
}

// EMAOf is the exponential moving average of a series.
func EMAOf(series []float64, period int) []float64 {
	return Apply(NewEMA(period), series)
}

// SMMAOf is the smoothed moving average of a series.
func SMMAOf(series []float64, period int) []float64 {
	return Apply(NewSMMA(period), series)
}

// RSIOf is the relative strength index of a series.
func RSIOf(series []float64, period int) []float64 {
	return Apply(NewRSI(period), series)
}

// window calls f for every full window of length n ending at index i.
// Windows containing NaN yield NaN.
func window(series []float64, n int, f func(w []float64) float64) []float64 {
	out := make([]float64, len(series))
	for i := range series {
		out[i] = math.NaN()
		if i+1 < n {
			continue
		}
		w := series[i+1-n : i+1]
		ok := true
		for _, x := range w {
			if math.IsNaN(x) {
				ok = false
				break
			}
		}
		if ok {
			out[i] = f(w)
		}
	}
	return out
}

// Highest is the highest value over the last n elements.
func Highest(series []float64, n int) []float64 {
	return window(series, n, func(w []float64) float64 {
		m := w[0]
		for _, x := range w[1:] {
			m = math.Max(m, x)
		}
		return m
	})
}

// Lowest is the lowest value over the last n elements.
func Lowest(series []float64, n int) []float64 {
	return window(series, n, func(w []float64) float64 {
		m := w[0]
		for _, x := range w[1:] {
			m = math.Min(m, x)
		}
		return m
	})
}

// Change is the difference to the value n elements back.
func Change(series []float64, n int) []float64 {
	return window(series, n+1, func(w []float64) float64 {
		return w[len(w)-1] - w[0]
	})
}

// WMA is the linearly weighted moving average, the most recent element
// having weight n.
func WMA(series []float64, n int) []float64 {
	denom := float64(n*(n+1)) / 2
	return window(series, n, func(w []float64) float64 {
		sum := 0.0
		for i, x := range w {
			sum += float64(i+1) * x
		}
		return sum / denom
	})
}

// Stdev is the population standard deviation over the last n elements.
func Stdev(series []float64, n int) []float64 {
	return window(series, n, func(w []float64) float64 {
		mean := 0.0
		for _, x := range w {
			mean += x
		}
		mean /= float64(len(w))
		v := 0.0
		for _, x := range w {
			v += (x - mean) * (x - mean)
		}
		return math.Sqrt(v / float64(len(w)))
	})
}

// BBands are Bollinger bands: the SMA plus/minus k standard deviations.
func BBands(series []float64, n int, k float64) (upper, middle, lower []float64) {
	middle = SMAOf(series, n)
	dev := Stdev(series, n)
	upper = make([]float64, len(series))
	lower = make([]float64, len(series))
	for i := range series {
		upper[i] = middle[i] + k*dev[i]
		lower[i] = middle[i] - k*dev[i]
	}
	return
}

// Crossover is true where a crosses b from below.
func Crossover(a, b []float64) []bool {
	return cross(a, b, func(pa, pb, ca, cb float64) bool { return pa <= pb && ca > cb })
}

// Crossunder is true where a crosses b from above.
func Crossunder(a, b []float64) []bool {
	return cross(a, b, func(pa, pb, ca, cb float64) bool { return pa >= pb && ca < cb })
}

func cross(a, b []float64, crossed func(pa, pb, ca, cb float64) bool) []bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]bool, n)
	for i := 1; i < n; i++ {
		pa, pb, ca, cb := a[i-1], b[i-1], a[i], b[i]
		if math.IsNaN(pa) || math.IsNaN(pb) || math.IsNaN(ca) || math.IsNaN(cb) {
			continue
		}
		out[i] = crossed(pa, pb, ca, cb)
	}
	return out
}
