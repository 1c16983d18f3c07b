package stats

import "math"

// RollingMean computes the trailing mean over window. Entries before the
// window fills are NaN.
func RollingMean(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	if window < 1 || window > len(series) {
		return out
	}
	var sum float64
	for t, v := range series {
		sum += v
		if t >= window {
			sum -= series[t-window]
		}
		if t >= window-1 {
			out[t] = sum / float64(window)
		}
	}
	return out
}

// RollingVar computes the trailing sample variance (n-1 denominator) over
// window. Entries before the window fills are NaN.
func RollingVar(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	if window < 2 || window > len(series) {
		return out
	}
	for t := window - 1; t < len(series); t++ {
		out[t] = sampleVar(series[t-window+1 : t+1])
	}
	return out
}

// RollingStd is the square root of RollingVar.
func RollingStd(series []float64, window int) []float64 {
	out := RollingVar(series, window)
	for t, v := range out {
		if !math.IsNaN(v) {
			out[t] = math.Sqrt(v)
		}
	}
	return out
}

// RollingZScore measures how many trailing standard deviations each value lies
// from its trailing mean. The first window-1 entries are NaN, as is any entry
// where the trailing deviation is zero.
func RollingZScore(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	mean := RollingMean(series, window)
	std := RollingStd(series, window)
	for t := range series {
		if math.IsNaN(mean[t]) || math.IsNaN(std[t]) || std[t] == 0 {
			continue
		}
		out[t] = (series[t] - mean[t]) / std[t]
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator), or 0 when
// fewer than two values are supplied.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return math.Sqrt(sampleVar(values))
}

func sampleVar(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return ss / float64(len(values)-1)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
