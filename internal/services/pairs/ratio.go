package pairs

import (
	"math"

	"PairDesk/internal/domain/models"
)

type engineOptions struct {
	sampleStdDev bool
}

// Option configures ComputeSignal.
type Option func(*engineOptions)

// WithSampleStdDev divides by n-1 instead of n when computing the window deviation.
func WithSampleStdDev() Option {
	return func(o *engineOptions) { o.sampleStdDev = true }
}

// WithStdDevMode selects the deviation by name ("sample" or "population").
func WithStdDevMode(mode string) Option {
	return func(o *engineOptions) { o.sampleStdDev = mode == "sample" }
}

// ComputeSignal derives the ratio of the first two aligned columns (first over second),
// standardizes it against the whole window and decides the signal on the latest z-score.
func ComputeSignal(aligned models.AlignedSeriesSet, upperZ float64, opts ...Option) models.RatioAnalysis {
	var o engineOptions
	for _, fn := range opts {
		fn(&o)
	}

	res := models.RatioAnalysis{
		LatestRatio: models.NA(),
		LatestZ:     models.NA(),
		Mean:        models.NA(),
		StdDev:      models.NA(),
		UpperZ:      upperZ,
		Signal:      models.SignalUndefined,
	}
	if len(aligned.Columns) < 2 {
		return res
	}

	ratio := Ratios(aligned.Columns[0].Closes, aligned.Columns[1].Closes)
	z, mean, std := ZScores(ratio, o.sampleStdDev)

	res.Ratio = models.Numbers(ratio)
	res.ZScore = models.Numbers(z)
	res.Mean = models.Number(mean)
	res.StdDev = models.Number(std)
	if n := len(ratio); n > 0 {
		res.LatestRatio = models.Number(ratio[n-1])
		res.LatestZ = models.Number(z[n-1])
	}
	res.Signal = Decide(res.LatestZ, upperZ)
	return res
}

// Ratios divides a by b elementwise. A zero or missing denominator yields NaN.
func Ratios(a, b []float64) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = a[i] / b[i]
	}
	return out
}

// ZScores standardizes xs using the mean and deviation of its defined values.
// With fewer than two defined values, or zero deviation, every z is NaN.
func ZScores(xs []float64, sample bool) (z []float64, mean, std float64) {
	z = make([]float64, len(xs))
	mean, std = math.NaN(), math.NaN()

	var sum float64
	var n int
	for _, x := range xs {
		if defined(x) {
			sum += x
			n++
		}
	}
	if n >= 2 {
		mean = sum / float64(n)
		var ss float64
		for _, x := range xs {
			if defined(x) {
				d := x - mean
				ss += d * d
			}
		}
		denom := float64(n)
		if sample {
			denom = float64(n - 1)
		}
		std = math.Sqrt(ss / denom)
	}

	for i, x := range xs {
		if !defined(x) || !defined(mean) || !defined(std) || std == 0 {
			z[i] = math.NaN()
			continue
		}
		z[i] = (x - mean) / std
	}
	return z, mean, std
}

// Decide applies the strict threshold rule to z.
func Decide(z models.Number, upperZ float64) models.Signal {
	if !z.Defined() || !(upperZ > 0) {
		return models.SignalUndefined
	}
	switch v := z.Float64(); {
	case v > upperZ:
		return models.SignalSellFirstBuySecond
	case v < -upperZ:
		return models.SignalBuyFirstSellSecond
	default:
		return models.SignalNeutral
	}
}

func defined(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
