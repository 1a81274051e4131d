package volume

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// statsSampleLimit bounds the number of voxels fed into the statistics
// pass so loading a large series stays fast.
const statsSampleLimit = 1 << 20

// Stats summarises the intensity distribution of a volume. P01 and P99
// are the robust 1st/99th percentiles over a strided voxel sample.
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	P01    float64
	P99    float64
}

// ComputeStats calculates (and caches) intensity statistics for the
// volume. The percentiles come from a strided sample of at most
// statsSampleLimit voxels; min and max are exact.
func (v *Volume) ComputeStats() Stats {
	if v.stats != nil {
		return *v.stats
	}

	s := Stats{}
	if len(v.Data) == 0 {
		v.stats = &s
		return s
	}

	stride := len(v.Data)/statsSampleLimit + 1
	sample := make([]float64, 0, len(v.Data)/stride+1)

	s.Min = float64(v.Data[0])
	s.Max = float64(v.Data[0])
	for i, raw := range v.Data {
		val := float64(raw)
		if val < s.Min {
			s.Min = val
		}
		if val > s.Max {
			s.Max = val
		}
		if i%stride == 0 {
			sample = append(sample, val)
		}
	}

	s.Mean = stat.Mean(sample, nil)
	s.StdDev = stat.StdDev(sample, nil)

	sort.Float64s(sample)
	s.P01 = stat.Quantile(0.01, stat.Empirical, sample, nil)
	s.P99 = stat.Quantile(0.99, stat.Empirical, sample, nil)

	v.stats = &s
	return s
}
