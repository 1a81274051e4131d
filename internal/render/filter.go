package render

import (
	"fmt"
	"strings"
)

// DefaultSigma is the Gaussian standard deviation used when the
// configuration does not override it.
const DefaultSigma = 1.0

// Filter selects the denoising step applied on the snapshot path. Live
// plane views always show unfiltered data.
type Filter int

const (
	FilterNone Filter = iota
	FilterGaussian
)

var filterNames = map[Filter]string{
	FilterNone:     "None",
	FilterGaussian: "Gaussian",
}

func (f Filter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// Filters lists the selectable filter names in display order.
func Filters() []string {
	return []string{
		FilterNone.String(),
		FilterGaussian.String(),
	}
}

// ParseFilter resolves a filter name as shown in the selector.
func ParseFilter(name string) (Filter, error) {
	for filter, n := range filterNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return filter, nil
		}
	}
	return FilterNone, fmt.Errorf("unknown filter %q", name)
}

// kernelSize derives the odd Gaussian kernel width from sigma, clamped
// to the 3..15 range.
func kernelSize(sigma float64) int {
	size := int(sigma*6) + 1
	if size%2 == 0 {
		size++
	}
	return max(3, min(size, 15))
}
