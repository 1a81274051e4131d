package dicom

import (
	"strconv"
	"strings"

	dcm "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Attribute helpers tolerant of the value shapes the parser produces.
// Numeric string VRs (DS, IS) arrive as []string, binary VRs as []int or
// []float64, so every accessor coerces from whichever shape it finds.

func elementValue(ds *dcm.Dataset, t tag.Tag) (interface{}, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil || el.Value == nil {
		return nil, false
	}
	return el.Value.GetValue(), true
}

func stringAttr(ds *dcm.Dataset, t tag.Tag) (string, bool) {
	v, ok := elementValue(ds, t)
	if !ok {
		return "", false
	}
	return firstString(v)
}

func intAttr(ds *dcm.Dataset, t tag.Tag) (int, bool) {
	v, ok := elementValue(ds, t)
	if !ok {
		return 0, false
	}
	return firstInt(v)
}

func floatAttr(ds *dcm.Dataset, t tag.Tag) (float64, bool) {
	v, ok := elementValue(ds, t)
	if !ok {
		return 0, false
	}
	return firstFloat(v)
}

func floatListAttr(ds *dcm.Dataset, t tag.Tag) ([]float64, bool) {
	v, ok := elementValue(ds, t)
	if !ok {
		return nil, false
	}
	return floatList(v)
}

func firstString(v interface{}) (string, bool) {
	switch vals := v.(type) {
	case []string:
		if len(vals) == 0 {
			return "", false
		}
		return strings.TrimSpace(vals[0]), true
	case string:
		return strings.TrimSpace(vals), true
	}
	return "", false
}

func firstInt(v interface{}) (int, bool) {
	switch vals := v.(type) {
	case []int:
		if len(vals) == 0 {
			return 0, false
		}
		return vals[0], true
	case []float64:
		if len(vals) == 0 {
			return 0, false
		}
		return int(vals[0]), true
	case []string:
		if len(vals) == 0 {
			return 0, false
		}
		s := strings.TrimSpace(vals[0])
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		// Some writers store IS values with a decimal point.
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

func firstFloat(v interface{}) (float64, bool) {
	switch vals := v.(type) {
	case []float64:
		if len(vals) == 0 {
			return 0, false
		}
		return vals[0], true
	case []int:
		if len(vals) == 0 {
			return 0, false
		}
		return float64(vals[0]), true
	case []string:
		if len(vals) == 0 {
			return 0, false
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func floatList(v interface{}) ([]float64, bool) {
	switch vals := v.(type) {
	case []float64:
		if len(vals) == 0 {
			return nil, false
		}
		out := make([]float64, len(vals))
		copy(out, vals)
		return out, true
	case []int:
		if len(vals) == 0 {
			return nil, false
		}
		out := make([]float64, len(vals))
		for i, n := range vals {
			out[i] = float64(n)
		}
		return out, true
	case []string:
		if len(vals) == 0 {
			return nil, false
		}
		out := make([]float64, len(vals))
		for i, s := range vals {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}
