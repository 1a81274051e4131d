package render

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// Colormap selects the pseudo-color lookup applied to live plane views.
// Snapshots never use one.
type Colormap int

const (
	ColormapGray Colormap = iota
	ColormapJet
	ColormapHot
)

var colormapNames = map[Colormap]string{
	ColormapGray: "gray",
	ColormapJet:  "jet",
	ColormapHot:  "hot",
}

func (c Colormap) String() string {
	if name, ok := colormapNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Colormap(%d)", int(c))
}

// gocvColormap reports the OpenCV lookup table backing the colormap.
// Gray has none; the normalized slice is shown as-is.
func (c Colormap) gocvColormap() (gocv.ColormapTypes, bool) {
	switch c {
	case ColormapJet:
		return gocv.ColormapJet, true
	case ColormapHot:
		return gocv.ColormapHot, true
	default:
		return 0, false
	}
}

// Colormaps lists the selectable colormap names in display order.
func Colormaps() []string {
	return []string{
		ColormapGray.String(),
		ColormapJet.String(),
		ColormapHot.String(),
	}
}

// ParseColormap resolves a colormap name as shown in the selector.
func ParseColormap(name string) (Colormap, error) {
	for cmap, n := range colormapNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return cmap, nil
		}
	}
	return ColormapGray, fmt.Errorf("unknown colormap %q", name)
}
