package volume

import (
	"fmt"
	"strings"
)

// Plane identifies one of the three orthogonal reconstruction planes.
type Plane int

const (
	// Axial slices are perpendicular to the patient Z axis (head-foot).
	Axial Plane = iota
	// Coronal slices are perpendicular to the patient Y axis (front-back).
	Coronal
	// Sagittal slices are perpendicular to the patient X axis (left-right).
	Sagittal
)

var planeNames = map[Plane]string{
	Axial:    "axial",
	Coronal:  "coronal",
	Sagittal: "sagittal",
}

func (p Plane) String() string {
	if name, ok := planeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("plane(%d)", int(p))
}

// DisplayName returns the capitalized label used in the interface.
func (p Plane) DisplayName() string {
	name := p.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// Planes returns the three planes in display order.
func Planes() []Plane {
	return []Plane{Axial, Coronal, Sagittal}
}

// ParsePlane converts a plane name to its Plane value.
func ParsePlane(name string) (Plane, error) {
	for plane, n := range planeNames {
		if n == name {
			return plane, nil
		}
	}
	return Axial, fmt.Errorf("unknown plane %q", name)
}
