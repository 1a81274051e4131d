// Package dicom reads DICOM series from disk and assembles them into
// renderable volumes. Files are grouped by series instance UID, ordered
// along the slice normal and stacked with the modality rescale applied.
package dicom

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"mpr-visualizer/internal/volume"

	dcm "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"gonum.org/v1/gonum/floats"
)

// ErrNoSeries reports that a directory holds no readable DICOM slices.
var ErrNoSeries = errors.New("no DICOM files found in the selected directory")

// SeriesInfo carries display metadata for a loaded series.
type SeriesInfo struct {
	SeriesUID   string
	Description string
	Modality    string
	PatientID   string
	SliceCount  int
	SortedBy    string
}

// instance is one parsed slice file plus the attributes that drive
// ordering and stacking.
type instance struct {
	path    string
	dataset dcm.Dataset

	rows int
	cols int

	seriesUID   string
	modality    string
	description string
	patientID   string
	photometric string

	instanceNumber    int
	hasInstanceNumber bool
	sliceLocation     float64
	hasSliceLocation  bool

	// projection is the image position projected onto the slice normal.
	projection    float64
	hasProjection bool

	rescaleSlope     float64
	rescaleIntercept float64

	pixelSpacing      []float64 // row spacing, column spacing
	spacingBetween    float64
	hasSpacingBetween bool
	thickness         float64
	hasThickness      bool
}

// Reader assembles the DICOM files of a directory into a volume.
type Reader struct {
	logger Logger
	timing TimingTracker
	files  FileTracker
}

func NewReader(logger Logger, timing TimingTracker, files FileTracker) *Reader {
	return &Reader{
		logger: logger,
		timing: timing,
		files:  files,
	}
}

// ReadSeries scans dir, picks the largest series in it and stacks its
// slices into a volume. Files that fail to parse as DICOM are skipped.
func (r *Reader) ReadSeries(dir string) (*volume.Volume, SeriesInfo, error) {
	ctx := r.timing.StartTiming("read_series")
	defer r.timing.EndTiming(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, SeriesInfo{}, fmt.Errorf("failed to read directory: %w", err)
	}

	instances := r.parseDirectory(dir, entries)
	if len(instances) == 0 {
		return nil, SeriesInfo{}, ErrNoSeries
	}

	series := selectLargestSeries(instances)
	if len(series) < len(instances) {
		r.logger.Warning("SeriesReader", "directory holds multiple series, using the largest", map[string]interface{}{
			"total_files":  len(instances),
			"series_files": len(series),
			"series_uid":   series[0].seriesUID,
		})
	}

	sortedBy := sortInstances(series)

	vol, err := r.buildVolume(series)
	if err != nil {
		return nil, SeriesInfo{}, err
	}

	info := SeriesInfo{
		SeriesUID:   series[0].seriesUID,
		Description: series[0].description,
		Modality:    series[0].modality,
		PatientID:   series[0].patientID,
		SliceCount:  len(series),
		SortedBy:    sortedBy,
	}

	r.logger.Info("SeriesReader", "series loaded", map[string]interface{}{
		"slices":    vol.Depth,
		"rows":      vol.Height,
		"columns":   vol.Width,
		"modality":  info.Modality,
		"sorted_by": sortedBy,
		"spacing_x": vol.Spacing.X,
		"spacing_y": vol.Spacing.Y,
		"spacing_z": vol.Spacing.Z,
	})

	return vol, info, nil
}

func (r *Reader) parseDirectory(dir string, entries []os.DirEntry) []*instance {
	instances := make([]*instance, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		inst, err := r.parseInstance(path)
		if err != nil {
			r.logger.Debug("SeriesReader", "skipping file", map[string]interface{}{
				"file":   entry.Name(),
				"reason": err.Error(),
			})
			continue
		}
		instances = append(instances, inst)
	}
	return instances
}

func (r *Reader) parseInstance(path string) (*instance, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	fd := file.Fd()
	r.files.TrackOpen(path, fd)
	defer func() {
		file.Close()
		r.files.TrackClose(path, fd)
	}()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat file: %w", err)
	}

	ds, err := dcm.Parse(file, stat.Size(), nil)
	if err != nil {
		return nil, fmt.Errorf("not a readable DICOM file: %w", err)
	}

	inst := &instance{
		path:         path,
		dataset:      ds,
		rescaleSlope: 1,
	}

	var ok bool
	if inst.rows, ok = intAttr(&inst.dataset, tag.Rows); !ok {
		return nil, errors.New("missing Rows attribute")
	}
	if inst.cols, ok = intAttr(&inst.dataset, tag.Columns); !ok {
		return nil, errors.New("missing Columns attribute")
	}
	if _, err := inst.dataset.FindElementByTag(tag.PixelData); err != nil {
		return nil, errors.New("missing PixelData attribute")
	}

	inst.seriesUID, _ = stringAttr(&inst.dataset, tag.SeriesInstanceUID)
	inst.modality, _ = stringAttr(&inst.dataset, tag.Modality)
	inst.description, _ = stringAttr(&inst.dataset, tag.SeriesDescription)
	inst.patientID, _ = stringAttr(&inst.dataset, tag.PatientID)
	inst.photometric, _ = stringAttr(&inst.dataset, tag.PhotometricInterpretation)

	inst.instanceNumber, inst.hasInstanceNumber = intAttr(&inst.dataset, tag.InstanceNumber)
	inst.sliceLocation, inst.hasSliceLocation = floatAttr(&inst.dataset, tag.SliceLocation)

	if slope, ok := floatAttr(&inst.dataset, tag.RescaleSlope); ok && slope != 0 {
		inst.rescaleSlope = slope
	}
	if intercept, ok := floatAttr(&inst.dataset, tag.RescaleIntercept); ok {
		inst.rescaleIntercept = intercept
	}

	inst.pixelSpacing, _ = floatListAttr(&inst.dataset, tag.PixelSpacing)
	inst.spacingBetween, inst.hasSpacingBetween = floatAttr(&inst.dataset, tag.SpacingBetweenSlices)
	inst.thickness, inst.hasThickness = floatAttr(&inst.dataset, tag.SliceThickness)

	position, hasPos := floatListAttr(&inst.dataset, tag.ImagePositionPatient)
	orientation, hasOrient := floatListAttr(&inst.dataset, tag.ImageOrientationPatient)
	if hasPos && hasOrient && len(position) >= 3 {
		if normal, ok := sliceNormal(orientation); ok {
			inst.projection = floats.Dot(position[:3], normal[:])
			inst.hasProjection = true
		}
	}

	return inst, nil
}

// selectLargestSeries groups instances by series UID and returns the
// biggest group. UIDs are visited in sorted order so ties stay stable.
func selectLargestSeries(instances []*instance) []*instance {
	groups := make(map[string][]*instance)
	for _, inst := range instances {
		groups[inst.seriesUID] = append(groups[inst.seriesUID], inst)
	}

	uids := make([]string, 0, len(groups))
	for uid := range groups {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	var best []*instance
	for _, uid := range uids {
		if len(groups[uid]) > len(best) {
			best = groups[uid]
		}
	}
	return best
}

// sortInstances orders slices along the scan axis. Spatial ordering by
// the projected image position wins when every slice carries it, with
// instance number, slice location and file name as fallbacks.
func sortInstances(instances []*instance) string {
	switch {
	case all(instances, func(i *instance) bool { return i.hasProjection }):
		sort.SliceStable(instances, func(a, b int) bool {
			return instances[a].projection < instances[b].projection
		})
		return "position"
	case all(instances, func(i *instance) bool { return i.hasInstanceNumber }):
		sort.SliceStable(instances, func(a, b int) bool {
			return instances[a].instanceNumber < instances[b].instanceNumber
		})
		return "instance_number"
	case all(instances, func(i *instance) bool { return i.hasSliceLocation }):
		sort.SliceStable(instances, func(a, b int) bool {
			return instances[a].sliceLocation < instances[b].sliceLocation
		})
		return "slice_location"
	default:
		sort.SliceStable(instances, func(a, b int) bool {
			return instances[a].path < instances[b].path
		})
		return "filename"
	}
}

func all(instances []*instance, pred func(*instance) bool) bool {
	for _, inst := range instances {
		if !pred(inst) {
			return false
		}
	}
	return true
}

// sliceNormal is the cross product of the row and column direction
// cosines from ImageOrientationPatient.
func sliceNormal(orientation []float64) ([3]float64, bool) {
	if len(orientation) < 6 {
		return [3]float64{}, false
	}
	r := orientation[0:3]
	c := orientation[3:6]
	return [3]float64{
		r[1]*c[2] - r[2]*c[1],
		r[2]*c[0] - r[0]*c[2],
		r[0]*c[1] - r[1]*c[0],
	}, true
}

// inferZSpacing derives the distance between slice centres, preferring
// measured position deltas over the declared spacing attributes.
func inferZSpacing(instances []*instance) float64 {
	if len(instances) > 1 && all(instances, func(i *instance) bool { return i.hasProjection }) {
		deltas := make([]float64, 0, len(instances)-1)
		for i := 1; i < len(instances); i++ {
			d := math.Abs(instances[i].projection - instances[i-1].projection)
			if d > 0 {
				deltas = append(deltas, d)
			}
		}
		if len(deltas) > 0 {
			sort.Float64s(deltas)
			return deltas[len(deltas)/2]
		}
	}

	first := instances[0]
	if first.hasSpacingBetween && first.spacingBetween > 0 {
		return first.spacingBetween
	}
	if first.hasThickness && first.thickness > 0 {
		return first.thickness
	}
	return 1
}

func (r *Reader) buildVolume(instances []*instance) (*volume.Volume, error) {
	ctx := r.timing.StartTiming("build_volume")
	defer r.timing.EndTiming(ctx)

	first := instances[0]
	rows, cols := first.rows, first.cols
	data := make([]float32, cols*rows*len(instances))

	for z, inst := range instances {
		if inst.rows != rows || inst.cols != cols {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				filepath.Base(inst.path), inst.cols, inst.rows, cols, rows)
		}
		dst := data[z*cols*rows : (z+1)*cols*rows]
		if err := fillSlice(dst, inst); err != nil {
			return nil, fmt.Errorf("failed to read pixel data from %s: %w", filepath.Base(inst.path), err)
		}
	}

	if first.photometric == "MONOCHROME1" {
		r.logger.Warning("SeriesReader", "MONOCHROME1 series, intensities are stored inverted", map[string]interface{}{
			"series_uid": first.seriesUID,
		})
	}

	spacing := volume.Spacing{Z: inferZSpacing(instances)}
	if len(first.pixelSpacing) >= 2 {
		spacing.Y = first.pixelSpacing[0]
		spacing.X = first.pixelSpacing[1]
	}

	return volume.New(data, cols, rows, len(instances), spacing)
}

// fillSlice copies the first frame of an instance into dst with the
// rescale slope and intercept applied.
func fillSlice(dst []float32, inst *instance) error {
	el, err := inst.dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return fmt.Errorf("missing pixel data: %w", err)
	}
	info := dcm.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return errors.New("pixel data holds no frames")
	}

	fr := info.Frames[0]
	if !fr.Encapsulated {
		native := fr.NativeData
		if len(native.Data) != len(dst) {
			return fmt.Errorf("frame has %d pixels, expected %d", len(native.Data), len(dst))
		}
		for i, samples := range native.Data {
			if len(samples) == 0 {
				return fmt.Errorf("pixel %d has no samples", i)
			}
			dst[i] = rescale(float64(samples[0]), inst)
		}
		return nil
	}

	img, err := fr.GetImage()
	if err != nil {
		return fmt.Errorf("cannot decode encapsulated frame: %w", err)
	}
	return imageToSlice(dst, img, inst)
}

func rescale(raw float64, inst *instance) float32 {
	return float32(raw*inst.rescaleSlope + inst.rescaleIntercept)
}

func imageToSlice(dst []float32, img image.Image, inst *instance) error {
	bounds := img.Bounds()
	if bounds.Dx() != inst.cols || bounds.Dy() != inst.rows {
		return fmt.Errorf("decoded frame is %dx%d, expected %dx%d",
			bounds.Dx(), bounds.Dy(), inst.cols, inst.rows)
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			dst[i] = rescale(float64(g.Y), inst)
			i++
		}
	}
	return nil
}
