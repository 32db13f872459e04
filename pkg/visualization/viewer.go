// Package visualization exports 2D views of a volume as images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"volmorph/internal/models"
)

// Viewer extracts slices and subregions from the first frame (t = 0, v = 0)
// of a volume. Intensities are scaled linearly from [min(0, lo), hi] of the
// whole volume onto the 16-bit gray range.
type Viewer struct {
	vol *models.Volume

	// lo and hi bound the intensity scaling
	lo float64
	hi float64

	// Labels renders slices with LabelPalette instead of gray levels.
	Labels bool

	// PhysicalAspect resamples slices to the aspect ratio of the voxels.
	PhysicalAspect bool
}

// NewViewer creates a viewer over vol. The volume is not copied; create a
// new viewer after the volume changes.
func NewViewer(vol *models.Volume) *Viewer {
	lo, hi := vol.Range()
	return &Viewer{vol: vol, lo: math.Min(0, lo), hi: hi}
}

func (v *Viewer) gray(value float64) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	scaled := (value - v.lo) / (v.hi - v.lo) * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(scaled))))}
}

// axisIndex maps an axis name to its volume axis.
func axisIndex(axis string) (int, error) {
	switch strings.ToLower(axis) {
	case "x":
		return models.X, nil
	case "y":
		return models.Y, nil
	case "z":
		return models.Z, nil
	}
	return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts a 2D slice perpendicular to axis at position.
// X slices are laid out z across and y down, Y slices x across and z down,
// Z slices x across and y down.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	a, err := axisIndex(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	if position >= v.vol.Sizes[a] {
		return nil, fmt.Errorf("position %d exceeds %s size %d", position, axis, v.vol.Sizes[a])
	}

	w, h, d := v.vol.Sizes[models.X], v.vol.Sizes[models.Y], v.vol.Sizes[models.Z]
	var img *image.Gray16

	switch a {
	case models.X:
		img = image.NewGray16(image.Rect(0, 0, d, h))
		for y := 0; y < h; y++ {
			for z := 0; z < d; z++ {
				img.SetGray16(z, y, v.gray(v.vol.At3(position, y, z)))
			}
		}
	case models.Y:
		img = image.NewGray16(image.Rect(0, 0, w, d))
		for z := 0; z < d; z++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, z, v.gray(v.vol.At3(x, position, z)))
			}
		}
	default:
		img = image.NewGray16(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray16(x, y, v.gray(v.vol.At3(x, y, position)))
			}
		}
	}

	return img, nil
}

// Render extracts a slice honouring the Labels and PhysicalAspect options.
func (v *Viewer) Render(axis string, position int) (image.Image, error) {
	extract := v.ExtractSlice
	if v.Labels {
		extract = v.ExtractLabelSlice
	}
	img, err := extract(axis, position)
	if err != nil {
		return nil, err
	}
	if v.PhysicalAspect {
		img = v.Physical(img, axis)
	}
	return img, nil
}

// ExtractRegion copies a 3D subregion of the first frame into a new volume
// of the same data type.
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (*models.Volume, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	if startX+sizeX > v.vol.Sizes[models.X] ||
		startY+sizeY > v.vol.Sizes[models.Y] ||
		startZ+sizeZ > v.vol.Sizes[models.Z] {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := models.NewVolume3D(sizeX, sizeY, sizeZ, v.vol.Type)
	region.VoxelSize = v.vol.VoxelSize
	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				region.Set3(x, y, z, v.vol.At3(startX+x, startY+y, startZ+z))
			}
		}
	}

	return region, nil
}

// SaveSlice writes img to filename. TIFF files keep the full 16-bit depth;
// every other format is chosen from the extension by imaging.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	default:
		return imaging.Save(img, filename, imaging.JPEGQuality(90))
	}
}

// SaveSliceSequence renders and saves every slice along axis into
// outputDir as slice_<axis>_<pos>.<ext>.
func (v *Viewer) SaveSliceSequence(axis, outputDir, ext string) error {
	a, err := axisIndex(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	ext = strings.TrimPrefix(ext, ".")

	for pos := 0; pos < v.vol.Sizes[a]; pos++ {
		img, err := v.Render(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", strings.ToLower(axis), pos, ext))
		if err := v.SaveSlice(img, filename); err != nil {
			return fmt.Errorf("failed to save %s: %w", filename, err)
		}
	}

	return nil
}
