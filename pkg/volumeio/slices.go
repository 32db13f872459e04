package volumeio

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"volmorph/internal/models"
)

var sliceExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".bmp": true, ".gif": true,
}

// ReadSliceStack builds a Float volume from a directory of 2D images, one
// image per z slice. Files are ordered by the number embedded in their name
// and intensities are normalized to [0, 1].
func ReadSliceStack(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sliceExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}

	// Sort by slice number so that slice_10 follows slice_9
	sort.SliceStable(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	var vol *models.Volume
	for z, name := range names {
		img, err := imaging.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}
		b := img.Bounds()
		if vol == nil {
			vol = models.NewVolume3D(b.Dx(), b.Dy(), len(names), models.Float)
		} else if b.Dx() != vol.Sizes[models.X] || b.Dy() != vol.Sizes[models.Y] {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				name, b.Dx(), b.Dy(), vol.Sizes[models.X], vol.Sizes[models.Y])
		}
		copySlice(vol, img, z)
	}
	return vol, nil
}

// copySlice writes the luminance of img into slice z of vol.
func copySlice(vol *models.Volume, img image.Image, z int) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			vol.Set3(x, y, z, float64(g.Y)/65535.0)
		}
	}
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	numStr := ""
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr == "" {
		return 0
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}
	return num
}
