// Package morph implements the kernel-driven volume transforms: convolution,
// dilation, erosion, binarization, clamping, padding, connected-component
// labeling and the chamfer distance transform.
//
// Two iteration regimes are used. Convolve, Dilate and Erode read a frozen
// snapshot of the input and write the live volume, so the visiting order of
// a pass does not change the result. Label and Distance are wavefront
// algorithms: they read values written earlier in the same pass and depend
// on the forward and reverse raster order.
package morph

import (
	"errors"
	"fmt"

	"volmorph/internal/models"
	"volmorph/pkg/kernel"
)

var (
	// ErrNilKernel is returned when an operation is given no kernel.
	ErrNilKernel = errors.New("morph: nil kernel")
	// ErrNilVolume is returned when an operation is given no volume.
	ErrNilVolume = errors.New("morph: nil volume")
)

// visitor is the combine rule of a windowed scan. It reads the snapshot
// around c and writes into the live volume.
type visitor func(c models.Coord, snap, live *models.Volume)

// check validates the operands of a kernel operation.
func check(k *kernel.Kernel, vol *models.Volume) error {
	if k == nil {
		return ErrNilKernel
	}
	if vol == nil {
		return ErrNilVolume
	}
	if err := k.Validate(); err != nil {
		return fmt.Errorf("kernel does not match its padding: %w", err)
	}
	return nil
}

// safeRange returns the half-open range [lo, hi) of voxels from which every
// row of k addresses a voxel inside a volume of the given sizes. ok is false
// when the range is empty.
func safeRange(k *kernel.Kernel, sizes [models.Dims]int) (lo, hi models.Coord, ok bool) {
	ok = true
	for a := 0; a < models.Dims; a++ {
		lo[a] = -k.PrePad[a]
		hi[a] = sizes[a] - k.PostPad[a]
		if lo[a] >= hi[a] {
			ok = false
		}
	}
	return lo, hi, ok
}

// fullRange covers every voxel of the volume.
func fullRange(vol *models.Volume) (lo, hi models.Coord) {
	return models.Coord{}, models.Coord(vol.Sizes)
}

// raster calls fn for every coordinate in [lo, hi) with x varying fastest and
// v slowest. When reverse is set the coordinates are visited in exactly the
// opposite order. The range must not be empty.
func raster(lo, hi models.Coord, reverse bool, fn func(c models.Coord)) {
	c := lo
	if reverse {
		for a := range c {
			c[a] = hi[a] - 1
		}
	}
	for {
		fn(c)
		a := 0
		for ; a < models.Dims; a++ {
			if reverse {
				c[a]--
				if c[a] >= lo[a] {
					break
				}
				c[a] = hi[a] - 1
			} else {
				c[a]++
				if c[a] < hi[a] {
					break
				}
				c[a] = lo[a]
			}
		}
		if a == models.Dims {
			return
		}
	}
}

// steps converts the kernel rows to integer voxel displacements.
func steps(k *kernel.Kernel) []models.Coord {
	s := make([]models.Coord, len(k.Rows))
	for i, r := range k.Rows {
		s[i] = models.Coord(r.Step())
	}
	return s
}

func shift(c, step models.Coord) models.Coord {
	for a := range c {
		c[a] += step[a]
	}
	return c
}

// windowed runs visit over the padded-safe range of vol against a snapshot
// taken before the first voxel is written.
func windowed(k *kernel.Kernel, vol *models.Volume, visit visitor) error {
	if err := check(k, vol); err != nil {
		return err
	}
	lo, hi, ok := safeRange(k, vol.Sizes)
	if !ok {
		return nil
	}
	snap := vol.Copy()
	raster(lo, hi, false, func(c models.Coord) {
		visit(c, snap, vol)
	})
	return nil
}
