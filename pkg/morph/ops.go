package morph

import (
	"volmorph/internal/models"
	"volmorph/pkg/kernel"
)

// Convolve replaces every voxel of the padded-safe range with the weighted
// sum of its kernel neighbours.
func Convolve(k *kernel.Kernel, vol *models.Volume) error {
	st := steps(k)
	return windowed(k, vol, func(c models.Coord, snap, live *models.Volume) {
		sum := 0.0
		for i, r := range k.Rows {
			sum += snap.At(shift(c, st[i])) * r.Coeff
		}
		live.Set(c, sum)
	})
}

// Dilate pushes each voxel's value outwards: a neighbour whose live value is
// below the voxel's original value is raised to that value scaled by the
// row coefficient.
func Dilate(k *kernel.Kernel, vol *models.Volume) error {
	st := steps(k)
	return windowed(k, vol, func(c models.Coord, snap, live *models.Volume) {
		value := snap.At(c)
		for i, r := range k.Rows {
			n := shift(c, st[i])
			if live.At(n) < value {
				live.Set(n, value*r.Coeff)
			}
		}
	})
}

// Erode keeps a voxel only when every kernel neighbour is at least as large,
// otherwise it is set to zero.
func Erode(k *kernel.Kernel, vol *models.Volume) error {
	st := steps(k)
	return windowed(k, vol, func(c models.Coord, snap, live *models.Volume) {
		value := snap.At(c)
		for i := range k.Rows {
			if snap.At(shift(c, st[i])) < value {
				live.Set(c, 0)
				return
			}
		}
		live.Set(c, value)
	})
}

// Binarize returns a new Byte volume holding foreground where the input lies
// in [floor, ceil] and background elsewhere. The input is not modified and
// the caller takes ownership of the result.
func Binarize(vol *models.Volume, floor, ceil, foreground, background float64) *models.Volume {
	out := vol.CopyDefinition(models.Byte)
	fg := out.Type.Quantize(foreground)
	bg := out.Type.Quantize(background)
	for i, v := range vol.Data {
		if v >= floor && v <= ceil {
			out.Data[i] = fg
		} else {
			out.Data[i] = bg
		}
	}
	return out
}

// Clamp sets every voxel outside [floor, ceil] to background in place.
func Clamp(vol *models.Volume, floor, ceil, background float64) {
	bg := vol.Type.Quantize(background)
	for i, v := range vol.Data {
		if v < floor || v > ceil {
			vol.Data[i] = bg
		}
	}
}

// Pad fills the border slabs that the kernel cannot reach from the inside,
// [0, -PrePad) and [size-PostPad, size) on every axis, with value.
func Pad(k *kernel.Kernel, vol *models.Volume, value float64) error {
	if err := check(k, vol); err != nil {
		return err
	}
	lo, hi := fullRange(vol)
	raster(lo, hi, false, func(c models.Coord) {
		for a := 0; a < models.Dims; a++ {
			if c[a] < -k.PrePad[a] || c[a] >= vol.Sizes[a]-k.PostPad[a] {
				vol.Set(c, value)
				return
			}
		}
	})
	return nil
}
