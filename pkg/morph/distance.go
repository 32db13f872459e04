package morph

import (
	"math"

	"volmorph/internal/models"
	"volmorph/pkg/kernel"
)

// Distance replaces every foreground voxel (value > background) with its
// chamfer distance to the background, using k for the neighbourhood steps.
// The input is expected to be binary.
//
// The forward pass visits voxels in raster order and takes the minimum over
// the causal half of k; the backward pass visits them in reverse and lowers
// each voxel to the minimum over the anti-causal half.
func Distance(k *kernel.Kernel, vol *models.Volume, background float64) error {
	if err := check(k, vol); err != nil {
		return err
	}
	lo, hi, ok := safeRange(k, vol.Sizes)
	if !ok {
		return nil
	}
	causal, anticausal := k.Split()
	fwd, bwd := steps(causal), steps(anticausal)

	raster(lo, hi, false, func(c models.Coord) {
		if vol.At(c) <= background {
			return
		}
		min := math.Inf(1)
		for _, s := range fwd {
			if v := vol.At(shift(c, s)) + 1; v < min {
				min = v
			}
		}
		if !math.IsInf(min, 1) {
			vol.Set(c, min)
		}
	})

	raster(lo, hi, true, func(c models.Coord) {
		cur := vol.At(c)
		if cur <= background {
			return
		}
		min := cur
		for _, s := range bwd {
			if v := vol.At(shift(c, s)) + 1; v < min {
				min = v
			}
		}
		if min < cur {
			vol.Set(c, min)
		}
	})
	return nil
}
