package morph

import (
	"math"

	"volmorph/internal/models"
	"volmorph/pkg/kernel"
)

// LabelOptions controls which components survive labeling.
type LabelOptions struct {
	// Floor and Ceil inclusively bound the size (in voxels) of kept
	// components. Use math.MaxFloat64 for no upper bound.
	Floor float64
	Ceil  float64

	// MaxGroups is the number of largest components kept; <= 0 keeps all.
	MaxGroups int
}

// DefaultLabelOptions keeps every component, largest first.
func DefaultLabelOptions() LabelOptions {
	return LabelOptions{Floor: 0, Ceil: math.MaxFloat64}
}

func (o LabelOptions) keep(size int) bool {
	s := float64(size)
	return s >= o.Floor && s <= o.Ceil
}

// LabelResult summarises a labeling run.
type LabelResult struct {
	// Provisional is the number of labels issued by the forward pass.
	Provisional int
	// Groups are the kept components in output label order.
	Groups []Group
	// Dropped counts components removed by the size range or MaxGroups.
	Dropped int
	// Voxels is the number of voxels carrying a non-zero output label.
	Voxels int
}

// Sizes returns the component sizes in output label order.
func (r *LabelResult) Sizes() []float64 {
	s := make([]float64, len(r.Groups))
	for i, g := range r.Groups {
		s[i] = float64(g.Size)
	}
	return s
}

// Label replaces every voxel of vol with the rank of the connected component
// it belongs to: 1 for the largest component, 2 for the next and so on, and
// 0 for background and for components that were not kept. Voxels with a
// value > 0 are foreground; connectivity is given by k, which is assumed to
// be point-symmetric.
//
// Only voxels inside the padded-safe range of the causal half of k are
// labeled; pad the volume first if border voxels matter.
func Label(k *kernel.Kernel, vol *models.Volume, opts LabelOptions) (*LabelResult, error) {
	if err := check(k, vol); err != nil {
		return nil, err
	}
	causal, _ := k.Split()
	st := steps(causal)

	work := vol.CopyDefinition(models.Double)
	eq := NewEquivalence()
	matches := make([]int, 0, len(st))

	if lo, hi, ok := safeRange(causal, vol.Sizes); ok {
		raster(lo, hi, false, func(c models.Coord) {
			if vol.At(c) <= 0 {
				return
			}
			matches = matches[:0]
			for _, s := range st {
				if l := int(work.At(shift(c, s))); l > 0 {
					matches = append(matches, l)
				}
			}

			var label int
			switch len(matches) {
			case 0:
				label = eq.New()
			case 1:
				label = matches[0]
				eq.Add(label)
			default:
				label = eq.Union(matches...)
				eq.Add(label)
			}
			work.Set(c, float64(label))
		})
	}

	all := eq.Resolve()
	res := &LabelResult{Provisional: eq.Len()}
	kept := make([]Group, 0, len(all))
	for _, g := range all {
		if opts.keep(g.Size) {
			kept = append(kept, g)
		}
	}
	Rank(kept)
	if opts.MaxGroups > 0 && len(kept) > opts.MaxGroups {
		kept = kept[:opts.MaxGroups]
	}
	res.Groups = kept
	res.Dropped = len(all) - len(kept)

	lut := eq.Lookup(kept)
	for i, l := range work.Data {
		out := lut[int(l)]
		if out > 0 {
			res.Voxels++
		}
		vol.Data[i] = vol.Type.Quantize(float64(out))
	}
	return res, nil
}
