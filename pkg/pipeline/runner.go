package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/stat"

	"volmorph/internal/models"
	"volmorph/pkg/kernel"
	"volmorph/pkg/morph"
	"volmorph/pkg/visualization"
	"volmorph/pkg/volumeio"
)

// Params holds the runner configuration.
type Params struct {
	// Kernel is the initial structuring kernel. Nil selects the
	// six-neighbour default.
	Kernel *kernel.Kernel

	// Logger receives progress and statistics. Nil discards them.
	Logger *slog.Logger

	// History is stored in the header of every written volume.
	History []string

	// SaveIntermediaryResults exports the middle z slice after every
	// operation into IntermediaryDir, using SliceFormat as image extension.
	SaveIntermediaryResults bool
	IntermediaryDir         string
	SliceFormat             string
}

// Runner applies operations to a volume in order. A Runner is not safe for
// concurrent use.
type Runner struct {
	params *Params
	log    *slog.Logger

	// kernel is the active kernel; LoadKernel replaces it
	kernel *kernel.Kernel

	// vol is the current volume; Binarize replaces it
	vol *models.Volume

	// labels holds the result of every label operation in order
	labels []*morph.LabelResult
}

// NewRunner creates a runner with the provided parameters.
func NewRunner(params *Params) *Runner {
	if params == nil {
		params = &Params{}
	}
	k := params.Kernel
	if k == nil {
		k = kernel.Default()
	}
	log := params.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{params: params, log: log, kernel: k.Clone()}
}

// Kernel returns the active kernel.
func (r *Runner) Kernel() *kernel.Kernel { return r.kernel }

// Labels returns the results of the label operations run so far.
func (r *Runner) Labels() []*morph.LabelResult { return r.labels }

// Process runs ops against vol and returns the resulting volume. vol is
// modified in place; the returned volume differs from vol only when a
// Binarize replaced it. Processing stops at the first failing operation.
func (r *Runner) Process(vol *models.Volume, ops []Operation) (*models.Volume, error) {
	if vol == nil {
		return nil, morph.ErrNilVolume
	}
	r.vol = vol

	if r.params.SaveIntermediaryResults {
		if err := os.MkdirAll(r.params.IntermediaryDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create intermediary directory: %w", err)
		}
	}

	for i, op := range ops {
		step := i + 1
		r.log.Info("applying operation", "step", step, "op", op.String())

		if err := r.apply(op); err != nil {
			return r.vol, fmt.Errorf("step %d (%s): %w", step, op, err)
		}
		r.logStats(step)

		if r.params.SaveIntermediaryResults {
			if err := r.saveIntermediaryResult(step, op); err != nil {
				r.log.Warn("failed to save intermediary slice", "step", step, "err", err)
			}
		}
	}
	return r.vol, nil
}

func (r *Runner) apply(op Operation) error {
	k, vol := r.kernel, r.vol

	switch o := op.(type) {
	case Binarize:
		r.vol = morph.Binarize(vol, o.Floor, o.Ceil, o.Foreground, o.Background)
		return nil
	case Clamp:
		morph.Clamp(vol, o.Floor, o.Ceil, o.Background)
		return nil
	case Pad:
		return morph.Pad(k, vol, o.Value)
	case Erode:
		return morph.Erode(k, vol)
	case Dilate:
		return morph.Dilate(k, vol)
	case Convolve:
		return morph.Convolve(k, vol)
	case Open:
		return sequence(k, vol, morph.Erode, morph.Dilate)
	case Close:
		return sequence(k, vol, morph.Dilate, morph.Erode)
	case Lowpass:
		return sequence(k, vol, morph.Erode, morph.Dilate, morph.Dilate, morph.Erode)
	case Highpass:
		return ErrNotImplemented
	case Distance:
		return morph.Distance(k, vol, o.Background)
	case Label:
		return r.label(o)
	case LoadKernel:
		return r.loadKernel(o)
	case Write:
		if err := volumeio.Write(o.Path, vol, r.params.History); err != nil {
			return err
		}
		r.log.Info("wrote volume", "path", o.Path, "type", vol.Type.String())
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnknownOp, op)
}

func sequence(k *kernel.Kernel, vol *models.Volume, fns ...func(*kernel.Kernel, *models.Volume) error) error {
	for _, fn := range fns {
		if err := fn(k, vol); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) label(o Label) error {
	res, err := morph.Label(r.kernel, r.vol, morph.LabelOptions{
		Floor:     o.Floor,
		Ceil:      o.Ceil,
		MaxGroups: o.MaxGroups,
	})
	if err != nil {
		return err
	}
	r.labels = append(r.labels, res)

	attrs := []any{
		"provisional", res.Provisional,
		"groups", len(res.Groups),
		"dropped", res.Dropped,
		"voxels", res.Voxels,
	}
	if sizes := res.Sizes(); len(sizes) > 0 {
		mean, std := stat.MeanStdDev(sizes, nil)
		attrs = append(attrs, "largest", sizes[0], "meanSize", mean, "stdSize", std)
	}
	r.log.Info("labelled components", attrs...)

	if _, hi := r.vol.Type.Limits(); float64(len(res.Groups)) > hi {
		r.log.Warn("labels saturate the volume type",
			"groups", len(res.Groups), "type", r.vol.Type.String())
	}
	for _, g := range res.Groups {
		r.log.Debug("group", "label", g.Label, "size", g.Size)
	}
	return nil
}

func (r *Runner) loadKernel(o LoadKernel) error {
	k := o.Kernel
	if k == nil {
		var err error
		if k, err = kernel.Read(o.Path); err != nil {
			return err
		}
	}
	r.kernel = k.Clone()
	r.kernel.DerivePadding()
	r.log.Debug("loaded kernel", "path", o.Path, "rows", r.kernel.Len())
	return nil
}

func (r *Runner) logStats(step int) {
	if !r.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	lo, hi := r.vol.Range()
	mean, std := r.vol.Stats()
	r.log.Debug("volume statistics",
		"step", step, "min", lo, "max", hi, "mean", mean, "stddev", std)
}

// saveIntermediaryResult exports the middle z slice of the current volume.
// Label results are drawn in colour.
func (r *Runner) saveIntermediaryResult(step int, op Operation) error {
	ext := strings.TrimPrefix(r.params.SliceFormat, ".")
	if ext == "" {
		ext = "png"
	}
	viewer := visualization.NewViewer(r.vol)
	_, viewer.Labels = op.(Label)
	img, err := viewer.Render("z", r.vol.Sizes[models.Z]/2)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%02d_%c.%s", step, op.Tag(), ext)
	return viewer.SaveSlice(img, filepath.Join(r.params.IntermediaryDir, name))
}
