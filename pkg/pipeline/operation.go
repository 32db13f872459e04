// Package pipeline applies an ordered list of morphology operations to a
// volume. Operations are usually parsed from a compact chain such as
// "B[0.5:1]DDEG" where every letter names one operation and bracketed,
// colon separated arguments tune it.
package pipeline

import (
	"strconv"
	"strings"

	"volmorph/pkg/kernel"
)

// Operation is one step of a pipeline. Tag is the chain letter and String
// the canonical chain text, so formatting a parsed chain reproduces it.
type Operation interface {
	Tag() byte
	String() string
}

// Binarize maps [Floor, Ceil] to Foreground and everything else to
// Background in a new byte volume.
type Binarize struct {
	Floor, Ceil            float64
	Foreground, Background float64
}

// Clamp keeps [Floor, Ceil] and sets everything else to Background.
type Clamp struct {
	Floor, Ceil, Background float64
}

// Pad fills the kernel-sized border of the volume with Value.
type Pad struct {
	Value float64
}

type (
	Erode    struct{}
	Dilate   struct{}
	Open     struct{}
	Close    struct{}
	Lowpass  struct{}
	Highpass struct{}
	Convolve struct{}
)

// Distance replaces foreground voxels (> Background) with their kernel
// distance to the background.
type Distance struct {
	Background float64
}

// Label numbers connected components by descending size. Components whose
// size lies outside [Floor, Ceil] are dropped. MaxGroups > 0 keeps only that many of the largest components.
type Label struct {
	Floor, Ceil float64
	MaxGroups   int
}

// LoadKernel makes Kernel the active kernel. Kernel is read from Path when
// the chain is parsed.
type LoadKernel struct {
	Path   string
	Kernel *kernel.Kernel
}

// Write saves the current volume to Path.
type Write struct {
	Path string
}

func (Binarize) Tag() byte   { return 'B' }
func (Clamp) Tag() byte      { return 'K' }
func (Pad) Tag() byte        { return 'P' }
func (Erode) Tag() byte      { return 'E' }
func (Dilate) Tag() byte     { return 'D' }
func (Open) Tag() byte       { return 'O' }
func (Close) Tag() byte      { return 'C' }
func (Lowpass) Tag() byte    { return 'L' }
func (Highpass) Tag() byte   { return 'H' }
func (Convolve) Tag() byte   { return 'X' }
func (Distance) Tag() byte   { return 'F' }
func (Label) Tag() byte      { return 'G' }
func (LoadKernel) Tag() byte { return 'R' }
func (Write) Tag() byte      { return 'W' }

func (o Binarize) String() string {
	if o.Foreground == 1 && o.Background == 0 {
		return withArgs(o.Tag(), num(o.Floor), num(o.Ceil))
	}
	return withArgs(o.Tag(), num(o.Floor), num(o.Ceil), num(o.Foreground), num(o.Background))
}
func (o Clamp) String() string {
	return withArgs(o.Tag(), num(o.Floor), num(o.Ceil), num(o.Background))
}
func (o Pad) String() string      { return withArgs(o.Tag(), num(o.Value)) }
func (Erode) String() string      { return "E" }
func (Dilate) String() string     { return "D" }
func (Open) String() string       { return "O" }
func (Close) String() string      { return "C" }
func (Lowpass) String() string    { return "L" }
func (Highpass) String() string   { return "H" }
func (Convolve) String() string   { return "X" }
func (o Distance) String() string { return withArgs(o.Tag(), num(o.Background)) }
func (o Label) String() string {
	return withArgs(o.Tag(), num(o.Floor), num(o.Ceil), strconv.Itoa(o.MaxGroups))
}
func (o LoadKernel) String() string { return withArgs(o.Tag(), o.Path) }
func (o Write) String() string      { return withArgs(o.Tag(), o.Path) }

// Format renders ops as a chain accepted by ParseChain.
func Format(ops []Operation) string {
	var b strings.Builder
	for _, op := range ops {
		b.WriteString(op.String())
	}
	return b.String()
}

func withArgs(tag byte, args ...string) string {
	return string(tag) + "[" + strings.Join(args, ":") + "]"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
