package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"volmorph/pkg/config"
	"volmorph/pkg/kernel"
)

// ChainDefaults supplies the values used when an operation in a chain
// omits its arguments.
type ChainDefaults struct {
	// Range is used by B and K without arguments.
	Range config.Range
	// GroupRange and MaxGroups are used by G without arguments.
	GroupRange config.Range
	MaxGroups  int
	// Clobber allows W to name an existing file.
	Clobber bool
}

// DefaultsFromConfig builds chain defaults from a loaded configuration.
func DefaultsFromConfig(cfg *config.Config) ChainDefaults {
	return ChainDefaults{
		Range:      cfg.Processing.Range,
		GroupRange: cfg.Processing.GroupRange,
		MaxGroups:  cfg.Processing.MaxGroups,
		Clobber:    cfg.Output.Clobber,
	}
}

// ParseChain parses an operation chain. Every problem, including unreadable
// kernel files and write targets that already exist, is reported here so
// that a bad chain fails before any volume is touched. Whitespace between
// operations is ignored.
func ParseChain(text string, d ChainDefaults) ([]Operation, error) {
	var ops []Operation
	for i := 0; i < len(text); {
		tag := text[i]
		if tag == ' ' || tag == '\t' || tag == '\n' || tag == '\r' {
			i++
			continue
		}
		pos := i
		i++

		var args []string
		hasArgs := false
		if i < len(text) && text[i] == '[' {
			end := strings.IndexByte(text[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w at offset %d", ErrUnterminatedArg, i)
			}
			args = strings.Split(text[i+1:i+end], ":")
			hasArgs = true
			i += end + 1
		}

		op, err := parseOp(tag, args, hasArgs, d)
		if err != nil {
			return nil, fmt.Errorf("operation %q at offset %d: %w", tag, pos, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func parseOp(tag byte, args []string, hasArgs bool, d ChainDefaults) (Operation, error) {
	switch tag {
	case 'B':
		lo, hi, err := rangeArgs(args, hasArgs, d.Range, 4)
		if err != nil {
			return nil, err
		}
		op := Binarize{Floor: lo, Ceil: hi, Foreground: 1, Background: 0}
		if len(args) > 2 {
			if op.Foreground, err = floatArg(args[2], 1); err != nil {
				return nil, err
			}
		}
		if len(args) > 3 {
			if op.Background, err = floatArg(args[3], 0); err != nil {
				return nil, err
			}
		}
		return op, nil

	case 'K':
		lo, hi, err := rangeArgs(args, hasArgs, d.Range, 3)
		if err != nil {
			return nil, err
		}
		op := Clamp{Floor: lo, Ceil: hi}
		if len(args) == 3 {
			if op.Background, err = floatArg(args[2], 0); err != nil {
				return nil, err
			}
		}
		return op, nil

	case 'P', 'F':
		var v float64
		if hasArgs {
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: want 1 value, got %d", ErrBadArg, len(args))
			}
			var err error
			if v, err = floatArg(args[0], 0); err != nil {
				return nil, err
			}
		}
		if tag == 'P' {
			return Pad{Value: v}, nil
		}
		return Distance{Background: v}, nil

	case 'E', 'D', 'O', 'C', 'L', 'H', 'X':
		if hasArgs {
			return nil, fmt.Errorf("%w: takes no arguments", ErrBadArg)
		}
		return simpleOps[tag], nil

	case 'G':
		lo, hi, err := rangeArgs(args, hasArgs, d.GroupRange, 3)
		if err != nil {
			return nil, err
		}
		op := Label{Floor: lo, Ceil: hi, MaxGroups: d.MaxGroups}
		if len(args) == 3 && strings.TrimSpace(args[2]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(args[2]))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: max groups %q", ErrBadArg, args[2])
			}
			op.MaxGroups = n
		}
		if op.MaxGroups > config.MaxGroupsLimit {
			return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyGroups, op.MaxGroups, config.MaxGroupsLimit)
		}
		return op, nil

	case 'R':
		path, err := pathArg(args, hasArgs)
		if err != nil {
			return nil, err
		}
		k, err := kernel.Read(path)
		if err != nil {
			return nil, err
		}
		return LoadKernel{Path: path, Kernel: k}, nil

	case 'W':
		path, err := pathArg(args, hasArgs)
		if err != nil {
			return nil, err
		}
		if err := checkClobber(path, d.Clobber); err != nil {
			return nil, err
		}
		return Write{Path: path}, nil
	}
	return nil, ErrUnknownOp
}

var simpleOps = map[byte]Operation{
	'E': Erode{},
	'D': Dilate{},
	'O': Open{},
	'C': Close{},
	'L': Lowpass{},
	'H': Highpass{},
	'X': Convolve{},
}

// rangeArgs reads the floor and ceil arguments. Empty fields keep the
// default, so "[:10]" only changes the ceil.
func rangeArgs(args []string, hasArgs bool, def config.Range, maxArgs int) (lo, hi float64, err error) {
	if !hasArgs {
		return def.Floor, def.Ceil, nil
	}
	if len(args) < 2 || len(args) > maxArgs {
		return 0, 0, fmt.Errorf("%w: want 2 to %d values, got %d", ErrBadArg, maxArgs, len(args))
	}
	if lo, err = floatArg(args[0], def.Floor); err != nil {
		return 0, 0, err
	}
	if hi, err = floatArg(args[1], def.Ceil); err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("%w: floor %g exceeds ceil %g", ErrBadArg, lo, hi)
	}
	return lo, hi, nil
}

func floatArg(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadArg, s)
	}
	return v, nil
}

func pathArg(args []string, hasArgs bool) (string, error) {
	if !hasArgs || len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", ErrMissingArg
	}
	// Paths may contain ':' (drive letters, URLs); rejoin the split.
	return strings.TrimSpace(strings.Join(args, ":")), nil
}

func checkClobber(path string, clobber bool) error {
	if clobber {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s (use -clobber to overwrite)", ErrFileExists, path)
	}
	return nil
}

// OutputPath returns the path of the last Write in ops, or "" when there is
// none.
func OutputPath(ops []Operation) string {
	for i := len(ops) - 1; i >= 0; i-- {
		if w, ok := ops[i].(Write); ok {
			return w.Path
		}
	}
	return ""
}

// Finalize appends a Write of output unless ops already ends with a Write.
// The output file is subject to the same clobber check as W.
func Finalize(ops []Operation, output string, clobber bool) ([]Operation, error) {
	if n := len(ops); n > 0 {
		if _, ok := ops[n-1].(Write); ok {
			return ops, nil
		}
	}
	if output == "" {
		return nil, fmt.Errorf("output file: %w", ErrMissingArg)
	}
	if err := checkClobber(output, clobber); err != nil {
		return nil, err
	}
	return append(ops, Write{Path: output}), nil
}
