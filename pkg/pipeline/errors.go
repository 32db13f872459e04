package pipeline

import "errors"

var (
	// ErrUnknownOp reports a chain letter that names no operation.
	ErrUnknownOp = errors.New("pipeline: unknown operation")
	// ErrUnterminatedArg reports a '[' without a matching ']'.
	ErrUnterminatedArg = errors.New("pipeline: unterminated argument list")
	// ErrMissingArg reports an operation whose required argument is absent.
	ErrMissingArg = errors.New("pipeline: missing argument")
	// ErrBadArg reports an argument that cannot be parsed or is not allowed.
	ErrBadArg = errors.New("pipeline: invalid argument")
	// ErrTooManyGroups reports a label group cap above the supported limit.
	ErrTooManyGroups = errors.New("pipeline: too many groups")
	// ErrFileExists reports an output file that would be overwritten
	// without clobber.
	ErrFileExists = errors.New("pipeline: output file exists")
	// ErrNotImplemented is returned by operations with no implementation.
	ErrNotImplemented = errors.New("pipeline: operation not implemented")
)
