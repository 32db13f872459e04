package kernel

import "errors"

var (
	// ErrHeader indicates a missing or garbled file header or keyword.
	ErrHeader = errors.New("kernel: invalid kernel file header")
	// ErrUnsupportedType indicates a Kernel_Type other than Normal_Kernel.
	ErrUnsupportedType = errors.New("kernel: unsupported kernel type")
	// ErrMalformedRow indicates a row without exactly six reals or a missing terminator.
	ErrMalformedRow = errors.New("kernel: malformed kernel row")
	// ErrTooManyRows indicates more than MaxRows rows.
	ErrTooManyRows = errors.New("kernel: too many kernel rows")
	// ErrOffsetOutOfBounds indicates a row outside the kernel's pads.
	ErrOffsetOutOfBounds = errors.New("kernel: offset out of bounds")
)
