package kernel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MaxRows is the largest number of rows a kernel file may hold.
const MaxRows = 1000

const (
	fileHeader   = "MNI Morphology Kernel File"
	typeKeyword  = "Kernel_Type"
	normalKernel = "Normal_Kernel"
	rowsKeyword  = "Kernel"
)

// Read loads a kernel file and derives its pads.
func Read(path string) (*Kernel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open kernel file: %w", err)
	}
	defer f.Close()

	k, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return k, nil
}

// Parse reads a kernel in the MNI morphology kernel format:
//
//	MNI Morphology Kernel File
//	Kernel_Type = Normal_Kernel;
//	Kernel =
//	  x y z t v coeff
//	  ...
//	;
//
// No kernel is returned on error.
func Parse(r io.Reader) (*Kernel, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if strings.TrimSpace(line) != fileHeader {
		return nil, fmt.Errorf("%w: expected %q", ErrHeader, fileHeader)
	}

	tok := newTokenizer(br)
	if err := tok.expect(typeKeyword, "="); err != nil {
		return nil, err
	}
	typeName, ok := tok.next()
	if !ok || typeName == ";" {
		return nil, fmt.Errorf("%w: missing kernel type", ErrHeader)
	}
	if err := tok.expect(";"); err != nil {
		return nil, err
	}
	if typeName != normalKernel {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typeName)
	}
	if err := tok.expect(rowsKeyword, "="); err != nil {
		return nil, err
	}

	k := New(0)
	var vals [Dims + 1]float64
	col := 0
	for {
		t, ok := tok.next()
		if !ok {
			if err := tok.err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: missing terminating ';'", ErrMalformedRow)
		}
		if t == ";" {
			if col != 0 {
				return nil, fmt.Errorf("%w: row %d has %d of %d values",
					ErrMalformedRow, k.Len()+1, col, Dims+1)
			}
			break
		}
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d value %d: %q", ErrMalformedRow, k.Len()+1, col+1, t)
		}
		vals[col] = v
		col++
		if col == Dims+1 {
			if k.Len() == MaxRows {
				return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, MaxRows)
			}
			var off [Dims]float64
			copy(off[:], vals[:Dims])
			k.Append(off, vals[Dims])
			col = 0
		}
	}
	k.DerivePadding()
	return k, nil
}

// Format writes the kernel in the format accepted by Parse.
func (k *Kernel) Format(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%s = %s;\n%s =\n", fileHeader, typeKeyword, normalKernel, rowsKeyword)
	for _, r := range k.Rows {
		for a := 0; a < Dims; a++ {
			fmt.Fprintf(bw, " %s", strconv.FormatFloat(r.Offset[a], 'g', -1, 64))
		}
		fmt.Fprintf(bw, " %s\n", strconv.FormatFloat(r.Coeff, 'g', -1, 64))
	}
	bw.WriteString(";\n")
	return bw.Flush()
}

// Write saves the kernel to path.
func (k *Kernel) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create kernel file: %w", err)
	}
	if err := k.Format(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write kernel file: %w", err)
	}
	return f.Close()
}

// tokenizer splits kernel text on whitespace and returns '=' and ';' as
// tokens of their own.
type tokenizer struct {
	sc *bufio.Scanner
}

func newTokenizer(r io.Reader) *tokenizer {
	sc := bufio.NewScanner(r)
	sc.Split(splitTokens)
	return &tokenizer{sc: sc}
}

func (t *tokenizer) next() (string, bool) {
	if !t.sc.Scan() {
		return "", false
	}
	return t.sc.Text(), true
}

func (t *tokenizer) err() error { return t.sc.Err() }

func (t *tokenizer) expect(words ...string) error {
	for _, w := range words {
		got, ok := t.next()
		if !ok {
			return fmt.Errorf("%w: expected %q, got end of file", ErrHeader, w)
		}
		if got != w {
			return fmt.Errorf("%w: expected %q, got %q", ErrHeader, w, got)
		}
	}
	return nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func splitTokens(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}
	if start < len(data) && (data[start] == '=' || data[start] == ';') {
		return start + 1, data[start : start+1], nil
	}
	for i := start; i < len(data); i++ {
		if isSpace(data[i]) || data[i] == '=' || data[i] == ';' {
			return i, data[start:i], nil
		}
	}
	if atEOF && start < len(data) {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}
