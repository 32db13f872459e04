// Package volumeio reads and writes volumes.
//
// A volume file starts with a YAML header describing the grid, terminated by
// a line holding only "...", followed by the voxel payload in little-endian
// order using the stored data type:
//
//	# volmorph volume
//	sizes: [64, 64, 32, 1, 1]
//	type: short
//	voxelSize: [1, 1, 2.5]
//	history:
//	  - volmorph -successive B[0.5:1]G in.vol out.vol
//	...
//	<payload>
package volumeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"volmorph/internal/models"
)

const (
	magicLine     = "# volmorph volume"
	headerEnd     = "..."
	maxHeaderSize = 1 << 20
)

var (
	// ErrNotVolume indicates a file without the volume header.
	ErrNotVolume = errors.New("volumeio: not a volume file")
	// ErrBadHeader indicates an unreadable or inconsistent header.
	ErrBadHeader = errors.New("volumeio: invalid volume header")
)

// Header is the metadata stored in front of the voxel payload.
type Header struct {
	Sizes     []int     `yaml:"sizes"`
	Type      string    `yaml:"type"`
	VoxelSize []float64 `yaml:"voxelSize,omitempty"`
	History   []string  `yaml:"history,omitempty"`
}

// NewHeader describes vol with the given history lines.
func NewHeader(vol *models.Volume, history []string) *Header {
	return &Header{
		Sizes:     append([]int(nil), vol.Sizes[:]...),
		Type:      vol.Type.String(),
		VoxelSize: []float64{vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z},
		History:   append([]string(nil), history...),
	}
}

// Read loads a volume file and returns the volume and its header.
func Read(path string) (*models.Volume, *Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open volume: %w", err)
	}
	defer f.Close()

	vol, hdr, err := Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return vol, hdr, nil
}

// Decode reads a volume from r.
func Decode(r io.Reader) (*models.Volume, *Header, error) {
	br := bufio.NewReader(r)

	first, err := br.ReadString('\n')
	if err != nil || strings.TrimRight(first, "\r\n") != magicLine {
		return nil, nil, ErrNotVolume
	}

	var raw bytes.Buffer
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, nil, fmt.Errorf("%w: missing %q terminator", ErrBadHeader, headerEnd)
		}
		if strings.TrimRight(line, "\r\n") == headerEnd {
			break
		}
		raw.WriteString(line)
		if raw.Len() > maxHeaderSize {
			return nil, nil, fmt.Errorf("%w: header exceeds %d bytes", ErrBadHeader, maxHeaderSize)
		}
	}

	hdr := &Header{}
	if err := yaml.Unmarshal(raw.Bytes(), hdr); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	vol, err := hdr.newVolume()
	if err != nil {
		return nil, nil, err
	}
	if err := readPayload(br, vol); err != nil {
		return nil, nil, fmt.Errorf("failed to read voxel data: %w", err)
	}
	return vol, hdr, nil
}

func (h *Header) newVolume() (*models.Volume, error) {
	if len(h.Sizes) == 0 || len(h.Sizes) > models.Dims {
		return nil, fmt.Errorf("%w: %d sizes", ErrBadHeader, len(h.Sizes))
	}
	var sizes [models.Dims]int
	for a := range sizes {
		sizes[a] = 1
		if a < len(h.Sizes) {
			if h.Sizes[a] < 1 {
				return nil, fmt.Errorf("%w: size %d on axis %d", ErrBadHeader, h.Sizes[a], a)
			}
			sizes[a] = h.Sizes[a]
		}
	}
	if _, err := models.VoxelCount(sizes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	dtype, err := models.ParseDataType(h.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	vol := models.NewVolume(sizes, dtype)
	if len(h.VoxelSize) == 3 {
		vol.VoxelSize.X, vol.VoxelSize.Y, vol.VoxelSize.Z = h.VoxelSize[0], h.VoxelSize[1], h.VoxelSize[2]
	}
	return vol, nil
}

// Write saves vol to path. history is stored in the header; callers usually
// pass the source header's history followed by the current command line.
func Write(path string, vol *models.Volume, history []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create volume file: %w", err)
	}
	if err := Encode(f, vol, history); err != nil {
		f.Close()
		return fmt.Errorf("failed to write volume file: %w", err)
	}
	return f.Close()
}

// Encode writes vol to w.
func Encode(w io.Writer, vol *models.Volume, history []string) error {
	hdr, err := yaml.Marshal(NewHeader(vol, history))
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%s%s\n", magicLine, hdr, headerEnd)
	if err := writePayload(bw, vol); err != nil {
		return err
	}
	return bw.Flush()
}

func readPayload(r io.Reader, vol *models.Volume) error {
	n := vol.Len()
	switch vol.Type {
	case models.Byte:
		buf := make([]uint8, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		for i, v := range buf {
			vol.Data[i] = float64(v)
		}
	case models.Short:
		buf := make([]int16, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return err
		}
		for i, v := range buf {
			vol.Data[i] = float64(v)
		}
	case models.Int:
		buf := make([]int32, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return err
		}
		for i, v := range buf {
			vol.Data[i] = float64(v)
		}
	case models.Float:
		buf := make([]float32, n)
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return err
		}
		for i, v := range buf {
			vol.Data[i] = float64(v)
		}
	default:
		return binary.Read(r, binary.LittleEndian, vol.Data)
	}
	return nil
}

func writePayload(w io.Writer, vol *models.Volume) error {
	n := vol.Len()
	switch vol.Type {
	case models.Byte:
		buf := make([]uint8, n)
		for i, v := range vol.Data {
			buf[i] = uint8(models.Byte.Quantize(v))
		}
		_, err := w.Write(buf)
		return err
	case models.Short:
		buf := make([]int16, n)
		for i, v := range vol.Data {
			buf[i] = int16(models.Short.Quantize(v))
		}
		return binary.Write(w, binary.LittleEndian, buf)
	case models.Int:
		buf := make([]int32, n)
		for i, v := range vol.Data {
			buf[i] = int32(models.Int.Quantize(v))
		}
		return binary.Write(w, binary.LittleEndian, buf)
	case models.Float:
		buf := make([]float32, n)
		for i, v := range vol.Data {
			buf[i] = float32(v)
		}
		return binary.Write(w, binary.LittleEndian, buf)
	default:
		return binary.Write(w, binary.LittleEndian, vol.Data)
	}
}
