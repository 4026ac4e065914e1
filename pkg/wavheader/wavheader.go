// Package wavheader reads and writes the fixed 44-byte RIFF/WAVE header used
// by the raw-PCM container: a RIFF group holding one 16-byte "fmt " block for
// linear PCM followed directly by the "data" block.
//
// Binary layout (little-endian unless noted):
//
//	 0  "RIFF"          4 bytes, big-endian tag
//	 4  group size      u32, 36 + data size
//	 8  "WAVE"          4 bytes, big-endian tag
//	12  "fmt "          4 bytes, big-endian tag
//	16  fmt size        u32, 16
//	20  audio format    u16, 1 (linear PCM)
//	22  channels        u16
//	24  sample rate     u32
//	28  byte rate       u32, rate * channels * bits/8
//	32  block align     u16, channels * bits/8
//	34  bits per sample u16
//	36  "data"          4 bytes, big-endian tag
//	40  data size       u32
//	44  samples
package wavheader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
)

const (
	// Size is the length of the header in bytes.
	Size = 44

	// GroupSizeOffset is the position of the RIFF group size field.
	GroupSizeOffset = 4

	// DataSizeOffset is the position of the data block size field.
	DataSizeOffset = 40

	// FormatPCM is the only supported audio format tag.
	FormatPCM = 1

	fmtBlockSize = 16

	// MaxDataSize is the largest data block that still fits the u32 group size.
	MaxDataSize = math.MaxUint32 - (Size - 8)
)

var (
	riffID = [4]byte{'R', 'I', 'F', 'F'}
	waveID = [4]byte{'W', 'A', 'V', 'E'}
	fmtID  = [4]byte{'f', 'm', 't', ' '}
	dataID = [4]byte{'d', 'a', 't', 'a'}
)

var (
	// ErrBadMagic indicates one of the four chunk tags did not match.
	ErrBadMagic = errors.New("wavheader: bad chunk id")

	// ErrUnsupportedFormat indicates an audio format tag other than linear PCM
	// or a fmt block of unexpected size.
	ErrUnsupportedFormat = errors.New("wavheader: unsupported audio format")

	// ErrTruncated indicates the reader ended inside the header.
	ErrTruncated = errors.New("wavheader: truncated header")

	// ErrInvalidField indicates a zero channel count or sample rate.
	ErrInvalidField = errors.New("wavheader: invalid field")

	// ErrTooLarge indicates a data size that cannot be represented.
	ErrTooLarge = errors.New("wavheader: data too large")
)

// Header holds the variable fields of the header. Byte rate and block align
// are derived from them when writing and are not validated when reading.
type Header struct {
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
	DataSize      uint32
}

// FromFormat builds a header for the given frame format and data size.
func FromFormat(format audioframe.FrameFormat, dataSize uint32) Header {
	return Header{
		Channels:      uint16(format.Channels),
		SampleRate:    uint32(format.SampleRate),
		BitsPerSample: uint16(format.BitsPerSample),
		DataSize:      dataSize,
	}
}

// Format returns the frame format described by the header.
func (h Header) Format() audioframe.FrameFormat {
	return audioframe.FrameFormat{
		SampleRate:    int(h.SampleRate),
		Channels:      int(h.Channels),
		BitsPerSample: int(h.BitsPerSample),
	}
}

// BlockAlign returns channels * bits/8.
func (h Header) BlockAlign() uint16 {
	return h.Channels * (h.BitsPerSample / 8)
}

// ByteRate returns rate * channels * bits/8.
func (h Header) ByteRate() uint32 {
	return h.SampleRate * uint32(h.BlockAlign())
}

// GroupSize returns the RIFF group size field, 36 + data size.
func (h Header) GroupSize() uint32 {
	return Size - 8 + h.DataSize
}

// Marshal serializes the header into its 44-byte form.
func (h Header) Marshal() []byte {
	buf := make([]byte, Size)

	copy(buf[0:4], riffID[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.GroupSize())
	copy(buf[8:12], waveID[:])

	copy(buf[12:16], fmtID[:])
	binary.LittleEndian.PutUint32(buf[16:20], fmtBlockSize)
	binary.LittleEndian.PutUint16(buf[20:22], FormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], h.Channels)
	binary.LittleEndian.PutUint32(buf[24:28], h.SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], h.ByteRate())
	binary.LittleEndian.PutUint16(buf[32:34], h.BlockAlign())
	binary.LittleEndian.PutUint16(buf[34:36], h.BitsPerSample)

	copy(buf[36:40], dataID[:])
	binary.LittleEndian.PutUint32(buf[40:44], h.DataSize)

	return buf
}

// Unmarshal parses a 44-byte header.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < Size {
		return fmt.Errorf("%w: got %d bytes, need %d", ErrTruncated, len(data), Size)
	}

	if err := checkID(data[0:4], riffID); err != nil {
		return err
	}
	if err := checkID(data[8:12], waveID); err != nil {
		return err
	}
	if err := checkID(data[12:16], fmtID); err != nil {
		return err
	}
	if size := binary.LittleEndian.Uint32(data[16:20]); size != fmtBlockSize {
		return fmt.Errorf("%w: fmt block size %d", ErrUnsupportedFormat, size)
	}
	if tag := binary.LittleEndian.Uint16(data[20:22]); tag != FormatPCM {
		return fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, tag)
	}
	if err := checkID(data[36:40], dataID); err != nil {
		return err
	}

	h.Channels = binary.LittleEndian.Uint16(data[22:24])
	h.SampleRate = binary.LittleEndian.Uint32(data[24:28])
	h.BitsPerSample = binary.LittleEndian.Uint16(data[34:36])
	h.DataSize = binary.LittleEndian.Uint32(data[40:44])

	if h.Channels == 0 {
		return fmt.Errorf("%w: channels 0", ErrInvalidField)
	}
	if h.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate 0", ErrInvalidField)
	}

	return nil
}

// Read reads and parses a header from r, leaving r positioned at the first
// data byte.
func Read(r io.Reader) (Header, error) {
	var h Header
	buf := make([]byte, Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return h, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		return h, err
	}
	if err := h.Unmarshal(buf); err != nil {
		return h, err
	}
	return h, nil
}

// Write writes the header to w.
func Write(w io.Writer, h Header) error {
	_, err := w.Write(h.Marshal())
	return err
}

// PatchSizes rewrites the group and data size fields of a header previously
// written at the start of ws, then seeks back to the end of the stream.
func PatchSizes(ws io.WriteSeeker, dataSize uint64) error {
	if dataSize > MaxDataSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, dataSize)
	}

	var field [4]byte

	binary.LittleEndian.PutUint32(field[:], uint32(Size-8+dataSize))
	if _, err := ws.Seek(GroupSizeOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := ws.Write(field[:]); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(field[:], uint32(dataSize))
	if _, err := ws.Seek(DataSizeOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := ws.Write(field[:]); err != nil {
		return err
	}

	_, err := ws.Seek(0, io.SeekEnd)
	return err
}

func checkID(got []byte, want [4]byte) error {
	if [4]byte(got) != want {
		return fmt.Errorf("%w: got %q, want %q", ErrBadMagic, got, want[:])
	}
	return nil
}
