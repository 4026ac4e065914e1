package audioframe

import (
	"errors"
	"fmt"

	"github.com/drgolem/audiotranscode/pkg/pcm"
)

var (
	// ErrInvalidFormat indicates a Format with a zero channel count or sample rate.
	ErrInvalidFormat = errors.New("invalid frame format")

	// ErrPartialFrame indicates a sample slice whose length is not a multiple
	// of the channel count.
	ErrPartialFrame = errors.New("sample count is not a multiple of the channel count")

	// ErrFormatMismatch indicates a frame whose format differs from the
	// format fixed by the first frame of its stream.
	ErrFormatMismatch = errors.New("frame format differs from stream format")
)

// FrameFormat describes the fixed stream parameters carried by every Frame.
type FrameFormat struct {
	SampleRate    int // Samples per second per channel
	Channels      int // Interleaved channel count
	BitsPerSample int // 8, 16, 24 or 32
}

// Validate checks that the format is usable by the sample codec.
func (f FrameFormat) Validate() error {
	if f.Channels < 1 {
		return fmt.Errorf("%w: channels %d", ErrInvalidFormat, f.Channels)
	}
	if f.SampleRate < 1 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if !pcm.ValidBitDepth(f.BitsPerSample) {
		return fmt.Errorf("%w: %d", pcm.ErrUnsupportedBitDepth, f.BitsPerSample)
	}
	return nil
}

// BytesPerSample returns the packed width of one sample (one channel).
func (f FrameFormat) BytesPerSample() int {
	return f.BitsPerSample / 8
}

// BlockAlign returns the packed width of one sample across all channels.
func (f FrameFormat) BlockAlign() int {
	return f.Channels * f.BytesPerSample()
}

// ByteRate returns the number of packed bytes per second of audio.
func (f FrameFormat) ByteRate() int {
	return f.SampleRate * f.BlockAlign()
}

func (f FrameFormat) String() string {
	return fmt.Sprintf("%dHz:%dbit:%dch", f.SampleRate, f.BitsPerSample, f.Channels)
}

// CheckFormat returns ErrFormatMismatch if got differs from want.
func CheckFormat(want, got FrameFormat) error {
	if got != want {
		return fmt.Errorf("%w: got %v, want %v", ErrFormatMismatch, got, want)
	}
	return nil
}

// Frame is the unit moved from a Source to a Sink. Samples are interleaved:
// sample i belongs to channel i % Format.Channels.
//
// The terminal Frame has EndOfStream set and is the last Frame of a stream.
// Its Samples may be empty; its Format always carries the stream format so a
// Sink receiving only the terminal Frame can still write a valid header.
type Frame struct {
	Format      FrameFormat
	Samples     []int32
	EndOfStream bool
}

// New returns a non-terminal Frame.
func New(format FrameFormat, samples []int32) Frame {
	return Frame{Format: format, Samples: samples}
}

// EndOfStream returns an empty terminal Frame for the given format.
func EndOfStream(format FrameFormat) Frame {
	return Frame{Format: format, EndOfStream: true}
}

// SamplesCount returns the number of samples per channel held by the frame.
func (f *Frame) SamplesCount() int {
	if f.Format.Channels == 0 {
		return 0
	}
	return len(f.Samples) / f.Format.Channels
}

// Validate checks the frame format and the interleaving invariant.
func (f *Frame) Validate() error {
	if err := f.Format.Validate(); err != nil {
		return err
	}
	if len(f.Samples)%f.Format.Channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, len(f.Samples), f.Format.Channels)
	}
	return nil
}
