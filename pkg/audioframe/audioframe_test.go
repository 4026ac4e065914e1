package audioframe

import (
	"errors"
	"testing"

	"github.com/drgolem/audiotranscode/pkg/pcm"
)

func TestFrameFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  FrameFormat
		wantErr error
	}{
		{"stereo 16-bit", FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, nil},
		{"mono 8-bit", FrameFormat{SampleRate: 8000, Channels: 1, BitsPerSample: 8}, nil},
		{"5.1 24-bit", FrameFormat{SampleRate: 48000, Channels: 6, BitsPerSample: 24}, nil},
		{"zero channels", FrameFormat{SampleRate: 44100, Channels: 0, BitsPerSample: 16}, ErrInvalidFormat},
		{"zero rate", FrameFormat{SampleRate: 0, Channels: 2, BitsPerSample: 16}, ErrInvalidFormat},
		{"12-bit", FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 12}, pcm.ErrUnsupportedBitDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate: unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameFormatDerivedSizes(t *testing.T) {
	f := FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 16}

	if f.BytesPerSample() != 2 {
		t.Errorf("BytesPerSample: got %d, want 2", f.BytesPerSample())
	}
	if f.BlockAlign() != 4 {
		t.Errorf("BlockAlign: got %d, want 4", f.BlockAlign())
	}
	if f.ByteRate() != 176400 {
		t.Errorf("ByteRate: got %d, want 176400", f.ByteRate())
	}
	if f.String() != "44100Hz:16bit:2ch" {
		t.Errorf("String: got %q", f.String())
	}
}

func TestFrameValidate(t *testing.T) {
	format := FrameFormat{SampleRate: 48000, Channels: 2, BitsPerSample: 16}

	frame := New(format, []int32{1, 2, 3, 4})
	if err := frame.Validate(); err != nil {
		t.Errorf("Validate: unexpected error %v", err)
	}
	if frame.SamplesCount() != 2 {
		t.Errorf("SamplesCount: got %d, want 2", frame.SamplesCount())
	}

	partial := New(format, []int32{1, 2, 3})
	if err := partial.Validate(); !errors.Is(err, ErrPartialFrame) {
		t.Errorf("Validate partial: got %v, want ErrPartialFrame", err)
	}
}

func TestEndOfStream(t *testing.T) {
	format := FrameFormat{SampleRate: 44100, Channels: 1, BitsPerSample: 8}
	eos := EndOfStream(format)

	if !eos.EndOfStream {
		t.Error("EndOfStream frame not marked terminal")
	}
	if len(eos.Samples) != 0 {
		t.Errorf("EndOfStream frame has %d samples, want 0", len(eos.Samples))
	}
	if eos.Format != format {
		t.Errorf("EndOfStream format: got %v, want %v", eos.Format, format)
	}
	if err := eos.Validate(); err != nil {
		t.Errorf("Validate: unexpected error %v", err)
	}
}

func TestSamplesCountZeroChannels(t *testing.T) {
	var f Frame
	if f.SamplesCount() != 0 {
		t.Errorf("SamplesCount on zero frame: got %d, want 0", f.SamplesCount())
	}
}

func TestCheckFormat(t *testing.T) {
	a := FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 16}
	b := FrameFormat{SampleRate: 48000, Channels: 2, BitsPerSample: 16}

	if err := CheckFormat(a, a); err != nil {
		t.Errorf("CheckFormat same: unexpected error %v", err)
	}
	if err := CheckFormat(a, b); !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("CheckFormat different: got %v, want ErrFormatMismatch", err)
	}
}
