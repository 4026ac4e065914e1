package flac

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	flacenc "github.com/drgolem/audiotranscode/pkg/encoders/flac"
	"github.com/drgolem/audiotranscode/pkg/types"
)

type frameQueue struct {
	frames []audioframe.Frame
}

func (q *frameQueue) Receive() (audioframe.Frame, error) {
	if len(q.frames) == 0 {
		return audioframe.Frame{}, io.EOF
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, nil
}

type collector struct {
	frames []audioframe.Frame
}

func (c *collector) Send(frame audioframe.Frame) error {
	c.frames = append(c.frames, frame)
	return nil
}

func (c *collector) samples() []int32 {
	var all []int32
	for _, f := range c.frames {
		all = append(all, f.Samples...)
	}
	return all
}

// writeFLAC encodes samples into a FLAC file under t.TempDir.
func writeFLAC(t *testing.T, format audioframe.FrameFormat, samples []int32, blockSize int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.flac")
	q := &frameQueue{frames: []audioframe.Frame{
		audioframe.New(format, samples),
		audioframe.EndOfStream(format),
	}}
	if err := flacenc.NewSink(path, blockSize).Encode(context.Background(), q); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return path
}

func ramp(n, channels int, scale int32) []int32 {
	samples := make([]int32, n*channels)
	for i := range samples {
		v := int32(i%200) - 100
		samples[i] = v * scale
	}
	return samples
}

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format audioframe.FrameFormat
		scale  int32
	}{
		{"mono 8-bit", audioframe.FrameFormat{SampleRate: 8000, Channels: 1, BitsPerSample: 8}, 1},
		{"stereo 16-bit", audioframe.FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, 300},
		{"5.1 24-bit", audioframe.FrameFormat{SampleRate: 48000, Channels: 6, BitsPerSample: 24}, 80000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := ramp(1000, tt.format.Channels, tt.scale)
			path := writeFLAC(t, tt.format, want, 256)

			src := NewSource(path)
			c := &collector{}
			if err := src.Decode(context.Background(), c); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			rate, channels, bps := src.GetFormat()
			if rate != tt.format.SampleRate || channels != tt.format.Channels || bps != tt.format.BitsPerSample {
				t.Errorf("GetFormat: got (%d, %d, %d), want %v", rate, channels, bps, tt.format)
			}

			if len(c.frames) == 0 || !c.frames[len(c.frames)-1].EndOfStream {
				t.Fatal("stream did not end with a terminal frame")
			}
			// 1000 frames in blocks of 256 gives 4 data frames
			if got := len(c.frames) - 1; got != 4 {
				t.Errorf("data frames: got %d, want 4", got)
			}
			for i, f := range c.frames {
				if f.Format != tt.format {
					t.Errorf("frame %d format: got %v, want %v", i, f.Format, tt.format)
				}
			}

			got := c.samples()
			if len(got) != len(want) {
				t.Fatalf("samples: got %d, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("sample %d: got %d, want %d", i, got[i], want[i])
				}
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	src := NewSource("")
	c := &collector{}
	err := src.DecodeReader(context.Background(), bytes.NewReader([]byte("RIFF not a flac stream")), c)
	if !errors.Is(err, types.ErrMalformedContainer) {
		t.Errorf("got %v, want ErrMalformedContainer", err)
	}
	if len(c.frames) != 0 {
		t.Errorf("got %d frames, want none", len(c.frames))
	}
}

func TestDecodeOpenError(t *testing.T) {
	src := NewSource(filepath.Join(t.TempDir(), "missing.flac"))
	err := src.Decode(context.Background(), &collector{})
	if !errors.Is(err, types.ErrOpen) {
		t.Errorf("got %v, want ErrOpen", err)
	}
}

func TestDecodeCancelled(t *testing.T) {
	format := audioframe.FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 16}
	path := writeFLAC(t, format, ramp(1000, 2, 1), 256)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}
	err := NewSource(path).Decode(ctx, c)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	for _, f := range c.frames {
		if f.EndOfStream {
			t.Error("cancelled decode sent a terminal frame")
		}
	}
}
