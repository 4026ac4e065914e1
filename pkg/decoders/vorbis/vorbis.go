package vorbis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/decoders/stream"
	"github.com/drgolem/audiotranscode/pkg/types"

	"github.com/jfreymuth/oggvorbis"
)

const (
	// DefaultChunkFrames is the number of sample frames per emitted Frame.
	DefaultChunkFrames = 4096

	// Vorbis decodes to float; frames are quantized to 16 bits.
	outBitsPerSample = 16
)

// Source decodes an Ogg Vorbis file into a 16-bit Frame stream.
// Implements types.Source interface.
type Source struct {
	fileName    string
	chunkFrames int
}

// NewSource creates a Vorbis source for fileName. A chunkFrames of zero or
// less selects DefaultChunkFrames.
func NewSource(fileName string, chunkFrames int) *Source {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}
	return &Source{fileName: fileName, chunkFrames: chunkFrames}
}

// Decode opens the file and streams decoded PCM to out.
func (s *Source) Decode(ctx context.Context, out types.FrameSender) error {
	file, err := os.Open(s.fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	defer file.Close()

	slog.Debug("Vorbis source opened", "file", filepath.Base(s.fileName))

	return s.DecodeReader(ctx, bufio.NewReader(file), out)
}

// DecodeReader decodes an Ogg Vorbis stream read from r.
func (s *Source) DecodeReader(ctx context.Context, r io.Reader, out types.FrameSender) error {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: vorbis: %w", types.ErrMalformedContainer, err)
	}
	rate := reader.SampleRate()
	channels := reader.Channels()

	format := audioframe.FrameFormat{
		SampleRate:    rate,
		Channels:      channels,
		BitsPerSample: outBitsPerSample,
	}
	emitter, err := stream.NewEmitter(out, format)
	if err != nil {
		return fmt.Errorf("vorbis: %w", err)
	}

	slog.Debug("Vorbis stream info",
		"sample_rate", rate,
		"channels", channels,
		"chunk_frames", s.chunkFrames)

	buf := make([]float32, s.chunkFrames*channels)
	have := 0 // decoded values carried over from the previous read
	for {
		if err := ctx.Err(); err != nil {
			return emitter.Fail(err)
		}

		n, err := reader.Read(buf[have:])
		have += n

		// only whole sample frames are emitted
		aligned := have - have%channels
		if aligned > 0 && (have == len(buf) || err != nil) {
			if serr := emitter.Interleaved(Quantize(buf[:aligned])); serr != nil {
				return serr
			}
			have = copy(buf, buf[aligned:have])
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return emitter.Fail(fmt.Errorf("%w: vorbis: decode: %w", types.ErrMalformedContainer, err))
		}
	}

	if err := emitter.Finish(); err != nil {
		return err
	}

	frames, samples := emitter.Stats()
	slog.Debug("Vorbis source finished", "frames", frames, "samples", samples)
	return nil
}

// Quantize converts float samples in [-1, 1] to 16-bit integer samples,
// clamping values outside that range.
func Quantize(in []float32) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = FloatToInt16(v)
	}
	return out
}

// FloatToInt16 scales v to the 16-bit range with clamping.
func FloatToInt16(v float32) int32 {
	switch {
	case v != v: // NaN
		return 0
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return math.MinInt16
	}
	return int32(math.Round(float64(v) * 32767))
}
