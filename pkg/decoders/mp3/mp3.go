package mp3

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/decoders/stream"
	"github.com/drgolem/audiotranscode/pkg/pcm"
	"github.com/drgolem/audiotranscode/pkg/types"

	"github.com/hajimehoshi/go-mp3"
)

const (
	// DefaultChunkFrames is the number of sample frames per emitted Frame.
	DefaultChunkFrames = 4096

	// go-mp3 always produces 16-bit little-endian stereo.
	outChannels      = 2
	outBitsPerSample = 16
	outBlockAlign    = outChannels * outBitsPerSample / 8
)

// Source decodes an MP3 file into a 16-bit stereo Frame stream.
// Implements types.Source interface.
type Source struct {
	fileName    string
	chunkFrames int
	rate        int
}

// NewSource creates an MP3 source for fileName. A chunkFrames of zero or
// less selects DefaultChunkFrames.
func NewSource(fileName string, chunkFrames int) *Source {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}
	return &Source{fileName: fileName, chunkFrames: chunkFrames}
}

// GetFormat returns the audio format (rate, channels, bits per sample).
func (s *Source) GetFormat() (int, int, int) {
	return s.rate, outChannels, outBitsPerSample
}

// Decode opens the file and streams decoded PCM to out.
func (s *Source) Decode(ctx context.Context, out types.FrameSender) error {
	file, err := os.Open(s.fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	defer file.Close()

	slog.Debug("MP3 source opened", "file", filepath.Base(s.fileName))

	return s.DecodeReader(ctx, bufio.NewReader(file), out)
}

// DecodeReader decodes an MP3 stream read from r.
func (s *Source) DecodeReader(ctx context.Context, r io.Reader, out types.FrameSender) error {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return fmt.Errorf("%w: mp3: %w", types.ErrMalformedContainer, err)
	}
	s.rate = decoder.SampleRate()

	format := audioframe.FrameFormat{
		SampleRate:    s.rate,
		Channels:      outChannels,
		BitsPerSample: outBitsPerSample,
	}
	emitter, err := stream.NewEmitter(out, format)
	if err != nil {
		return fmt.Errorf("mp3: %w", err)
	}

	slog.Debug("MP3 stream info", "sample_rate", s.rate, "chunk_frames", s.chunkFrames)

	buf := make([]byte, s.chunkFrames*outBlockAlign)
	for {
		if err := ctx.Err(); err != nil {
			return emitter.Fail(err)
		}

		n, err := io.ReadFull(decoder, buf)
		if n -= n % outBlockAlign; n > 0 {
			samples, uerr := pcm.Unpack(buf[:n], outBitsPerSample)
			if uerr != nil {
				return emitter.Fail(uerr)
			}
			if serr := emitter.Interleaved(samples); serr != nil {
				return serr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return emitter.Fail(fmt.Errorf("%w: mp3: decode: %w", types.ErrMalformedContainer, err))
		}
	}

	if err := emitter.Finish(); err != nil {
		return err
	}

	frames, samples := emitter.Stats()
	slog.Debug("MP3 source finished", "frames", frames, "samples", samples)
	return nil
}
