package flac

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
	"github.com/drgolem/audiotranscode/pkg/types"

	"github.com/mewkiz/flac"
)

// Source decodes a FLAC file into a Frame stream, one Frame per FLAC block.
// Implements types.Source interface.
type Source struct {
	fileName string
	rate     int
	channels int
	bps      int // bits per sample
}

// NewSource creates a FLAC source for fileName.
func NewSource(fileName string) *Source {
	return &Source{fileName: fileName}
}

// GetFormat returns the stream format (rate, channels, bits per sample).
// Values are zero until Decode has parsed the stream header.
func (s *Source) GetFormat() (int, int, int) {
	return s.rate, s.channels, s.bps
}

// Decode opens the file and streams every decoded block to out.
func (s *Source) Decode(ctx context.Context, out types.FrameSender) error {
	file, err := os.Open(s.fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	defer file.Close()

	slog.Debug("FLAC source opened", "file", filepath.Base(s.fileName))

	return s.DecodeReader(ctx, bufio.NewReader(file), out)
}

// DecodeReader decodes a FLAC stream read from r.
func (s *Source) DecodeReader(ctx context.Context, r io.Reader, out types.FrameSender) error {
	decoder, err := flac.New(r)
	if err != nil {
		return fmt.Errorf("%w: flac: %w", types.ErrMalformedContainer, err)
	}

	info := decoder.Info
	s.rate = int(info.SampleRate)
	s.channels = int(info.NChannels)
	s.bps = int(info.BitsPerSample)

	format := audioframe.FrameFormat{SampleRate: s.rate, Channels: s.channels, BitsPerSample: s.bps}
	emitter, err := stream.NewEmitter(out, format)
	if err != nil {
		return fmt.Errorf("flac: %w", err)
	}

	slog.Debug("FLAC stream info",
		"sample_rate", s.rate,
		"channels", s.channels,
		"bits_per_sample", s.bps,
		"total_samples", info.NSamples)

	planar := make([][]int32, s.channels)
	for {
		if err := ctx.Err(); err != nil {
			return emitter.Fail(err)
		}

		block, err := decoder.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return emitter.Fail(fmt.Errorf("%w: flac: decode block: %w", types.ErrMalformedContainer, err))
		}

		if len(block.Subframes) != s.channels {
			return emitter.Fail(fmt.Errorf("%w: flac: block has %d channels, stream has %d",
				types.ErrMalformedContainer, len(block.Subframes), s.channels))
		}
		for ch, sub := range block.Subframes {
			planar[ch] = sub.Samples
		}
		if err := emitter.Planar(planar, int(block.BlockSize)); err != nil {
			return err
		}
	}

	if err := emitter.Finish(); err != nil {
		return err
	}

	frames, samples := emitter.Stats()
	slog.Debug("FLAC source finished", "frames", frames, "samples", samples)
	return nil
}
