package flac

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/types"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	// DefaultBlockSize is the number of samples per channel in each FLAC frame.
	DefaultBlockSize = 4096

	// MinBlockSize and MaxBlockSize bound the configurable block size.
	MinBlockSize = 16
	MaxBlockSize = 65535

	maxChannels = 8
)

// Sink encodes a Frame stream into a FLAC file using verbatim subframes.
// Implements types.Sink interface.
type Sink struct {
	fileName  string
	blockSize int
}

// NewSink creates a FLAC sink writing to fileName. A blockSize outside
// [MinBlockSize, MaxBlockSize] selects DefaultBlockSize.
func NewSink(fileName string, blockSize int) *Sink {
	if blockSize < MinBlockSize || blockSize > MaxBlockSize {
		blockSize = DefaultBlockSize
	}
	return &Sink{fileName: fileName, blockSize: blockSize}
}

// Encode waits for the first frame to learn the stream format, then creates
// the output file and encodes every received frame in order.
func (s *Sink) Encode(ctx context.Context, in types.FrameReceiver) error {
	first, err := in.Receive()
	if err != nil {
		return err
	}

	format := first.Format
	if err := checkFormat(format); err != nil {
		return err
	}

	file, err := os.Create(s.fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	defer file.Close()

	slog.Debug("FLAC sink created",
		"file", filepath.Base(s.fileName),
		"format", format.String(),
		"block_size", s.blockSize)

	bw, err := newBlockWriter(file, format, s.blockSize)
	if err != nil {
		return err
	}

	f := first
	for {
		if err := audioframe.CheckFormat(format, f.Format); err != nil {
			return err
		}
		if err := bw.write(f.Samples); err != nil {
			return err
		}
		if f.EndOfStream {
			break
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if f, err = in.Receive(); err != nil {
			return err
		}
	}

	if err := bw.close(); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: flac: close: %w", types.ErrWrite, err)
	}

	slog.Debug("FLAC sink finished", "blocks", bw.blocks, "samples", bw.samples)
	return nil
}

func checkFormat(format audioframe.FrameFormat) error {
	if err := format.Validate(); err != nil {
		return fmt.Errorf("flac: %w", err)
	}
	if format.BitsPerSample > 24 {
		return fmt.Errorf("%w: flac encoder supports up to 24 bits, got %d",
			types.ErrUnsupportedBitDepth, format.BitsPerSample)
	}
	if format.Channels > maxChannels {
		return fmt.Errorf("flac: %d channels exceeds the FLAC limit of %d", format.Channels, maxChannels)
	}
	return nil
}

// seekWriter hides Close from the encoder so the sink keeps ownership of the
// file, while still letting the encoder seek back to finalize StreamInfo.
type seekWriter struct {
	io.WriteSeeker
}

// blockWriter de-interleaves incoming samples into fixed-size planar blocks
// and writes each full block as one FLAC frame.
type blockWriter struct {
	enc       *flac.Encoder
	format    audioframe.FrameFormat
	blockSize int
	planar    [][]int32
	fill      int

	blocks  uint64
	samples uint64
}

func newBlockWriter(ws io.WriteSeeker, format audioframe.FrameFormat, blockSize int) (*blockWriter, error) {
	info := &meta.StreamInfo{
		BlockSizeMin:  uint16(blockSize),
		BlockSizeMax:  uint16(blockSize),
		SampleRate:    uint32(format.SampleRate),
		NChannels:     uint8(format.Channels),
		BitsPerSample: uint8(format.BitsPerSample),
	}

	enc, err := flac.NewEncoder(seekWriter{ws}, info)
	if err != nil {
		return nil, fmt.Errorf("%w: flac: create encoder: %w", types.ErrWrite, err)
	}

	planar := make([][]int32, format.Channels)
	for ch := range planar {
		planar[ch] = make([]int32, blockSize)
	}

	return &blockWriter{
		enc:       enc,
		format:    format,
		blockSize: blockSize,
		planar:    planar,
	}, nil
}

func (bw *blockWriter) write(samples []int32) error {
	channels := bw.format.Channels
	if len(samples)%channels != 0 {
		return fmt.Errorf("flac: %w", audioframe.ErrPartialFrame)
	}

	for i := 0; i < len(samples); i += channels {
		for ch := 0; ch < channels; ch++ {
			bw.planar[ch][bw.fill] = samples[i+ch]
		}
		bw.fill++
		if bw.fill == bw.blockSize {
			if err := bw.flush(); err != nil {
				return err
			}
		}
	}
	bw.samples += uint64(len(samples))
	return nil
}

func (bw *blockWriter) flush() error {
	if bw.fill == 0 {
		return nil
	}

	subframes := make([]*frame.Subframe, bw.format.Channels)
	for ch := range subframes {
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   bw.planar[ch][:bw.fill],
			NSamples:  bw.fill,
		}
	}

	f := &frame.Frame{
		Header: frame.Header{
			HasFixedBlockSize: true,
			BlockSize:         uint16(bw.fill),
			SampleRate:        uint32(bw.format.SampleRate),
			// independent channel assignments are numbered count-1
			Channels:      frame.Channels(bw.format.Channels - 1),
			BitsPerSample: uint8(bw.format.BitsPerSample),
			Num:           bw.blocks,
		},
		Subframes: subframes,
	}

	if err := bw.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("%w: flac: write frame %d: %w", types.ErrWrite, bw.blocks, err)
	}

	bw.blocks++
	bw.fill = 0
	return nil
}

func (bw *blockWriter) close() error {
	if err := bw.flush(); err != nil {
		return err
	}
	if err := bw.enc.Close(); err != nil {
		return fmt.Errorf("%w: flac: finalize stream: %w", types.ErrWrite, err)
	}
	return nil
}
