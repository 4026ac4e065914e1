package wav

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drgolem/audiotranscode/pkg/decoders/stream"
	"github.com/drgolem/audiotranscode/pkg/pcm"
	"github.com/drgolem/audiotranscode/pkg/types"
	"github.com/drgolem/audiotranscode/pkg/wavheader"
)

// DefaultChunkFrames is the number of sample frames per emitted Frame.
const DefaultChunkFrames = 4096

// Source decodes a raw-PCM WAV file into a Frame stream.
// Implements types.Source interface.
type Source struct {
	fileName    string
	chunkFrames int
}

// NewSource creates a WAV source for fileName.
//
// chunkFrames bounds the number of sample frames (one sample per channel)
// carried by each emitted Frame. Zero or a negative value emits the whole
// data section as a single Frame.
func NewSource(fileName string, chunkFrames int) *Source {
	return &Source{fileName: fileName, chunkFrames: chunkFrames}
}

// Decode opens the file and streams its data section to out.
func (s *Source) Decode(ctx context.Context, out types.FrameSender) error {
	file, err := os.Open(s.fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	defer file.Close()

	slog.Debug("WAV source opened", "file", filepath.Base(s.fileName))

	return DecodeReader(ctx, bufio.NewReader(file), s.chunkFrames, out)
}

// DecodeReader parses a header from r and streams the data section to out.
// On success the terminal Frame has been sent; on failure it has not.
func DecodeReader(ctx context.Context, r io.Reader, chunkFrames int, out types.FrameSender) error {
	header, err := wavheader.Read(r)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrMalformedContainer, err)
	}

	emitter, err := stream.NewEmitter(out, header.Format())
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	format := emitter.Format()
	blockAlign := format.BlockAlign()
	dataSize := int64(header.DataSize)

	if dataSize%int64(blockAlign) != 0 {
		return fmt.Errorf("%w: data size %d is not a multiple of block align %d",
			types.ErrMalformedContainer, dataSize, blockAlign)
	}

	chunkBytes := dataSize
	if chunkFrames > 0 {
		chunkBytes = min(int64(chunkFrames)*int64(blockAlign), dataSize)
	}

	slog.Debug("WAV header parsed",
		"sample_rate", format.SampleRate,
		"channels", format.Channels,
		"bits_per_sample", format.BitsPerSample,
		"data_bytes", dataSize,
		"chunk_bytes", chunkBytes)

	var buffer []byte
	if chunkFrames > 0 {
		buffer = make([]byte, chunkBytes)
	}

	for remaining := dataSize; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return emitter.Fail(err)
		}

		data, err := readChunk(r, buffer, min(chunkBytes, remaining))
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return emitter.Fail(fmt.Errorf("%w: data section truncated at %d of %d bytes",
					types.ErrMalformedContainer, dataSize-remaining+int64(len(data)), dataSize))
			}
			return emitter.Fail(fmt.Errorf("wav: read data: %w", err))
		}

		samples, err := pcm.Unpack(data, format.BitsPerSample)
		if err != nil {
			return emitter.Fail(fmt.Errorf("wav: %w", err))
		}
		if err := emitter.Interleaved(samples); err != nil {
			return err
		}

		remaining -= int64(len(data))
	}

	if err := emitter.Finish(); err != nil {
		return err
	}

	frames, samples := emitter.Stats()
	slog.Debug("WAV source finished", "frames", frames, "samples", samples)
	return nil
}

// readChunk reads exactly n bytes, returning io.ErrUnexpectedEOF with the
// bytes read so far if r ends early. With a reusable buffer it fills buf;
// otherwise it reads through a LimitReader so a bogus declared size does not
// drive the allocation.
func readChunk(r io.Reader, buf []byte, n int64) ([]byte, error) {
	if int64(cap(buf)) >= n {
		buf = buf[:n]
		read, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return buf[:read], err
	}

	data, err := io.ReadAll(io.LimitReader(r, n))
	if err == nil && int64(len(data)) < n {
		err = io.ErrUnexpectedEOF
	}
	return data, err
}
