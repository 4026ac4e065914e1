package wav

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/pcm"
	"github.com/drgolem/audiotranscode/pkg/types"
	"github.com/drgolem/audiotranscode/pkg/wavheader"
)

// Sink encodes a Frame stream into a raw-PCM WAV file.
// Implements types.Sink interface.
//
// The header is written with zero sizes first and patched once the stream
// ends, so the output must be seekable.
type Sink struct {
	fileName string
	w        io.Writer
}

// NewSink creates a WAV sink that creates fileName on the first frame.
func NewSink(fileName string) *Sink {
	return &Sink{fileName: fileName}
}

// NewWriterSink creates a WAV sink writing to w, which the caller owns.
// The header is patched at offset 0 of w.
func NewWriterSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Encode waits for the first frame to learn the stream format, then writes
// every received frame in order. The output file is not created when the
// first receive fails.
func (s *Sink) Encode(ctx context.Context, in types.FrameReceiver) error {
	first, err := in.Receive()
	if err != nil {
		return err
	}
	if err := first.Format.Validate(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	if s.w != nil {
		return encode(ctx, s.w, first, in)
	}

	file, err := os.Create(s.fileName)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	defer file.Close()

	slog.Debug("WAV sink created",
		"file", filepath.Base(s.fileName),
		"format", first.Format.String())

	if err := encode(ctx, file, first, in); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: wav: close: %w", types.ErrWrite, err)
	}
	return nil
}

func encode(ctx context.Context, w io.Writer, first audioframe.Frame, in types.FrameReceiver) error {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return fmt.Errorf("%w: %T", types.ErrNotSeekable, w)
	}
	if _, err := ws.Seek(0, io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %w", types.ErrNotSeekable, err)
	}

	format := first.Format
	if err := wavheader.Write(ws, wavheader.FromFormat(format, 0)); err != nil {
		return fmt.Errorf("%w: wav: header: %w", types.ErrWrite, err)
	}

	bw := bufio.NewWriter(ws)
	var (
		buf      []byte
		dataSize uint64
		frames   uint64
		err      error
	)

	f := first
	for {
		if err := audioframe.CheckFormat(format, f.Format); err != nil {
			return err
		}

		if len(f.Samples) > 0 {
			if buf, err = pcm.AppendPack(buf[:0], f.Samples, format.BitsPerSample); err != nil {
				return fmt.Errorf("wav: %w", err)
			}
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("%w: wav: %w", types.ErrWrite, err)
			}
			dataSize += uint64(len(buf))
			frames++
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

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: wav: %w", types.ErrWrite, err)
	}
	if err := wavheader.PatchSizes(ws, dataSize); err != nil {
		return fmt.Errorf("%w: wav: patch header: %w", types.ErrWrite, err)
	}

	slog.Debug("WAV sink finished", "frames", frames, "data_size", dataSize)
	return nil
}
