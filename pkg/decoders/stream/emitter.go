// Package stream bridges block-at-a-time decoders into a frame channel.
//
// A decoder library usually hands out audio from inside its own loop or
// callback. Emitter is the handle such a loop is given: every call sends one
// Frame synchronously, so nothing is buffered beyond the block in hand, and
// the terminal Frame is sent at most once. After Fail, the emitter never sends
// a terminal Frame, which lets the consuming stage observe a broken channel
// instead of a silently truncated stream.
//
// An Emitter is owned by exactly one goroutine for the duration of a decode.
package stream

import (
	"errors"
	"fmt"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/types"
)

// ErrFinished is returned by emits after Finish.
var ErrFinished = errors.New("stream: emitter already finished")

// Emitter sends decoded blocks to a FrameSender as Frames of a fixed format.
type Emitter struct {
	out      types.FrameSender
	format   audioframe.FrameFormat
	finished bool
	err      error

	frames  uint64
	samples uint64
}

// NewEmitter returns an emitter for the given stream format.
func NewEmitter(out types.FrameSender, format audioframe.FrameFormat) (*Emitter, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &Emitter{out: out, format: format}, nil
}

// Format returns the stream format stamped on every emitted frame.
func (e *Emitter) Format() audioframe.FrameFormat {
	return e.format
}

// Interleaved sends samples as one frame. Ownership of samples passes to the
// channel. Empty blocks are skipped.
func (e *Emitter) Interleaved(samples []int32) error {
	if err := e.check(); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	frame := audioframe.New(e.format, samples)
	if err := frame.Validate(); err != nil {
		return e.Fail(err)
	}
	if err := e.out.Send(frame); err != nil {
		return e.Fail(err)
	}

	e.frames++
	e.samples += uint64(len(samples))
	return nil
}

// Planar interleaves one block given as per-channel sample slices and sends
// it as one frame. Only the first n samples of each channel are used. The
// input slices are not retained.
func (e *Emitter) Planar(channels [][]int32, n int) error {
	if err := e.check(); err != nil {
		return err
	}
	if len(channels) != e.format.Channels {
		return e.Fail(fmt.Errorf("stream: got %d channels, want %d", len(channels), e.format.Channels))
	}
	for ch, s := range channels {
		if len(s) < n {
			return e.Fail(fmt.Errorf("stream: channel %d has %d samples, want %d", ch, len(s), n))
		}
	}

	samples := make([]int32, 0, n*len(channels))
	for i := 0; i < n; i++ {
		for ch := range channels {
			samples = append(samples, channels[ch][i])
		}
	}
	return e.Interleaved(samples)
}

// Finish sends the terminal frame. It is an error to call Finish twice or
// after Fail.
func (e *Emitter) Finish() error {
	if err := e.check(); err != nil {
		return err
	}
	if err := e.out.Send(audioframe.EndOfStream(e.format)); err != nil {
		return e.Fail(err)
	}
	e.finished = true
	return nil
}

// Fail records err as the outcome of the decode and returns it. Subsequent
// calls on the emitter return the first recorded error.
func (e *Emitter) Fail(err error) error {
	if e.err == nil {
		e.err = err
	}
	return e.err
}

// Err returns the recorded failure, if any.
func (e *Emitter) Err() error {
	return e.err
}

// Finished reports whether the terminal frame was sent.
func (e *Emitter) Finished() bool {
	return e.finished
}

// Stats returns the number of frames and interleaved samples sent so far.
func (e *Emitter) Stats() (frames, samples uint64) {
	return e.frames, e.samples
}

func (e *Emitter) check() error {
	if e.err != nil {
		return e.err
	}
	if e.finished {
		return ErrFinished
	}
	return nil
}
