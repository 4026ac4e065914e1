package pipeline

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/audioframeringbuffer"
	"github.com/drgolem/audiotranscode/pkg/types"
)

// ErrSendAfterEnd is returned by Send once the terminal frame has been sent.
var ErrSendAfterEnd = errors.New("pipeline: send after end of stream")

// ChannelStats is a snapshot of the frames moved through a Channel.
type ChannelStats struct {
	Format          audioframe.FrameFormat
	FramesSent      uint64
	FramesReceived  uint64
	SamplesSent     uint64
	SamplesReceived uint64
}

// Channel carries Frames from exactly one producer to exactly one consumer
// in FIFO order.
//
// With capacity <= 0 the channel is unbounded and Send never blocks. With a
// positive capacity Send blocks while that many frames are queued.
//
// The first frame fixes the stream format; later frames must match it. After
// the terminal frame Send fails with ErrSendAfterEnd and, once the terminal
// frame has been received, Receive returns io.EOF. Abort fails both ends with
// types.ErrChannelBroken.
type Channel struct {
	readNotify  chan struct{} // a frame was queued
	writeNotify chan struct{} // a frame was dequeued
	done        chan struct{} // closed by Abort

	ring *audioframeringbuffer.Ring // bounded mode only

	mu        sync.Mutex
	queue     []audioframe.Frame // unbounded mode only
	hasFormat bool
	ended     bool // terminal frame sent
	drained   bool // terminal frame received
	abortErr  error
	stats     ChannelStats
}

// NewChannel creates a channel; see Channel for the meaning of capacity.
func NewChannel(capacity int) *Channel {
	c := &Channel{
		readNotify:  make(chan struct{}, 1),
		writeNotify: make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	if capacity > 0 {
		c.ring = audioframeringbuffer.New(capacity)
	}
	return c
}

// Send queues frame for the consumer.
func (c *Channel) Send(frame audioframe.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkSendLocked(frame); err != nil {
		return err
	}

	if c.ring == nil {
		c.queue = append(c.queue, frame)
	} else {
		for {
			err := c.ring.Push(frame)
			if err == nil {
				break
			}
			if !errors.Is(err, audioframeringbuffer.ErrInsufficientSpace) {
				return fmt.Errorf("pipeline: queue frame: %w", err)
			}

			c.mu.Unlock()
			select {
			case <-c.writeNotify:
			case <-c.done:
			}
			c.mu.Lock()
			if c.abortErr != nil {
				return c.brokenLocked()
			}
		}
	}

	if !c.hasFormat {
		c.hasFormat = true
		c.stats.Format = frame.Format
	}
	c.ended = frame.EndOfStream
	c.stats.FramesSent++
	c.stats.SamplesSent += uint64(len(frame.Samples))

	signal(c.readNotify)
	return nil
}

func (c *Channel) checkSendLocked(frame audioframe.Frame) error {
	if c.abortErr != nil {
		return c.brokenLocked()
	}
	if c.ended {
		return ErrSendAfterEnd
	}
	if c.hasFormat {
		return audioframe.CheckFormat(c.stats.Format, frame.Format)
	}
	return nil
}

// Receive blocks until a frame is available and returns it. It returns
// io.EOF after the terminal frame has been received.
func (c *Channel) Receive() (audioframe.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.abortErr != nil {
			return audioframe.Frame{}, c.brokenLocked()
		}
		if frame, ok := c.popLocked(); ok {
			if frame.EndOfStream {
				c.drained = true
			}
			c.stats.FramesReceived++
			c.stats.SamplesReceived += uint64(len(frame.Samples))
			signal(c.writeNotify)
			return frame, nil
		}
		if c.drained {
			return audioframe.Frame{}, io.EOF
		}

		c.mu.Unlock()
		select {
		case <-c.readNotify:
		case <-c.done:
		}
		c.mu.Lock()
	}
}

func (c *Channel) popLocked() (audioframe.Frame, bool) {
	if c.ring == nil {
		if len(c.queue) == 0 {
			return audioframe.Frame{}, false
		}
		frame := c.queue[0]
		c.queue[0] = audioframe.Frame{}
		c.queue = c.queue[1:]
		return frame, true
	}

	frame, err := c.ring.Pop()
	if errors.Is(err, audioframeringbuffer.ErrInsufficientData) {
		return audioframe.Frame{}, false
	}
	return frame, true
}

// Abort fails both ends of the channel with types.ErrChannelBroken wrapping
// cause. Queued frames are discarded. Only the first Abort has an effect; it
// reports whether this call aborted the channel.
func (c *Channel) Abort(cause error) bool {
	if cause == nil {
		cause = types.ErrChannelBroken
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.abortErr != nil {
		return false
	}
	c.abortErr = cause
	c.queue = nil
	if c.ring != nil {
		c.ring.Reset()
	}
	close(c.done)
	return true
}

func (c *Channel) brokenLocked() error {
	if errors.Is(c.abortErr, types.ErrChannelBroken) {
		return c.abortErr
	}
	return fmt.Errorf("%w: %w", types.ErrChannelBroken, c.abortErr)
}

// Ended reports whether the terminal frame has been sent.
func (c *Channel) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// Drained reports whether the terminal frame has been received.
func (c *Channel) Drained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drained
}

// Stats returns a snapshot of the channel counters.
func (c *Channel) Stats() ChannelStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// signal wakes a waiter without blocking; a pending signal is enough.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
