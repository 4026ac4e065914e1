// Package audioframeringbuffer provides a fixed-capacity FIFO ring of Frames.
package audioframeringbuffer

import (
	"github.com/drgolem/audiotranscode/pkg/audioframe"

	"github.com/drgolem/ringbuffer"
)

// Errors shared with github.com/drgolem/ringbuffer so callers can treat a
// full or empty frame ring the same way as a byte ring.
var (
	// ErrInsufficientSpace is returned by Push on a full ring.
	ErrInsufficientSpace = ringbuffer.ErrInsufficientSpace

	// ErrInsufficientData is returned by Pop on an empty ring.
	ErrInsufficientData = ringbuffer.ErrInsufficientData
)

// Ring is a fixed-capacity FIFO of Frames.
//
// Push takes ownership of the frame: its Samples slice is stored as is and
// handed back unchanged by Pop. Ring does no locking; the owner serializes
// Push and Pop (the pipeline channel holds its mutex around both).
type Ring struct {
	slots []audioframe.Frame
	head  int // index of the oldest frame
	count int
}

// New creates a ring holding up to capacity frames. A capacity below 1 is
// treated as 1.
func New(capacity int) *Ring {
	return &Ring{slots: make([]audioframe.Frame, max(capacity, 1))}
}

// Push appends frame at the tail. It returns ErrInsufficientSpace if the
// ring is full.
func (r *Ring) Push(frame audioframe.Frame) error {
	if r.count == len(r.slots) {
		return ErrInsufficientSpace
	}
	r.slots[(r.head+r.count)%len(r.slots)] = frame
	r.count++
	return nil
}

// Pop removes and returns the oldest frame. It returns ErrInsufficientData
// if the ring is empty. The vacated slot drops its reference to Samples.
func (r *Ring) Pop() (audioframe.Frame, error) {
	if r.count == 0 {
		return audioframe.Frame{}, ErrInsufficientData
	}
	frame := r.slots[r.head]
	r.slots[r.head] = audioframe.Frame{}
	r.head = (r.head + 1) % len(r.slots)
	r.count--
	return frame, nil
}

// Len returns the number of queued frames.
func (r *Ring) Len() int {
	return r.count
}

// Cap returns the ring capacity in frames.
func (r *Ring) Cap() int {
	return len(r.slots)
}

// Full reports whether Push would fail.
func (r *Ring) Full() bool {
	return r.count == len(r.slots)
}

// Reset drops every queued frame.
func (r *Ring) Reset() {
	clear(r.slots)
	r.head = 0
	r.count = 0
}
