package types

import (
	"context"
	"errors"
	"time"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/pcm"
)

// FrameSender is the producing end of a pipeline channel.
// Send transfers ownership of the frame: the caller must not touch
// frame.Samples after the call.
type FrameSender interface {
	Send(frame audioframe.Frame) error
}

// FrameReceiver is the consuming end of a pipeline channel.
// Receive blocks until the next frame is available. It returns io.EOF
// once the terminal frame has been received, and ErrChannelBroken if the
// producer went away without sending it.
type FrameReceiver interface {
	Receive() (audioframe.Frame, error)
}

// Source decodes a container into an ordered frame stream.
// A successful Decode sends the terminal frame exactly once, last.
// On failure it returns the error without sending a terminal frame.
type Source interface {
	Decode(ctx context.Context, out FrameSender) error
}

// Sink writes a received frame stream into a container.
// Encode returns once the terminal frame has been consumed and the
// output finalized, or on the first error.
type Sink interface {
	Encode(ctx context.Context, in FrameReceiver) error
}

// Error taxonomy shared by all stages. Stage errors wrap one of these so
// callers can classify failures with errors.Is.
var (
	// ErrOpen indicates the input or output path could not be opened.
	ErrOpen = errors.New("open error")

	// ErrMalformedContainer indicates a bad header, unsupported format tag,
	// truncated header or data, or a missing data section.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrUnsupportedBitDepth is the sample codec error for depths outside
	// {8, 16, 24, 32}.
	ErrUnsupportedBitDepth = pcm.ErrUnsupportedBitDepth

	// ErrWrite indicates an I/O failure while writing output.
	ErrWrite = errors.New("write error")

	// ErrNotSeekable indicates the output cannot be patched after writing.
	ErrNotSeekable = errors.New("output is not seekable")

	// ErrChannelBroken indicates the peer stage terminated without
	// completing the frame protocol.
	ErrChannelBroken = errors.New("channel broken")

	// ErrUnsupportedFormat indicates a file extension with no matching
	// source or sink.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// TranscodeStatus holds progress information for a running transcode.
type TranscodeStatus struct {
	RunID           string                 // Unique id of the pipeline run
	State           string                 // idle, running, completed or failed
	Format          audioframe.FrameFormat // Stream format, zero until the first frame
	FramesSent      uint64                 // Frames handed to the channel by the source
	FramesReceived  uint64                 // Frames taken from the channel by the sink
	SamplesSent     uint64                 // Interleaved samples handed to the channel
	SamplesReceived uint64                 // Interleaved samples taken from the channel
	ElapsedTime     time.Duration          // Wall-clock time since the run started
}

// TranscodeMonitor is implemented by types that can report transcode progress.
type TranscodeMonitor interface {
	GetTranscodeStatus() TranscodeStatus
}
