package pipeline

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/types"
)

var stereo16 = audioframe.FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 16}

func seqFrame(n int32) audioframe.Frame {
	return audioframe.New(stereo16, []int32{n, -n})
}

func TestChannelFIFO(t *testing.T) {
	for _, capacity := range []int{0, 8} {
		c := NewChannel(capacity)

		for i := int32(1); i <= 3; i++ {
			if err := c.Send(seqFrame(i)); err != nil {
				t.Fatalf("capacity %d: Send %d: %v", capacity, i, err)
			}
		}
		if err := c.Send(audioframe.EndOfStream(stereo16)); err != nil {
			t.Fatalf("capacity %d: Send terminal: %v", capacity, err)
		}

		for i := int32(1); i <= 3; i++ {
			f, err := c.Receive()
			if err != nil {
				t.Fatalf("capacity %d: Receive %d: %v", capacity, i, err)
			}
			if f.Samples[0] != i || f.EndOfStream {
				t.Errorf("capacity %d: frame %d: got %+v", capacity, i, f)
			}
		}

		f, err := c.Receive()
		if err != nil || !f.EndOfStream {
			t.Fatalf("capacity %d: terminal: got %+v, %v", capacity, f, err)
		}
		if _, err := c.Receive(); !errors.Is(err, io.EOF) {
			t.Errorf("capacity %d: after terminal: got %v, want io.EOF", capacity, err)
		}
		if !c.Ended() || !c.Drained() {
			t.Errorf("capacity %d: Ended=%v Drained=%v, want both true", capacity, c.Ended(), c.Drained())
		}
	}
}

func TestChannelSendErrors(t *testing.T) {
	t.Run("after end", func(t *testing.T) {
		c := NewChannel(0)
		if err := c.Send(audioframe.EndOfStream(stereo16)); err != nil {
			t.Fatal(err)
		}
		if err := c.Send(seqFrame(1)); !errors.Is(err, ErrSendAfterEnd) {
			t.Errorf("got %v, want ErrSendAfterEnd", err)
		}
	})

	t.Run("partial frame", func(t *testing.T) {
		c := NewChannel(0)
		err := c.Send(audioframe.New(stereo16, []int32{1, 2, 3}))
		if !errors.Is(err, audioframe.ErrPartialFrame) {
			t.Errorf("got %v, want ErrPartialFrame", err)
		}
	})

	t.Run("format change", func(t *testing.T) {
		c := NewChannel(0)
		if err := c.Send(seqFrame(1)); err != nil {
			t.Fatal(err)
		}
		mono := audioframe.FrameFormat{SampleRate: 44100, Channels: 1, BitsPerSample: 16}
		if err := c.Send(audioframe.New(mono, []int32{1})); !errors.Is(err, audioframe.ErrFormatMismatch) {
			t.Errorf("got %v, want ErrFormatMismatch", err)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		c := NewChannel(0)
		bad := audioframe.FrameFormat{SampleRate: 44100, Channels: 2, BitsPerSample: 12}
		if err := c.Send(audioframe.EndOfStream(bad)); !errors.Is(err, types.ErrUnsupportedBitDepth) {
			t.Errorf("got %v, want ErrUnsupportedBitDepth", err)
		}
	})
}

func TestChannelAbortUnblocksReceiver(t *testing.T) {
	c := NewChannel(0)
	cause := errors.New("decoder exploded")

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Receive()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if !c.Abort(cause) {
		t.Fatal("first Abort reported no effect")
	}
	if c.Abort(errors.New("second")) {
		t.Error("second Abort reported an effect")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, types.ErrChannelBroken) || !errors.Is(err, cause) {
			t.Errorf("got %v, want ErrChannelBroken wrapping cause", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after Abort")
	}

	if err := c.Send(seqFrame(1)); !errors.Is(err, types.ErrChannelBroken) {
		t.Errorf("Send after Abort: got %v, want ErrChannelBroken", err)
	}
}

func TestChannelBoundedBlocksSender(t *testing.T) {
	c := NewChannel(2)
	for i := int32(1); i <= 2; i++ {
		if err := c.Send(seqFrame(i)); err != nil {
			t.Fatal(err)
		}
	}

	sent := make(chan error, 1)
	go func() { sent <- c.Send(seqFrame(3)) }()

	select {
	case err := <-sent:
		t.Fatalf("Send on a full channel returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := c.Receive(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-sent:
		if err != nil {
			t.Errorf("Send after Receive: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after Receive")
	}
}

func TestChannelBoundedAbortUnblocksSender(t *testing.T) {
	c := NewChannel(1)
	if err := c.Send(seqFrame(1)); err != nil {
		t.Fatal(err)
	}

	sent := make(chan error, 1)
	go func() { sent <- c.Send(seqFrame(2)) }()

	time.Sleep(20 * time.Millisecond)
	c.Abort(types.ErrWrite)

	select {
	case err := <-sent:
		if !errors.Is(err, types.ErrChannelBroken) || !errors.Is(err, types.ErrWrite) {
			t.Errorf("got %v, want ErrChannelBroken wrapping ErrWrite", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after Abort")
	}
}

func TestChannelStats(t *testing.T) {
	c := NewChannel(0)
	c.Send(seqFrame(1))
	c.Send(seqFrame(2))
	c.Send(audioframe.EndOfStream(stereo16))
	c.Receive()

	stats := c.Stats()
	if stats.Format != stereo16 {
		t.Errorf("Format: got %v, want %v", stats.Format, stereo16)
	}
	if stats.FramesSent != 3 || stats.SamplesSent != 4 {
		t.Errorf("sent: got %d frames %d samples, want 3 and 4", stats.FramesSent, stats.SamplesSent)
	}
	if stats.FramesReceived != 1 || stats.SamplesReceived != 2 {
		t.Errorf("received: got %d frames %d samples, want 1 and 2", stats.FramesReceived, stats.SamplesReceived)
	}
}

func TestChannelConcurrent(t *testing.T) {
	const numFrames = 2000

	for _, capacity := range []int{0, 4} {
		c := NewChannel(capacity)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := int32(0); i < numFrames; i++ {
				if err := c.Send(seqFrame(i)); err != nil {
					t.Errorf("Send %d: %v", i, err)
					return
				}
			}
			c.Send(audioframe.EndOfStream(stereo16))
		}()

		next := int32(0)
		for {
			f, err := c.Receive()
			if err != nil {
				t.Fatalf("capacity %d: Receive: %v", capacity, err)
			}
			if f.EndOfStream {
				break
			}
			if f.Samples[0] != next {
				t.Fatalf("capacity %d: out of order: got %d, want %d", capacity, f.Samples[0], next)
			}
			next++
		}
		wg.Wait()

		if next != numFrames {
			t.Errorf("capacity %d: received %d frames, want %d", capacity, next, numFrames)
		}
	}
}

func TestChannelHandsOverSamples(t *testing.T) {
	for _, capacity := range []int{0, 1} {
		c := NewChannel(capacity)
		samples := []int32{3, -3}
		if err := c.Send(audioframe.New(stereo16, samples)); err != nil {
			t.Fatal(err)
		}

		f, err := c.Receive()
		if err != nil {
			t.Fatal(err)
		}
		if &f.Samples[0] != &samples[0] {
			t.Errorf("capacity %d: received a copy of Samples, want the sent slice", capacity)
		}
	}
}
