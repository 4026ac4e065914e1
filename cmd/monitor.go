package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/drgolem/audiotranscode/pkg/types"
)

// monitorTranscode logs the transcode status every interval until done is closed.
func monitorTranscode(monitor types.TranscodeMonitor, interval time.Duration, done chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := monitor.GetTranscodeStatus()

			// Audio time is derived from interleaved samples written so far
			var audioTime time.Duration
			if status.Format.SampleRate > 0 && status.Format.Channels > 0 {
				perChannel := status.SamplesReceived / uint64(status.Format.Channels)
				audioTime = time.Duration(perChannel) * time.Second / time.Duration(status.Format.SampleRate)
			}

			slog.Info("Transcode status",
				"run_id", status.RunID,
				"state", status.State,
				"format", status.Format.String(),
				"frames_sent", status.FramesSent,
				"frames_written", status.FramesReceived,
				"queued", status.FramesSent-status.FramesReceived,
				"audio_time", formatDuration(audioTime),
				"elapsed", formatDuration(status.ElapsedTime))
		case <-done:
			return
		}
	}
}

// formatDuration formats d as hh:mm:ss.msec.
func formatDuration(d time.Duration) string {
	total := d.Milliseconds()
	hours := total / 3600000
	minutes := (total % 3600000) / 60000
	seconds := (total % 60000) / 1000
	milliseconds := total % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, milliseconds)
}
