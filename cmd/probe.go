package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/drgolem/audiotranscode/pkg/decoders"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <audio_file>",
	Short: "Print the container and stream format of an audio file",
	Long: `Read the stream header of an audio file and print its container,
codec, sample rate, channel count and bit depth without decoding the payload.

Examples:
  audiotranscode probe music.flac
  audiotranscode probe recording.wav`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	fileName := args[0]

	info, err := decoders.Probe(fileName)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "File:        %s\n", filepath.Base(fileName))
	fmt.Fprintf(w, "Container:   %s\n", info.Container)
	fmt.Fprintf(w, "Codec:       %s\n", info.Codec)
	fmt.Fprintf(w, "Sample rate: %d Hz\n", info.Format.SampleRate)
	fmt.Fprintf(w, "Channels:    %d\n", info.Format.Channels)
	fmt.Fprintf(w, "Bits:        %d\n", info.Format.BitsPerSample)
	if info.TotalFrames > 0 && info.Format.SampleRate > 0 {
		seconds := float64(info.TotalFrames) / float64(info.Format.SampleRate)
		fmt.Fprintf(w, "Duration:    %.3fs (%d frames)\n", seconds, info.TotalFrames)
	}
	return nil
}
