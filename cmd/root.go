package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/drgolem/audiotranscode/internal/config"
	"github.com/drgolem/audiotranscode/internal/observe"
	"github.com/drgolem/audiotranscode/internal/pipeline"
	"github.com/drgolem/audiotranscode/pkg/decoders"
	"github.com/drgolem/audiotranscode/pkg/encoders"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	configFile    string
	verbose       bool
	chunkFrames   int
	capacity      int
	flacBlockSize int
	metricsMode   string
)

// logOutput and metricsOutput are where log lines and exported metrics go.
var (
	logOutput     io.Writer = os.Stderr
	metricsOutput io.Writer = os.Stderr
)

// rootCmd transcodes one file when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "audiotranscode <input_file> <output_file>",
	Short: "Transcode audio files through a streaming frame pipeline",
	Long: `audiotranscode decodes an input file into a stream of PCM frames and
encodes them into an output file while decoding is still in progress.

The container is chosen by file extension:
  Input:  .wav, .flac, .fla, .mp3, .ogg, .oga
  Output: .wav, .flac, .fla

Examples:
  # Copy a WAV file through the pipeline
  audiotranscode in.wav out.wav

  # Compress a WAV file to FLAC with 1152-sample blocks
  audiotranscode --block-size 1152 in.wav out.flac

  # Decode an MP3 to WAV with a bounded channel
  audiotranscode --capacity 16 in.mp3 out.wav

  # Load settings from a file, with debug logging
  audiotranscode --config transcode.yaml -v in.flac out.wav

Progress is logged every progress_interval (default 2s) while a run is active.
With --metrics stdout, run metrics are written to stderr as JSON on exit.`,
	Version:       version,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := config.LogInfo
		if verbose {
			level = config.LogDebug
		}
		setupLogging(level)
	},
	RunE: runTranscode,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")

	rootCmd.Flags().IntVar(&chunkFrames, "chunk-frames", config.DefaultChunkFrames,
		"Sample frames per pipeline frame (0 = whole WAV data section as one frame)")
	rootCmd.Flags().IntVar(&capacity, "capacity", 0, "Channel capacity in frames (0 = unbounded)")
	rootCmd.Flags().IntVar(&flacBlockSize, "block-size", config.DefaultFLACBlockSize, "FLAC encoder block size in samples")
	rootCmd.Flags().StringVar(&metricsMode, "metrics", string(config.MetricsNone), "Metrics exporter: none, stdout")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := executeCommand(); err != nil {
		os.Exit(1)
	}
}

// executeCommand runs rootCmd and logs a failure once through the
// installed handler.
func executeCommand() error {
	err := rootCmd.Execute()
	if err != nil {
		slog.Error("Command failed", "error", err)
	}
	return err
}

// loadConfig reads --config if given and applies flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("chunk-frames") {
		cfg.ChunkFrames = chunkFrames
	}
	if flags.Changed("capacity") {
		cfg.ChannelCapacity = capacity
	}
	if flags.Changed("block-size") {
		cfg.FLAC.BlockSize = flacBlockSize
	}
	if flags.Changed("metrics") {
		cfg.Metrics = config.MetricsExporter(metricsMode)
	}
	if verbose {
		cfg.LogLevel = config.LogDebug
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level config.LogLevel) {
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level.Level(),
	}))
	slog.SetDefault(logger)
}

func runTranscode(cmd *cobra.Command, args []string) error {
	inFileName := args[0]
	outFileName := args[1]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogging(cfg.LogLevel)

	source, err := decoders.NewSource(inFileName, decoders.Options{ChunkFrames: cfg.ChunkFrames})
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	sink, err := encoders.NewSink(outFileName, encoders.Options{FLACBlockSize: cfg.FLAC.BlockSize})
	if err != nil {
		return fmt.Errorf("create sink: %w", err)
	}

	opts := []pipeline.Option{pipeline.WithCapacity(cfg.ChannelCapacity)}
	if cfg.Metrics == config.MetricsStdout {
		mp, shutdown, err := observe.InitProvider(cmd.Context(), observe.ProviderConfig{
			ServiceVersion: version,
			Writer:         metricsOutput,
		})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("Failed to flush metrics", "error", err)
			}
		}()

		metrics, err := observe.NewMetrics(mp)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		opts = append(opts, pipeline.WithMetrics(metrics))
	}

	p := pipeline.New(source, sink, opts...)

	slog.Info("Transcoding",
		"input", inFileName,
		"output", outFileName,
		"run_id", p.RunID(),
		"chunk_frames", cfg.ChunkFrames,
		"channel_capacity", cfg.ChannelCapacity)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusDone := make(chan struct{})
	if cfg.ProgressInterval > 0 {
		go monitorTranscode(p, cfg.ProgressInterval, statusDone)
	}

	err = p.Run(ctx)
	close(statusDone)

	if err != nil {
		return fmt.Errorf("transcode %s: %w", inFileName, err)
	}
	return nil
}
