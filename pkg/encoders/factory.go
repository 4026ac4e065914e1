package encoders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/drgolem/audiotranscode/pkg/encoders/flac"
	"github.com/drgolem/audiotranscode/pkg/encoders/wav"
	"github.com/drgolem/audiotranscode/pkg/types"
)

// Options tunes the sinks created by NewSink.
type Options struct {
	// FLACBlockSize is the number of samples per channel in each FLAC frame.
	// Zero selects flac.DefaultBlockSize.
	FLACBlockSize int
}

// NewSink creates the appropriate sink based on file extension.
// Supports .wav, .flac and .fla outputs.
// The file is not created until the sink receives its first frame.
func NewSink(fileName string, opts Options) (types.Sink, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch ext {
	case ".wav":
		return wav.NewSink(fileName), nil
	case ".flac", ".fla":
		return flac.NewSink(fileName, opts.FLACBlockSize), nil
	default:
		return nil, fmt.Errorf("%w: unsupported output format: %q (supported: .wav, .flac, .fla)",
			types.ErrUnsupportedFormat, ext)
	}
}
