package decoders

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/drgolem/audiotranscode/pkg/decoders/flac"
	"github.com/drgolem/audiotranscode/pkg/decoders/mp3"
	"github.com/drgolem/audiotranscode/pkg/decoders/vorbis"
	"github.com/drgolem/audiotranscode/pkg/decoders/wav"
	"github.com/drgolem/audiotranscode/pkg/types"
)

// Options tunes the sources created by NewSource.
type Options struct {
	// ChunkFrames is the number of sample frames per emitted Frame for
	// sources that choose their own framing. Zero makes the WAV source emit
	// its whole data section as one Frame and selects the default chunk size
	// for MP3 and Vorbis. FLAC always emits one Frame per FLAC block.
	ChunkFrames int
}

// NewSource creates the appropriate source based on file extension.
// Supports .wav, .flac, .fla, .mp3, .ogg and .oga formats.
// The file is not opened until the source's Decode is called.
func NewSource(fileName string, opts Options) (types.Source, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch ext {
	case ".wav":
		return wav.NewSource(fileName, opts.ChunkFrames), nil
	case ".flac", ".fla":
		return flac.NewSource(fileName), nil
	case ".mp3":
		return mp3.NewSource(fileName, opts.ChunkFrames), nil
	case ".ogg", ".oga":
		return vorbis.NewSource(fileName, opts.ChunkFrames), nil
	default:
		return nil, fmt.Errorf("%w: unsupported input format: %q (supported: .wav, .flac, .fla, .mp3, .ogg, .oga)",
			types.ErrUnsupportedFormat, ext)
	}
}
