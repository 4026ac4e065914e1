package wav

import (
	"fmt"
	"os"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/types"

	gowav "github.com/youpy/go-wav"
)

// Info describes a WAV file as seen by a general RIFF reader.
type Info struct {
	AudioFormat uint16
	Format      audioframe.FrameFormat
	ByteRate    uint32
	BlockAlign  uint16
}

// IsPCM reports whether the file holds linear PCM.
func (i Info) IsPCM() bool {
	return i.AudioFormat == gowav.AudioFormatPCM
}

// Probe reads the format block of a WAV file using go-wav. Unlike Source it
// tolerates extra chunks and non-PCM format tags, so it can describe files the
// transcoder would reject.
func Probe(fileName string) (Info, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	defer file.Close()

	reader := gowav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return Info{}, fmt.Errorf("%w: failed to read WAV format: %w", types.ErrMalformedContainer, err)
	}

	return Info{
		AudioFormat: format.AudioFormat,
		Format: audioframe.FrameFormat{
			SampleRate:    int(format.SampleRate),
			Channels:      int(format.NumChannels),
			BitsPerSample: int(format.BitsPerSample),
		},
		ByteRate:   format.ByteRate,
		BlockAlign: format.BlockAlign,
	}, nil
}
