package decoders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drgolem/audiotranscode/pkg/audioframe"
	"github.com/drgolem/audiotranscode/pkg/decoders/wav"
	"github.com/drgolem/audiotranscode/pkg/types"

	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Info describes an audio file without decoding its payload.
type Info struct {
	Container string
	Codec     string
	Format    audioframe.FrameFormat
	// TotalFrames is the number of sample frames, zero if unknown.
	TotalFrames uint64
}

// Probe reads the stream header of fileName. The container is chosen by
// extension, as in NewSource.
func Probe(fileName string) (Info, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	switch ext {
	case ".wav":
		wi, err := wav.Probe(fileName)
		if err != nil {
			return Info{}, err
		}
		info := Info{Container: "wav", Codec: "pcm", Format: wi.Format}
		if !wi.IsPCM() {
			info.Codec = fmt.Sprintf("format tag %d", wi.AudioFormat)
		}
		return info, nil
	case ".flac", ".fla":
		return probeFLAC(fileName)
	case ".mp3":
		return probeMP3(fileName)
	case ".ogg", ".oga":
		return probeVorbis(fileName)
	default:
		return Info{}, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, ext)
	}
}

func openProbe(fileName string) (*os.File, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrOpen, err)
	}
	return file, nil
}

func probeFLAC(fileName string) (Info, error) {
	file, err := openProbe(fileName)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()

	stream, err := flac.New(bufio.NewReader(file))
	if err != nil {
		return Info{}, fmt.Errorf("%w: flac: %w", types.ErrMalformedContainer, err)
	}
	si := stream.Info
	return Info{
		Container: "flac",
		Codec:     "flac",
		Format: audioframe.FrameFormat{
			SampleRate:    int(si.SampleRate),
			Channels:      int(si.NChannels),
			BitsPerSample: int(si.BitsPerSample),
		},
		TotalFrames: si.NSamples,
	}, nil
}

func probeMP3(fileName string) (Info, error) {
	file, err := openProbe(fileName)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return Info{}, fmt.Errorf("%w: mp3: %w", types.ErrMalformedContainer, err)
	}
	info := Info{
		Container: "mp3",
		Codec:     "mpeg-1/2 layer 3",
		Format:    audioframe.FrameFormat{SampleRate: decoder.SampleRate(), Channels: 2, BitsPerSample: 16},
	}
	// Length is in decoded bytes, 4 per stereo 16-bit frame.
	if n := decoder.Length(); n > 0 {
		info.TotalFrames = uint64(n / 4)
	}
	return info, nil
}

func probeVorbis(fileName string) (Info, error) {
	file, err := openProbe(fileName)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()

	reader, err := oggvorbis.NewReader(bufio.NewReader(file))
	if err != nil {
		return Info{}, fmt.Errorf("%w: vorbis: %w", types.ErrMalformedContainer, err)
	}
	return Info{
		Container: "ogg",
		Codec:     "vorbis",
		Format:    audioframe.FrameFormat{SampleRate: reader.SampleRate(), Channels: reader.Channels(), BitsPerSample: 16},
	}, nil
}
