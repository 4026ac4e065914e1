// Package pcm converts between little-endian packed PCM byte buffers and
// interleaved signed 32-bit samples for bit depths 8, 16, 24 and 32.
//
// Samples are always signed. 8-bit PCM is stored unsigned (offset binary) in
// the raw-PCM container, so Unpack maps byte b to int32(b)-128 and Pack maps
// it back. Wider depths are two's complement and are sign-extended from bit
// bitsPerSample-1.
package pcm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedBitDepth is returned for any depth outside {8, 16, 24, 32}.
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

	// ErrPartialSample is returned when a byte buffer does not hold a whole
	// number of samples.
	ErrPartialSample = errors.New("buffer length is not a multiple of the sample width")
)

// BytesPerSample returns the packed width of one sample at the given depth.
func BytesPerSample(bitsPerSample int) (int, error) {
	switch bitsPerSample {
	case 8, 16, 24, 32:
		return bitsPerSample / 8, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitsPerSample)
	}
}

// ValidBitDepth reports whether bitsPerSample is one of 8, 16, 24 or 32.
func ValidBitDepth(bitsPerSample int) bool {
	_, err := BytesPerSample(bitsPerSample)
	return err == nil
}

// Range returns the inclusive signed range representable at the given depth.
func Range(bitsPerSample int) (lo, hi int32, err error) {
	if _, err := BytesPerSample(bitsPerSample); err != nil {
		return 0, 0, err
	}
	if bitsPerSample == 32 {
		return -1 << 31, 1<<31 - 1, nil
	}
	return -(1 << (bitsPerSample - 1)), 1<<(bitsPerSample-1) - 1, nil
}

// Unpack decodes data into interleaved samples.
// len(data) must be a multiple of bitsPerSample/8.
func Unpack(data []byte, bitsPerSample int) ([]int32, error) {
	width, err := BytesPerSample(bitsPerSample)
	if err != nil {
		return nil, err
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes at %d-bit", ErrPartialSample, len(data), bitsPerSample)
	}

	samples := make([]int32, len(data)/width)
	switch bitsPerSample {
	case 8:
		for i, b := range data {
			samples[i] = int32(b) - 128
		}
	case 16:
		for i := range samples {
			samples[i] = int32(int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8))
		}
	case 24:
		for i := range samples {
			v := uint32(data[i*3]) | uint32(data[i*3+1])<<8 | uint32(data[i*3+2])<<16
			// sign-extend from bit 23
			samples[i] = int32(v<<8) >> 8
		}
	case 32:
		for i := range samples {
			samples[i] = int32(uint32(data[i*4]) |
				uint32(data[i*4+1])<<8 |
				uint32(data[i*4+2])<<16 |
				uint32(data[i*4+3])<<24)
		}
	}

	return samples, nil
}

// Pack encodes samples at the given depth. Each sample is truncated to its
// low bitsPerSample bits and written least-significant byte first.
func Pack(samples []int32, bitsPerSample int) ([]byte, error) {
	width, err := BytesPerSample(bitsPerSample)
	if err != nil {
		return nil, err
	}
	return AppendPack(make([]byte, 0, len(samples)*width), samples, bitsPerSample)
}

// AppendPack is like Pack but appends to dst, allowing the caller to reuse a
// buffer across calls.
func AppendPack(dst []byte, samples []int32, bitsPerSample int) ([]byte, error) {
	if _, err := BytesPerSample(bitsPerSample); err != nil {
		return dst, err
	}

	switch bitsPerSample {
	case 8:
		for _, s := range samples {
			dst = append(dst, byte(s+128))
		}
	case 16:
		for _, s := range samples {
			u := uint32(s)
			dst = append(dst, byte(u), byte(u>>8))
		}
	case 24:
		for _, s := range samples {
			u := uint32(s)
			dst = append(dst, byte(u), byte(u>>8), byte(u>>16))
		}
	case 32:
		for _, s := range samples {
			u := uint32(s)
			dst = append(dst, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
		}
	}

	return dst, nil
}
