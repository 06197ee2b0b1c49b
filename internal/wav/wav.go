// Package wav provides utilities for WAV audio file handling.
package wav

import (
	"errors"
	"io"
	"os"
	"time"
)

// WAV format constants.
const (
	// HeaderSize is the size of a standard WAV file header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format code for uncompressed PCM.
	FormatPCM = 1
)

// Default clip audio parameters.
const (
	// DefaultSampleRate is the sample rate assumed for generated clips (22050 Hz).
	DefaultSampleRate = 22050

	// DefaultChannels is the default number of channels (mono).
	DefaultChannels = 1

	// DefaultBitsPerSample is the default bit depth (16-bit).
	DefaultBitsPerSample = 16
)

var (
	// ErrTooShort is returned when data is smaller than a WAV header.
	ErrTooShort = errors.New("data too short for WAV header")
	// ErrBadHeader is returned when the RIFF/WAVE magic is missing.
	ErrBadHeader = errors.New("not a RIFF/WAVE header")
)

// Info describes a parsed WAV header.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int
}

// Duration returns the playback duration of the audio data.
func (i *Info) Duration() time.Duration {
	byteRate := i.SampleRate * i.Channels * i.BitsPerSample / 8
	if byteRate <= 0 {
		return 0
	}
	return time.Duration(float64(i.DataSize) / float64(byteRate) * float64(time.Second))
}

// Parse reads a standard 44-byte WAV header.
func Parse(data []byte) (*Info, error) {
	if len(data) < HeaderSize {
		return nil, ErrTooShort
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrBadHeader
	}

	return &Info{
		Channels:      int(GetLE16(data[22:24])),
		SampleRate:    int(GetLE32(data[24:28])),
		BitsPerSample: int(GetLE16(data[34:36])),
		DataSize:      int(GetLE32(data[40:44])),
	}, nil
}

// ProbeFile parses the header of a WAV file on disk.
func ProbeFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, ErrTooShort
	}
	return Parse(header)
}

// WrapRawPCM adds a WAV header to raw PCM data.
// Parameters:
//   - pcm: raw PCM audio data bytes
//   - sampleRate: samples per second (e.g., 22050, 44100, 48000)
//   - channels: number of audio channels (1=mono, 2=stereo)
//   - bitsPerSample: bit depth per sample (typically 16)
//
// Returns a complete WAV file as a byte slice.
func WrapRawPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	// WAV header is 44 bytes
	header := make([]byte, HeaderSize)

	// RIFF header
	copy(header[0:4], "RIFF")
	PutLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt subchunk
	copy(header[12:16], "fmt ")
	PutLE32(header[16:20], 16) // subchunk size
	PutLE16(header[20:22], FormatPCM)
	PutLE16(header[22:24], uint16(channels))
	PutLE32(header[24:28], uint32(sampleRate))
	PutLE32(header[28:32], uint32(byteRate))
	PutLE16(header[32:34], uint16(blockAlign))
	PutLE16(header[34:36], uint16(bitsPerSample))

	// data subchunk
	copy(header[36:40], "data")
	PutLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

// PutLE16 writes a uint16 value in little-endian format to a byte slice.
func PutLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// PutLE32 writes a uint32 value in little-endian format to a byte slice.
func PutLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// GetLE16 reads a little-endian uint16 from a byte slice.
func GetLE16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

// GetLE32 reads a little-endian uint32 from a byte slice.
func GetLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// CreateMinimal creates a minimal valid WAV file with the specified number of samples.
// This is useful for testing. The samples are initialized to silence (zero).
func CreateMinimal(numSamples, sampleRate, channels, bitsPerSample int) []byte {
	bytesPerSample := bitsPerSample / 8
	dataSize := numSamples * channels * bytesPerSample

	// Create silent PCM data
	pcm := make([]byte, dataSize)

	return WrapRawPCM(pcm, sampleRate, channels, bitsPerSample)
}

// CreateMinimalDefault creates a minimal valid WAV file using the default
// clip parameters.
func CreateMinimalDefault(numSamples int) []byte {
	return CreateMinimal(numSamples, DefaultSampleRate, DefaultChannels, DefaultBitsPerSample)
}
