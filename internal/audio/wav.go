// Package audio handles WAV container parsing, output file writing, and
// local playback of synthesized speech.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrTooShort     = errors.New("wav data too short")
	ErrNotWAV       = errors.New("not a valid WAV file")
	ErrNoFmtChunk   = errors.New("fmt chunk not found in WAV")
	ErrNoDataChunk  = errors.New("data chunk not found in WAV")
	ErrBadFmtChunk  = errors.New("fmt chunk malformed")
	ErrZeroRateWAV  = errors.New("wav reports zero sample rate")
	ErrEmptyPayload = errors.New("wav has no audio samples")
)

// Format describes the PCM layout of a WAV file, read from its fmt chunk.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// ParseWAV validates the RIFF/WAVE container and returns the PCM payload
// of the data chunk together with the format from the fmt chunk.
func ParseWAV(wav []byte) ([]byte, Format, error) {
	var f Format

	if len(wav) < 44 {
		return nil, f, ErrTooShort
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, f, ErrNotWAV
	}

	var pcm []byte
	haveFmt, haveData := false, false

	// Walk chunks. fmt and data can appear in any order, with metadata
	// chunks (LIST, fact, ...) in between.
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(wav) {
				return nil, f, ErrBadFmtChunk
			}
			f.Channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			haveFmt = true
		case "data":
			end := body + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			pcm = wav[body:end]
			haveData = true
		}

		pos = body + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	if !haveFmt {
		return nil, f, ErrNoFmtChunk
	}
	if !haveData {
		return nil, f, ErrNoDataChunk
	}
	if f.SampleRate == 0 {
		return nil, f, ErrZeroRateWAV
	}
	if len(pcm) == 0 {
		return nil, f, ErrEmptyPayload
	}
	return pcm, f, nil
}

// Duration computes the playback length of a parsed WAV.
func Duration(pcmLen int, f Format) time.Duration {
	bytesPerSec := f.SampleRate * f.Channels * f.BitsPerSample / 8
	if bytesPerSec <= 0 {
		return 0
	}
	return time.Duration(pcmLen) * time.Second / time.Duration(bytesPerSec)
}

// WriteFile writes WAV bytes to dir/name, creating dir as needed, and
// returns the absolute path of the written file.
func WriteFile(dir, name string, wav []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("writing wav: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
