package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Format describes the PCM layout declared by a WAV header.
type Format struct {
	Channels   int
	SampleRate int
	BitDepth   int
}

const headerSize = 44

// EncodeWAVFromSamples encodes mono float samples as a PCM16LE WAV file.
// Samples are clamped to [-1, 1] before quantization. An empty slice
// produces a valid header describing zero data bytes.
func EncodeWAVFromSamples(samples []float32, sampleRate int) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(QuantizeSample(s)))
	}
	return WrapPCM16LE(pcm, sampleRate, 1)
}

// EncodeWAVInterleaved encodes multi-channel float samples as a PCM16LE WAV
// file, interleaving channel-by-channel per frame in channel order. Channels
// shorter than the longest one are zero-padded.
func EncodeWAVInterleaved(channels [][]float32, sampleRate int) []byte {
	numChannels := len(channels)
	if numChannels == 0 {
		return WrapPCM16LE(nil, sampleRate, 1)
	}
	frames := 0
	for _, ch := range channels {
		if len(ch) > frames {
			frames = len(ch)
		}
	}
	pcm := make([]byte, frames*numChannels*2)
	offset := 0
	for i := 0; i < frames; i++ {
		for _, ch := range channels {
			var s float32
			if i < len(ch) {
				s = ch[i]
			}
			binary.LittleEndian.PutUint16(pcm[offset:], uint16(QuantizeSample(s)))
			offset += 2
		}
	}
	return WrapPCM16LE(pcm, sampleRate, numChannels)
}

// QuantizeSample maps a float sample in [-1, 1] to a signed 16-bit value.
// The negative half scales by 32768 and the positive half by 32767; the
// asymmetry matches the container producers we interoperate with.
func QuantizeSample(s float32) int16 {
	if s < -1 {
		s = -1
	} else if s > 1 {
		s = 1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// WrapPCM16LE wraps raw PCM16LE audio bytes in a WAV container.
func WrapPCM16LE(pcm []byte, sampleRate, channels int) []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(pcm))
	// Writes to bytes.Buffer cannot fail.
	_ = WritePCM16LETo(&buf, pcm, sampleRate, channels)
	return buf.Bytes()
}

// WritePCM16LEFile writes raw PCM16LE audio bytes as a WAV file on disk.
func WritePCM16LEFile(path string, pcm []byte, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WritePCM16LETo(f, pcm, sampleRate, channels)
}

// WritePCM16LETo writes raw PCM16LE audio bytes to out as a WAV stream.
func WritePCM16LETo(out io.Writer, pcm []byte, sampleRate, channels int) error {
	const (
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)

	w := bufio.NewWriter(out)

	// RIFF header.
	if _, err := w.WriteString("RIFF"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36)+dataSize); err != nil {
		return err
	}
	if _, err := w.WriteString("WAVE"); err != nil {
		return err
	}

	// fmt chunk.
	if _, err := w.WriteString("fmt "); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(audioFormat)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(channels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, byteRate); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, blockAlign); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(bitsPerSample)); err != nil {
		return err
	}

	// data chunk.
	if _, err := w.WriteString("data"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	return w.Flush()
}

var errNotWAV = errors.New("not a RIFF/WAVE stream")

// ParseWAV reads a WAV header and returns the declared format plus the raw
// PCM payload of the data chunk. Only uncompressed PCM is accepted.
func ParseWAV(data []byte) (Format, []byte, error) {
	if len(data) < headerSize {
		return Format{}, nil, errNotWAV
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Format{}, nil, errNotWAV
	}
	if string(data[12:16]) != "fmt " {
		return Format{}, nil, errNotWAV
	}
	if tag := binary.LittleEndian.Uint16(data[20:22]); tag != 1 {
		return Format{}, nil, fmt.Errorf("unsupported format tag %d (want PCM)", tag)
	}
	f := Format{
		Channels:   int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate: int(binary.LittleEndian.Uint32(data[24:28])),
		BitDepth:   int(binary.LittleEndian.Uint16(data[34:36])),
	}
	if string(data[36:40]) != "data" {
		return Format{}, nil, errNotWAV
	}
	dataSize := int(binary.LittleEndian.Uint32(data[40:44]))
	if dataSize > len(data)-headerSize {
		dataSize = len(data) - headerSize
	}
	return f, data[headerSize : headerSize+dataSize], nil
}
