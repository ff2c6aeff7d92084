package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVFromSamplesHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	data := EncodeWAVFromSamples(samples, 44100)

	f, pcm, err := ParseWAV(data)
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if f.Channels != 1 {
		t.Fatalf("Channels = %d, want 1", f.Channels)
	}
	if f.SampleRate != 44100 {
		t.Fatalf("SampleRate = %d, want 44100", f.SampleRate)
	}
	if f.BitDepth != 16 {
		t.Fatalf("BitDepth = %d, want 16", f.BitDepth)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("data size = %d, want %d", len(pcm), len(samples)*2)
	}

	// Total RIFF size field covers everything after the first 8 bytes.
	if got := binary.LittleEndian.Uint32(data[4:8]); got != uint32(len(data)-8) {
		t.Fatalf("riff size = %d, want %d", got, len(data)-8)
	}
}

func TestQuantizeSample(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{2, 32767},    // clamped
		{-2, -32768},  // clamped
		{0.5, 16383},  // 0.5 * 32767 truncated
		{-0.5, -16384},
	}
	for _, tt := range tests {
		if got := QuantizeSample(tt.in); got != tt.want {
			t.Errorf("QuantizeSample(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestQuantizeSampleMonotonic(t *testing.T) {
	prev := QuantizeSample(-1)
	for i := 1; i <= 200; i++ {
		s := float32(-1) + float32(i)*0.01
		got := QuantizeSample(s)
		if got < prev {
			t.Fatalf("quantization not monotonic at %v: %d < %d", s, got, prev)
		}
		prev = got
	}
}

func TestQuantizeSamplePreservesSign(t *testing.T) {
	for _, s := range []float32{-0.9, -0.001, 0.001, 0.9} {
		got := QuantizeSample(s)
		if s < 0 && got >= 0 {
			t.Fatalf("QuantizeSample(%v) = %d, lost negative sign", s, got)
		}
		if s > 0 && got <= 0 {
			t.Fatalf("QuantizeSample(%v) = %d, lost positive sign", s, got)
		}
	}
}

func TestEncodeWAVEmptyInput(t *testing.T) {
	data := EncodeWAVFromSamples(nil, 16000)
	f, pcm, err := ParseWAV(data)
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if len(pcm) != 0 {
		t.Fatalf("data size = %d, want 0", len(pcm))
	}
	if f.SampleRate != 16000 {
		t.Fatalf("SampleRate = %d, want 16000", f.SampleRate)
	}
}

func TestEncodeWAVInterleaved(t *testing.T) {
	left := []float32{1, 1}
	right := []float32{-1, -1}
	data := EncodeWAVInterleaved([][]float32{left, right}, 8000)

	f, pcm, err := ParseWAV(data)
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if f.Channels != 2 {
		t.Fatalf("Channels = %d, want 2", f.Channels)
	}
	if len(pcm) != 8 {
		t.Fatalf("data size = %d, want 8", len(pcm))
	}
	// Frame layout is L R L R.
	for frame := 0; frame < 2; frame++ {
		l := int16(binary.LittleEndian.Uint16(pcm[frame*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[frame*4+2:]))
		if l != 32767 {
			t.Fatalf("frame %d left = %d, want 32767", frame, l)
		}
		if r != -32768 {
			t.Fatalf("frame %d right = %d, want -32768", frame, r)
		}
	}
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	if _, _, err := ParseWAV([]byte("definitely not audio")); err == nil {
		t.Fatalf("expected error for non-WAV input")
	}
	if _, _, err := ParseWAV(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestWrapPCM16LERoundTrip(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	data := WrapPCM16LE(pcm, 22050, 1)
	_, got, err := ParseWAV(data)
	if err != nil {
		t.Fatalf("ParseWAV() error = %v", err)
	}
	if string(got) != string(pcm) {
		t.Fatalf("payload mismatch: %v != %v", got, pcm)
	}
}
