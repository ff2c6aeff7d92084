package livecall

import (
	"sync"

	"github.com/antoniostano/lexivoice/internal/audio"
	"github.com/antoniostano/lexivoice/internal/speech"
)

// CaptureSource hands the controller whatever audio accumulated since the
// previous tick. An empty chunk means nothing was captured and no request
// should be made.
type CaptureSource interface {
	NextChunk() (data []byte, mimeType string)
}

// SampleSource accumulates raw mono float32 frames and encodes the
// accumulated samples as a WAV chunk on every tick. This is the preferred
// source: the gateway receives the portable uncompressed container no
// transcription backend mishandles.
type SampleSource struct {
	sampleRate int

	mu    sync.Mutex
	queue [][]float32
}

func NewSampleSource(sampleRate int) *SampleSource {
	return &SampleSource{sampleRate: sampleRate}
}

// Push copies one frame into the queue. Safe to call from the capture
// callback while the controller drains on its tick.
func (s *SampleSource) Push(frame []float32) {
	if len(frame) == 0 {
		return
	}
	owned := make([]float32, len(frame))
	copy(owned, frame)
	s.mu.Lock()
	s.queue = append(s.queue, owned)
	s.mu.Unlock()
}

func (s *SampleSource) NextChunk() ([]byte, string) {
	s.mu.Lock()
	frames := s.queue
	s.queue = nil
	s.mu.Unlock()

	total := 0
	for _, f := range frames {
		total += len(f)
	}
	if total == 0 {
		return nil, ""
	}

	merged := make([]float32, 0, total)
	for _, f := range frames {
		merged = append(merged, f...)
	}
	return audio.EncodeWAVFromSamples(merged, s.sampleRate), speech.MIMEWAV
}

// DecodeFunc turns one compressed segment into mono samples plus their
// rate, allowing a SegmentSource to re-encode to WAV.
type DecodeFunc func(segment []byte, mimeType string) ([]float32, int, error)

// SegmentSource accumulates pre-encoded compressed segments from a
// recorder that cannot expose raw samples. When a decode hook is set each
// segment is opportunistically re-encoded to WAV; on decode failure the
// original bytes go out under their true MIME type and the server copes.
type SegmentSource struct {
	decode DecodeFunc

	mu       sync.Mutex
	segments []segment
}

type segment struct {
	data     []byte
	mimeType string
}

func NewSegmentSource(decode DecodeFunc) *SegmentSource {
	return &SegmentSource{decode: decode}
}

func (s *SegmentSource) Push(data []byte, mimeType string) {
	if len(data) == 0 {
		return
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	s.mu.Lock()
	s.segments = append(s.segments, segment{data: owned, mimeType: speech.NormalizeMIME(mimeType)})
	s.mu.Unlock()
}

// NextChunk returns the oldest pending segment. Segments are never merged:
// compressed containers cannot be concatenated byte-wise.
func (s *SegmentSource) NextChunk() ([]byte, string) {
	s.mu.Lock()
	if len(s.segments) == 0 {
		s.mu.Unlock()
		return nil, ""
	}
	seg := s.segments[0]
	s.segments = s.segments[1:]
	s.mu.Unlock()

	if s.decode != nil {
		samples, rate, err := s.decode(seg.data, seg.mimeType)
		if err == nil && len(samples) > 0 && rate > 0 {
			return audio.EncodeWAVFromSamples(samples, rate), speech.MIMEWAV
		}
	}
	return seg.data, seg.mimeType
}
