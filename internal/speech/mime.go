package speech

import "strings"

// Canonical audio MIME types accepted by the transcription upstream.
const (
	MIMEWebM = "audio/webm"
	MIMEOgg  = "audio/ogg"
	MIMEMPEG = "audio/mpeg"
	MIMEWAV  = "audio/wav"
	MIMEMP4  = "audio/mp4"
	MIMEAAC  = "audio/aac"
	MIMEFLAC = "audio/flac"
	MIMEPCM  = "audio/pcm"
)

var mimeExtensions = map[string]string{
	MIMEWebM: "webm",
	MIMEOgg:  "ogg",
	MIMEMPEG: "mp3",
	MIMEWAV:  "wav",
	MIMEMP4:  "m4a",
	MIMEAAC:  "aac",
	MIMEFLAC: "flac",
	MIMEPCM:  "pcm",
}

// NormalizeMIME maps an arbitrary declared audio MIME type to one of the
// canonical types by substring matching, defaulting to audio/webm. Codec
// parameters ("audio/webm;codecs=opus") are stripped first.
func NormalizeMIME(mimeType string) string {
	lower := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(lower, ';'); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.Contains(lower, "webm"):
		return MIMEWebM
	case strings.Contains(lower, "ogg"):
		return MIMEOgg
	case strings.Contains(lower, "mpeg"), strings.Contains(lower, "mp3"):
		return MIMEMPEG
	case strings.Contains(lower, "wav"):
		return MIMEWAV
	case strings.Contains(lower, "m4a"), strings.Contains(lower, "mp4"):
		return MIMEMP4
	case strings.Contains(lower, "aac"):
		return MIMEAAC
	case strings.Contains(lower, "flac"):
		return MIMEFLAC
	case strings.Contains(lower, "pcm"):
		return MIMEPCM
	default:
		return MIMEWebM
	}
}

// ExtensionForMIME returns the filename extension presented to the
// transcription upstream; its decoders are extension-sensitive.
func ExtensionForMIME(canonical string) string {
	if ext, ok := mimeExtensions[canonical]; ok {
		return ext
	}
	return "bin"
}

// MIMEForTTSFormat maps a speech-synthesis output format to the MIME type
// declared on the returned audio.
func MIMEForTTSFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mp3", "":
		return MIMEMPEG
	case "wav":
		return MIMEWAV
	case "opus":
		return MIMEOgg
	case "aac":
		return MIMEAAC
	case "flac":
		return MIMEFLAC
	case "pcm":
		return MIMEPCM
	default:
		return MIMEMPEG
	}
}
