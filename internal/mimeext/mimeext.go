// Package mimeext maps media MIME types to codec tags and container
// extensions.
package mimeext

import (
	"strings"
)

const (
	// DefaultExt is the extension used when the MIME type is unknown.
	DefaultExt = "mp4"

	// ExtM4A is the file extension for MP4 audio.
	ExtM4A = "m4a"
	// ExtWebM is the file extension for WebM media.
	ExtWebM = "webm"

	// MimeVideoMP4 is the MIME type for MP4 video.
	MimeVideoMP4 = "video/mp4"
	// MimeAudioMP4 is the MIME type for MP4 audio.
	MimeAudioMP4 = "audio/mp4"
	// MimeVideoWebM is the MIME type for WebM video.
	MimeVideoWebM = "video/webm"
	// MimeAudioWebM is the MIME type for WebM audio.
	MimeAudioWebM = "audio/webm"
)

// base strips codec parameters: "video/mp4; codecs=..." -> "video/mp4".
func base(mime string) string {
	mime = strings.TrimSpace(mime)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return strings.ToLower(mime)
}

// codecCount reports how many entries the codecs parameter lists, or
// -1 when the parameter is absent.
func codecCount(mime string) int {
	i := strings.Index(strings.ToLower(mime), "codecs=")
	if i < 0 {
		return -1
	}
	list := strings.Trim(strings.TrimSpace(mime[i+len("codecs="):]), `"'`)
	if list == "" {
		return 0
	}
	return len(strings.Split(list, ","))
}

// Codecs returns the video codec tag, audio codec tag, and container
// extension for the given MIME type. Empty codec tags mean the format
// does not carry that track: a video MIME whose codecs parameter lists
// a single codec is a video-only stream. Unknown MIME types report no
// codecs and the subtype (or DefaultExt) as extension.
func Codecs(mime string) (vcodec, acodec, ext string) {
	switch base(mime) {
	case MimeVideoMP4:
		vcodec, acodec, ext = "h264", "aac", DefaultExt
	case MimeVideoWebM:
		vcodec, acodec, ext = "vp9", "opus", ExtWebM
	case MimeAudioMP4:
		return "", "aac", ExtM4A
	case MimeAudioWebM:
		return "", "opus", ExtWebM
	default:
		return "", "", ExtFromMime(mime)
	}
	if codecCount(mime) == 1 {
		acodec = ""
	}
	return vcodec, acodec, ext
}

// ExtFromMime returns the file extension (without dot) for the given
// MIME type, falling back to the subtype or DefaultExt.
func ExtFromMime(mime string) string {
	b := base(mime)
	if b == "" {
		return DefaultExt
	}
	switch b {
	case MimeVideoMP4:
		return DefaultExt
	case MimeAudioMP4:
		return ExtM4A
	case MimeVideoWebM, MimeAudioWebM:
		return ExtWebM
	}
	parts := strings.Split(b, "/")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return DefaultExt
}
