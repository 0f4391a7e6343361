// Package types defines the value records produced by extraction and
// consumed by the transfer engine.
package types

// Format describes one downloadable stream. A Format returned by an
// extractor always carries a fully resolved URL: signature and throttle
// parameters are decrypted during extraction, never afterwards.
type Format struct {
	// FormatID is the platform-assigned identifier, unique within one
	// VideoMetadata (the itag, as a string).
	FormatID string
	URL      string
	// Quality is the platform's quality label (e.g. "medium", "hd720").
	Quality    string
	Resolution string
	FPS        float64
	// Vcodec and Acodec are codec tags; empty string means absent.
	// A format with both absent is invalid.
	Vcodec string
	Acodec string
	// Ext is the container extension without a dot (mp4, webm, m4a).
	Ext string
	// Filesize is the byte size when reported, 0 otherwise.
	Filesize int64
	// TBR is the total bitrate in kilobits per second, 0 when unknown.
	TBR float64
}

// HasVideo reports whether the format carries a video track.
func (f Format) HasVideo() bool { return f.Vcodec != "" }

// HasAudio reports whether the format carries an audio track.
func (f Format) HasAudio() bool { return f.Acodec != "" }

// Thumbnail is a still image associated with a video.
type Thumbnail struct {
	URL        string
	Width      int
	Height     int
	Resolution string
}

// Subtitle describes one subtitle track. Tracks are grouped by language
// under VideoMetadata.Subtitles.
type Subtitle struct {
	URL  string
	Ext  string
	Name string
}

// VideoMetadata is the result of a successful extraction. Formats is
// never empty: an extraction that yields no formats fails instead.
// Optional fields keep their zero value when the page did not report
// them, except Title which defaults to "Unknown Title".
type VideoMetadata struct {
	ID          string
	Title       string
	Description string
	Uploader    string
	UploadDate  string
	Duration    int64
	ViewCount   int64
	LikeCount   int64
	Formats     []Format
	Thumbnails  []Thumbnail
	Subtitles   map[string][]Subtitle
}
