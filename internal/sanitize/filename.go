// Package sanitize builds safe output filenames from video metadata.
package sanitize

import (
	"strings"

	"github.com/ytget/ytfetch/types"
)

const (
	// MaxFilenameLength is the maximum allowed length for the filename base.
	MaxFilenameLength = 200
	// DefaultExt is the extension used when no format reports one.
	DefaultExt = "mp4"
	// DefaultTemplate is used when the caller supplies no template.
	DefaultTemplate = "%(title)s.%(ext)s"
)

// Filename replaces characters that are unsafe in filenames. Path
// separators become '-', other reserved and control characters become '_'.
func Filename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, c := range name {
		switch c {
		case '/', '\\':
			b.WriteRune('-')
		case '<', '>', ':', '"', '|', '?', '*':
			b.WriteRune('_')
		default:
			if c < 0x20 {
				b.WriteRune('_')
			} else {
				b.WriteRune(c)
			}
		}
	}
	out := b.String()
	if len(out) > MaxFilenameLength {
		out = out[:MaxFilenameLength]
	}
	return out
}

// Render expands an output filename template against metadata.
// Supported fields: %(title)s, %(id)s, %(uploader)s, %(ext)s. The
// extension comes from the highest-bitrate format carrying both codec
// tags, falling back to the first format, then DefaultExt. Field values
// are sanitized before substitution; the template itself is not.
func Render(template string, meta *types.VideoMetadata) string {
	if template == "" {
		template = DefaultTemplate
	}

	ext := DefaultExt
	if f := bestForExt(meta.Formats); f != nil && f.Ext != "" {
		ext = f.Ext
	}

	uploader := meta.Uploader
	if uploader == "" {
		uploader = "Unknown"
	}

	r := strings.NewReplacer(
		"%(title)s", Filename(meta.Title),
		"%(id)s", Filename(meta.ID),
		"%(uploader)s", Filename(uploader),
		"%(ext)s", ext,
	)
	return r.Replace(template)
}

func bestForExt(formats []types.Format) *types.Format {
	var best *types.Format
	for i := range formats {
		f := &formats[i]
		if !f.HasVideo() || !f.HasAudio() {
			continue
		}
		if best == nil || f.TBR > best.TBR {
			best = f
		}
	}
	if best == nil && len(formats) > 0 {
		best = &formats[0]
	}
	return best
}
