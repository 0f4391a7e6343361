package youtube

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ytget/ytfetch/errs"
)

// Watch-page markers that precede the embedded player response JSON,
// in priority order. Each match positions the scanner on the opening
// brace of the payload.
var playerResponseMarkers = []*regexp.Regexp{
	regexp.MustCompile(`var ytInitialPlayerResponse\s*=\s*\{`),
	regexp.MustCompile(`window\["ytInitialPlayerResponse"\]\s*=\s*\{`),
	regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*\{`),
	regexp.MustCompile(`"playerResponse"\s*:\s*\{`),
}

// Player script references, in priority order. Later patterns match
// the script path directly when no config entry names it.
var playerScriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"jsUrl"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`"PLAYER_JS_URL"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`src="([^"]+/player_ias[^"]*\.js)"`),
	regexp.MustCompile(`src="([^"]+/base\.js)"`),
	regexp.MustCompile(`(/s/player/[a-zA-Z0-9_-]+/player_ias\.vflset/[a-zA-Z0-9_-]+/base\.js)`),
	regexp.MustCompile(`(/s/player/[a-zA-Z0-9_/.-]+/base\.js)`),
}

type playerResponse struct {
	StreamingData struct {
		Formats         []streamFormat `json:"formats"`
		AdaptiveFormats []streamFormat `json:"adaptiveFormats"`
	} `json:"streamingData"`
	VideoDetails struct {
		VideoID          string `json:"videoId"`
		Title            string `json:"title"`
		ShortDescription string `json:"shortDescription"`
		LengthSeconds    string `json:"lengthSeconds"`
		ViewCount        string `json:"viewCount"`
		Author           string `json:"author"`
	} `json:"videoDetails"`
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type streamFormat struct {
	Itag            int     `json:"itag"`
	URL             string  `json:"url"`
	MimeType        string  `json:"mimeType"`
	Bitrate         int     `json:"bitrate"`
	AverageBitrate  int     `json:"averageBitrate"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             float64 `json:"fps"`
	QualityLabel    string  `json:"qualityLabel"`
	Quality         string  `json:"quality"`
	ContentLength   string  `json:"contentLength"`
	SignatureCipher string  `json:"signatureCipher"`
	Cipher          string  `json:"cipher"`
}

// cipherQuery returns the raw cipher parameter string, checking both
// field names the platform has used across player versions.
func (f streamFormat) cipherQuery() string {
	if f.SignatureCipher != "" {
		return f.SignatureCipher
	}
	return f.Cipher
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Name         struct {
		SimpleText string `json:"simpleText"`
	} `json:"name"`
}

// extractPlayerResponse locates the player response JSON in the watch
// page markup and decodes it. Markers are tried in order; a marker is
// only accepted when the braces balance and the payload decodes into a
// response that names the video.
func extractPlayerResponse(page string) (*playerResponse, error) {
	for _, marker := range playerResponseMarkers {
		loc := marker.FindStringIndex(page)
		if loc == nil {
			continue
		}
		raw := balancedJSON(page[loc[1]-1:])
		if raw == "" {
			continue
		}
		var pr playerResponse
		if err := json.Unmarshal([]byte(raw), &pr); err != nil {
			continue
		}
		if pr.VideoDetails.VideoID == "" && len(pr.StreamingData.Formats) == 0 && len(pr.StreamingData.AdaptiveFormats) == 0 {
			continue
		}
		return &pr, nil
	}
	return nil, errs.ErrNoPlayerResponse
}

// balancedJSON returns the prefix of s spanning one balanced JSON
// object, starting at the opening brace. String literals are skipped so
// braces inside them do not count.
func balancedJSON(s string) string {
	if s == "" || s[0] != '{' {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// findPlayerScriptURL locates the versioned player script reference in
// the watch page and resolves it to an absolute URL.
func findPlayerScriptURL(page string) (string, error) {
	for _, re := range playerScriptPatterns {
		m := re.FindStringSubmatch(page)
		if len(m) < 2 || m[1] == "" {
			continue
		}
		u := strings.ReplaceAll(m[1], `\/`, "/")
		switch {
		case strings.HasPrefix(u, "//"):
			u = "https:" + u
		case strings.HasPrefix(u, "/"):
			u = "https://www.youtube.com" + u
		}
		return u, nil
	}
	return "", fmt.Errorf("%w: player script reference not found", errs.ErrFetch)
}
