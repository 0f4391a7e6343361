package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/ytget/ytfetch/client"
	"github.com/ytget/ytfetch/errs"
)

// recordingTransport serves canned responses by URL substring and
// remembers every URL requested.
type recordingTransport struct {
	mu       sync.Mutex
	requests []string
	routes   map[string]func() *http.Response
}

func (rt *recordingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.requests = append(rt.requests, r.URL.String())
	rt.mu.Unlock()
	for substr, build := range rt.routes {
		if strings.Contains(r.URL.String(), substr) {
			return build(), nil
		}
	}
	return textResponse(http.StatusNotFound, ""), nil
}

func (rt *recordingTransport) requested(substr string) bool {
	return rt.requestedCount(substr) > 0
}

func (rt *recordingTransport) requestedCount(substr string) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n := 0
	for _, u := range rt.requests {
		if strings.Contains(u, substr) {
			n++
		}
	}
	return n
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestExtractor(rt http.RoundTripper) *Extractor {
	return New(&client.Client{
		HTTPClient: &http.Client{Transport: rt},
		Retries:    1,
	})
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

const directWatchPage = `<!DOCTYPE html><html><head></head><body><script>
var cfg = {"jsUrl":"/s/player/abcd1234/base.js"};
var ytInitialPlayerResponse = {"videoDetails":{"videoId":"dQw4w9WgXcQ","title":"Test Clip","shortDescription":"a clip","lengthSeconds":"212","viewCount":"1000000","author":"Test Channel"},"streamingData":{"formats":[{"itag":18,"url":"https://rr1.example.com/videoplayback?expire=1","mimeType":"video/mp4; codecs=\"avc1.42001E, mp4a.40.2\"","bitrate":500000,"width":640,"height":360,"fps":30,"qualityLabel":"360p","contentLength":"12345"}],"adaptiveFormats":[{"itag":137,"url":"https://rr1.example.com/videoplayback?expire=2","mimeType":"video/mp4; codecs=\"avc1.64002a\"","bitrate":2000000,"width":1920,"height":1080,"fps":30,"qualityLabel":"1080p"}]}};
</script></body></html>`

const cipheredWatchPage = `<!DOCTYPE html><html><head></head><body><script>
var cfg = {"jsUrl":"/s/player/cafe0000/base.js"};
var ytInitialPlayerResponse = {"videoDetails":{"videoId":"dQw4w9WgXcQ","title":"Ciphered Clip","author":"Test Channel","lengthSeconds":"100"},"streamingData":{"formats":[{"itag":18,"signatureCipher":"s=abcdef&sp=sig&url=https%3A%2F%2Frr2.example.com%2Fvideoplayback%3Fexpire%3D1&n=xyz","mimeType":"video/mp4; codecs=\"avc1.42001E, mp4a.40.2\"","bitrate":500000,"qualityLabel":"360p"}],"adaptiveFormats":[]}};
</script></body></html>`

const playerScriptBody = `
var GT={wA:function(a){a.reverse()},xB:function(a,b){a.splice(b,1)},yC:function(a,b){var c=a[0];a[0]=a[b%a.length];a[b%a.length]=c}};
var decode=function(a){a=a.split("");GT.wA(a,72);GT.xB(a,1);GT.yC(a,2);return a.join("")};
var nDec=function(a){return a.split("").reverse().join("")};
function wire(h,s){h.set("signature",decode(s))}
// d.get("n"))&&(c=nDec(c))
`

func TestSuitable(t *testing.T) {
	e := New(client.New())
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://vimeo.com/12345", false},
		{"https://notyoutube.com/watch?v=x", false},
	}
	for _, tt := range tests {
		if got := e.Suitable(mustParse(t, tt.url)); got != tt.want {
			t.Errorf("Suitable(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ?t=10", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/abc123XYZ_-", "abc123XYZ_-", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch", "", true},
		{"https://youtu.be/", "", true},
	}
	for _, tt := range tests {
		got, err := videoID(mustParse(t, tt.url))
		if tt.wantErr {
			if !errors.Is(err, errs.ErrMissingIdentifier) {
				t.Errorf("videoID(%q) error = %v, want ErrMissingIdentifier", tt.url, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("videoID(%q) = (%q, %v), want %q", tt.url, got, err, tt.want)
		}
	}
}

func TestExtractDirectFormats(t *testing.T) {
	rt := &recordingTransport{routes: map[string]func() *http.Response{
		"/watch": func() *http.Response { return textResponse(200, directWatchPage) },
	}}
	e := newTestExtractor(rt)

	meta, err := e.Extract(context.Background(), mustParse(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if meta.Title != "Test Clip" {
		t.Errorf("Title = %q, want %q", meta.Title, "Test Clip")
	}
	if meta.Uploader != "Test Channel" {
		t.Errorf("Uploader = %q", meta.Uploader)
	}
	if meta.Duration != 212 {
		t.Errorf("Duration = %d, want 212", meta.Duration)
	}
	if meta.ViewCount != 1000000 {
		t.Errorf("ViewCount = %d, want 1000000", meta.ViewCount)
	}
	if len(meta.Formats) != 2 {
		t.Fatalf("got %d formats, want 2", len(meta.Formats))
	}

	prog := meta.Formats[0]
	if prog.FormatID != "18" || prog.URL != "https://rr1.example.com/videoplayback?expire=1" {
		t.Errorf("progressive format = %+v", prog)
	}
	if !prog.HasVideo() || !prog.HasAudio() {
		t.Errorf("progressive format should carry both tracks: %+v", prog)
	}
	if prog.Resolution != "640x360" || prog.Filesize != 12345 || prog.TBR != 500 {
		t.Errorf("progressive format fields = %+v", prog)
	}

	adaptive := meta.Formats[1]
	if adaptive.HasAudio() {
		t.Errorf("video-only adaptive format should not report audio: %+v", adaptive)
	}

	if len(meta.Thumbnails) != 3 {
		t.Errorf("got %d thumbnails, want 3", len(meta.Thumbnails))
	}
	if rt.requested("base.js") {
		t.Error("player script fetched despite direct URLs being present")
	}
}

func TestExtractCipheredFormats(t *testing.T) {
	rt := &recordingTransport{routes: map[string]func() *http.Response{
		"/watch":  func() *http.Response { return textResponse(200, cipheredWatchPage) },
		"base.js": func() *http.Response { return textResponse(200, playerScriptBody) },
	}}
	e := newTestExtractor(rt)

	meta, err := e.Extract(context.Background(), mustParse(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(meta.Formats) != 1 {
		t.Fatalf("got %d formats, want 1", len(meta.Formats))
	}

	// s=abcdef runs through reverse, remove(1), swap(2) -> cdfba; the
	// throttle token xyz is reversed by the script.
	want := "https://rr2.example.com/videoplayback?expire=1&sig=cdfba&n=zyx"
	if got := meta.Formats[0].URL; got != want {
		t.Errorf("resolved URL = %q, want %q", got, want)
	}
	if !rt.requested("base.js") {
		t.Error("player script was not fetched for ciphered formats")
	}
}

func TestExtractReusesPlayerScript(t *testing.T) {
	rt := &recordingTransport{routes: map[string]func() *http.Response{
		"/watch":  func() *http.Response { return textResponse(200, cipheredWatchPage) },
		"base.js": func() *http.Response { return textResponse(200, playerScriptBody) },
	}}
	e := newTestExtractor(rt)

	for i := 0; i < 2; i++ {
		if _, err := e.Extract(context.Background(), mustParse(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")); err != nil {
			t.Fatalf("Extract #%d: %v", i+1, err)
		}
	}
	if got := rt.requestedCount("base.js"); got != 1 {
		t.Errorf("player script fetched %d times across extractions, want 1", got)
	}
}

func TestExtractCipheredDegradesWithoutScript(t *testing.T) {
	rt := &recordingTransport{routes: map[string]func() *http.Response{
		"/watch":  func() *http.Response { return textResponse(200, cipheredWatchPage) },
		"base.js": func() *http.Response { return textResponse(http.StatusInternalServerError, "") },
	}}
	e := newTestExtractor(rt)

	meta, err := e.Extract(context.Background(), mustParse(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "https://rr2.example.com/videoplayback?expire=1&sig=abcdef&n=xyz"
	if got := meta.Formats[0].URL; got != want {
		t.Errorf("degraded URL = %q, want raw %q", got, want)
	}
}

func TestExtractNoPlayerResponse(t *testing.T) {
	rt := &recordingTransport{routes: map[string]func() *http.Response{
		"/watch": func() *http.Response { return textResponse(200, "<html><body>nothing here</body></html>") },
	}}
	e := newTestExtractor(rt)

	_, err := e.Extract(context.Background(), mustParse(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	if !errors.Is(err, errs.ErrNoPlayerResponse) {
		t.Errorf("error = %v, want ErrNoPlayerResponse", err)
	}
}

func TestExtractNotMarkup(t *testing.T) {
	rt := &recordingTransport{routes: map[string]func() *http.Response{
		"/watch": func() *http.Response { return textResponse(200, "just plain text") },
	}}
	e := newTestExtractor(rt)

	_, err := e.Extract(context.Background(), mustParse(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	if !errors.Is(err, errs.ErrUnexpectedContentType) {
		t.Errorf("error = %v, want ErrUnexpectedContentType", err)
	}
}

func TestExtractNoFormats(t *testing.T) {
	page := `<html><body><script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"x","title":"Empty"}};</script></body></html>`
	rt := &recordingTransport{routes: map[string]func() *http.Response{
		"/watch": func() *http.Response { return textResponse(200, page) },
	}}
	e := newTestExtractor(rt)

	_, err := e.Extract(context.Background(), mustParse(t, "https://www.youtube.com/watch?v=x"))
	if !errors.Is(err, errs.ErrNoFormats) {
		t.Errorf("error = %v, want ErrNoFormats", err)
	}
}

func TestExtractPlayerResponseMarkerFallback(t *testing.T) {
	// The bare assignment marker matches first but its braces never
	// balance; the quoted marker later in the page must win.
	page := `ytInitialPlayerResponse = {broken ... "playerResponse":{"videoDetails":{"videoId":"ok","title":"T"},"streamingData":{"formats":[{"itag":18,"url":"https://x/v"}]}}`
	pr, err := extractPlayerResponse(page)
	if err != nil {
		t.Fatalf("extractPlayerResponse: %v", err)
	}
	if pr.VideoDetails.VideoID != "ok" {
		t.Errorf("VideoID = %q, want %q", pr.VideoDetails.VideoID, "ok")
	}
}

func TestBalancedJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1};rest`, `{"a":1}`},
		{`{"a":{"b":2}} tail`, `{"a":{"b":2}}`},
		{`{"s":"br{ace}"}`, `{"s":"br{ace}"}`},
		{`{"s":"esc\"}quote"}`, `{"s":"esc\"}quote"}`},
		{`{"unterminated":`, ``},
		{`not json`, ``},
	}
	for _, tt := range tests {
		if got := balancedJSON(tt.in); got != tt.want {
			t.Errorf("balancedJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindPlayerScriptURL(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "jsUrl with escaped slashes",
			page: `{"jsUrl":"\/s\/player\/abc123\/base.js"}`,
			want: "https://www.youtube.com/s/player/abc123/base.js",
		},
		{
			name: "PLAYER_JS_URL",
			page: `{"PLAYER_JS_URL":"/s/player/def456/player_ias.vflset/en_US/base.js"}`,
			want: "https://www.youtube.com/s/player/def456/player_ias.vflset/en_US/base.js",
		},
		{
			name: "script tag",
			page: `<script src="//www.youtube.com/s/player/ghi789/base.js"></script>`,
			want: "https://www.youtube.com/s/player/ghi789/base.js",
		},
		{
			name: "bare path",
			page: `foo /s/player/jkl012/player_ias.vflset/en_US/base.js bar`,
			want: "https://www.youtube.com/s/player/jkl012/player_ias.vflset/en_US/base.js",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findPlayerScriptURL(tt.page)
			if err != nil || got != tt.want {
				t.Errorf("findPlayerScriptURL = (%q, %v), want %q", got, err, tt.want)
			}
		})
	}
}

func TestFindPlayerScriptURLMissing(t *testing.T) {
	if _, err := findPlayerScriptURL("<html></html>"); !errors.Is(err, errs.ErrFetch) {
		t.Errorf("error = %v, want ErrFetch", err)
	}
}
