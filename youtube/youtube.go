// Package youtube extracts video metadata and resolved format URLs
// from watch pages. Formats carrying an encrypted signature are
// resolved against the page's player script before they are returned;
// callers never see a format whose URL still needs work.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ytget/ytfetch/client"
	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/internal/logger"
	"github.com/ytget/ytfetch/internal/mimeext"
	"github.com/ytget/ytfetch/types"
	"github.com/ytget/ytfetch/youtube/cipher"
)

const (
	watchURLBase = "https://www.youtube.com/watch?v="
	thumbnailFmt = "https://i.ytimg.com/vi/%s/%s.jpg"

	// Player script versions rotate slowly; an hour of reuse avoids
	// re-fetching the same script on every ciphered extraction.
	scriptCacheTTL = time.Hour
)

// Watch page headers kept close to a stock desktop browser so the page
// serves the full markup with the embedded player response.
var watchPageHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Accept-Encoding":           "gzip, deflate, br",
	"Cache-Control":             "max-age=0",
	"Connection":                "keep-alive",
	"DNT":                       "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

// Extractor handles youtube.com and youtu.be URLs.
type Extractor struct {
	client *client.Client
	engine *cipher.Engine
	log    *logger.ComponentLogger

	mu      sync.Mutex
	scripts map[string]cachedScript
}

type cachedScript struct {
	script    *cipher.PlayerScript
	fetchedAt time.Time
}

// New creates the extractor on top of the given HTTP client.
func New(c *client.Client) *Extractor {
	return &Extractor{
		client:  c,
		engine:  cipher.NewEngine(),
		log:     logger.WithComponent(logger.ComponentExtractor),
		scripts: make(map[string]cachedScript),
	}
}

// Name returns the extractor identifier.
func (e *Extractor) Name() string { return "youtube" }

// Suitable reports whether the URL belongs to this extractor.
func (e *Extractor) Suitable(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

// videoID derives the video identifier from a watch, share, shorts,
// embed, or live URL.
func videoID(u *url.URL) (string, error) {
	if strings.ToLower(u.Hostname()) == "youtu.be" {
		if seg := strings.Trim(u.Path, "/"); seg != "" {
			return strings.SplitN(seg, "/", 2)[0], nil
		}
		return "", fmt.Errorf("%w: %s", errs.ErrMissingIdentifier, u)
	}
	if v := u.Query().Get("v"); v != "" {
		return v, nil
	}
	for _, prefix := range []string{"/shorts/", "/embed/", "/live/", "/v/"} {
		if strings.HasPrefix(u.Path, prefix) {
			if seg := strings.SplitN(strings.TrimPrefix(u.Path, prefix), "/", 2)[0]; seg != "" {
				return seg, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", errs.ErrMissingIdentifier, u)
}

// Extract fetches the watch page, locates the player response, resolves
// format URLs, and assembles the video metadata.
func (e *Extractor) Extract(ctx context.Context, u *url.URL) (*types.VideoMetadata, error) {
	id, err := videoID(u)
	if err != nil {
		return nil, err
	}
	e.log.Info("extracting", map[string]any{"id": id})

	page, err := e.fetchWatchPage(ctx, id)
	if err != nil {
		return nil, err
	}

	pr, err := extractPlayerResponse(page)
	if err != nil {
		return nil, fmt.Errorf("%w (video %s)", err, id)
	}

	formats, err := e.buildFormats(ctx, page, pr)
	if err != nil {
		return nil, fmt.Errorf("%w (video %s)", err, id)
	}

	meta := buildMetadata(id, pr)
	meta.Formats = formats
	e.log.Info("extracted", map[string]any{"id": id, "title": meta.Title, "formats": len(formats)})
	return meta, nil
}

func (e *Extractor) fetchWatchPage(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURLBase+id, nil)
	if err != nil {
		return "", err
	}
	for k, v := range watchPageHeaders {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: watch page: %v", errs.ErrFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return "", fmt.Errorf("%w: watch page returned %d", errs.ErrFetch, resp.StatusCode)
	}
	body, err := client.DecodeBody(resp)
	if err != nil {
		return "", fmt.Errorf("%w: read watch page: %v", errs.ErrFetch, err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("%w: empty watch page body", errs.ErrFetch)
	}

	page := string(body)
	lower := strings.ToLower(page)
	if !strings.Contains(lower, "<html") && !strings.Contains(lower, "<!doctype") {
		return "", fmt.Errorf("%w: watch page is not markup", errs.ErrUnexpectedContentType)
	}
	return page, nil
}

// buildFormats resolves stream URLs. When any stream carries a direct
// URL the whole response is served from direct entries and the player
// script is never fetched. Otherwise the script is fetched once and
// each ciphered entry is resolved against it; entries that cannot be
// resolved degrade (raw signature, verbatim throttle token) rather
// than vanish, and only malformed entries are skipped.
func (e *Extractor) buildFormats(ctx context.Context, page string, pr *playerResponse) ([]types.Format, error) {
	raw := make([]streamFormat, 0, len(pr.StreamingData.Formats)+len(pr.StreamingData.AdaptiveFormats))
	raw = append(raw, pr.StreamingData.Formats...)
	raw = append(raw, pr.StreamingData.AdaptiveFormats...)
	if len(raw) == 0 {
		return nil, errs.ErrNoFormats
	}

	direct := false
	for _, f := range raw {
		if f.URL != "" {
			direct = true
			break
		}
	}

	var script *cipher.PlayerScript
	if !direct {
		script = e.fetchPlayerScript(ctx, page)
	}

	var formats []types.Format
	for _, f := range raw {
		var resolved string
		if direct {
			resolved = f.URL
		} else {
			resolved = e.resolveCiphered(script, f)
		}
		if resolved == "" {
			continue
		}
		formats = append(formats, buildFormat(f, resolved))
	}
	if len(formats) == 0 {
		return nil, errs.ErrNoFormats
	}
	return formats, nil
}

// fetchPlayerScript locates and downloads the versioned player script,
// reusing a cached copy while its TTL holds. The parsed script carries
// its global arrays, so a cache hit skips both the fetch and the parse.
// Failure is not fatal: a nil script makes every ciphered format
// degrade to its raw signature.
func (e *Extractor) fetchPlayerScript(ctx context.Context, page string) *cipher.PlayerScript {
	scriptURL, err := findPlayerScriptURL(page)
	if err != nil {
		e.log.Warn("player script not referenced, degrading to raw signatures")
		return nil
	}

	e.mu.Lock()
	if c, ok := e.scripts[scriptURL]; ok && time.Since(c.fetchedAt) < scriptCacheTTL {
		e.mu.Unlock()
		return c.script
	}
	e.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scriptURL, nil)
	if err != nil {
		return nil
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Warn("player script fetch failed, degrading to raw signatures", map[string]any{"url": scriptURL, "error": err.Error()})
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		e.log.Warn("player script fetch failed, degrading to raw signatures", map[string]any{"url": scriptURL, "status": resp.StatusCode})
		return nil
	}
	body, err := client.DecodeBody(resp)
	if err != nil || len(body) == 0 {
		e.log.Warn("player script unreadable, degrading to raw signatures", map[string]any{"url": scriptURL})
		return nil
	}
	e.log.Debug("player script fetched", map[string]any{"url": scriptURL, "bytes": len(body)})

	s := cipher.NewPlayerScript(scriptURL, string(body))
	e.mu.Lock()
	e.scripts[scriptURL] = cachedScript{script: s, fetchedAt: time.Now()}
	e.mu.Unlock()
	return s
}

// resolveCiphered rebuilds a stream URL from its cipher parameters.
// Returns "" for malformed entries, which the caller skips.
func (e *Extractor) resolveCiphered(script *cipher.PlayerScript, f streamFormat) string {
	cq := f.cipherQuery()
	if cq == "" {
		return ""
	}
	vals, err := url.ParseQuery(cq)
	if err != nil {
		e.log.Warn("malformed cipher query, skipping format", map[string]any{"itag": f.Itag})
		return ""
	}
	base := vals.Get("url")
	if base == "" {
		e.log.Warn("cipher query without url, skipping format", map[string]any{"itag": f.Itag})
		return ""
	}
	sp := vals.Get("sp")
	if sp == "" {
		sp = "signature"
	}

	sig := vals.Get("s")
	if script != nil && sig != "" {
		if out, err := e.engine.DecryptSignature(script, sig); err == nil {
			sig = out
		}
	}

	resolved := base
	if sig != "" {
		resolved += "&" + sp + "=" + sig
	}

	if n := vals.Get("n"); n != "" {
		if script != nil {
			if out, err := e.engine.DecryptThrottle(script, n); err == nil {
				n = out
			}
		}
		resolved += "&n=" + n
	}
	return resolved
}

func buildFormat(f streamFormat, resolved string) types.Format {
	vcodec, acodec, ext := mimeext.Codecs(f.MimeType)

	var size int64
	if f.ContentLength != "" {
		size, _ = strconv.ParseInt(f.ContentLength, 10, 64)
	}

	bitrate := f.Bitrate
	if bitrate == 0 {
		bitrate = f.AverageBitrate
	}

	quality := f.QualityLabel
	if quality == "" {
		quality = f.Quality
	}

	var resolution string
	if f.Width > 0 && f.Height > 0 {
		resolution = fmt.Sprintf("%dx%d", f.Width, f.Height)
	}

	return types.Format{
		FormatID:   strconv.Itoa(f.Itag),
		URL:        resolved,
		Quality:    quality,
		Resolution: resolution,
		FPS:        f.FPS,
		Vcodec:     vcodec,
		Acodec:     acodec,
		Ext:        ext,
		Filesize:   size,
		TBR:        float64(bitrate) / 1000,
	}
}

func buildMetadata(id string, pr *playerResponse) *types.VideoMetadata {
	d := pr.VideoDetails

	title := d.Title
	if title == "" {
		title = "Unknown Title"
	}

	var duration int64
	if d.LengthSeconds != "" {
		duration, _ = strconv.ParseInt(d.LengthSeconds, 10, 64)
	}
	var views int64
	if d.ViewCount != "" {
		views, _ = strconv.ParseInt(d.ViewCount, 10, 64)
	}

	meta := &types.VideoMetadata{
		ID:          id,
		Title:       title,
		Description: d.ShortDescription,
		Uploader:    d.Author,
		Duration:    duration,
		ViewCount:   views,
		Thumbnails:  thumbnails(id),
	}

	for _, track := range pr.Captions.Renderer.CaptionTracks {
		if track.BaseURL == "" || track.LanguageCode == "" {
			continue
		}
		if meta.Subtitles == nil {
			meta.Subtitles = make(map[string][]types.Subtitle)
		}
		meta.Subtitles[track.LanguageCode] = append(meta.Subtitles[track.LanguageCode], types.Subtitle{
			URL:  track.BaseURL + "&fmt=vtt",
			Ext:  "vtt",
			Name: track.Name.SimpleText,
		})
	}
	return meta
}

// thumbnails lists the well-known still image variants. They are not
// probed; a missing maxres variant is the caller's problem to handle.
func thumbnails(id string) []types.Thumbnail {
	variants := []struct {
		name          string
		width, height int
	}{
		{"maxresdefault", 1280, 720},
		{"hqdefault", 480, 360},
		{"mqdefault", 320, 180},
	}
	ts := make([]types.Thumbnail, 0, len(variants))
	for _, v := range variants {
		ts = append(ts, types.Thumbnail{
			URL:        fmt.Sprintf(thumbnailFmt, id, v.name),
			Width:      v.width,
			Height:     v.height,
			Resolution: fmt.Sprintf("%dx%d", v.width, v.height),
		})
	}
	return ts
}
