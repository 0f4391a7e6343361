// Package ytfetch provides a high-level API for extracting video
// metadata and downloading media: resolve a URL to its formats, pick
// one, and stream it to disk with resume and retry.
package ytfetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ytget/ytfetch/client"
	"github.com/ytget/ytfetch/config"
	"github.com/ytget/ytfetch/downloader"
	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/extractor"
	"github.com/ytget/ytfetch/internal/logger"
	"github.com/ytget/ytfetch/internal/sanitize"
	"github.com/ytget/ytfetch/types"
	"github.com/ytget/ytfetch/youtube"
)

// Progress describes the current state of an ongoing download.
type Progress = downloader.Progress

// JobResult is the outcome of one batch transfer.
type JobResult = downloader.JobResult

// Fetcher is the high-level entry point. Configure it with the
// chainable setters, then call Info or Download.
type Fetcher struct {
	cfg          config.Config
	httpClient   *http.Client
	progressFunc func(Progress)
}

// New creates a Fetcher with default configuration.
func New() *Fetcher {
	return &Fetcher{cfg: config.Default()}
}

// WithConfig replaces the whole configuration.
func (f *Fetcher) WithConfig(cfg config.Config) *Fetcher {
	cfg.Normalize()
	f.cfg = cfg
	return f
}

// WithOutputDir sets the directory downloads are written to.
func (f *Fetcher) WithOutputDir(dir string) *Fetcher {
	f.cfg.OutputDir = dir
	return f
}

// WithTemplate sets the output filename template, e.g.
// "%(title)s.%(ext)s".
func (f *Fetcher) WithTemplate(tpl string) *Fetcher {
	f.cfg.OutputTemplate = tpl
	return f
}

// WithFormat sets the format selector: "best" or "itag=<id>".
func (f *Fetcher) WithFormat(selector string) *Fetcher {
	f.cfg.Format = selector
	return f
}

// WithProgress registers a callback that receives progress updates.
func (f *Fetcher) WithProgress(fn func(Progress)) *Fetcher {
	f.progressFunc = fn
	return f
}

// WithHTTPClient sets a custom HTTP client used for all network calls.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	f.httpClient = c
	return f
}

func (f *Fetcher) buildClient() *client.Client {
	if f.cfg.Verbose {
		logger.SetGlobalLogger(logger.New(logger.VerboseConfig()))
	}
	c := client.NewWith(client.Config{
		Timeout:   f.cfg.Timeout(),
		Retries:   f.cfg.Retries,
		UserAgent: f.cfg.UserAgent,
		ProxyURL:  f.cfg.ProxyURL,
	})
	if f.httpClient != nil {
		c.HTTPClient = f.httpClient
	}
	return c
}

func (f *Fetcher) buildRegistry(c *client.Client) *extractor.Registry {
	reg := extractor.NewRegistry()
	reg.Register(youtube.New(c))
	return reg
}

// Info extracts metadata and the resolved format list without
// downloading anything.
func (f *Fetcher) Info(ctx context.Context, rawURL string) (*types.VideoMetadata, error) {
	c := f.buildClient()
	return f.buildRegistry(c).Dispatch(ctx, rawURL)
}

// Download extracts the video, selects a format, and streams it to
// disk. The output path is derived from the filename template and
// returned.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	c := f.buildClient()

	meta, err := f.buildRegistry(c).Dispatch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	sel, err := selectFormat(meta.Formats, f.cfg.Format)
	if err != nil {
		return "", err
	}

	path, err := f.outputPath(meta, sel)
	if err != nil {
		return "", err
	}

	d := downloader.New(c.HTTPClient, f.progressFunc, f.cfg.Retries)
	if err := d.Download(ctx, sel.URL, path); err != nil {
		return "", err
	}
	return path, nil
}

// DownloadBatch downloads several URLs concurrently on a worker pool
// sized by the configured concurrency. Extraction failures surface as
// job results alongside transfer failures.
func (f *Fetcher) DownloadBatch(ctx context.Context, rawURLs []string) []JobResult {
	c := f.buildClient()
	reg := f.buildRegistry(c)

	var jobs []downloader.Job
	var failed []JobResult
	for _, rawURL := range rawURLs {
		meta, err := reg.Dispatch(ctx, rawURL)
		if err != nil {
			failed = append(failed, JobResult{Job: downloader.NewJob(rawURL, ""), Err: err})
			continue
		}
		sel, err := selectFormat(meta.Formats, f.cfg.Format)
		if err != nil {
			failed = append(failed, JobResult{Job: downloader.NewJob(rawURL, ""), Err: err})
			continue
		}
		path, err := f.outputPath(meta, sel)
		if err != nil {
			failed = append(failed, JobResult{Job: downloader.NewJob(rawURL, ""), Err: err})
			continue
		}
		jobs = append(jobs, downloader.NewJob(sel.URL, path))
	}

	d := downloader.New(c.HTTPClient, f.progressFunc, f.cfg.Retries)
	results := downloader.NewPool(d, f.cfg.Concurrency).Run(ctx, jobs)
	return append(results, failed...)
}

// outputPath renders the filename template against the metadata, using
// the selected format's container for %(ext)s, and ensures the output
// directory exists.
func (f *Fetcher) outputPath(meta *types.VideoMetadata, sel *types.Format) (string, error) {
	renderMeta := *meta
	renderMeta.Formats = []types.Format{*sel}
	name := sanitize.Render(f.cfg.OutputTemplate, &renderMeta)

	dir := f.cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return filepath.Join(dir, name), nil
}

// selectFormat resolves the configured selector against the format
// list: "best" (or empty) scores formats, "itag=<id>" or a bare itag
// matches exactly.
func selectFormat(formats []types.Format, selector string) (*types.Format, error) {
	sel := strings.TrimSpace(strings.ToLower(selector))
	if sel == "" || sel == "best" {
		return downloader.SelectBest(formats)
	}
	id := strings.TrimPrefix(sel, "itag=")
	for i := range formats {
		if formats[i].FormatID == id {
			return &formats[i], nil
		}
	}
	return nil, fmt.Errorf("%w: selector %q", errs.ErrNoSuitableFormat, selector)
}
