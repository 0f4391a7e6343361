// Package downloader implements the transfer engine: resumable
// streaming downloads with retry/backoff, format selection, and a
// worker pool for batch transfers.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/internal/logger"
)

const (
	copyBufferSizeBytes = 32 * 1024
	progressEveryBytes  = 1 << 20

	defaultMaxRetries  = 3
	defaultBackoffBase = 1 * time.Second

	userAgentValue = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
)

// transferHeaders mimic a browser media request; media hosts reject
// bare clients with 403.
var transferHeaders = map[string]string{
	"User-Agent":               userAgentValue,
	"Accept":                   "*/*",
	"Accept-Language":          "en-US,en;q=0.9",
	"Accept-Encoding":          "identity",
	"Cache-Control":            "no-cache",
	"Connection":               "keep-alive",
	"Pragma":                   "no-cache",
	"Referer":                  "https://www.youtube.com/",
	"Origin":                   "https://www.youtube.com",
	"Sec-Fetch-Dest":           "empty",
	"Sec-Fetch-Mode":           "cors",
	"Sec-Fetch-Site":           "cross-site",
	"Sec-Ch-Ua":                `"Chromium";v="135", "Not-A.Brand";v="8"`,
	"Sec-Ch-Ua-Mobile":         "?0",
	"Sec-Ch-Ua-Platform":       `"Windows"`,
	"X-Youtube-Client-Name":    "1",
	"X-Youtube-Client-Version": "2.20240101.00.00",
}

// Progress holds information about a transfer in flight. TotalSize is
// 0 when the server did not report a length; DownloadedSize includes
// bytes recovered from a previous partial transfer.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
}

// Downloader performs resumable streaming downloads. A partial file at
// the target path is continued, never restarted: the existing size
// becomes the request offset. Transient failures (network errors and
// HTTP 403) are retried with exponential backoff up to the attempt
// ceiling; any other HTTP error and all write errors are fatal.
type Downloader struct {
	Client       *http.Client
	ProgressFunc func(Progress)

	maxRetries  int
	backoffBase time.Duration
	log         *logger.ComponentLogger
}

// New creates a downloader. A nil client falls back to a default
// http.Client; maxRetries bounds total request attempts, and values
// <= 0 select the default ceiling.
func New(client *http.Client, progressFunc func(Progress), maxRetries int) *Downloader {
	if client == nil {
		client = &http.Client{}
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Downloader{
		Client:       client,
		ProgressFunc: progressFunc,
		maxRetries:   maxRetries,
		backoffBase:  defaultBackoffBase,
		log:          logger.WithComponent(logger.ComponentDownloader),
	}
}

// Download fetches rawURL into path, resuming from the current size of
// path when it already exists. Cancelling the context aborts the
// transfer mid-stream and leaves the partial file for a later resume.
func (d *Downloader) Download(ctx context.Context, rawURL, path string) error {
	var offset int64
	if fi, err := os.Stat(path); err == nil {
		offset = fi.Size()
	}
	if offset > 0 {
		d.log.Info("resuming transfer", map[string]any{"path": path, "offset": offset})
	}

	resp, err := d.request(ctx, rawURL, offset)
	if err != nil {
		return err
	}
	return d.stream(ctx, resp, path, offset)
}

// request issues the GET with a Range header when resuming, retrying
// network errors and 403 responses with exponential backoff. The
// configured ceiling bounds total attempts. Any other non-2xx status
// fails immediately.
func (d *Downloader) request(ctx context.Context, rawURL string, offset int64) (*http.Response, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range transferHeaders {
			req.Header.Set(k, v)
		}
		if offset > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		}

		resp, err := d.Client.Do(req)
		switch {
		case err != nil:
			lastErr = err
			d.log.Warn("request failed", map[string]any{"attempt": attempt, "error": err.Error()})
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusForbidden:
			lastStatus = resp.StatusCode
			lastErr = nil
			_ = resp.Body.Close()
			d.log.Warn("request rejected", map[string]any{"attempt": attempt, "status": resp.StatusCode})
		default:
			status := resp.StatusCode
			_ = resp.Body.Close()
			return nil, fmt.Errorf("download failed with status %d", status)
		}

		if attempt == d.maxRetries {
			break
		}
		delay := d.backoffBase * (1 << (attempt - 1))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %d attempts: %v", errs.ErrTooManyRetries, d.maxRetries, lastErr)
	}
	return nil, fmt.Errorf("%w: %d attempts, last status %d", errs.ErrTooManyRetries, d.maxRetries, lastStatus)
}

func (d *Downloader) stream(ctx context.Context, resp *http.Response, path string, offset int64) error {
	defer func() { _ = resp.Body.Close() }()

	var total int64
	if resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if offset > 0 {
		flags = os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, copyBufferSizeBytes)
	downloaded := offset
	lastReport := downloaded
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write %s: %w", path, werr)
			}
			downloaded += int64(n)
			if downloaded-lastReport >= progressEveryBytes {
				d.report(downloaded, total)
				lastReport = downloaded
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("read response: %w", rerr)
		}
	}

	d.report(downloaded, total)
	d.log.Info("transfer complete", map[string]any{"path": path, "bytes": downloaded})
	return nil
}

func (d *Downloader) report(downloaded, total int64) {
	if d.ProgressFunc == nil {
		return
	}
	p := Progress{TotalSize: total, DownloadedSize: downloaded}
	if total > 0 {
		p.Percent = float64(downloaded) / float64(total) * 100
	}
	d.ProgressFunc(p)
}
