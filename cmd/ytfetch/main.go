package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ytget/ytfetch"
	"github.com/ytget/ytfetch/config"
)

func main() {
	var (
		flagConfig      string
		flagOutput      string
		flagTemplate    string
		flagFormat      string
		flagTimeout     int
		flagRetries     int
		flagUA          string
		flagProxy       string
		flagConcurrency int
		flagVerbose     bool
		flagInfo        bool
		flagNoProgress  bool
	)

	flag.StringVar(&flagConfig, "config", "", "Path to TOML config file")
	flag.StringVar(&flagOutput, "output", "", "Output directory")
	flag.StringVar(&flagTemplate, "template", "", "Filename template (e.g., '%(title)s.%(ext)s')")
	flag.StringVar(&flagFormat, "format", "", "Format selector ('best' or 'itag=<id>')")
	flag.IntVar(&flagTimeout, "timeout", 0, "HTTP timeout in seconds")
	flag.IntVar(&flagRetries, "retries", 0, "Attempt ceiling for transient transfer errors")
	flag.StringVar(&flagUA, "ua", "", "Override User-Agent header")
	flag.StringVar(&flagProxy, "proxy", "", "Proxy URL (http/https/socks)")
	flag.IntVar(&flagConcurrency, "concurrency", 0, "Parallel downloads when several URLs are given")
	flag.BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&flagInfo, "info", false, "Print metadata and formats without downloading")
	flag.BoolVar(&flagNoProgress, "no-progress", false, "Disable progress output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <url> [url...]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	flag.Parse()
	urls := flag.Args()
	if len(urls) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if flagConfig != "" {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if flagOutput != "" {
		cfg.OutputDir = flagOutput
	}
	if flagTemplate != "" {
		cfg.OutputTemplate = flagTemplate
	}
	if flagFormat != "" {
		cfg.Format = flagFormat
	}
	if flagTimeout > 0 {
		cfg.TimeoutSeconds = flagTimeout
	}
	if flagRetries > 0 {
		cfg.Retries = flagRetries
	}
	if flagUA != "" {
		cfg.UserAgent = flagUA
	}
	if flagProxy != "" {
		cfg.ProxyURL = flagProxy
	}
	if flagConcurrency > 0 {
		cfg.Concurrency = flagConcurrency
	}
	if flagVerbose {
		cfg.Verbose = true
	}

	f := ytfetch.New().WithConfig(cfg)
	if !flagNoProgress && !flagInfo {
		f.WithProgress(printProgress)
	}

	ctx := context.Background()

	if flagInfo {
		for _, u := range urls {
			if err := printInfo(ctx, f, u); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to extract %s: %v\n", u, err)
				os.Exit(1)
			}
		}
		return
	}

	if len(urls) == 1 {
		path, err := f.Download(ctx, strings.TrimSpace(urls[0]))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nDownload failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nSaved to %s\n", path)
		return
	}

	failed := 0
	for _, r := range f.DownloadBatch(ctx, urls) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Job %s failed: %v\n", r.Job.ID, r.Err)
		}
	}
	fmt.Printf("\nDone: %d/%d succeeded\n", len(urls)-failed, len(urls))
	if failed > 0 {
		os.Exit(1)
	}
}

func printProgress(p ytfetch.Progress) {
	if p.TotalSize > 0 {
		fmt.Printf("\rDownloading %.1f%% (%.1f/%.1f MiB)",
			p.Percent,
			float64(p.DownloadedSize)/(1<<20),
			float64(p.TotalSize)/(1<<20))
		return
	}
	fmt.Printf("\rDownloading %.1f MiB", float64(p.DownloadedSize)/(1<<20))
}

func printInfo(ctx context.Context, f *ytfetch.Fetcher, rawURL string) error {
	meta, err := f.Info(ctx, rawURL)
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", meta.ID)
	fmt.Printf("Title:    %s\n", meta.Title)
	fmt.Printf("Uploader: %s\n", meta.Uploader)
	fmt.Printf("Duration: %ds\n", meta.Duration)
	fmt.Printf("Views:    %d\n", meta.ViewCount)
	fmt.Println("Formats:")
	for _, ft := range meta.Formats {
		tracks := ""
		if ft.HasVideo() {
			tracks += "video"
		}
		if ft.HasAudio() {
			if tracks != "" {
				tracks += "+"
			}
			tracks += "audio"
		}
		fmt.Printf("  itag=%-4s %-5s %-10s %-11s %8.0f kbps\n",
			ft.FormatID, ft.Ext, ft.Resolution, tracks, ft.TBR)
	}
	return nil
}
