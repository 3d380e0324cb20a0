package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/benedoc-inc/fillpdf/cmd/fillpdf/config"
	"github.com/benedoc-inc/fillpdf/fill"
	"github.com/benedoc-inc/fillpdf/internal/fetch"
	"github.com/benedoc-inc/fillpdf/internal/fields"
	"github.com/benedoc-inc/fillpdf/internal/metadata"
	"github.com/benedoc-inc/fillpdf/internal/pdferrors"
	"github.com/benedoc-inc/fillpdf/internal/templatecache"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "fill":
		runFill(os.Args[2:])
	case "cache":
		runCache(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: fillpdf fill --template <path|url|json> --data <path> --output <path> [--metadata <path>] [--keep-fields] [--cache] [--cache-ttl <sec>] [--cache-dir <path>] [--cache-refresh] [--log-file <path>]
       fillpdf cache clear [--cache-dir <path>]`)
}

func runCache(args []string) {
	if len(args) == 0 || args[0] != "clear" {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadCacheClearConfig(args[1:])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	c, err := templatecache.New(cfg.CacheDir)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if err := c.Clear(); err != nil {
		log.Fatalf("Error clearing cache: %v", err)
	}
	log.Printf("Cleared template cache at %s", cfg.CacheDir)
}

func runFill(args []string) {
	cfg, err := config.LoadFillConfig(args)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if cfg.LogFile != "" {
		logFile, err := os.Create(cfg.LogFile)
		if err != nil {
			log.Fatalf("Error creating log file: %v", err)
		}
		defer logFile.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	ctx := context.Background()

	log.Printf("Resolving template %s", cfg.Template)
	templatePDF, err := resolveTemplate(ctx, cfg)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	dataBytes, err := os.ReadFile(cfg.Data)
	if err != nil {
		log.Fatalf("Error: failed to read data file %s: %v", cfg.Data, err)
	}

	fieldList, err := fields.DecodeFields(dataBytes)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	log.Printf("Decoded %d field(s) from %s", len(fieldList), cfg.Data)

	fetchMC := metadata.NewCollector()
	fieldList = fetch.FetchAllImages(ctx, fieldList, fetchMC)

	result, err := fill.Fill(templatePDF, fieldList, fill.Options{Flatten: !cfg.KeepFields})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if err := os.WriteFile(cfg.Output, result.PDF, 0o644); err != nil {
		log.Fatalf("Error: failed to write output %s: %v", cfg.Output, err)
	}

	merged := mergeMetadata(fetchMC.Metadata(), result.Metadata)

	if cfg.MetadataPath != "" {
		metaJSON, err := json.MarshalIndent(merged, "", "  ")
		if err != nil {
			log.Fatalf("Error: failed to marshal metadata: %v", err)
		}
		if err := os.WriteFile(cfg.MetadataPath, metaJSON, 0o644); err != nil {
			log.Fatalf("Error: failed to write metadata %s: %v", cfg.MetadataPath, err)
		}
	}

	for _, w := range merged.Warnings {
		log.Printf("Warning: %s", w)
	}
	for _, e := range merged.Errors {
		log.Printf("Error: %s", e)
	}

	log.Printf("Wrote %s (%d field(s) processed, %d skipped)", cfg.Output, merged.FieldsProcessed, merged.FieldsSkipped)
}

// resolveTemplate turns --template's three admissible shapes (a local path,
// a bare URL, or inline JSON {"url": ...}) into template bytes, fetching and
// optionally caching a remote template along the way.
func resolveTemplate(ctx context.Context, cfg *config.FillConfig) ([]byte, error) {
	trimmed := strings.TrimSpace(cfg.Template)

	switch {
	case strings.HasPrefix(trimmed, "{"):
		var req struct {
			URL     string            `json:"url"`
			Method  string            `json:"method,omitempty"`
			Headers map[string]string `json:"headers,omitempty"`
			Body    json.RawMessage   `json:"body,omitempty"`
		}
		if err := json.Unmarshal([]byte(trimmed), &req); err != nil {
			return nil, pdferrors.Wrap(pdferrors.CodeTemplateUnavailable, "inline --template JSON is malformed", err)
		}
		if req.URL == "" {
			return nil, pdferrors.New(pdferrors.CodeTemplateUnavailable, "inline --template JSON is missing url")
		}
		return fetchTemplateRemote(ctx, cfg, fetch.RequestConfig{URL: req.URL, Method: req.Method, Headers: req.Headers, Body: []byte(req.Body)})

	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
		return fetchTemplateRemote(ctx, cfg, fetch.RequestConfig{URL: trimmed})

	default:
		data, err := os.ReadFile(trimmed)
		if err != nil {
			return nil, pdferrors.Wrap(pdferrors.CodeTemplateUnavailable, fmt.Sprintf("failed to read template %s", trimmed), err)
		}
		return data, nil
	}
}

func fetchTemplateRemote(ctx context.Context, cfg *config.FillConfig, req fetch.RequestConfig) ([]byte, error) {
	if !cfg.Cache {
		data, _, err := fetch.FetchTemplate(ctx, fetch.TemplateSource{Remote: &req})
		return data, err
	}

	cache, err := templatecache.New(cfg.CacheDir)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.CodeTemplateUnavailable, "failed to open template cache", err)
	}
	key := templatecache.Key(req)
	ttl := time.Duration(cfg.CacheTTL) * time.Second

	if !cfg.CacheRefresh {
		if entry, ok := cache.Get(key, ttl); ok {
			log.Printf("Using cached template (key %s)", key)
			return entry.Bytes, nil
		}
		if entry, ok := cache.Get(key, time.Duration(math.MaxInt64)); ok {
			if err := cache.Revalidate(ctx, key, req, entry); err != nil {
				log.Printf("Warning: cache revalidation failed, using stale template: %v", err)
				return entry.Bytes, nil
			}
			if time.Since(entry.CachedAt) <= ttl {
				log.Printf("Using revalidated cached template (key %s)", key)
				return entry.Bytes, nil
			}
		}
	}

	data, info, err := fetch.FetchTemplate(ctx, fetch.TemplateSource{Remote: &req})
	if err != nil {
		return nil, err
	}
	entry := templatecache.Entry{Bytes: data, CachedAt: time.Now()}
	if info != nil {
		entry.ETag = info.ETag
		entry.LastModified = info.LastModified
	}
	if err := cache.Set(key, entry); err != nil {
		log.Printf("Warning: failed to write template cache: %v", err)
	}
	return data, nil
}

func mergeMetadata(fetchMeta, fillMeta *metadata.Metadata) *metadata.Metadata {
	warnings := make([]string, 0, len(fetchMeta.Warnings)+len(fillMeta.Warnings))
	warnings = append(warnings, fetchMeta.Warnings...)
	warnings = append(warnings, fillMeta.Warnings...)

	errs := make([]string, 0, len(fetchMeta.Errors)+len(fillMeta.Errors))
	errs = append(errs, fetchMeta.Errors...)
	errs = append(errs, fillMeta.Errors...)

	return &metadata.Metadata{
		Pages:           fillMeta.Pages,
		FieldsProcessed: fillMeta.FieldsProcessed,
		FieldsSkipped:   fetchMeta.FieldsSkipped + fillMeta.FieldsSkipped,
		Warnings:        warnings,
		Errors:          errs,
	}
}
