// Package fetch is the HTTP collaborator: it retrieves template bytes and
// per-field image bytes over the network. The core fill pipeline never
// issues an HTTP request itself; every request this package makes happens
// before fields.Render ever runs, matching the "concurrency is upstream of
// the core" design.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/benedoc-inc/fillpdf/internal/fields"
	"github.com/benedoc-inc/fillpdf/internal/metadata"
	"github.com/benedoc-inc/fillpdf/internal/pdferrors"
)

// maxConcurrentImageFetches bounds FetchAllImages' worker pool, so a field
// list with hundreds of remote images doesn't open hundreds of sockets at
// once.
const maxConcurrentImageFetches = 8

// RequestConfig mirrors the original Rust UrlConfig: an HTTP request
// descriptor for a template or image fetch.
type RequestConfig struct {
	URL     string
	Method  string // defaults to GET when empty
	Headers map[string]string
	Body    []byte
}

// TemplateSource is either a local file path or a remote request.
type TemplateSource struct {
	Path   string // set for a local template
	Remote *RequestConfig
}

// FetchInfo carries caching-relevant response metadata back to the caller,
// for internal/templatecache to persist.
type FetchInfo struct {
	ETag         string
	LastModified string
}

// FetchTemplate retrieves a template's bytes over HTTP from src.Remote; it
// does not read src.Path, and a source without Remote is an error. A
// non-2xx response or transport error is the fatal "template bytes
// unavailable" condition (spec §7).
func FetchTemplate(ctx context.Context, src TemplateSource) ([]byte, *FetchInfo, error) {
	if src.Remote == nil {
		return nil, nil, pdferrors.New(pdferrors.CodeTemplateUnavailable, "template source has no remote request")
	}
	return doRequest(ctx, *src.Remote)
}

// FetchImage retrieves one image's bytes over HTTP, with the same
// fatal/transport semantics as FetchTemplate but surfaced to the caller as
// a plain error: FetchAllImages converts it into a per-field warning
// instead of a fatal condition, since one bad image URL must not fail the
// whole fill.
func FetchImage(ctx context.Context, cfg RequestConfig) ([]byte, *FetchInfo, error) {
	return doRequest(ctx, cfg)
}

func doRequest(ctx context.Context, cfg RequestConfig) ([]byte, *FetchInfo, error) {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if len(cfg.Body) > 0 {
		bodyReader = bytes.NewReader(cfg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bodyReader)
	if err != nil {
		return nil, nil, pdferrors.Wrap(pdferrors.CodeTemplateUnavailable, fmt.Sprintf("failed to build request for %s", cfg.URL), err)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if len(cfg.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, pdferrors.Wrap(pdferrors.CodeTemplateUnavailable, fmt.Sprintf("request to %s failed", cfg.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, pdferrors.Newf(pdferrors.CodeTemplateUnavailable, "fetching %s returned status %d", cfg.URL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, pdferrors.Wrap(pdferrors.CodeTemplateUnavailable, fmt.Sprintf("failed to read response body from %s", cfg.URL), err)
	}

	return data, &FetchInfo{ETag: resp.Header.Get("ETag"), LastModified: resp.Header.Get("Last-Modified")}, nil
}

// Revalidate issues a conditional HEAD request and reports whether the
// cached response (identified by etag/lastModified) is still fresh, i.e.
// the server answered 304 Not Modified.
func Revalidate(ctx context.Context, cfg RequestConfig, etag, lastModified string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.URL, nil)
	if err != nil {
		return false, err
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusNotModified, nil
}

// FetchAllImages resolves every signature/image field whose Value is still
// a fields.URLSource, running up to maxConcurrentImageFetches requests
// concurrently. A field that fetches successfully gets its Value replaced
// with the downloaded bytes; one that fails is dropped (via a warning
// recorded on mc, never a Go error) before fields.Render ever sees it,
// matching spec's "Skipped URL image for field {id}" non-fatal path. Field
// order in the returned slice matches fieldList.
func FetchAllImages(ctx context.Context, fieldList []fields.Field, mc *metadata.Collector) []fields.Field {
	type job struct {
		index int
		src   fields.URLSource
	}

	var jobs []job
	for i, f := range fieldList {
		if src, ok := f.Value.(fields.URLSource); ok {
			jobs = append(jobs, job{index: i, src: src})
		}
	}
	if len(jobs) == 0 {
		return fieldList
	}

	out := make([]fields.Field, len(fieldList))
	copy(out, fieldList)

	results := make(chan struct {
		index int
		data  []byte
		err   error
	}, len(jobs))

	sem := make(chan struct{}, maxConcurrentImageFetches)
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, _, err := FetchImage(ctx, RequestConfig{URL: j.src.URL, Method: j.src.Method, Headers: j.src.Headers, Body: j.src.Body})
			results <- struct {
				index int
				data  []byte
				err   error
			}{index: j.index, data: data, err: err}
		}(j)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	dropped := make(map[int]bool)
	for r := range results {
		if r.err != nil {
			mc.Warnf("Skipped URL image for field %s", fieldList[r.index].FieldID)
			dropped[r.index] = true
			continue
		}
		out[r.index].Value = r.data
	}

	if len(dropped) == 0 {
		return out
	}

	filtered := make([]fields.Field, 0, len(out))
	for i, f := range out {
		if dropped[i] {
			mc.RecordSkipped()
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered
}
