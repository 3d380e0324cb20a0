package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/benedoc-inc/fillpdf/cmd/fillpdf/config"
	"github.com/benedoc-inc/fillpdf/internal/metadata"
)

func TestResolveTemplate_LocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 local"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg := &config.FillConfig{Template: path}
	data, err := resolveTemplate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("resolveTemplate failed: %v", err)
	}
	if string(data) != "%PDF-1.4 local" {
		t.Errorf("unexpected bytes: %s", data)
	}
}

func TestResolveTemplate_MissingLocalPathIsError(t *testing.T) {
	cfg := &config.FillConfig{Template: "/nonexistent/template.pdf"}
	if _, err := resolveTemplate(context.Background(), cfg); err == nil {
		t.Fatal("expected error for a missing local template")
	}
}

func TestResolveTemplate_BareURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 remote"))
	}))
	defer srv.Close()

	cfg := &config.FillConfig{Template: srv.URL}
	data, err := resolveTemplate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("resolveTemplate failed: %v", err)
	}
	if string(data) != "%PDF-1.4 remote" {
		t.Errorf("unexpected bytes: %s", data)
	}
}

func TestResolveTemplate_InlineJSONDescriptor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("%PDF-1.4 authed"))
	}))
	defer srv.Close()

	cfg := &config.FillConfig{Template: `{"url": "` + srv.URL + `", "headers": {"Authorization": "Bearer tok"}}`}
	data, err := resolveTemplate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("resolveTemplate failed: %v", err)
	}
	if string(data) != "%PDF-1.4 authed" {
		t.Errorf("unexpected bytes: %s", data)
	}
}

func TestResolveTemplate_InlineJSONMissingURLIsError(t *testing.T) {
	cfg := &config.FillConfig{Template: `{"method": "GET"}`}
	if _, err := resolveTemplate(context.Background(), cfg); err == nil {
		t.Fatal("expected error when inline JSON template descriptor has no url")
	}
}

func TestResolveTemplate_MalformedInlineJSONIsError(t *testing.T) {
	cfg := &config.FillConfig{Template: `{not valid json`}
	if _, err := resolveTemplate(context.Background(), cfg); err == nil {
		t.Fatal("expected error for malformed inline JSON template descriptor")
	}
}

func TestFetchTemplateRemote_CachesAcrossCalls(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("%PDF-1.4 cached"))
	}))
	defer srv.Close()

	cfg := &config.FillConfig{
		Template: srv.URL,
		Cache:    true,
		CacheDir: t.TempDir(),
		CacheTTL: 3600,
	}

	first, err := resolveTemplate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first resolveTemplate failed: %v", err)
	}
	second, err := resolveTemplate(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second resolveTemplate failed: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("expected cached bytes to match: %q vs %q", first, second)
	}
	if hits != 1 {
		t.Errorf("expected exactly 1 GET request, server saw %d", hits)
	}
}

func TestFetchTemplateRemote_CacheRefreshBypassesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("%PDF-1.4 v" + string(rune('0'+hits))))
	}))
	defer srv.Close()

	cfg := &config.FillConfig{
		Template: srv.URL,
		Cache:    true,
		CacheDir: t.TempDir(),
		CacheTTL: 3600,
	}

	if _, err := resolveTemplate(context.Background(), cfg); err != nil {
		t.Fatalf("first resolveTemplate failed: %v", err)
	}
	cfg.CacheRefresh = true
	if _, err := resolveTemplate(context.Background(), cfg); err != nil {
		t.Fatalf("second resolveTemplate failed: %v", err)
	}
	if hits != 2 {
		t.Errorf("expected --cache-refresh to force a second fetch, server saw %d hits", hits)
	}
}

func TestMergeMetadata_CombinesWarningsErrorsAndSkipCounts(t *testing.T) {
	fetchMeta := &metadata.Metadata{
		FieldsSkipped: 1,
		Warnings:      []string{"Skipped URL image for field logo"},
	}
	fillMeta := &metadata.Metadata{
		Pages:           []metadata.PageInfo{{PageNumber: 0, Width: 612, Height: 792, FieldsCount: 2}},
		FieldsProcessed: 2,
		FieldsSkipped:   1,
		Warnings:        []string{"unknown fit_mode"},
		Errors:          []string{"image decode failed"},
	}

	merged := mergeMetadata(fetchMeta, fillMeta)

	if merged.FieldsSkipped != 2 {
		t.Errorf("expected combined skipped count of 2, got %d", merged.FieldsSkipped)
	}
	if merged.FieldsProcessed != 2 {
		t.Errorf("expected processed count carried from fill metadata, got %d", merged.FieldsProcessed)
	}
	if len(merged.Warnings) != 2 || merged.Warnings[0] != fetchMeta.Warnings[0] || merged.Warnings[1] != fillMeta.Warnings[0] {
		t.Errorf("unexpected merged warnings: %v", merged.Warnings)
	}
	if len(merged.Errors) != 1 || merged.Errors[0] != "image decode failed" {
		t.Errorf("unexpected merged errors: %v", merged.Errors)
	}
	if len(merged.Pages) != 1 {
		t.Errorf("expected pages to be carried from fill metadata, got %v", merged.Pages)
	}
}
