package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	url, err := store.Upload(context.Background(), []byte("<svg/>"), "image/svg+xml")
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/static/diagrams/") {
		t.Fatalf("url = %q, want the public prefix", url)
	}
	if !strings.HasSuffix(url, ".svg") {
		t.Fatalf("url = %q, want .svg extension", url)
	}

	rel := strings.TrimPrefix(url, "http://localhost:8080/static/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("stored file unreadable: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Fatalf("stored bytes = %q", data)
	}
}

func TestFileStoreUploadExtensions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://x")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	cases := []struct {
		contentType string
		wantSuffix  string
	}{
		{"image/png", ".png"},
		{"image/jpeg", ".jpg"},
		{"application/octet-stream", ".bin"},
	}
	for _, tc := range cases {
		url, err := store.Upload(context.Background(), []byte("x"), tc.contentType)
		if err != nil {
			t.Fatalf("Upload(%q) returned error: %v", tc.contentType, err)
		}
		if !strings.HasSuffix(url, tc.wantSuffix) {
			t.Fatalf("Upload(%q) url = %q, want suffix %q", tc.contentType, url, tc.wantSuffix)
		}
	}
}

func TestFileStoreUploadRejectsEmptyArtifact(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://x")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	if _, err := store.Upload(context.Background(), nil, "image/png"); err == nil {
		t.Fatal("empty artifact accepted")
	}
}

func TestFileStoreUploadHonorsContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://x")
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Upload(ctx, []byte("x"), "image/png"); err == nil {
		t.Fatal("cancelled context accepted")
	}
}

func TestNewFileStoreRequiresBasePath(t *testing.T) {
	if _, err := NewFileStore("  ", "http://x"); err == nil {
		t.Fatal("empty base path accepted")
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"diagrams/2025/01/02/a.svg", "diagrams/2025/01/02/a.svg", false},
		{"/leading/slash.png", "leading/slash.png", false},
		{"./dotted/key.png", "dotted/key.png", false},
		{"../escape.png", "", true},
		{"a/../../escape.png", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) accepted, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
