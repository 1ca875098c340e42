package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"fareqa/internal/config"
	"fareqa/internal/dataset"
	"fareqa/internal/datasource/httpds"
)

const sampleCSV = "Airline,Source,Destination,Total Fare (BDT)\n" +
	"Biman,DAC,CXB,1200\n" +
	"NovoAir,DAC,ZYL,2400\n"

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// kaggle serves body at the dataset download path when basic auth matches.
func kaggle(t *testing.T, body []byte, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		u, p, ok := r.BasicAuth()
		if !ok || u != "alice" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/api/v1/datasets/download/owner/flights" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func downloadConfig(dir, base string) config.Download {
	return config.Download{Dataset: "owner/flights", Dir: dir, File: "flights.csv", BaseURL: base}
}

func TestDownload_Zip(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := kaggle(t, zipOf(t, map[string]string{"flights.csv": sampleCSV}), &hits)
	dir := filepath.Join(t.TempDir(), "data", "01-raw")
	d := NewDownloader(downloadConfig(dir, srv.URL+"/"), Credentials{Username: "alice", Key: "secret"}, httpds.Config{})

	path, err := d.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != filepath.Join(dir, "flights.csv") {
		t.Fatalf("path = %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != sampleCSV {
		t.Fatalf("content = %q, %v", got, err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".download-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}

	// A second run finds the file and makes no request.
	if _, err := d.Download(context.Background()); err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
}

func TestDownload_PlainBody(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := kaggle(t, []byte(sampleCSV), &hits)
	dir := t.TempDir()
	d := NewDownloader(downloadConfig(dir, srv.URL), Credentials{Username: "alice", Key: "secret"}, httpds.Config{})
	path, err := d.Download(context.Background())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != sampleCSV {
		t.Fatalf("content = %q", got)
	}
}

func TestDownload_FileMissing(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := kaggle(t, zipOf(t, map[string]string{"other.csv": sampleCSV}), &hits)
	d := NewDownloader(downloadConfig(t.TempDir(), srv.URL), Credentials{Username: "alice", Key: "secret"}, httpds.Config{})
	if _, err := d.Download(context.Background()); !errors.Is(err, ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
}

func TestDownload_Unauthorized(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := kaggle(t, nil, &hits)
	d := NewDownloader(downloadConfig(t.TempDir(), srv.URL), Credentials{Username: "alice", Key: "wrong"}, httpds.Config{})
	if _, err := d.Download(context.Background()); !errors.Is(err, httpds.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDownload_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := kaggle(t, zipOf(t, map[string]string{"../evil.csv": sampleCSV}), &hits)
	root := t.TempDir()
	dir := filepath.Join(root, "raw")
	d := NewDownloader(downloadConfig(dir, srv.URL), Credentials{Username: "alice", Key: "secret"}, httpds.Config{})
	_, err := d.Download(context.Background())
	if err == nil {
		t.Fatalf("expected an error for an entry outside the target dir")
	}
	if _, err := os.Stat(filepath.Join(root, "evil.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("entry was written outside the target dir")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Parallel()

	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	c, err := LoadCredentials(env(map[string]string{"KAGGLE_USERNAME": "alice", "KAGGLE_KEY": "k1"}), "")
	if err != nil || c != (Credentials{Username: "alice", Key: "k1"}) {
		t.Fatalf("env credentials = %+v, %v", c, err)
	}

	home := t.TempDir()
	if _, err := LoadCredentials(env(nil), home); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}

	if err := os.MkdirAll(filepath.Join(home, ".kaggle"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, ".kaggle", "kaggle.json"), []byte(`{"username":"bob","key":"k2"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err = LoadCredentials(env(nil), home)
	if err != nil || c != (Credentials{Username: "bob", Key: "k2"}) {
		t.Fatalf("file credentials = %+v, %v", c, err)
	}

	cfgDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cfgDir, "kaggle.json"), []byte(`{"username":"carol"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCredentials(env(map[string]string{"KAGGLE_CONFIG_DIR": cfgDir}), home); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials for a key-less file, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "flights.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Verify(context.Background(), path, dataset.Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	sum := sha256.Sum256([]byte(sampleCSV))
	if !got.Exists || !got.Readable || got.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("integrity = %+v", got)
	}
	if got.SampleRows != 2 || got.SampleColumns != 4 || got.SizeMB != 0 {
		t.Fatalf("sample = %+v", got)
	}

	missing, err := Verify(context.Background(), filepath.Join(dir, "nope.csv"), dataset.Options{})
	if err != nil || missing.Exists || missing.Readable {
		t.Fatalf("missing = %+v, %v", missing, err)
	}

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("a,b\n1,2,3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Verify(context.Background(), bad, dataset.Options{})
	if err != nil || !b.Exists || b.Readable || b.Error == "" {
		t.Fatalf("bad = %+v, %v", b, err)
	}
}

func TestVerify_SamplesOnlyFirstRows(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("Fare\n")
	for i := 0; i < 20; i++ {
		b.WriteString("100\n")
	}
	b.WriteString("1,2\n") // malformed, but past the sample
	path := filepath.Join(t.TempDir(), "long.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Verify(context.Background(), path, dataset.Options{})
	if err != nil || !got.Readable || got.SampleRows != SampleRows {
		t.Fatalf("integrity = %+v, %v", got, err)
	}
}
