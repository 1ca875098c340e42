package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"fareqa/internal/config"
	"fareqa/internal/datasource/httpds"
)

var zipMagic = []byte("PK\x03\x04")

// Downloader fetches one Kaggle dataset into a directory.
type Downloader struct {
	dataset string
	dir     string
	file    string
	baseURL string
	client  *httpds.Client
}

// NewDownloader builds a Downloader for cfg. The credentials are sent as
// HTTP basic auth; httpCfg supplies timeouts and retries.
func NewDownloader(cfg config.Download, creds Credentials, httpCfg httpds.Config) *Downloader {
	httpCfg.Username = creds.Username
	httpCfg.Password = creds.Key
	if httpCfg.UserAgent == "" {
		httpCfg.UserAgent = "fareqa-ingest"
	}
	return &Downloader{
		dataset: cfg.Dataset,
		dir:     cfg.Dir,
		file:    cfg.File,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpds.NewClient(httpCfg),
	}
}

// Target is the path of the expected dataset file.
func (d *Downloader) Target() string { return filepath.Join(d.dir, d.file) }

// URL is the Kaggle API endpoint of the dataset archive.
func (d *Downloader) URL() string {
	return d.baseURL + "/api/v1/datasets/download/" + (&url.URL{Path: d.dataset}).EscapedPath()
}

// Download fetches and unpacks the dataset and returns the path of the
// expected file. Nothing is fetched when that file already exists.
func (d *Downloader) Download(ctx context.Context) (string, error) {
	target := d.Target()
	if _, err := os.Stat(target); err == nil {
		log.Printf("ingest: dataset already present at %s", target)
		return target, nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}
	defer os.Remove(tmp.Name())

	log.Printf("ingest: downloading %s", d.dataset)
	n, err := d.client.Fetch(ctx, d.URL(), tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("ingest: download %s: %w", d.dataset, err)
	}
	log.Printf("ingest: received %d bytes", n)

	isZip, err := hasPrefix(tmp.Name(), zipMagic)
	if err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}
	if isZip {
		if err := unzip(tmp.Name(), d.dir); err != nil {
			return "", err
		}
	} else if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("ingest: %w", err)
	}

	if _, err := os.Stat(target); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileMissing, target)
	}
	log.Printf("ingest: dataset downloaded to %s", target)
	return target, nil
}

func hasPrefix(path string, prefix []byte) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, len(prefix))
	if _, err := io.ReadFull(f, head); err != nil {
		return false, nil
	}
	return bytes.Equal(head, prefix), nil
}

// unzip extracts every regular file of the archive into dir. Entries that
// would land outside dir are rejected.
func unzip(archive, dir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("ingest: open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("ingest: archive entry %q escapes %s", f.Name, dir)
		}
		dst := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		if err := extract(f, dst); err != nil {
			return fmt.Errorf("ingest: extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extract(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
