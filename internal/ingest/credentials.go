// Package ingest downloads the flight dataset from Kaggle and checks the
// integrity of the downloaded file.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNoCredentials means neither KAGGLE_USERNAME/KAGGLE_KEY nor a
	// kaggle.json file provided API credentials.
	ErrNoCredentials = errors.New("ingest: kaggle credentials not configured")

	// ErrFileMissing means the download did not produce the expected file.
	ErrFileMissing = errors.New("ingest: expected file not found after download")
)

// Credentials are a Kaggle API username and key.
type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// LoadCredentials resolves Kaggle credentials the way the Kaggle CLI does:
// KAGGLE_USERNAME and KAGGLE_KEY first, then kaggle.json in
// KAGGLE_CONFIG_DIR or <home>/.kaggle.
func LoadCredentials(getenv func(string) string, home string) (Credentials, error) {
	if u, k := getenv("KAGGLE_USERNAME"), getenv("KAGGLE_KEY"); u != "" && k != "" {
		return Credentials{Username: u, Key: k}, nil
	}

	dir := getenv("KAGGLE_CONFIG_DIR")
	if dir == "" {
		if home == "" {
			return Credentials{}, ErrNoCredentials
		}
		dir = filepath.Join(home, ".kaggle")
	}
	path := filepath.Join(dir, "kaggle.json")
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, fmt.Errorf("%w: no %s", ErrNoCredentials, path)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, fmt.Errorf("ingest: decode %s: %w", path, err)
	}
	if c.Username == "" || c.Key == "" {
		return Credentials{}, fmt.Errorf("%w: %s lacks username or key", ErrNoCredentials, path)
	}
	return c, nil
}
