package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_CallsOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "flights.csv")
	if err := os.WriteFile(path, []byte("Fare\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var calls int32
	done := make(chan error, 1)
	w := New(path, 20*time.Millisecond)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				return errors.New("first run fails")
			}
			cancel()
			return nil
		})
	}()

	// Keep touching the file until the callback has run twice; the first
	// writes may land before the watcher is registered.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if n := atomic.LoadInt32(&calls); n < 2 {
				t.Fatalf("callback ran %d times, want at least 2", n)
			}
			return
		case <-ticker.C:
			body := fmt.Sprintf("Fare\n%d\n", i)
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			future := time.Now().Add(time.Duration(i+1) * time.Second)
			if err := os.Chtimes(path, future, future); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestRun_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "flights.csv")
	if err := os.WriteFile(path, []byte("Fare\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var calls int32
	go func() {
		for i := 0; i < 5; i++ {
			os.WriteFile(filepath.Join(dir, "other.csv"), []byte(fmt.Sprint(i)), 0o644)
			time.Sleep(30 * time.Millisecond)
		}
	}()
	err := New(path, 10*time.Millisecond).Run(ctx, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("callback ran %d times for unrelated files", n)
	}
}

func TestRun_MissingDir(t *testing.T) {
	t.Parallel()

	err := New(filepath.Join(t.TempDir(), "nope", "flights.csv"), 0).Run(context.Background(), func(context.Context) error { return nil })
	if err == nil {
		t.Fatalf("expected an error for a missing directory")
	}
}
