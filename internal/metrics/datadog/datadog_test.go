package datadog

import (
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"fareqa/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if b, err := NewBackend(Config{}); err == nil || b != nil {
		t.Fatalf("NewBackend(empty) = %v, %v; want nil, error", b, err)
	}
}

func TestTags(t *testing.T) {
	t.Parallel()

	got := tags(metrics.Labels{"step": "load", "job": "fareqa", "status": "success"})
	want := []string{"job:fareqa", "status:success", "step:load"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	if tags(nil) != nil {
		t.Fatalf("tags(nil) should be nil")
	}
}

func TestBackend_SendsToAgent(t *testing.T) {
	t.Parallel()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp not available: %v", err)
	}
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String(), Namespace: "qa."})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer b.Close()

	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"kind": "loaded"})
	b.SetGauge(metrics.QualityScore, 97.5, metrics.Labels{"name": "overall"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	var got strings.Builder
	buf := make([]byte, 65536)
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(got.String(), "qa.fareqa_quality_score") || !strings.Contains(got.String(), "qa.fareqa_rows_total") {
		if err := conn.SetReadDeadline(deadline); err != nil {
			t.Fatal(err)
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read: %v (received %q)", err, got.String())
		}
		got.Write(buf[:n])
		got.WriteByte('\n')
	}
	if !strings.Contains(got.String(), "qa.fareqa_quality_score:97.5|g|#name:overall") {
		t.Fatalf("gauge packet missing: %q", got.String())
	}
}

func TestBackend_NilClient(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.RowsTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
	b.SetGauge(metrics.QualityScore, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
