package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8888)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	RecordFetch("example.com", 200, "", false, "", 11, 1*time.Second)
	RecordRun("completed", 42*time.Second)
	EnrichmentsTotal.WithLabelValues("fallback").Inc()

	resp, err := http.Get("http://localhost:8888/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	if !strings.Contains(output, "dossier_fetches_total") {
		t.Errorf("expected dossier_fetches_total metric")
	}
	if !strings.Contains(output, "dossier_fetch_duration_seconds_bucket") {
		t.Errorf("expected dossier_fetch_duration_seconds metric")
	}
	if !strings.Contains(output, `dossier_fetch_bytes_total{domain="example.com"}`) {
		t.Errorf("expected dossier_fetch_bytes_total metric for example.com")
	}
	if !strings.Contains(output, `dossier_runs_total{status="completed"}`) {
		t.Errorf("expected dossier_runs_total metric")
	}
	if !strings.Contains(output, `dossier_enrichments_total{mode="fallback"}`) {
		t.Errorf("expected dossier_enrichments_total metric")
	}
}
