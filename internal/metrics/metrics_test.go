package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_ImportLifecycle(t *testing.T) {
	m := New()

	m.ObservePhase("run", core.PhaseIdle, core.PhaseFileLoaded)
	m.ObservePhase("run", core.PhaseImporting, core.PhaseDone)
	m.ObservePhase("run2", core.PhaseFileLoaded, core.PhaseFailed)
	m.ObserveAnalysis(&core.Analysis{
		Detection: core.DetectionResult{Delimiter: core.Tab, Strategy: core.StrategySniff},
		Source:    core.SourceDirective,
	})
	m.ObserveAnalysis(&core.Analysis{Detection: core.DetectionResult{Delimiter: core.Comma, Strategy: core.StrategyDefault}})
	m.ObserveOutcome(&core.ImportOutcome{Added: 7, SkippedEmpty: 2, Duration: 30 * time.Millisecond})

	out := scrape(t, m)
	assert.Contains(t, out, `cardimport_import_phase_transitions_total{phase="file_loaded"} 1`)
	assert.Contains(t, out, `cardimport_imports_total{result="done"} 1`)
	assert.Contains(t, out, `cardimport_imports_total{result="failed"} 1`)
	assert.Contains(t, out, `cardimport_notes_added_total 7`)
	assert.Contains(t, out, `cardimport_rows_skipped_total 2`)
	assert.Contains(t, out, `cardimport_delimiter_detections_total{delimiter="Tab",strategy="sniff"} 1`)
	assert.Contains(t, out, `cardimport_notetype_resolutions_total{source="directive"} 1`)
	assert.Contains(t, out, `cardimport_notetype_resolutions_total{source="none"} 1`)
	assert.Contains(t, out, "cardimport_import_duration_seconds_count 1")
}

func TestMetrics_HTTPAndLimiter(t *testing.T) {
	m := New()
	l := core.NewImportLimiter(3, time.Second)
	m.WatchLimiter(l)
	release, ok := l.TryAcquire("deck.csv")
	require.True(t, ok)
	defer release()

	m.ObserveHTTP("POST", "/api/import", 200, 5*time.Millisecond)
	m.ObserveHTTP("GET", "", 404, time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `cardimport_http_requests_total{method="POST",route="/api/import",status="200"} 1`)
	assert.Contains(t, out, `route="unmatched",status="404"`)
	assert.Contains(t, out, "cardimport_imports_active 1")
	assert.Contains(t, out, "cardimport_imports_max_concurrent 3")
}

func TestMetrics_NilSafe(t *testing.T) {
	m := New()
	m.ObserveAnalysis(nil)
	m.ObserveOutcome(nil)
}
