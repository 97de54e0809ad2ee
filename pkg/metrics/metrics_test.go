package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)

	assert.GreaterOrEqual(t, timer.Duration(), 20*time.Millisecond)
}

func TestTimerObserveDurationVec(t *testing.T) {
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_duration_seconds",
		Help: "Test duration histogram",
	}, []string{"cluster"})

	NewTimer().ObserveDurationVec(histogram, "web")

	assert.Equal(t, 1, testutil.CollectAndCount(histogram))
}

func TestReconcileActionsCounter(t *testing.T) {
	ReconcileActions.WithLabelValues("counter-test", "create").Inc()
	ReconcileActions.WithLabelValues("counter-test", "create").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(ReconcileActions.WithLabelValues("counter-test", "create")))
}

func TestWriteTextfile(t *testing.T) {
	NodeRuns.WithLabelValues("textfile-test", "success").Inc()

	path := filepath.Join(t.TempDir(), "herd.prom")
	require.NoError(t, WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(content), `herd_node_runs_total{cluster="textfile-test",result="success"} 1`))
}

func TestWriteTextfileMissingDirectory(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "herd.prom"))

	assert.Error(t, err)
}
