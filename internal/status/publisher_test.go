package status_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/printwatch/internal/alert"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printer"
	"codeberg.org/mutker/printwatch/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", false); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newPublisher(t *testing.T) (*status.Publisher, status.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := status.Config{
		StatusPath: filepath.Join(dir, "status.json"),
		AuditPath:  filepath.Join(dir, "alerts.log"),
	}
	p, err := status.NewPublisher(cfg, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, cfg
}

func sampleSnapshot(alerts []string, health alert.Health) status.Snapshot {
	return status.Snapshot{
		CurrentData: printer.Reading{
			Timestamp:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			NozzleTemp:     210.5,
			BedTemp:        60.1,
			PrinterStatus:  printer.StatusPrinting,
			FilamentStatus: printer.FilamentOK,
			PrintProgress:  45.2,
		},
		ActiveAlerts: alerts,
		LastUpdated:  time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC),
		SystemStatus: health,
	}
}

func TestPublishWritesSnapshot(t *testing.T) {
	p, cfg := newPublisher(t)

	require.NoError(t, p.Publish(sampleSnapshot([]string{"Hard Failure Alert: Printer in error state"}, alert.HealthError)))

	data, err := os.ReadFile(cfg.StatusPath)
	require.NoError(t, err)

	var got status.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, alert.HealthError, got.SystemStatus)
	assert.Equal(t, printer.StatusPrinting, got.CurrentData.PrinterStatus)
	assert.InDelta(t, 210.5, got.CurrentData.NozzleTemp, 1e-9)
	require.Len(t, got.ActiveAlerts, 1)
}

func TestPublishIdempotent(t *testing.T) {
	p, cfg := newPublisher(t)
	snapshot := sampleSnapshot([]string{}, alert.HealthNormal)

	require.NoError(t, p.Publish(snapshot))
	first, err := os.ReadFile(cfg.StatusPath)
	require.NoError(t, err)

	require.NoError(t, p.Publish(snapshot))
	second, err := os.ReadFile(cfg.StatusPath)
	require.NoError(t, err)

	assert.Equal(t, first, second, "republishing the same snapshot must not change what readers see")
}

func TestPublishReplacesWholesale(t *testing.T) {
	p, cfg := newPublisher(t)

	require.NoError(t, p.Publish(sampleSnapshot([]string{"a", "b"}, alert.HealthError)))
	require.NoError(t, p.Publish(sampleSnapshot([]string{}, alert.HealthNormal)))

	data, err := os.ReadFile(cfg.StatusPath)
	require.NoError(t, err)

	var got status.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, alert.HealthNormal, got.SystemStatus)
	assert.Empty(t, got.ActiveAlerts, "snapshot is not an accumulating log")
}

func TestConcurrentReadersNeverSeePartialSnapshot(t *testing.T) {
	p, cfg := newPublisher(t)
	require.NoError(t, p.Publish(sampleSnapshot([]string{}, alert.HealthNormal)))

	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		alerts := []string{strings.Repeat("Predictive Alert: Potential Overheating Detected! ", 50)}
		for i := 0; i < 200; i++ {
			if err := p.Publish(sampleSnapshot(alerts, alert.HealthWarning)); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				data, err := os.ReadFile(cfg.StatusPath)
				if err != nil {
					t.Error(err)
					return
				}
				var got status.Snapshot
				if err := json.Unmarshal(data, &got); err != nil {
					t.Errorf("reader observed a torn snapshot: %v", err)
					return
				}
			}
		}()
	}

	// Let readers overlap the writer, then stop them
	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()
}

func sampleAlerts() []alert.Alert {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return []alert.Alert{
		{
			Kind:      alert.KindHardFailure,
			Severity:  alert.SeverityCritical,
			Message:   "Hard Failure Alert: Printer in error state at 2024-06-01T12:00:00Z",
			Detail:    "error",
			Summary:   "Printer error state",
			Timestamp: ts,
		},
		{
			Kind:      alert.KindPredictiveOverheat,
			Severity:  alert.SeverityWarning,
			Message:   "Predictive Alert: Potential Overheating Detected! Temp: 230.0°C at 2024-06-01T12:00:00Z",
			Detail:    "230.0",
			Summary:   "Overheating detected",
			Timestamp: ts,
		},
	}
}

func TestRecordAlertsFormat(t *testing.T) {
	p, cfg := newPublisher(t)

	require.NoError(t, p.RecordAlerts(sampleAlerts()))

	data, err := os.ReadFile(cfg.AuditPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	head := strings.SplitN(lines[0], " - ", 3)
	require.Len(t, head, 3)
	_, err = time.Parse(time.RFC3339, head[0])
	assert.NoError(t, err, "audit line must start with a timestamp")
	assert.Equal(t, "ERROR", head[1], "critical alerts map to ERROR lines")

	payload := strings.Split(head[2], "|")
	require.Len(t, payload, 4)
	assert.Equal(t, "HARD_FAILURE", payload[0])
	assert.Equal(t, "2024-06-01T12:00:00Z", payload[1])
	assert.Equal(t, "error", payload[2])
	assert.Equal(t, "Printer error state", payload[3])

	warnHead := strings.SplitN(lines[1], " - ", 3)
	require.Len(t, warnHead, 3)
	assert.Equal(t, "WARNING", warnHead[1], "warning alerts map to WARNING lines")
	assert.Equal(t, "PREDICTIVE_ALERT|2024-06-01T12:00:00Z|230.0|Overheating detected", warnHead[2])
}

func TestRecordAlertsAppendsOnly(t *testing.T) {
	p, cfg := newPublisher(t)

	require.NoError(t, p.RecordAlerts(sampleAlerts()))
	first, err := os.ReadFile(cfg.AuditPath)
	require.NoError(t, err)

	require.NoError(t, p.RecordAlerts(sampleAlerts()))
	second, err := os.ReadFile(cfg.AuditPath)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(second), string(first)),
		"existing audit bytes must never be rewritten")
	assert.Len(t, strings.Split(strings.TrimRight(string(second), "\n"), "\n"), 4)
}

func TestRecordNoAlertsWritesNothing(t *testing.T) {
	p, cfg := newPublisher(t)

	require.NoError(t, p.RecordAlerts(nil))

	data, err := os.ReadFile(cfg.AuditPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}
