package printer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/mutker/printwatch/internal/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, url string, timeout time.Duration) *printer.Client {
	t.Helper()
	client, err := printer.NewClient(printer.Config{
		SourceURL:    url,
		FetchTimeout: timeout,
	})
	require.NoError(t, err)
	return client
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"printer_status": "printing",
			"nozzle_temp": 210.5,
			"bed_temp": 60.1,
			"print_progress": 45.2,
			"filament_status": "ok",
			"timestamp": "2024-06-01T12:00:00Z"
		}`))
	})

	reading, err := newClient(t, srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, printer.StatusPrinting, reading.PrinterStatus)
	assert.Equal(t, printer.FilamentOK, reading.FilamentStatus)
	assert.InDelta(t, 210.5, reading.NozzleTemp, 1e-9)
	assert.InDelta(t, 60.1, reading.BedTemp, 1e-9)
	assert.InDelta(t, 45.2, reading.PrintProgress, 1e-9)
	assert.True(t, reading.Timestamp.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestFetchAcceptsZonelessTimestamp(t *testing.T) {
	// The simulator emits datetime.isoformat(): fractional seconds, no zone
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"printer_status": "idle",
			"nozzle_temp": 25.0,
			"bed_temp": 25.0,
			"print_progress": 0.0,
			"filament_status": "ok",
			"timestamp": "2024-06-01T12:00:00.123456"
		}`))
	})

	reading, err := newClient(t, srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, printer.StatusIdle, reading.PrinterStatus)
	assert.Equal(t, 2024, reading.Timestamp.Year())
}

func TestFetchRejectsNonOKStatus(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newClient(t, srv.URL, time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer_unexpected_http_status")
}

func TestFetchRejectsMalformedPayload(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := newClient(t, srv.URL, time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer_malformed_payload")
}

func TestFetchRejectsUnknownStatus(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"printer_status": "on_fire",
			"nozzle_temp": 210.5,
			"bed_temp": 60.1,
			"print_progress": 45.2,
			"filament_status": "ok",
			"timestamp": "2024-06-01T12:00:00Z"
		}`))
	})

	_, err := newClient(t, srv.URL, time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer_invalid_reading")
}

func TestFetchRejectsBadTimestamp(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"printer_status": "printing",
			"nozzle_temp": 210.5,
			"bed_temp": 60.1,
			"print_progress": 45.2,
			"filament_status": "ok",
			"timestamp": "yesterday"
		}`))
	})

	_, err := newClient(t, srv.URL, time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer_invalid_timestamp")
}

func TestFetchTimesOut(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	start := time.Now()
	_, err := newClient(t, srv.URL, 50*time.Millisecond).Fetch(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "fetch must respect its timeout")
}

func TestFetchHonorsCancelledContext(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(t, srv.URL, 5*time.Second).Fetch(ctx)
	require.Error(t, err, "a hung fetch must not outlive shutdown")
}

func TestClientConfigValidation(t *testing.T) {
	_, err := printer.NewClient(printer.Config{FetchTimeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "printer_invalid_source_url")

	_, err = printer.NewClient(printer.Config{SourceURL: "http://localhost:5000"})
	require.Error(t, err)
}
