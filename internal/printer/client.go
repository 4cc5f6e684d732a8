package printer

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
	"github.com/relvacode/iso8601"
)

const defaultFetchTimeout = 5 * time.Second

type Config struct {
	SourceURL    string
	FetchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SourceURL:    "http://localhost:5000/api/v1/printer/status",
		FetchTimeout: defaultFetchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.SourceURL == "" {
		return errFactory.New(ErrInvalidSourceURL)
	}
	if c.FetchTimeout <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "fetch timeout must be positive")
	}
	return nil
}

// wireReading is the JSON schema the telemetry source answers with. The
// timestamp arrives as an ISO-8601 string and is parsed before a Reading
// is handed to the rest of the engine.
type wireReading struct {
	Timestamp      string  `json:"timestamp"`
	NozzleTemp     float64 `json:"nozzle_temp"`
	BedTemp        float64 `json:"bed_temp"`
	PrinterStatus  string  `json:"printer_status"`
	FilamentStatus string  `json:"filament_status"`
	PrintProgress  float64 `json:"print_progress"`
}

// Client polls the printer's status endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
	}, nil
}

// Fetch retrieves one Reading. The request is bounded by both the configured
// fetch timeout and the caller's context, so a hung source cannot outlive a
// shutdown signal.
func (c *Client) Fetch(ctx context.Context) (Reading, error) {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SourceURL, http.NoBody)
	if err != nil {
		return Reading{}, errFactory.Wrap(ErrFetchFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, errFactory.Wrap(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, errFactory.WithData(ErrUnexpectedStatus, resp.StatusCode)
	}

	var wire wireReading
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Reading{}, errFactory.Wrap(ErrMalformedPayload, err)
	}

	return wire.toReading()
}

func (w wireReading) toReading() (Reading, error) {
	errFactory := errors.New()

	ts, err := iso8601.ParseString(w.Timestamp)
	if err != nil {
		return Reading{}, errFactory.WithData(ErrInvalidTimestamp, w.Timestamp)
	}

	reading := Reading{
		Timestamp:      ts,
		NozzleTemp:     w.NozzleTemp,
		BedTemp:        w.BedTemp,
		PrinterStatus:  Status(w.PrinterStatus),
		FilamentStatus: FilamentStatus(w.FilamentStatus),
		PrintProgress:  w.PrintProgress,
	}
	if err := reading.Validate(); err != nil {
		return Reading{}, err
	}

	return reading, nil
}
