package printer

import (
	"math"
	"time"

	"codeberg.org/mutker/printwatch/internal/errors"
)

// Status is the reported operating state of the printer.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusPrinting Status = "printing"
	StatusError    Status = "error"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusIdle, StatusPrinting, StatusError:
		return true
	default:
		return false
	}
}

// FilamentStatus is the reported state of the filament feed.
type FilamentStatus string

const (
	FilamentOK     FilamentStatus = "ok"
	FilamentJammed FilamentStatus = "jammed"
)

func (s FilamentStatus) IsValid() bool {
	switch s {
	case FilamentOK, FilamentJammed:
		return true
	default:
		return false
	}
}

// Reading is one telemetry sample from the printer. Immutable once built.
type Reading struct {
	Timestamp      time.Time      `json:"timestamp"`
	NozzleTemp     float64        `json:"nozzle_temp"`
	BedTemp        float64        `json:"bed_temp"`
	PrinterStatus  Status         `json:"printer_status"`
	FilamentStatus FilamentStatus `json:"filament_status"`
	PrintProgress  float64        `json:"print_progress"`
}

func (r Reading) Validate() error {
	errFactory := errors.New()

	if !r.PrinterStatus.IsValid() {
		return errFactory.WithData(ErrInvalidReading, struct {
			Field string
			Value string
		}{"printer_status", string(r.PrinterStatus)})
	}
	if !r.FilamentStatus.IsValid() {
		return errFactory.WithData(ErrInvalidReading, struct {
			Field string
			Value string
		}{"filament_status", string(r.FilamentStatus)})
	}
	if !isFinite(r.NozzleTemp) || !isFinite(r.BedTemp) {
		return errFactory.WithMessage(ErrInvalidReading, "temperatures must be finite")
	}
	if !isFinite(r.PrintProgress) || r.PrintProgress < 0 || r.PrintProgress > 100 {
		return errFactory.WithData(ErrInvalidReading, struct {
			Field string
			Value float64
		}{"print_progress", r.PrintProgress})
	}
	if r.Timestamp.IsZero() {
		return errFactory.WithMessage(ErrInvalidReading, "timestamp must be set")
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
