// Package alert maps one reading plus the anomaly verdict to the cycle's
// alerts and aggregate health. Everything here is a pure function of its
// inputs; alerts carry no identity and do not outlive the cycle.
package alert

import (
	"fmt"
	"time"

	"codeberg.org/mutker/printwatch/internal/anomaly"
	"codeberg.org/mutker/printwatch/internal/printer"
)

type Kind string

const (
	KindHardFailure        Kind = "HARD_FAILURE"
	KindFilamentJam        Kind = "FILAMENT_JAM"
	KindPredictiveOverheat Kind = "PREDICTIVE_ALERT"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Health is the aggregate system status derived from the cycle's alerts.
type Health string

const (
	HealthNormal  Health = "normal"
	HealthWarning Health = "warning"
	HealthError   Health = "error"
)

type Alert struct {
	Kind     Kind
	Severity Severity
	// Message is the human-readable text published in the snapshot.
	Message string
	// Detail is the triggering value, rendered for the audit log payload.
	Detail string
	// Summary is the short machine description in the audit log payload.
	Summary   string
	Timestamp time.Time
}

// Evaluate applies the classification rules independently, so alerts can
// co-occur. Health is error when any critical alert fired, warning when any
// alert fired, normal otherwise. It is recomputed from scratch every cycle;
// there is no latching or debounce, so a condition that clears on the next
// reading clears its alert immediately.
func Evaluate(reading printer.Reading, verdict anomaly.Verdict) ([]Alert, Health) {
	var alerts []Alert
	ts := reading.Timestamp

	if reading.PrinterStatus == printer.StatusError {
		alerts = append(alerts, Alert{
			Kind:      KindHardFailure,
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("Hard Failure Alert: Printer in error state at %s", ts.Format(time.RFC3339)),
			Detail:    string(reading.PrinterStatus),
			Summary:   "Printer error state",
			Timestamp: ts,
		})
	}

	if reading.FilamentStatus == printer.FilamentJammed {
		alerts = append(alerts, Alert{
			Kind:      KindFilamentJam,
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("Filament Jam Alert: Filament is jammed at %s", ts.Format(time.RFC3339)),
			Detail:    string(reading.FilamentStatus),
			Summary:   "Filament blockage",
			Timestamp: ts,
		})
	}

	if verdict == anomaly.VerdictAnomalous {
		alerts = append(alerts, Alert{
			Kind:     KindPredictiveOverheat,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("Predictive Alert: Potential Overheating Detected! Temp: %.1f°C at %s",
				reading.NozzleTemp, ts.Format(time.RFC3339)),
			Detail:    fmt.Sprintf("%.1f", reading.NozzleTemp),
			Summary:   "Overheating detected",
			Timestamp: ts,
		})
	}

	return alerts, healthOf(alerts)
}

func healthOf(alerts []Alert) Health {
	if len(alerts) == 0 {
		return HealthNormal
	}
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			return HealthError
		}
	}
	return HealthWarning
}

// Messages projects alerts onto their rendered text, in firing order.
func Messages(alerts []Alert) []string {
	messages := make([]string, 0, len(alerts))
	for _, a := range alerts {
		messages = append(messages, a.Message)
	}
	return messages
}
