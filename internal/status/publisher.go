// Package status materializes each cycle's result for external viewers: a
// wholesale-replaced snapshot file and an append-only alert audit log.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/printwatch/internal/alert"
	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printer"
)

const (
	defaultStatusPath = "status.json"
	defaultAuditPath  = "alerts.log"

	snapshotPerm = 0o644
	auditPerm    = 0o644
)

// Snapshot is the externally visible current-status record, overwritten
// wholesale each cycle.
type Snapshot struct {
	CurrentData  printer.Reading `json:"current_data"`
	ActiveAlerts []string        `json:"active_alerts"`
	LastUpdated  time.Time       `json:"last_updated"`
	SystemStatus alert.Health    `json:"system_status"`
}

type Config struct {
	StatusPath string
	AuditPath  string
}

func DefaultConfig() Config {
	return Config{
		StatusPath: defaultStatusPath,
		AuditPath:  defaultAuditPath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.StatusPath == "" || c.AuditPath == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "status and audit paths must not be empty")
	}
	return nil
}

// Publisher is the single writer of the snapshot and the audit log. Readers
// tail the audit log and re-read the snapshot concurrently.
type Publisher struct {
	cfg   Config
	log   logger.Logger
	audit *os.File
	mu    sync.Mutex
}

func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	audit, err := os.OpenFile(cfg.AuditPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, auditPerm)
	if err != nil {
		return nil, errFactory.Wrap(ErrInitFailed, err)
	}

	return &Publisher{
		cfg:   cfg,
		log:   log,
		audit: audit,
	}, nil
}

// Publish atomically replaces the snapshot file. The snapshot is written to
// a temp file in the target directory and renamed over the old one, so a
// concurrent reader sees either the previous snapshot or the new one in
// full, never a partial write.
func (p *Publisher) Publish(snapshot Snapshot) error {
	errFactory := errors.New()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errFactory.Wrap(ErrPublishFailed, err)
	}

	dir := filepath.Dir(p.cfg.StatusPath)
	tmp, err := os.CreateTemp(dir, ".status-*.json")
	if err != nil {
		return errFactory.Wrap(ErrPublishFailed, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPublishFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPublishFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPublishFailed, err)
	}

	if err := os.Chmod(tmp.Name(), snapshotPerm); err != nil {
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPublishFailed, err)
	}
	if err := os.Rename(tmp.Name(), p.cfg.StatusPath); err != nil {
		os.Remove(tmp.Name())
		return errFactory.Wrap(ErrPublishFailed, err)
	}

	return nil
}

// RecordAlerts appends one line per alert to the audit log. Lines carry a
// level and a pipe-delimited kind/timestamp/value/message payload; the log
// is never truncated or rewritten.
func (p *Publisher) RecordAlerts(alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	errFactory := errors.New()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, a := range alerts {
		line := fmt.Sprintf("%s - %s - %s|%s|%s|%s\n",
			time.Now().Format(time.RFC3339),
			auditLevel(a.Severity),
			a.Kind,
			a.Timestamp.Format(time.RFC3339),
			a.Detail,
			a.Summary,
		)
		if _, err := p.audit.WriteString(line); err != nil {
			return errFactory.Wrap(ErrAuditFailed, err)
		}
	}

	return nil
}

func (p *Publisher) Close() error {
	errFactory := errors.New()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.audit.Close(); err != nil {
		return errFactory.Wrap(ErrCloseFailed, err)
	}

	p.log.Debug().Msg("Status publisher closed")

	return nil
}

func auditLevel(severity alert.Severity) string {
	if severity == alert.SeverityCritical {
		return "ERROR"
	}
	return "WARNING"
}
