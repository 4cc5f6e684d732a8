package store

import "codeberg.org/mutker/printwatch/internal/errors"

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "printer_data.db"

	// DefaultQueryLimit caps history queries when the caller passes no limit.
	DefaultQueryLimit = 200
)

type Config struct {
	DBPath string
}

func DefaultConfig() Config {
	return Config{
		DBPath: defaultDBPath,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}
