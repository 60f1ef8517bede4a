package app

import (
	"github.com/minibank/minibank/pkg/config"
	"github.com/minibank/minibank/pkg/version"
)

// LogConfig represents logger specific options
type LogConfig struct {
	Level string `json:"level"`
}

// StorageConfig represents storage settings. Driver is either "file"
// (DSN is a snapshot file path) or "sqlite3" (DSN is a database path).
type StorageConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Config is a toplevel config structure
type Config struct {
	Log     LogConfig     `json:"log"`
	Storage StorageConfig `json:"storage"`
}

// LoadConfig will load and initialize config
func LoadConfig() (*Config, error) {
	appEnv := config.NewAppEnv(version.AppName)

	var cfg Config
	if err := config.Bind(&cfg, appEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}
