package config

import (
	"encoding/json"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

const appEnvVar = "APP_ENV"

// AppEnv represents app env
type AppEnv struct {
	// ServiceName is a name of a current service
	ServiceName string

	// Name is a env name. By default taken from APP_ENV
	Name string
}

// NewAppEnv creates a new instance of the app env from os env.
// Will use "dev" by default and "test" when running under go test.
func NewAppEnv(serviceName string) AppEnv {
	appEnv := os.Getenv(appEnvVar)
	if appEnv == "" {
		if v := flag.Lookup("test.v"); v == nil {
			appEnv = "dev"
		} else {
			appEnv = "test"
		}
	}
	return AppEnv{
		Name:        appEnv,
		ServiceName: serviceName,
	}
}

type binding struct {
	dir string
}

// BindOpt is an option of config binding
type BindOpt func(*binding)

// WithDir will read config documents from an explicit dir
func WithDir(dir string) BindOpt {
	return func(b *binding) {
		b.dir = dir
	}
}

func projectRoot() string {
	if _, file, _, ok := runtime.Caller(0); ok {
		return filepath.Join(file, "..", "..", "..")
	}
	panic("Can not get project root")
}

// Bind reads a <env>.json config document and decodes it into a target
// structure
func Bind(target interface{}, appEnv AppEnv, opts ...BindOpt) error {
	b := binding{dir: filepath.Join(projectRoot(), "config")}
	for _, opt := range opts {
		opt(&b)
	}

	path := filepath.Join(b.dir, appEnv.Name+".json")
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read config document %v", path)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.Wrapf(err, "Failed to decode config document %v", path)
	}
	return nil
}
