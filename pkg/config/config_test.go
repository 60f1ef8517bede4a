package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"
)

func Test_NewAppEnv(t *testing.T) {
	serviceName := faker.Word()

	t.Run("defaults to test under go test", func(t *testing.T) {
		appEnv := NewAppEnv(serviceName)
		assert.Equal(t, "test", appEnv.Name)
		assert.Equal(t, serviceName, appEnv.ServiceName)
	})

	t.Run("uses APP_ENV when set", func(t *testing.T) {
		os.Setenv("APP_ENV", "staging")
		defer os.Unsetenv("APP_ENV")
		appEnv := NewAppEnv(serviceName)
		assert.Equal(t, "staging", appEnv.Name)
	})
}

func Test_Bind(t *testing.T) {
	type storageCfg struct {
		Driver string `json:"driver"`
		DSN    string `json:"dsn"`
	}
	type testCfg struct {
		Storage storageCfg `json:"storage"`
	}

	t.Run("binds env document from dir", func(t *testing.T) {
		dir, err := ioutil.TempDir("", "minibank-config")
		if !assert.NoError(t, err) {
			return
		}
		defer os.RemoveAll(dir)

		dsn := faker.Word() + ".json"
		payload := `{"storage": {"driver": "file", "dsn": "` + dsn + `"}}`
		if err := ioutil.WriteFile(filepath.Join(dir, "test.json"), []byte(payload), 0644); !assert.NoError(t, err) {
			return
		}

		var cfg testCfg
		err = Bind(&cfg, NewAppEnv("minibank"), WithDir(dir))
		if assert.NoError(t, err) {
			assert.Equal(t, "file", cfg.Storage.Driver)
			assert.Equal(t, dsn, cfg.Storage.DSN)
		}
	})

	t.Run("fails for missing document", func(t *testing.T) {
		dir, err := ioutil.TempDir("", "minibank-config")
		if !assert.NoError(t, err) {
			return
		}
		defer os.RemoveAll(dir)

		var cfg testCfg
		err = Bind(&cfg, AppEnv{Name: "absent"}, WithDir(dir))
		assert.Error(t, err)
	})

	t.Run("reads repo config documents by default", func(t *testing.T) {
		var cfg testCfg
		err := Bind(&cfg, AppEnv{Name: "test"})
		if assert.NoError(t, err) {
			assert.NotEmpty(t, cfg.Storage.Driver)
		}
	})
}
