package app

import (
	"context"
	"database/sql"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/minibank/minibank/pkg/bank"
	"github.com/minibank/minibank/pkg/console"
	"github.com/minibank/minibank/pkg/dal"
)

// Injector is a function that will inject desired services
// to a target function
type Injector func(function interface{}) error

// BootstrapServices setup di container with all app services
func BootstrapServices(appCfg *Config) Injector {
	c := dig.New()

	c.Provide(bank.NewSystemNowService)

	c.Provide(func(now bank.NowService) (dal.Storage, error) {
		switch appCfg.Storage.Driver {
		case "file":
			return dal.NewFileStorage(
				dal.WithFilePath(appCfg.Storage.DSN),
				dal.WithFileNowService(now),
			)
		case "sqlite3":
			db, err := sql.Open(appCfg.Storage.Driver, appCfg.Storage.DSN)
			if err != nil {
				return nil, errors.Wrap(err, "Failed to open storage db")
			}
			return dal.NewSQLStorage(dal.WithSQLDb(db))
		default:
			return nil, errors.Errorf("Unknown storage driver: %v", appCfg.Storage.Driver)
		}
	})

	c.Provide(func(storage dal.Storage, now bank.NowService) (bank.Service, error) {
		ctx := context.Background()
		if err := storage.Setup(ctx); err != nil {
			return nil, errors.Wrap(err, "Failed to setup storage")
		}
		snapshot, err := storage.Load(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to load ledger snapshot")
		}
		return bank.NewService(
			bank.WithNowService(now),
			bank.WithSnapshot(snapshot),
		), nil
	})

	c.Provide(func(svc bank.Service, storage dal.Storage) console.App {
		return console.NewApp(
			console.WithService(svc),
			console.WithPersist(func(ctx context.Context) error {
				return storage.Save(ctx, svc.Export(ctx))
			}),
			console.WithInput(os.Stdin),
			console.WithOutput(os.Stdout),
		)
	})

	return func(function interface{}) error {
		return c.Invoke(function)
	}
}
