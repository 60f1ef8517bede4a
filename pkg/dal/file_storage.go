package dal

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/minibank/minibank/pkg/bank"
)

type fileStorage struct {
	path string
	now  bank.NowService
}

func (s *fileStorage) ensureFolderExists() error {
	folder := filepath.Dir(s.path)
	if folder == "" || folder == "." {
		return nil
	}
	return errors.Wrapf(os.MkdirAll(folder, 0755), "Failed to create snapshot folder %v", folder)
}

func (s *fileStorage) Setup(ctx context.Context) error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	logger.Info(ctx, "Initializing snapshot file %v", s.path)
	return s.Save(ctx, defaultSnapshot())
}

// Load reads the snapshot file. A missing file is initialized with
// defaults. An unreadable file is renamed aside with a .broken suffix and
// replaced with defaults, so a corrupt snapshot never crashes the app.
func (s *fileStorage) Load(ctx context.Context) (*bank.Snapshot, error) {
	data, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := s.Setup(ctx); err != nil {
			return nil, err
		}
		return defaultSnapshot(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read snapshot file %v", s.path)
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.WithError(err).Warn(ctx, "Snapshot file %v is not readable, backing it up", s.path)
		if renameErr := os.Rename(s.path, s.path+".broken"); renameErr != nil {
			logger.WithError(renameErr).Warn(ctx, "Failed to back up broken snapshot file")
		}
		if err := s.Save(ctx, defaultSnapshot()); err != nil {
			return nil, err
		}
		return defaultSnapshot(), nil
	}
	return doc.toSnapshot(s.now), nil
}

// Save writes the snapshot atomically: a temp file is written first and
// then renamed over the target
func (s *fileStorage) Save(ctx context.Context, snapshot *bank.Snapshot) error {
	if err := s.ensureFolderExists(); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(newSnapshotDocument(snapshot), "", "  ")
	if err != nil {
		return errors.Wrap(err, "Failed to marshal snapshot")
	}

	tmpPath := s.path + ".tmp"
	if err := ioutil.WriteFile(tmpPath, payload, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write snapshot file %v", tmpPath)
	}
	return errors.Wrapf(os.Rename(tmpPath, s.path), "Failed to replace snapshot file %v", s.path)
}

// FileStorageOpt is an option of a file storage
type FileStorageOpt func(s *fileStorage)

// WithFilePath will set a path of a snapshot file
func WithFilePath(path string) FileStorageOpt {
	return func(s *fileStorage) {
		s.path = path
	}
}

// WithFileNowService will set a time provider used for decode defaults
func WithFileNowService(now bank.NowService) FileStorageOpt {
	return func(s *fileStorage) {
		s.now = now
	}
}

// NewFileStorage returns an instance of a JSON snapshot file storage
func NewFileStorage(opts ...FileStorageOpt) (Storage, error) {
	storage := &fileStorage{now: bank.NewSystemNowService()}
	for _, opt := range opts {
		opt(storage)
	}
	if storage.path == "" {
		return nil, errors.New("Snapshot file path is required")
	}
	return storage, nil
}
