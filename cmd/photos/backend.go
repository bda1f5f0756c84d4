package main

import (
	"path/filepath"

	"github.com/kimhsiao/photolib/backend/internal/config"
	"github.com/kimhsiao/photolib/backend/internal/db"
	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/store"
	"github.com/kimhsiao/photolib/backend/internal/store/badgerstore"
	"github.com/kimhsiao/photolib/backend/internal/store/filestore"
)

// openBackend opens the record backend cfg selects under its data dir.
func openBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		b, err := filestore.New(cfg.DataDir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStorageRead, "open file backend", err)
		}
		return b, nil
	case config.BackendSQLite:
		database, err := db.Open(cfg.DataDir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStorageRead, "open sqlite backend", err)
		}
		return db.NewRepository(database.DB), nil
	case config.BackendBadger:
		b, err := badgerstore.Open(filepath.Join(cfg.DataDir, "badger"))
		if err != nil {
			return nil, errors.Wrap(errors.ErrStorageRead, "open badger backend", err)
		}
		return b, nil
	}
	return nil, errors.Newf(errors.ErrInvalid, "unknown backend %q", cfg.Backend)
}
