package shared

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/hal"
	"github.com/trezcool/prox/core/project"
	"github.com/trezcool/prox/storage/database"
	dummydb "github.com/trezcool/prox/storage/database/dummy"
	halrepo "github.com/trezcool/prox/storage/hal"
	memkv "github.com/trezcool/prox/storage/kv/memory"
	pgkv "github.com/trezcool/prox/storage/kv/postgres"
	rediskv "github.com/trezcool/prox/storage/kv/redis"
)

// DummyHAL as hal.baseURL serves projects from memory, e.g. for local frontend work.
const DummyHAL = "dummy"

// KVStore is the draft storage picked by draft.backend.
type KVStore struct {
	core.KVStore
	DB    *sqlx.DB // postgres backend only
	close func() error
}

func (s *KVStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenKVStore sets up the configured draft storage. The postgres database is created and migrated if needed.
func OpenKVStore(ctx context.Context, conf *core.Config) (*KVStore, error) {
	switch conf.Draft.Backend {
	case core.DraftBackendMemory:
		return &KVStore{KVStore: memkv.New(conf.Draft.TTL)}, nil

	case core.DraftBackendRedis:
		client, err := rediskv.NewClient(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &KVStore{KVStore: rediskv.New(client, conf.Draft.TTL), close: client.Close}, nil

	case core.DraftBackendPostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &KVStore{KVStore: pgkv.New(db, conf.Draft.TTL), DB: db, close: db.Close}, nil

	default:
		return nil, errors.Errorf("unknown draft backend %q", conf.Draft.Backend)
	}
}

// NewRepository returns the project.Repository talking to the configured HAL API.
func NewRepository(conf *core.Config) (project.Repository, error) {
	if conf.HAL.BaseURL == DummyHAL {
		db, err := dummydb.Open()
		if err != nil {
			return nil, err
		}
		return dummydb.NewProjectRepository(db), nil
	}

	client, err := hal.NewClient(conf.HAL.BaseURL, conf.HAL.Timeout)
	if err != nil {
		return nil, errors.Wrap(err, "creating HAL client")
	}
	return halrepo.NewProjectRepository(client), nil
}
