package store

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/vingest/vingest/internal/logger"
	"github.com/vingest/vingest/pkg/session"
)

// BadgerStore is an embedded session store for single-host deployments.
//
// Atomicity of ApplyChunk comes from Badger's serializable transactions:
// concurrent updates of the same key abort with ErrConflict and are retried,
// which is the compare-and-set variant of the apply contract. All replicas
// must run in the one process that owns the database directory.
type BadgerStore struct {
	db  *badgerdb.DB
	ttl time.Duration
}

// NewBadgerStore opens or creates the database.
func NewBadgerStore(cfg BadgerConfig, ttl time.Duration) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger session store: %w", err)
	}

	logger.Debug("opened badger session store",
		logger.Store(BackendBadger), logger.Path(cfg.Dir))

	return &BadgerStore{db: db, ttl: ttl}, nil
}

// Create stores a new session.
func (s *BadgerStore) Create(ctx context.Context, sess *session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := session.Encode(sess)
	if err != nil {
		return err
	}
	key := []byte(Key(sess.FileID))

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}
		return txn.SetEntry(s.entry(key, data))
	})
	if err == ErrAlreadyExists {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Load returns the session for fileID.
func (s *BadgerStore) Load(ctx context.Context, fileID string) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sess *session.Session
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(Key(fileID)))
		if err == badgerdb.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := session.Decode(val)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			sess = decoded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ApplyChunk mutates the session inside a transaction, retrying on conflict.
func (s *BadgerStore) ApplyChunk(ctx context.Context, fileID string, chunkIndex int, size int64) (*session.Session, ApplyResult, error) {
	key := []byte(Key(fileID))

	for {
		if err := ctx.Err(); err != nil {
			return nil, ApplyResult{}, err
		}

		var (
			sess   *session.Session
			result ApplyResult
		)

		err := s.db.Update(func(txn *badgerdb.Txn) error {
			item, err := txn.Get(key)
			if err == badgerdb.ErrKeyNotFound {
				return ErrNotFound
			}
			if err != nil {
				return err
			}

			var raw []byte
			if raw, err = item.ValueCopy(nil); err != nil {
				return err
			}

			decoded, err := session.Decode(raw)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}

			applied, just, err := decoded.Apply(chunkIndex, size, time.Now())
			if err != nil {
				return err
			}

			sess = decoded
			result = ApplyResult{Applied: applied, JustCompleted: just}

			if !applied {
				// Duplicate delivery: slide the expiry, keep the payload
				return txn.SetEntry(s.entry(key, raw))
			}

			data, err := session.Encode(decoded)
			if err != nil {
				return err
			}
			return txn.SetEntry(s.entry(key, data))
		})
		if err == badgerdb.ErrConflict {
			continue
		}
		if err != nil {
			return nil, ApplyResult{}, err
		}
		return sess, result, nil
	}
}

// Fail marks the session failed.
func (s *BadgerStore) Fail(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(Key(fileID))

	for {
		err := s.db.Update(func(txn *badgerdb.Txn) error {
			item, err := txn.Get(key)
			if err == badgerdb.ErrKeyNotFound {
				return ErrNotFound
			}
			if err != nil {
				return err
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			sess, err := session.Decode(raw)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}

			sess.MarkFailed(time.Now())
			data, err := session.Encode(sess)
			if err != nil {
				return err
			}
			return txn.SetEntry(s.entry(key, data))
		})
		if err == badgerdb.ErrConflict {
			continue
		}
		return err
	}
}

// Delete removes the session. Idempotent.
func (s *BadgerStore) Delete(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(Key(fileID)))
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns all live sessions under the key prefix.
func (s *BadgerStore) List(ctx context.Context) ([]*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*session.Session
	prefix := []byte(Key(""))

	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				sess, err := session.Decode(val)
				if err != nil {
					logger.Warn("skipping corrupt session record",
						logger.Store(BackendBadger),
						logger.Path(string(item.Key())), logger.Err(err))
					return nil
				}
				out = append(out, sess)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return out, nil
}

// HealthCheck verifies the database can serve a read transaction.
func (s *BadgerStore) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badgerdb.Txn) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger session store unhealthy: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// entry builds a store entry carrying the configured TTL.
func (s *BadgerStore) entry(key, val []byte) *badgerdb.Entry {
	e := badgerdb.NewEntry(key, val)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return e
}
