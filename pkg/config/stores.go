package config

import (
	"context"

	"github.com/vingest/vingest/pkg/catalog"
	"github.com/vingest/vingest/pkg/chunkstore"
	"github.com/vingest/vingest/pkg/indexer"
	"github.com/vingest/vingest/pkg/media"
	"github.com/vingest/vingest/pkg/session/store"
	"github.com/vingest/vingest/pkg/upload"
)

// CreateSessionStore opens the session store selected by the
// configuration.
func CreateSessionStore(ctx context.Context, cfg SessionStoreConfig) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Backend: cfg.Backend,
		TTL:     cfg.TTL,
		Redis: store.RedisConfig{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		},
		Badger: store.BadgerConfig{
			Dir: cfg.Badger.Dir,
		},
	})
}

// CreateChunkStore opens the chunk store selected by the configuration.
// The fs backend stages under uploadDir; the s3 backend ignores it.
func CreateChunkStore(ctx context.Context, cfg ChunkStoreConfig, uploadDir string) (chunkstore.Store, error) {
	return chunkstore.Open(ctx, chunkstore.Config{
		Backend:   cfg.Backend,
		UploadDir: uploadDir,
		S3: chunkstore.S3Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		},
	})
}

// CreateCatalog opens the catalog database and its connection pool.
// metrics may be nil.
func CreateCatalog(cfg CatalogConfig, metrics catalog.PoolMetrics) (*catalog.Catalog, error) {
	return catalog.Open(catalog.Config{
		Path:           cfg.Path,
		MaxConnections: cfg.MaxConnections,
		IdleTimeout:    cfg.IdleTimeout,
	}, metrics)
}

// CreateIndexer builds the lifecycle indexer client. A disabled
// configuration yields a client whose calls are no-ops.
func CreateIndexer(cfg IndexerConfig) *indexer.Client {
	return indexer.New(indexer.Config{
		Enabled:     cfg.Enabled,
		BaseURL:     cfg.BaseURL,
		IndexPrefix: cfg.IndexPrefix,
		Timeout:     cfg.Timeout,
	})
}

// CreateMediaProcessor builds the ffmpeg processor, or returns nil when
// media processing is disabled. The API answers 503 to the video
// endpoints when the processor is nil.
func CreateMediaProcessor(cfg MediaConfig, uploadDir string) (*media.Processor, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	return media.New(media.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		UploadDir:   uploadDir,
		MaxDuration: cfg.MaxDuration,
	})
}

// CoordinatorConfig maps the upload section onto the coordinator's
// configuration.
func CoordinatorConfig(cfg UploadConfig) upload.Config {
	return upload.Config{
		UploadDir:   cfg.UploadDir,
		ChunkSize:   int64(cfg.ChunkSize),
		MaxFileSize: int64(cfg.MaxFileSize),
		MaxWorkers:  cfg.MaxWorkers,
	}
}
