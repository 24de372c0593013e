// internal/repo/repo.go
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"groot/internal/catalog"
	"groot/internal/compare"
	"groot/internal/config"
	"groot/internal/diff"
	"groot/internal/errors"
	"groot/internal/hasher"
	"groot/internal/history"
	"groot/internal/objects"
	"groot/internal/staging"
	"groot/internal/storage"
	"groot/internal/validation"
	"groot/internal/workspace"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	ObjectsDir = "objects"
	IndexFile  = "index"
	CatalogDir = "catalog"
)

// Repository is an open repository: the working tree plus every component
// wired over its .groot directory.
type Repository struct {
	Root      string // working tree
	Dir       string // <Root>/.groot
	Config    *config.Config
	DB        *badger.DB
	Catalog   *catalog.Catalog
	Objects   *objects.Store
	Staging   *staging.Area
	Chain     *history.Chain
	Comparer  *compare.Comparer
	Workspace *workspace.Workspace
	Logger    *zap.Logger
}

// InitOptions are fixed when the repository is created.
type InitOptions struct {
	Hash     string
	Compress bool
}

// Init creates the repository layout under root. If a repository already
// exists nothing is overwritten and created is false; any piece missing
// from a partial layout is filled in.
func Init(root string, opts InitOptions, logger *zap.Logger) (created bool, err error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	dir := filepath.Join(absRoot, workspace.DirName)

	cfg := config.Default()
	if opts.Hash != "" {
		cfg.Core.Hash = opts.Hash
	}
	cfg.Core.Compress = opts.Compress
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	if err := os.MkdirAll(filepath.Join(dir, ObjectsDir), 0755); err != nil {
		return false, fmt.Errorf("creating objects directory: %w", err)
	}

	headErr := history.New(dir, nil, nil, logger).InitializeHead()
	if headErr != nil && !errors.IsKind(headErr, errors.KindAlreadyInitialized) {
		return false, headErr
	}
	indexErr := staging.New(filepath.Join(dir, IndexFile), logger).Initialize()
	if indexErr != nil && !errors.IsKind(indexErr, errors.KindAlreadyInitialized) {
		return false, indexErr
	}

	configPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.Save(configPath); err != nil {
			return false, err
		}
	} else if err != nil {
		return false, fmt.Errorf("checking config: %w", err)
	} else if existing, err := config.Load(configPath); err == nil && opts.Hash != "" && existing.Core.Hash != opts.Hash {
		logger.Warn("existing repository keeps its hash algorithm",
			zap.String("hash", existing.Core.Hash),
			zap.String("requested", opts.Hash))
	}

	if headErr != nil {
		if indexErr == nil {
			logger.Warn("index was missing and has been recreated", zap.String("dir", dir))
		}
		logger.Info("repository already initialized", zap.String("dir", dir))
		return false, nil
	}

	logger.Info("initialized repository",
		zap.String("dir", dir),
		zap.String("hash", cfg.Core.Hash),
		zap.Bool("compress", cfg.Core.Compress))
	return true, nil
}

// Open wires the components of the repository at root. cfg may be nil, in
// which case the repository config is loaded.
func Open(root string, cfg *config.Config, logger *zap.Logger) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	dir := filepath.Join(absRoot, workspace.DirName)

	if info, err := os.Stat(filepath.Join(dir, ObjectsDir)); err != nil || !info.IsDir() {
		return nil, errors.NotInitialized(fmt.Sprintf("no repository at %s", absRoot), err)
	}

	if cfg == nil {
		cfg, err = config.Load(filepath.Join(dir, config.FileName))
		if err != nil {
			return nil, err
		}
	}
	if err := validation.All(cfg); err != nil {
		return nil, err
	}

	h, err := hasher.New(cfg.Core.Hash)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(filepath.Join(dir, CatalogDir))
	if err != nil {
		return nil, fmt.Errorf("opening object catalog: %w", err)
	}
	cat := catalog.New(db)

	store, err := objects.New(h, cat, objects.Options{
		Root:            filepath.Join(dir, ObjectsDir),
		CacheSize:       cfg.Cache.Objects,
		Compress:        cfg.Core.Compress,
		CompressMinSize: cfg.Core.CompressMinSize,
	}, logger.Named("objects"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing object store: %w", err)
	}

	area := staging.New(filepath.Join(dir, IndexFile), logger.Named("staging"))
	chain := history.New(dir, store, area, logger.Named("history"))

	r := &Repository{
		Root:      absRoot,
		Dir:       dir,
		Config:    cfg,
		DB:        db,
		Catalog:   cat,
		Objects:   store,
		Staging:   area,
		Chain:     chain,
		Comparer:  compare.New(chain, store, diff.NewEngine(cfg.Diff.Context), logger.Named("compare")),
		Workspace: workspace.New(absRoot, logger.Named("workspace")),
		Logger:    logger,
	}

	logger.Debug("opened repository",
		zap.String("dir", dir),
		zap.String("hash", h.Name()))
	return r, nil
}

// Close releases the catalog and the store's decoder.
func (r *Repository) Close() error {
	if r == nil {
		return nil
	}

	var errs []error

	if r.Objects != nil {
		r.Objects.Close()
	}

	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing catalog: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("closing repository: %v", errs)
	}

	return nil
}
