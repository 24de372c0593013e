// internal/objects/store.go
package objects

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"groot/internal/catalog"
	"groot/internal/errors"
	"groot/internal/hasher"
	"groot/shared/utils"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Catalog records per-object metadata next to the object files.
type Catalog interface {
	Record(meta catalog.ObjectMeta) error
	Lookup(d hasher.Digest) (catalog.ObjectMeta, bool, error)
}

// Options configures Store behavior
type Options struct {
	Root            string // objects directory
	CacheSize       int    // decoded objects kept in memory
	Compress        bool   // zstd at rest, needs a catalog
	CompressMinSize int
}

// Store keeps immutable objects as <root>/<digest>. Objects are written
// once and never updated or removed.
type Store struct {
	root       string
	hasher     *hasher.Hasher
	catalog    Catalog
	cache      *lru.Cache[hasher.Digest, []byte]
	compressor *compressor // nil when writes are not compressed
	reader     *compressor // decodes compressed objects, created on demand
	logger     *zap.Logger
}

// New creates the objects directory if needed. cat may be nil, in which
// case compression must be off.
func New(h *hasher.Hasher, cat Catalog, opts Options, logger *zap.Logger) (*Store, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if opts.Compress && cat == nil {
		return nil, errors.ValidationError("compression requires an object catalog")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}

	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating objects directory: %w", err)
	}

	cache, err := lru.New[hasher.Digest, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	s := &Store{
		root:    opts.Root,
		hasher:  h,
		catalog: cat,
		cache:   cache,
		logger:  logger,
	}

	if opts.Compress {
		s.compressor, err = newCompressor(2, opts.CompressMinSize)
		if err != nil {
			return nil, err
		}
		s.reader = s.compressor
	}

	return s, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) Hasher() *hasher.Hasher { return s.hasher }

// Put stores a blob.
func (s *Store) Put(content []byte) (hasher.Digest, error) {
	return s.PutKind(catalog.KindBlob, content)
}

// PutKind stores content and returns its digest. Writing content that is
// already present is a no-op, so retries are safe.
func (s *Store) PutKind(kind catalog.Kind, content []byte) (hasher.Digest, error) {
	if content == nil {
		content = []byte{}
	}

	d := s.hasher.Sum(content)
	path := s.path(d)

	if _, err := os.Stat(path); err == nil {
		s.logger.Debug("object already stored", zap.String("digest", d.Short()))
		return d, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("checking object %s: %w", d, err)
	}

	data := content
	compressed := false
	if s.compressor != nil && s.compressor.shouldCompress(len(content)) {
		data = s.compressor.compress(content)
		compressed = true
	}

	if err := utils.SafeWrite(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing object %s: %w", d, err)
	}

	if s.catalog != nil {
		meta := catalog.ObjectMeta{
			Digest:     d,
			Kind:       kind,
			Size:       int64(len(content)),
			Compressed: compressed,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.catalog.Record(meta); err != nil {
			// Without metadata a compressed object could not be read back.
			os.Remove(path)
			return "", fmt.Errorf("cataloguing object: %w", err)
		}
	}

	s.cache.Add(d, bytes.Clone(content))
	s.logger.Debug("stored object",
		zap.String("digest", d.Short()),
		zap.String("kind", string(kind)),
		zap.Int("size", len(content)),
		zap.Bool("compressed", compressed))

	return d, nil
}

// Get returns a copy of the content stored under d. Unknown or malformed
// digests give an ObjectNotFound error.
func (s *Store) Get(d hasher.Digest) ([]byte, error) {
	if content, ok := s.cache.Get(d); ok {
		return bytes.Clone(content), nil
	}

	content, err := s.load(d)
	if err != nil {
		return nil, err
	}

	s.cache.Add(d, content)
	return bytes.Clone(content), nil
}

// Has reports whether an object file exists for d.
func (s *Store) Has(d hasher.Digest) bool {
	if !s.hasher.Valid(d) {
		return false
	}
	_, err := os.Stat(s.path(d))
	return err == nil
}

// Verify re-reads d from disk, bypassing the cache, and checks that it still
// hashes to d.
func (s *Store) Verify(d hasher.Digest) error {
	_, err := s.load(d)
	return err
}

func (s *Store) Close() {
	if s.reader != nil {
		s.reader.close()
	}
}

func (s *Store) load(d hasher.Digest) ([]byte, error) {
	if !s.hasher.Valid(d) {
		return nil, errors.ObjectNotFound(string(d))
	}

	content, err := os.ReadFile(s.path(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ObjectNotFound(string(d))
		}
		return nil, fmt.Errorf("reading object %s: %w", d, err)
	}

	if s.catalog != nil {
		meta, ok, err := s.catalog.Lookup(d)
		if err != nil {
			return nil, err
		}
		if ok && meta.Compressed {
			if s.reader == nil {
				// Compression was switched off after this object was written.
				s.reader, err = newCompressor(2, 0)
				if err != nil {
					return nil, err
				}
			}
			content, err = s.reader.decompress(content)
			if err != nil {
				return nil, errors.New(errors.KindCorruptObject, fmt.Sprintf("object %s", d), err)
			}
		}
	}

	if s.hasher.Sum(content) != d {
		return nil, errors.CorruptObject(string(d))
	}
	return content, nil
}

func (s *Store) path(d hasher.Digest) string {
	return filepath.Join(s.root, string(d))
}
