package staging

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"groot/internal/errors"
	"groot/internal/hasher"
	"groot/shared/types"
	"groot/shared/utils"

	"go.uber.org/zap"
)

var emptyIndex = []byte("[]")

// Area is the staging area persisted as a JSON array in the index file.
// Entries keep insertion order; adding a path twice keeps both entries.
type Area struct {
	path   string
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) *Area {
	return &Area{path: path, logger: logger}
}

func (a *Area) Path() string { return a.path }

// Initialize creates an empty index. If one exists it is left untouched and
// an AlreadyInitialized error is returned.
func (a *Area) Initialize() error {
	err := utils.CreateExclusive(a.path, emptyIndex, 0644)
	if stderrors.Is(err, os.ErrExist) {
		return errors.AlreadyInitialized("index already exists")
	}
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	return nil
}

// Stage appends an entry for path.
func (a *Area) Stage(path string, d hasher.Digest) error {
	entries, err := a.Entries()
	if err != nil {
		return err
	}

	entries = append(entries, shared.Entry{Path: path, Hash: d})
	if err := a.write(entries); err != nil {
		return err
	}

	a.logger.Debug("staged file",
		zap.String("path", path),
		zap.String("digest", d.Short()),
		zap.Int("entries", len(entries)))
	return nil
}

// Entries returns a snapshot of the pending entries. A fresh index gives an
// empty, non-nil slice; a missing index is a NotInitialized error.
func (a *Area) Entries() ([]shared.Entry, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotInitialized("staging index missing", err)
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	entries := []shared.Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Malformed("index", err)
	}
	if entries == nil {
		// The file held "null".
		entries = []shared.Entry{}
	}
	return entries, nil
}

// Clear resets the index to an empty sequence.
func (a *Area) Clear() error {
	if err := utils.SafeWrite(a.path, emptyIndex, 0644); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	return nil
}

func (a *Area) write(entries []shared.Entry) error {
	data, err := utils.MarshalJSON(entries)
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := utils.SafeWrite(a.path, data, 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}
