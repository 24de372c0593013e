package repo

import (
	"iter"

	"groot/internal/compare"
	"groot/internal/hasher"
	"groot/internal/validation"
	"groot/shared/types"

	"go.uber.org/zap"
)

// Add stores the content of each file under paths and stages it. Directories
// are expanded. The first unreadable file aborts the operation; files
// before it stay staged.
func (r *Repository) Add(paths ...string) ([]shared.Entry, error) {
	if err := validation.Paths(paths); err != nil {
		return nil, err
	}

	files, err := r.Workspace.Expand(paths)
	if err != nil {
		return nil, err
	}

	staged := make([]shared.Entry, 0, len(files))
	for _, rel := range files {
		entry, err := r.addFile(rel)
		if err != nil {
			return staged, err
		}
		staged = append(staged, entry)
	}

	r.Logger.Info("added files", zap.Int("count", len(staged)))
	return staged, nil
}

// AddFile stages one tree-relative path. The blob is written before the
// staging entry, so a staged digest always resolves.
func (r *Repository) AddFile(path string) (shared.Entry, error) {
	rel, err := r.Workspace.Rel(r.Workspace.Abs(path))
	if err != nil {
		return shared.Entry{}, err
	}
	return r.addFile(rel)
}

func (r *Repository) addFile(rel string) (shared.Entry, error) {
	content, err := r.Workspace.ReadFile(rel)
	if err != nil {
		r.Logger.Warn("cannot read file", zap.String("path", rel), zap.Error(err))
		return shared.Entry{}, err
	}

	d, err := r.Objects.Put(content)
	if err != nil {
		return shared.Entry{}, err
	}

	if err := r.Staging.Stage(rel, d); err != nil {
		return shared.Entry{}, err
	}

	r.Logger.Debug("added file",
		zap.String("path", rel),
		zap.String("digest", d.Short()))
	return shared.Entry{Path: rel, Hash: d}, nil
}

// Commit records the staging area as a new commit and returns its digest.
func (r *Repository) Commit(message string) (hasher.Digest, error) {
	if err := validation.CommitMessage(message); err != nil {
		return "", err
	}
	return r.Chain.Commit(message)
}

// Log yields commits from head back to the root.
func (r *Repository) Log() iter.Seq2[shared.LogEntry, error] {
	return r.Chain.History()
}

// Head returns the current head digest, "" before the first commit.
func (r *Repository) Head() (hasher.Digest, error) {
	return r.Chain.CurrentHead()
}

// Diff shows what commit d changed relative to its parent.
func (r *Repository) Diff(d hasher.Digest) (*compare.CommitDiff, error) {
	return r.Comparer.DiffCommit(d)
}

// DiffAgainst compares commit target with an arbitrary base commit.
func (r *Repository) DiffAgainst(base, target hasher.Digest) (*compare.CommitDiff, error) {
	return r.Comparer.DiffCommits(base, target)
}

// Status lists the staged entries in the order they were added.
func (r *Repository) Status() ([]shared.Entry, error) {
	return r.Staging.Entries()
}
