package history

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"groot/internal/catalog"
	"groot/internal/errors"
	"groot/internal/hasher"
	"groot/shared/types"
	"groot/shared/utils"

	"go.uber.org/zap"
)

const (
	HeadFile = "head"
	LockFile = "lock"
)

// ObjectStore is the part of the object store the chain needs.
type ObjectStore interface {
	PutKind(kind catalog.Kind, content []byte) (hasher.Digest, error)
	Get(d hasher.Digest) ([]byte, error)
	Hasher() *hasher.Hasher
}

// StagingArea is the part of the staging area a commit consumes.
type StagingArea interface {
	Entries() ([]shared.Entry, error)
	Clear() error
}

// Chain is the linear commit history: the head pointer plus commit objects
// linked through their parent digests.
type Chain struct {
	headPath string
	lockPath string
	objects  ObjectStore
	staging  StagingArea
	now      func() time.Time
	logger   *zap.Logger
}

// New returns a chain whose head and lock files live in dir.
func New(dir string, objects ObjectStore, staging StagingArea, logger *zap.Logger) *Chain {
	return &Chain{
		headPath: filepath.Join(dir, HeadFile),
		lockPath: filepath.Join(dir, LockFile),
		objects:  objects,
		staging:  staging,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the commit timestamp source.
func (c *Chain) WithClock(now func() time.Time) *Chain {
	c.now = now
	return c
}

// InitializeHead creates an empty head file, meaning "no commits yet". An
// existing head is left alone and reported as AlreadyInitialized.
func (c *Chain) InitializeHead() error {
	err := utils.CreateExclusive(c.headPath, nil, 0644)
	if stderrors.Is(err, os.ErrExist) {
		return errors.AlreadyInitialized("head already exists")
	}
	if err != nil {
		return fmt.Errorf("creating head: %w", err)
	}
	return nil
}

// CurrentHead returns the digest of the latest commit, or "" when there are
// no commits. A missing head file also counts as no commits.
func (c *Chain) CurrentHead() (hasher.Digest, error) {
	data, err := os.ReadFile(c.headPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Debug("head file missing, treating as no commits")
			return "", nil
		}
		c.logger.Warn("reading head failed", zap.Error(err))
		return "", fmt.Errorf("reading head: %w", err)
	}

	d := hasher.Digest(strings.TrimSpace(string(data)))
	if d == "" {
		return "", nil
	}
	if !c.objects.Hasher().Valid(d) {
		return "", errors.Malformed("head", fmt.Errorf("%q is not a digest", d))
	}
	return d, nil
}

// Commit snapshots the staging area into a new commit on top of head.
//
// The object is stored durably before head is swapped (temp file + rename),
// and staging is cleared last, so a crash never leaves head pointing at a
// missing commit. A crash after the swap leaves the old entries staged.
func (c *Chain) Commit(message string) (hasher.Digest, error) {
	unlock, err := c.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	entries, err := c.staging.Entries()
	if err != nil {
		return "", fmt.Errorf("reading staging area: %w", err)
	}
	if len(entries) == 0 {
		c.logger.Warn("committing with an empty staging area")
	}

	parent, err := c.CurrentHead()
	if err != nil {
		return "", err
	}

	commit := shared.Commit{
		Date:    c.now().UTC().Format(shared.TimeFormat),
		Message: message,
		Files:   entries,
		Parent:  parent,
	}

	data, err := utils.MarshalJSON(commit)
	if err != nil {
		return "", fmt.Errorf("marshaling commit: %w", err)
	}

	d, err := c.objects.PutKind(catalog.KindCommit, data)
	if err != nil {
		return "", fmt.Errorf("storing commit: %w", err)
	}

	if err := utils.SafeWrite(c.headPath, []byte(d), 0644); err != nil {
		return "", fmt.Errorf("updating head to %s: %w", d, err)
	}

	if err := c.staging.Clear(); err != nil {
		return d, fmt.Errorf("commit %s recorded but staging area not cleared: %w", d, err)
	}

	c.logger.Info("created commit",
		zap.String("digest", d.Short()),
		zap.String("parent", parent.Short()),
		zap.Int("files", len(entries)))
	return d, nil
}

// Resolve loads the commit stored under d. A missing, corrupt or non-commit
// object is a CommitNotFound error.
func (c *Chain) Resolve(d hasher.Digest) (*shared.Commit, error) {
	data, err := c.objects.Get(d)
	if err != nil {
		if errors.IsKind(err, errors.KindObjectNotFound) || errors.IsKind(err, errors.KindCorruptObject) {
			return nil, errors.CommitNotFound(string(d), err)
		}
		return nil, fmt.Errorf("reading commit %s: %w", d, err)
	}

	var commit shared.Commit
	if err := json.Unmarshal(data, &commit); err != nil {
		return nil, errors.CommitNotFound(string(d), errors.Malformed("commit", err))
	}
	if commit.Date == "" || (commit.Parent != "" && !c.objects.Hasher().Valid(commit.Parent)) {
		return nil, errors.CommitNotFound(string(d), errors.Malformed("commit", nil))
	}
	if commit.Files == nil {
		commit.Files = []shared.Entry{}
	}
	return &commit, nil
}

// History walks from head to the root commit, newest first. The sequence is
// lazy; each step resolves one commit. After an error is yielded the walk
// stops.
func (c *Chain) History() iter.Seq2[shared.LogEntry, error] {
	return func(yield func(shared.LogEntry, error) bool) {
		head, err := c.CurrentHead()
		if err != nil {
			yield(shared.LogEntry{}, err)
			return
		}

		c.walk(head, yield)
	}
}

// From walks like History but starts at d instead of head.
func (c *Chain) From(d hasher.Digest) iter.Seq2[shared.LogEntry, error] {
	return func(yield func(shared.LogEntry, error) bool) {
		c.walk(d, yield)
	}
}

func (c *Chain) walk(start hasher.Digest, yield func(shared.LogEntry, error) bool) {
	seen := make(map[hasher.Digest]bool)
	for d := start; d != ""; {
		if seen[d] {
			yield(shared.LogEntry{}, errors.CommitNotFound(string(d), fmt.Errorf("cycle in commit chain")))
			return
		}
		seen[d] = true

		commit, err := c.Resolve(d)
		if err != nil {
			yield(shared.LogEntry{}, err)
			return
		}
		if !yield(shared.LogEntry{Digest: d, Commit: commit}, nil) {
			return
		}
		d = commit.Parent
	}
}

// lock takes the advisory commit lock. Two commits racing on the same
// repository would otherwise both read the same parent. A lock left behind
// by a process that no longer exists is removed and taken again.
func (c *Chain) lock() (func(), error) {
	pid := []byte(strconv.Itoa(os.Getpid()))
	err := utils.CreateExclusive(c.lockPath, pid, 0644)
	if stderrors.Is(err, os.ErrExist) && c.removeStaleLock() {
		err = utils.CreateExclusive(c.lockPath, pid, 0644)
	}
	if stderrors.Is(err, os.ErrExist) {
		return nil, errors.Locked(c.lockPath)
	}
	if err != nil {
		return nil, fmt.Errorf("taking commit lock: %w", err)
	}
	return func() {
		if err := os.Remove(c.lockPath); err != nil {
			c.logger.Warn("releasing commit lock", zap.Error(err))
		}
	}, nil
}

// removeStaleLock deletes the lock file when the pid it records belongs to
// no running process. An unreadable pid counts as held.
func (c *Chain) removeStaleLock() bool {
	data, err := os.ReadFile(c.lockPath)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || !processGone(pid) {
		return false
	}
	if err := os.Remove(c.lockPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("removing stale commit lock", zap.String("path", c.lockPath), zap.Error(err))
		return false
	}
	c.logger.Warn("removed stale commit lock", zap.String("path", c.lockPath), zap.Int("pid", pid))
	return true
}
