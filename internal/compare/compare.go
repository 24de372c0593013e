package compare

import (
	"groot/internal/diff"
	"groot/internal/hasher"
	"groot/shared/types"

	"go.uber.org/zap"
)

// Status is the outcome for one file of a commit.
type Status int

const (
	// Diffed means the path exists on both sides and Result holds the runs.
	Diffed Status = iota
	// NoPriorVersion means the base commit lacks the path (or there is no
	// base commit); nothing was diffed.
	NoPriorVersion
	// Missing means content could not be read; Err says why.
	Missing
)

func (s Status) String() string {
	switch s {
	case Diffed:
		return "diffed"
	case NoPriorVersion:
		return "no prior version"
	default:
		return "missing"
	}
}

type FileDiff struct {
	Path       string
	Digest     hasher.Digest
	BaseDigest hasher.Digest
	Status     Status
	Result     *diff.Result
	Err        error
}

type CommitDiff struct {
	Digest     hasher.Digest
	Commit     *shared.Commit
	BaseDigest hasher.Digest // "" for a root commit
	Files      []FileDiff
}

// CommitResolver loads commits by digest.
type CommitResolver interface {
	Resolve(d hasher.Digest) (*shared.Commit, error)
}

// BlobReader loads blob content by digest.
type BlobReader interface {
	Get(d hasher.Digest) ([]byte, error)
}

// Comparer reconstructs what a commit changed. It only reads.
type Comparer struct {
	commits CommitResolver
	blobs   BlobReader
	engine  *diff.Engine
	logger  *zap.Logger
}

func New(commits CommitResolver, blobs BlobReader, engine *diff.Engine, logger *zap.Logger) *Comparer {
	return &Comparer{
		commits: commits,
		blobs:   blobs,
		engine:  engine,
		logger:  logger,
	}
}

// DiffCommit compares every file of commit d with the same path in its
// parent. When the parent lists a path more than once the first entry is
// used. A root commit reports every file as NoPriorVersion.
func (c *Comparer) DiffCommit(d hasher.Digest) (*CommitDiff, error) {
	commit, err := c.commits.Resolve(d)
	if err != nil {
		return nil, err
	}

	if commit.IsRoot() {
		return c.compare(d, commit, "", nil, nil), nil
	}

	base, err := c.commits.Resolve(commit.Parent)
	if err != nil {
		c.logger.Warn("parent commit unreadable",
			zap.String("commit", d.Short()),
			zap.String("parent", commit.Parent.Short()),
			zap.Error(err))
	}
	return c.compare(d, commit, commit.Parent, base, err), nil
}

// DiffCommits compares target against an arbitrary base commit using the
// same per-path rules as DiffCommit.
func (c *Comparer) DiffCommits(base, target hasher.Digest) (*CommitDiff, error) {
	baseCommit, err := c.commits.Resolve(base)
	if err != nil {
		return nil, err
	}
	targetCommit, err := c.commits.Resolve(target)
	if err != nil {
		return nil, err
	}
	return c.compare(target, targetCommit, base, baseCommit, nil), nil
}

// compare builds the per-file outcomes. base is nil for a root commit or
// when baseErr says the base could not be loaded.
func (c *Comparer) compare(d hasher.Digest, commit *shared.Commit, baseDigest hasher.Digest, base *shared.Commit, baseErr error) *CommitDiff {
	out := &CommitDiff{
		Digest:     d,
		Commit:     commit,
		BaseDigest: baseDigest,
		Files:      make([]FileDiff, 0, len(commit.Files)),
	}

	for _, entry := range commit.Files {
		fd := FileDiff{Path: entry.Path, Digest: entry.Hash}

		content, err := c.blobs.Get(entry.Hash)
		if err != nil {
			c.logger.Warn("file content unreadable",
				zap.String("path", entry.Path),
				zap.String("digest", entry.Hash.Short()),
				zap.Error(err))
			fd.Status, fd.Err = Missing, err
			out.Files = append(out.Files, fd)
			continue
		}

		switch {
		case baseErr != nil:
			fd.Status, fd.Err = Missing, baseErr
		case base == nil:
			fd.Status = NoPriorVersion
		default:
			fd = c.diffAgainst(fd, base, content)
		}
		out.Files = append(out.Files, fd)
	}

	return out
}

func (c *Comparer) diffAgainst(fd FileDiff, base *shared.Commit, content []byte) FileDiff {
	prior, ok := base.Lookup(fd.Path)
	if !ok {
		fd.Status = NoPriorVersion
		return fd
	}
	fd.BaseDigest = prior.Hash

	priorContent, err := c.blobs.Get(prior.Hash)
	if err != nil {
		c.logger.Warn("prior file content unreadable",
			zap.String("path", fd.Path),
			zap.String("digest", prior.Hash.Short()),
			zap.Error(err))
		fd.Status, fd.Err = Missing, err
		return fd
	}

	fd.Status = Diffed
	fd.Result = c.engine.Diff(priorContent, content)
	return fd
}
