package repo

import (
	"fmt"
	"os"
	"strings"

	"groot/internal/errors"
	"groot/internal/hasher"

	"go.uber.org/zap"
)

// Problem is one integrity failure found by Verify.
type Problem struct {
	Digest hasher.Digest
	Path   string // set for file entries of a commit
	Err    error
}

func (p Problem) String() string {
	if p.Path != "" {
		return fmt.Sprintf("%s (%s): %v", p.Digest.Short(), p.Path, p.Err)
	}
	return fmt.Sprintf("%s: %v", p.Digest.Short(), p.Err)
}

type VerifyReport struct {
	Objects  int
	Commits  int
	Problems []Problem
}

func (r *VerifyReport) OK() bool { return len(r.Problems) == 0 }

// Verify re-hashes every object on disk, checks that every catalogued object
// still exists, and walks the history checking that each commit resolves
// and that its blobs are present. Integrity failures are collected in the
// report; the error is only for failures to carry out the check.
func (r *Repository) Verify() (*VerifyReport, error) {
	report := &VerifyReport{}
	h := r.Objects.Hasher()

	entries, err := os.ReadDir(r.Objects.Root())
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		d := hasher.Digest(name)
		if !h.Valid(d) {
			report.Problems = append(report.Problems, Problem{Digest: d, Err: errors.Malformed("object name", nil)})
			continue
		}
		report.Objects++
		if err := r.Objects.Verify(d); err != nil {
			report.Problems = append(report.Problems, Problem{Digest: d, Err: err})
		}
	}

	metas, err := r.Catalog.List()
	if err != nil {
		return nil, err
	}
	for _, meta := range metas {
		if !r.Objects.Has(meta.Digest) {
			report.Problems = append(report.Problems, Problem{Digest: meta.Digest, Err: errors.ObjectNotFound(string(meta.Digest))})
		}
	}

	// next is the commit the walk is about to resolve.
	next, _ := r.Chain.CurrentHead()
	for entry, err := range r.Chain.History() {
		if err != nil {
			report.Problems = append(report.Problems, Problem{Digest: next, Err: err})
			break
		}
		// Resolve may have been served from cache; check the file itself.
		if err := r.Objects.Verify(entry.Digest); err != nil {
			report.Problems = append(report.Problems, Problem{Digest: entry.Digest, Err: errors.CommitNotFound(string(entry.Digest), err)})
			break
		}
		report.Commits++
		next = entry.Commit.Parent
		for _, file := range entry.Commit.Files {
			if !r.Objects.Has(file.Hash) {
				report.Problems = append(report.Problems, Problem{
					Digest: file.Hash,
					Path:   file.Path,
					Err:    errors.ObjectNotFound(string(file.Hash)),
				})
			}
		}
	}

	r.Logger.Info("verified repository",
		zap.Int("objects", report.Objects),
		zap.Int("commits", report.Commits),
		zap.Int("problems", len(report.Problems)))
	return report, nil
}
