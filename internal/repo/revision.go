package repo

import (
	"fmt"
	"strings"

	"groot/internal/catalog"
	"groot/internal/errors"
	"groot/internal/hasher"
)

// MinPrefix is the shortest abbreviated commit digest ResolveRevision accepts.
const MinPrefix = 4

// ResolveRevision turns user input into a commit digest. It accepts "head"
// (any case), a full digest, or an unambiguous prefix of a catalogued
// commit. A full digest is returned as is; whether it names a commit is
// left to the operation that reads it.
func (r *Repository) ResolveRevision(rev string) (hasher.Digest, error) {
	rev = strings.TrimSpace(rev)
	if strings.EqualFold(rev, "head") {
		head, err := r.Chain.CurrentHead()
		if err != nil {
			return "", err
		}
		if head == "" {
			return "", errors.CommitNotFound("head", fmt.Errorf("no commits yet"))
		}
		return head, nil
	}

	rev = strings.ToLower(rev)
	if r.Objects.Hasher().Valid(hasher.Digest(rev)) {
		return hasher.Digest(rev), nil
	}
	if len(rev) < MinPrefix {
		return "", errors.ValidationError(fmt.Sprintf("commit id %q is too short", rev))
	}

	metas, err := r.Catalog.List()
	if err != nil {
		return "", err
	}

	var matches []hasher.Digest
	for _, meta := range metas {
		if meta.Kind == catalog.KindCommit && strings.HasPrefix(string(meta.Digest), rev) {
			matches = append(matches, meta.Digest)
		}
	}

	switch len(matches) {
	case 0:
		return "", errors.CommitNotFound(rev, nil)
	case 1:
		return matches[0], nil
	default:
		return "", errors.ValidationError(fmt.Sprintf("commit id %s is ambiguous (%d matches)", rev, len(matches)))
	}
}
