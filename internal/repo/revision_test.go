package repo

import (
	"strings"
	"testing"

	"groot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRevision(t *testing.T) {
	r := setupRepo(t)

	_, err := r.ResolveRevision("HEAD")
	assert.ErrorIs(t, err, errors.ErrCommitNotFound, "no commits yet")

	digests := commitVersions(t, r, "hello", "hello world")
	blob := r.Objects.Hasher().Sum([]byte("hello"))

	tests := []struct {
		name    string
		rev     string
		want    string
		wantErr error
	}{
		{name: "head", rev: "head", want: string(digests[1])},
		{name: "full digest", rev: string(digests[0]), want: string(digests[0])},
		{name: "upper case full digest", rev: strings.ToUpper(string(digests[0])), want: string(digests[0])},
		{name: "prefix", rev: string(digests[0])[:10], want: string(digests[0])},
		{name: "too short", rev: "ab", wantErr: errors.ErrValidation},
		{name: "blob prefix is not a commit", rev: string(blob)[:12], wantErr: errors.ErrCommitNotFound},
		{name: "unknown prefix", rev: "ffffffffff", wantErr: errors.ErrCommitNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveRevision(tt.rev)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
