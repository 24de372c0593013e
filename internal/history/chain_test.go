package history

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"groot/internal/catalog"
	"groot/internal/errors"
	"groot/internal/hasher"
	"groot/internal/objects"
	"groot/internal/staging"
	"groot/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testRepo struct {
	dir     string
	objects *objects.Store
	staging *staging.Area
	chain   *Chain
}

func setupChain(t *testing.T) *testRepo {
	dir := t.TempDir()
	h, err := hasher.New(hasher.SHA1)
	require.NoError(t, err)

	store, err := objects.New(h, nil, objects.Options{Root: filepath.Join(dir, "objects")}, zap.NewNop())
	require.NoError(t, err)

	area := staging.New(filepath.Join(dir, "index"), zap.NewNop())
	require.NoError(t, area.Initialize())

	chain := New(dir, store, area, zap.NewNop())
	require.NoError(t, chain.InitializeHead())

	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	chain.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	return &testRepo{dir: dir, objects: store, staging: area, chain: chain}
}

func (r *testRepo) stage(t *testing.T, path, content string) hasher.Digest {
	d, err := r.objects.Put([]byte(content))
	require.NoError(t, err)
	require.NoError(t, r.staging.Stage(path, d))
	return d
}

func TestCurrentHead(t *testing.T) {
	t.Run("empty head means no commits", func(t *testing.T) {
		r := setupChain(t)
		d, err := r.chain.CurrentHead()
		require.NoError(t, err)
		assert.Empty(t, d)
	})

	t.Run("missing head means no commits", func(t *testing.T) {
		r := setupChain(t)
		require.NoError(t, os.Remove(filepath.Join(r.dir, HeadFile)))

		d, err := r.chain.CurrentHead()
		require.NoError(t, err)
		assert.Empty(t, d)
	})

	t.Run("garbage head is malformed", func(t *testing.T) {
		r := setupChain(t)
		require.NoError(t, os.WriteFile(filepath.Join(r.dir, HeadFile), []byte("not-a-digest"), 0644))

		_, err := r.chain.CurrentHead()
		assert.ErrorIs(t, err, errors.ErrMalformed)
	})

	t.Run("trailing newline is ignored", func(t *testing.T) {
		r := setupChain(t)
		want := r.objects.Hasher().Sum([]byte("x"))
		require.NoError(t, os.WriteFile(filepath.Join(r.dir, HeadFile), []byte(want+"\n"), 0644))

		d, err := r.chain.CurrentHead()
		require.NoError(t, err)
		assert.Equal(t, want, d)
	})
}

func TestInitializeHeadTwice(t *testing.T) {
	r := setupChain(t)
	r.stage(t, "a.txt", "hello")
	d, err := r.chain.Commit("first")
	require.NoError(t, err)

	assert.ErrorIs(t, r.chain.InitializeHead(), errors.ErrAlreadyInitialized)

	head, err := r.chain.CurrentHead()
	require.NoError(t, err)
	assert.Equal(t, d, head)
}

func TestCommitFirst(t *testing.T) {
	r := setupChain(t)
	blob := r.stage(t, "a.txt", "hello")

	h1, err := r.chain.Commit("first")
	require.NoError(t, err)

	head, err := r.chain.CurrentHead()
	require.NoError(t, err)
	assert.Equal(t, h1, head)

	c, err := r.chain.Resolve(h1)
	require.NoError(t, err)
	assert.True(t, c.IsRoot())
	assert.Equal(t, "first", c.Message)
	assert.Equal(t, "2024-03-01T10:00:01.000Z", c.Date)
	assert.Equal(t, []shared.Entry{{Path: "a.txt", Hash: blob}}, c.Files)

	entries, err := r.staging.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = os.Stat(filepath.Join(r.dir, LockFile))
	assert.True(t, os.IsNotExist(err), "lock must be released")
}

func TestCommitDigestIsOverSerializedForm(t *testing.T) {
	r := setupChain(t)
	r.stage(t, "a.txt", "hello")

	d, err := r.chain.Commit("first")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(r.dir, "objects", string(d)))
	require.NoError(t, err)
	assert.Equal(t, r.objects.Hasher().Sum(raw), d)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.ElementsMatch(t, []string{"Date", "message", "files", "parent"}, keys(fields))
}

func TestCommitStoresMessageAsWritten(t *testing.T) {
	r := setupChain(t)
	r.stage(t, "a&b.txt", "hello")

	d, err := r.chain.Commit("fix a<b && c>d")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(r.dir, "objects", string(d)))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"fix a<b && c>d"`)
	assert.Contains(t, string(raw), `"path":"a&b.txt"`)
	assert.False(t, strings.HasSuffix(string(raw), "\n"))
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestCommitChainAndHistory(t *testing.T) {
	r := setupChain(t)

	r.stage(t, "a.txt", "hello")
	h1, err := r.chain.Commit("first")
	require.NoError(t, err)

	r.stage(t, "a.txt", "hello world")
	h2, err := r.chain.Commit("second")
	require.NoError(t, err)

	c2, err := r.chain.Resolve(h2)
	require.NoError(t, err)
	assert.Equal(t, h1, c2.Parent)

	var visited []hasher.Digest
	for entry, err := range r.chain.History() {
		require.NoError(t, err)
		visited = append(visited, entry.Digest)
	}
	assert.Equal(t, []hasher.Digest{h2, h1}, visited)
}

func TestHistoryTerminates(t *testing.T) {
	r := setupChain(t)

	const commits = 5
	for i := 0; i < commits; i++ {
		r.stage(t, "a.txt", strings.Repeat("x", i+1))
		_, err := r.chain.Commit("step")
		require.NoError(t, err)
	}

	steps := 0
	for _, err := range r.chain.History() {
		require.NoError(t, err)
		steps++
		require.LessOrEqual(t, steps, commits)
	}
	assert.Equal(t, commits, steps)
}

func TestHistoryEmpty(t *testing.T) {
	r := setupChain(t)
	for range r.chain.History() {
		t.Fatal("no commits expected")
	}
}

func TestHistoryStopsEarly(t *testing.T) {
	r := setupChain(t)
	for i := 0; i < 3; i++ {
		r.stage(t, "a.txt", strings.Repeat("y", i+1))
		_, err := r.chain.Commit("step")
		require.NoError(t, err)
	}

	n := 0
	for range r.chain.History() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestHistoryMissingParent(t *testing.T) {
	r := setupChain(t)
	r.stage(t, "a.txt", "hello")
	h1, err := r.chain.Commit("first")
	require.NoError(t, err)
	r.stage(t, "a.txt", "bye")
	h2, err := r.chain.Commit("second")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(r.dir, "objects", string(h1))))

	// A fresh store so the removed object is not served from cache.
	store, err := objects.New(r.objects.Hasher(), nil, objects.Options{Root: filepath.Join(r.dir, "objects")}, zap.NewNop())
	require.NoError(t, err)
	chain := New(r.dir, store, r.staging, zap.NewNop())

	var got []hasher.Digest
	var walkErr error
	for entry, err := range chain.History() {
		if err != nil {
			walkErr = err
			continue
		}
		got = append(got, entry.Digest)
	}
	assert.Equal(t, []hasher.Digest{h2}, got)
	assert.ErrorIs(t, walkErr, errors.ErrCommitNotFound)
}

func TestResolve(t *testing.T) {
	r := setupChain(t)
	blob := r.stage(t, "a.txt", "hello")
	d, err := r.chain.Commit("first")
	require.NoError(t, err)

	t.Run("repeatable", func(t *testing.T) {
		a, err := r.chain.Resolve(d)
		require.NoError(t, err)
		b, err := r.chain.Resolve(d)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("unknown digest", func(t *testing.T) {
		_, err := r.chain.Resolve(r.objects.Hasher().Sum([]byte("nothing")))
		assert.ErrorIs(t, err, errors.ErrCommitNotFound)
	})

	t.Run("blob is not a commit", func(t *testing.T) {
		_, err := r.chain.Resolve(blob)
		assert.ErrorIs(t, err, errors.ErrCommitNotFound)
	})

	t.Run("json that is not a commit", func(t *testing.T) {
		other, err := r.objects.Put([]byte(`{"unrelated": true}`))
		require.NoError(t, err)
		_, err = r.chain.Resolve(other)
		assert.ErrorIs(t, err, errors.ErrCommitNotFound)
	})

	t.Run("null parent is root", func(t *testing.T) {
		legacy, err := r.objects.Put([]byte(`{"Date":"2024-01-01T00:00:00.000Z","message":"m","files":[],"parent":null}`))
		require.NoError(t, err)
		c, err := r.chain.Resolve(legacy)
		require.NoError(t, err)
		assert.True(t, c.IsRoot())
	})
}

func TestCommitEmptyStaging(t *testing.T) {
	r := setupChain(t)

	d, err := r.chain.Commit("nothing staged")
	require.NoError(t, err)

	c, err := r.chain.Resolve(d)
	require.NoError(t, err)
	assert.NotNil(t, c.Files)
	assert.Empty(t, c.Files)
}

func TestCommitLocked(t *testing.T) {
	r := setupChain(t)
	r.stage(t, "a.txt", "hello")
	held := []byte(strconv.Itoa(os.Getpid()))
	require.NoError(t, os.WriteFile(filepath.Join(r.dir, LockFile), held, 0644))

	_, err := r.chain.Commit("first")
	assert.ErrorIs(t, err, errors.ErrLocked)
	assert.Contains(t, err.Error(), "delete that file")

	head, err := r.chain.CurrentHead()
	require.NoError(t, err)
	assert.Empty(t, head)

	entries, err := r.staging.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a refused commit leaves staging alone")
}

func TestCommitRecoversStaleLock(t *testing.T) {
	const deadPID = math.MaxInt32
	if !processGone(deadPID) {
		t.Skip("cannot detect exited processes on this platform")
	}

	r := setupChain(t)
	r.stage(t, "a.txt", "hello")
	lockPath := filepath.Join(r.dir, LockFile)
	require.NoError(t, os.WriteFile(lockPath, []byte(strconv.Itoa(deadPID)), 0644))

	first, err := r.chain.Commit("first")
	require.NoError(t, err)
	assert.NoFileExists(t, lockPath)

	r.stage(t, "a.txt", "hello world")
	_, err = r.chain.Commit("second")
	require.NoError(t, err)

	head, err := r.chain.CurrentHead()
	require.NoError(t, err)
	c, err := r.chain.Resolve(head)
	require.NoError(t, err)
	assert.Equal(t, first, c.Parent)
}

func TestCommitKeepsUnreadableLock(t *testing.T) {
	r := setupChain(t)
	r.stage(t, "a.txt", "hello")
	require.NoError(t, os.WriteFile(filepath.Join(r.dir, LockFile), []byte("not a pid"), 0644))

	_, err := r.chain.Commit("first")
	assert.ErrorIs(t, err, errors.ErrLocked)
}

func TestCommitMalformedIndex(t *testing.T) {
	r := setupChain(t)
	require.NoError(t, os.WriteFile(r.staging.Path(), []byte("oops"), 0644))

	_, err := r.chain.Commit("first")
	assert.ErrorIs(t, err, errors.ErrMalformed)

	head, err := r.chain.CurrentHead()
	require.NoError(t, err)
	assert.Empty(t, head)
}

// fakeStore serves hand-built objects, which lets a test build a parent
// cycle that content addressing would never produce.
type fakeStore struct {
	h       *hasher.Hasher
	objects map[hasher.Digest][]byte
}

func (f *fakeStore) PutKind(_ catalog.Kind, content []byte) (hasher.Digest, error) {
	d := f.h.Sum(content)
	f.objects[d] = content
	return d, nil
}

func (f *fakeStore) Get(d hasher.Digest) ([]byte, error) {
	data, ok := f.objects[d]
	if !ok {
		return nil, errors.ObjectNotFound(string(d))
	}
	return data, nil
}

func (f *fakeStore) Hasher() *hasher.Hasher { return f.h }

func TestHistoryCycle(t *testing.T) {
	h, err := hasher.New(hasher.SHA1)
	require.NoError(t, err)

	a := hasher.Digest(strings.Repeat("a", 40))
	b := hasher.Digest(strings.Repeat("b", 40))
	store := &fakeStore{h: h, objects: map[hasher.Digest][]byte{
		a: []byte(`{"Date":"d","message":"a","files":[],"parent":"` + string(b) + `"}`),
		b: []byte(`{"Date":"d","message":"b","files":[],"parent":"` + string(a) + `"}`),
	}}

	chain := New(t.TempDir(), store, nil, zap.NewNop())

	var got []hasher.Digest
	var walkErr error
	for entry, err := range chain.From(a) {
		if err != nil {
			walkErr = err
			break
		}
		got = append(got, entry.Digest)
	}
	assert.Equal(t, []hasher.Digest{a, b}, got)
	assert.ErrorIs(t, walkErr, errors.ErrCommitNotFound)
}
