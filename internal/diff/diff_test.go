package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffRuns(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want []Run
	}{
		{
			name: "single line replaced",
			old:  "hello",
			new:  "hello world",
			want: []Run{
				{Kind: Removed, Lines: []string{"hello"}},
				{Kind: Added, Lines: []string{"hello world"}},
			},
		},
		{
			name: "identical",
			old:  "a\nb\n",
			new:  "a\nb\n",
			want: []Run{{Kind: Unchanged, Lines: []string{"a", "b"}}},
		},
		{
			name: "middle line changed",
			old:  "a\nb\nc\n",
			new:  "a\nx\nc\n",
			want: []Run{
				{Kind: Unchanged, Lines: []string{"a"}},
				{Kind: Removed, Lines: []string{"b"}},
				{Kind: Added, Lines: []string{"x"}},
				{Kind: Unchanged, Lines: []string{"c"}},
			},
		},
		{
			name: "from empty",
			old:  "",
			new:  "a\nb",
			want: []Run{{Kind: Added, Lines: []string{"a", "b"}}},
		},
		{
			name: "to empty",
			old:  "a\n",
			new:  "",
			want: []Run{{Kind: Removed, Lines: []string{"a"}}},
		},
		{
			name: "both empty",
			old:  "",
			new:  "",
			want: nil,
		},
		{
			name: "appended lines",
			old:  "a\n",
			new:  "a\nb\nc\n",
			want: []Run{
				{Kind: Unchanged, Lines: []string{"a"}},
				{Kind: Added, Lines: []string{"b", "c"}},
			},
		},
	}

	e := NewEngine(3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Diff([]byte(tt.old), []byte(tt.new))
			assert.Equal(t, tt.want, got.Runs)
		})
	}
}

func TestDiffStats(t *testing.T) {
	r := NewEngine(3).Diff([]byte("a\nb\nc\n"), []byte("a\nc\nd\ne\n"))

	assert.Equal(t, 3, r.Stats.Additions+r.Stats.Deletions)
	assert.Equal(t, 1, r.Stats.Deletions)
	assert.Equal(t, 2, r.Stats.Additions)
	assert.True(t, r.Changed())

	assert.False(t, NewEngine(3).Diff([]byte("same"), []byte("same")).Changed())
}

func TestDiffLineNumbers(t *testing.T) {
	r := NewEngine(0).Diff([]byte("a\nb\n"), []byte("a\nc\n"))

	require.Len(t, r.Lines, 3)
	assert.Equal(t, Line{Kind: Unchanged, Content: "a", OldNum: 1, NewNum: 1}, r.Lines[0])
	assert.Equal(t, Line{Kind: Removed, Content: "b", OldNum: 2}, r.Lines[1])
	assert.Equal(t, Line{Kind: Added, Content: "c", NewNum: 2}, r.Lines[2])
}

func TestHunks(t *testing.T) {
	old := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
	new := "1\nTWO\n3\n4\n5\n6\n7\n8\nNINE\n10\n"

	t.Run("far apart changes split", func(t *testing.T) {
		e := NewEngine(1)
		hunks := e.Hunks(e.Diff([]byte(old), []byte(new)))
		require.Len(t, hunks, 2)

		assert.Equal(t, 1, hunks[0].OldStart)
		assert.Equal(t, 3, hunks[0].OldLines)
		assert.Equal(t, 1, hunks[0].NewStart)
		assert.Equal(t, 3, hunks[0].NewLines)

		assert.Equal(t, 8, hunks[1].OldStart)
		assert.Equal(t, 3, hunks[1].OldLines)
	})

	t.Run("wide context merges", func(t *testing.T) {
		e := NewEngine(3)
		hunks := e.Hunks(e.Diff([]byte(old), []byte(new)))
		require.Len(t, hunks, 1)
		assert.Equal(t, 1, hunks[0].OldStart)
		assert.Equal(t, 10, hunks[0].OldLines)
	})

	t.Run("no changes", func(t *testing.T) {
		e := NewEngine(3)
		assert.Empty(t, e.Hunks(e.Diff([]byte(old), []byte(old))))
	})
}

func TestFormat(t *testing.T) {
	e := NewEngine(1)
	out := e.Format(e.Diff([]byte("a\nb\nc\n"), []byte("a\nx\nc\n")))

	assert.Equal(t, "@@ -1,3 +1,3 @@\n  a\n- b\n+ x\n  c\n", out)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}
