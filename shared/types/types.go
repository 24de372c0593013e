// Package shared holds the records that are persisted in a repository and
// passed between the core packages.
package shared

import (
	"time"

	"groot/internal/hasher"
)

// TimeFormat is ISO-8601 in UTC with milliseconds, e.g.
// 2024-03-01T10:20:30.123Z.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Entry is one staged file: a path relative to the working tree and the
// digest of the blob holding its content.
type Entry struct {
	Path string        `json:"path"`
	Hash hasher.Digest `json:"hash"`
}

// Commit is immutable once written. Its digest is the digest of its JSON
// form, and Parent is empty for the root commit.
type Commit struct {
	Date    string        `json:"Date"`
	Message string        `json:"message"`
	Files   []Entry       `json:"files"`
	Parent  hasher.Digest `json:"parent"`
}

// IsRoot reports whether the commit starts the chain.
func (c *Commit) IsRoot() bool {
	return c.Parent == ""
}

// Time parses Date; the zero time is returned for unparsable values.
func (c *Commit) Time() time.Time {
	t, err := time.Parse(TimeFormat, c.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Lookup returns the first entry with the given path.
func (c *Commit) Lookup(path string) (Entry, bool) {
	for _, e := range c.Files {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// LogEntry pairs a commit with the digest it is stored under.
type LogEntry struct {
	Digest hasher.Digest
	Commit *Commit
}
