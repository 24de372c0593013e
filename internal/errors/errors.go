package errors

import (
	stderrors "errors"
	"fmt"
)

type Kind string

const (
	KindAlreadyInitialized Kind = "ALREADY_INITIALIZED"
	KindNotInitialized     Kind = "NOT_INITIALIZED"
	KindFileRead           Kind = "FILE_READ"
	KindObjectNotFound     Kind = "OBJECT_NOT_FOUND"
	KindCommitNotFound     Kind = "COMMIT_NOT_FOUND"
	KindMalformed          Kind = "MALFORMED_INDEX_OR_HEAD"
	KindCorruptObject      Kind = "CORRUPT_OBJECT"
	KindLocked             Kind = "LOCKED"
	KindValidation         Kind = "VALIDATION"
	KindInternal           Kind = "INTERNAL"
)

// Error is the typed failure every component returns at its boundary.
// The CLI decides what a kind means for the user.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can compare against
// the sentinel values below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is.
var (
	ErrAlreadyInitialized = &Error{Kind: KindAlreadyInitialized}
	ErrNotInitialized     = &Error{Kind: KindNotInitialized}
	ErrFileRead           = &Error{Kind: KindFileRead}
	ErrObjectNotFound     = &Error{Kind: KindObjectNotFound}
	ErrCommitNotFound     = &Error{Kind: KindCommitNotFound}
	ErrMalformed          = &Error{Kind: KindMalformed}
	ErrCorruptObject      = &Error{Kind: KindCorruptObject}
	ErrLocked             = &Error{Kind: KindLocked}
	ErrValidation         = &Error{Kind: KindValidation}
)

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func AlreadyInitialized(message string) *Error {
	return New(KindAlreadyInitialized, message, nil)
}

func NotInitialized(message string, err error) *Error {
	return New(KindNotInitialized, message, err)
}

func FileRead(path string, err error) *Error {
	return New(KindFileRead, fmt.Sprintf("reading %s", path), err)
}

func ObjectNotFound(digest string) *Error {
	return New(KindObjectNotFound, fmt.Sprintf("object %s not found", digest), nil)
}

func CommitNotFound(digest string, err error) *Error {
	return New(KindCommitNotFound, fmt.Sprintf("no commit found with the commit id %s", digest), err)
}

func Malformed(what string, err error) *Error {
	return New(KindMalformed, fmt.Sprintf("malformed %s", what), err)
}

func CorruptObject(digest string) *Error {
	return New(KindCorruptObject, fmt.Sprintf("object %s does not match its digest", digest), nil)
}

func Locked(path string) *Error {
	return New(KindLocked, fmt.Sprintf("repository is locked by %s; if no other groot command is running, delete that file", path), nil)
}

func ValidationError(message string) *Error {
	return New(KindValidation, message, nil)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}
