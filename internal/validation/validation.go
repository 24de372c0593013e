package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"groot/internal/errors"
)

type Validator interface {
	Validate() error
}

// All runs each validator in order and returns the first failure.
func All(validators ...Validator) error {
	for _, v := range validators {
		if v == nil {
			continue
		}
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CommitMessage rejects blank messages and bytes that would not survive the
// JSON encoding of a commit unchanged.
func CommitMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return errors.ValidationError("commit message is required")
	}
	if !utf8.ValidString(message) {
		return errors.ValidationError("commit message must be valid UTF-8")
	}
	return nil
}

// Paths checks the arguments of add and watch.
func Paths(paths []string) error {
	if len(paths) == 0 {
		return errors.ValidationError("no paths specified")
	}
	for i, p := range paths {
		if strings.TrimSpace(p) == "" {
			return errors.ValidationError(fmt.Sprintf("path %d is empty", i+1))
		}
	}
	return nil
}
