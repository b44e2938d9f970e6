package uid

import (
	"strings"

	"github.com/google/uuid"
)

// New generates a new unique identifier.
func New() string {
	return uuid.NewString()
}

// Prefixed returns a new identifier tagged with prefix, e.g. "item_<uuid>".
func Prefixed(prefix string) string {
	return prefix + New()
}

// HasPrefix reports whether id was made by Prefixed(prefix) and carries a
// well-formed UUID.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
