package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixed(t *testing.T) {
	id := Prefixed("local_")
	assert.True(t, HasPrefix(id, "local_"))
	assert.False(t, HasPrefix(id, "item_"))
	assert.False(t, HasPrefix("local_not-a-uuid", "local_"))
	assert.NotEqual(t, New(), New())
}
