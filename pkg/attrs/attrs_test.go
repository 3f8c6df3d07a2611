package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	list := []any{"inquiry_id", "inq_123", "count", 3, "reason", "camera unavailable"}

	assert.Equal(t, "inq_123", ExtractString(list, "inquiry_id"))
	assert.Equal(t, "camera unavailable", ExtractString(list, "reason"))
	assert.Empty(t, ExtractString(list, "count"), "non-string values are skipped")
	assert.Empty(t, ExtractString(list, "missing"))
	assert.Empty(t, ExtractString(nil, "inquiry_id"))

	// Odd-length lists must not read past the end.
	assert.Empty(t, ExtractString([]any{"dangling"}, "dangling"))
}
