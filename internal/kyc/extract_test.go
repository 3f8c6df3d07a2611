package kyc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"valid8/internal/onboarding/models"
)

func TestExtractScan(t *testing.T) {
	t.Run("object-valued fields extract verbatim", func(t *testing.T) {
		bag := FieldBag{
			"name-first":            map[string]any{"type": "string", "value": "Jordan"},
			"name-last":             map[string]any{"type": "string", "value": "Smith"},
			"birthdate":             map[string]any{"type": "date", "value": "03/02/1985"},
			"sex":                   map[string]any{"type": "string", "value": "Female"},
			"identification-class":  map[string]any{"type": "string", "value": "Driver's License"},
			"identification-number": map[string]any{"type": "string", "value": "D7654321"},
			"expiration-date":       map[string]any{"type": "date", "value": "03/02/2031"},
		}
		got := ExtractScan(bag)
		assert.Equal(t, models.IDScanResult{
			FullName:       "Jordan Smith",
			Birthdate:      "03/02/1985",
			Gender:         "Female",
			IDType:         "Driver's License",
			IDNumber:       "D7654321",
			ExpirationDate: "03/02/2031",
		}, got)
	})

	t.Run("bare string values also extract", func(t *testing.T) {
		got := ExtractScan(FieldBag{"name-first": "Jordan", "name-last": "Smith"})
		assert.Equal(t, "Jordan Smith", got.FullName)
	})

	t.Run("missing gender falls back while other fields are preserved", func(t *testing.T) {
		bag := FieldBag{
			"name-first":            "Jordan",
			"name-last":             "Smith",
			"birthdate":             "03/02/1985",
			"identification-class":  "Driver's License",
			"identification-number": "D7654321",
			"expiration-date":       "03/02/2031",
		}
		got := ExtractScan(bag)
		assert.Equal(t, "Male", got.Gender)
		assert.Equal(t, "Jordan Smith", got.FullName)
		assert.Equal(t, "03/02/1985", got.Birthdate)
		assert.Equal(t, "D7654321", got.IDNumber)
	})

	t.Run("empty bag yields the full mock record", func(t *testing.T) {
		assert.Equal(t, models.MockScan, ExtractScan(FieldBag{}))
	})

	t.Run("unexpected value shapes count as missing", func(t *testing.T) {
		got := ExtractScan(FieldBag{
			"name-first": 42,
			"sex":        map[string]any{"value": 7},
		})
		assert.Equal(t, models.MockScan.FullName, got.FullName)
		assert.Equal(t, "Male", got.Gender)
	})

	t.Run("first name alone still forms the full name", func(t *testing.T) {
		got := ExtractScan(FieldBag{"name-first": "Jordan"})
		assert.Equal(t, "Jordan", got.FullName)
	})
}
