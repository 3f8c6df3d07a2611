package kyc

import (
	"strings"

	"valid8/internal/onboarding/models"
)

// FieldBag is the loosely-typed vendor payload: a keyed bag whose values
// are plain strings or objects carrying a "value" key.
type FieldBag map[string]any

// Persona field keys observed on inquiry payloads.
const (
	fieldNameFirst      = "name-first"
	fieldNameLast       = "name-last"
	fieldBirthdate      = "birthdate"
	fieldSex            = "sex"
	fieldIDClass        = "identification-class"
	fieldIDNumber       = "identification-number"
	fieldExpirationDate = "expiration-date"
)

// ExtractScan maps a vendor field bag onto the normalized scan. Every field
// is optional and falls back independently to the fixed mock value; one
// missing field never fails the whole extraction.
func ExtractScan(bag FieldBag) models.IDScanResult {
	first := stringField(bag, fieldNameFirst)
	last := stringField(bag, fieldNameLast)

	scan := models.IDScanResult{
		FullName:       strings.TrimSpace(first + " " + last),
		Birthdate:      stringField(bag, fieldBirthdate),
		Gender:         stringField(bag, fieldSex),
		IDType:         stringField(bag, fieldIDClass),
		IDNumber:       stringField(bag, fieldIDNumber),
		ExpirationDate: stringField(bag, fieldExpirationDate),
	}
	return scan.WithMockFallback()
}

// stringField tolerates both value shapes Persona emits: a bare string or
// an object like {"type": "string", "value": "..."}.
func stringField(bag FieldBag, key string) string {
	raw, ok := bag[key]
	if !ok {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		if inner, ok := v["value"].(string); ok {
			return inner
		}
	}
	return ""
}
