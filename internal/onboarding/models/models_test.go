package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestCompletionPercent(t *testing.T) {
	tests := []struct {
		name  string
		flags Progress
		want  int
	}{
		{"no flags", Progress{}, 0},
		{"one flag", Progress{Identity: true}, 20},
		{"two flags", Progress{Identity: true, Education: true}, 40},
		{"three flags", Progress{PersonalInfo: true, Education: true, Employment: true}, 60},
		{"four flags", Progress{Identity: true, PersonalInfo: true, Education: true, Employment: true}, 80},
		{"all flags", Progress{Identity: true, PersonalInfo: true, Education: true, Employment: true, Review: true}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState()
			state.Progress = tt.flags
			assert.Equal(t, tt.want, state.CompletionPercent())
		})
	}
}

func TestApplyProgress(t *testing.T) {
	t.Run("merges only the given flags", func(t *testing.T) {
		state := NewState()
		state.Progress.Identity = true

		state.ApplyProgress(ProgressPatch{Education: boolPtr(true)})

		assert.True(t, state.Progress.Identity, "untouched flag must survive the merge")
		assert.True(t, state.Progress.Education)
		assert.False(t, state.Progress.Review)
	})

	t.Run("flags can be set out of order", func(t *testing.T) {
		state := NewState()
		state.ApplyProgress(ProgressPatch{Review: boolPtr(true)})
		assert.True(t, state.Progress.Review)
		assert.False(t, state.Progress.Identity)
		assert.Equal(t, 20, state.CompletionPercent())
	})
}

func TestSetCurrentStep(t *testing.T) {
	state := NewState()
	require.NoError(t, state.SetCurrentStep(5))
	assert.Equal(t, 5, state.CurrentStep)

	assert.Error(t, state.SetCurrentStep(0))
	assert.Error(t, state.SetCurrentStep(6))
	assert.Equal(t, 5, state.CurrentStep, "invalid step must not overwrite the indicator")
}

func TestAppendOnlySequences(t *testing.T) {
	state := NewState()

	first := EducationEntry{Level: "Bachelor", Institution: "UCLA", FieldOfStudy: "Computer Science", GraduationYear: "2012"}
	second := EducationEntry{Level: "Master", Institution: "Stanford"}
	state.AddEducation(first)
	state.AddEducation(second)

	require.Len(t, state.Education, 2)
	assert.Equal(t, first, state.Education[0], "insertion order preserved, entries untouched")
	assert.Equal(t, second, state.Education[1])

	state.AddEmployment(EmploymentEntry{Employer: "BIX Technology", Title: "Senior Software Engineer", StartDate: "Mar 2020", Current: true})
	state.AddEmployment(EmploymentEntry{Employer: "Acme"})
	require.Len(t, state.Employment, 2)
	assert.Equal(t, "BIX Technology", state.Employment[0].Employer)
}

func TestWithMockFallback(t *testing.T) {
	t.Run("empty scan yields the full mock record", func(t *testing.T) {
		assert.Equal(t, MockScan, IDScanResult{}.WithMockFallback())
	})

	t.Run("missing gender falls back while present fields survive verbatim", func(t *testing.T) {
		scan := IDScanResult{
			FullName:       "Jordan Smith",
			Birthdate:      "03/02/1985",
			IDType:         "Driver's License",
			IDNumber:       "D7654321",
			ExpirationDate: "03/02/2031",
		}
		got := scan.WithMockFallback()
		assert.Equal(t, "Male", got.Gender)
		assert.Equal(t, "Jordan Smith", got.FullName)
		assert.Equal(t, "03/02/1985", got.Birthdate)
		assert.Equal(t, "Driver's License", got.IDType)
		assert.Equal(t, "D7654321", got.IDNumber)
		assert.Equal(t, "03/02/2031", got.ExpirationDate)
	})

	t.Run("whitespace-only values count as missing", func(t *testing.T) {
		got := IDScanResult{Gender: "  "}.WithMockFallback()
		assert.Equal(t, "Male", got.Gender)
	})
}

func TestParseEnums(t *testing.T) {
	t.Run("providers", func(t *testing.T) {
		p, err := ParseProvider(" Persona ")
		require.NoError(t, err)
		assert.Equal(t, ProviderPersona, p)
		assert.True(t, p.Live())

		p, err = ParseProvider("au10tix")
		require.NoError(t, err)
		assert.False(t, p.Live())

		_, err = ParseProvider("acme-verify")
		assert.Error(t, err)
	})

	t.Run("id types", func(t *testing.T) {
		typ, err := ParseIDType("US_PASSPORT")
		require.NoError(t, err)
		assert.Equal(t, IDTypeUSPassport, typ)

		_, err = ParseIDType("library_card")
		assert.Error(t, err)
	})

	t.Run("education levels", func(t *testing.T) {
		level, err := ParseEducationLevel("no_degree")
		require.NoError(t, err)
		assert.Equal(t, LevelNoDegree, level)

		_, err = ParseEducationLevel("bootcamp")
		assert.Error(t, err)
	})
}

func TestClone(t *testing.T) {
	state := NewState()
	state.SetIDScan(MockScan)
	state.SetPersonalInfo(MockPersonalInfo())
	state.AddEducation(NoDegreeEntry)

	clone := state.Clone()
	clone.IDScan.FullName = "Someone Else"
	clone.PersonalInfo.Addresses[0].City = "Elsewhere"
	clone.AddEducation(EducationEntry{Institution: "MIT"})

	assert.Equal(t, "Lucas Menegazzo", state.IDScan.FullName)
	assert.Equal(t, "Los Angeles", state.PersonalInfo.Addresses[0].City)
	assert.Len(t, state.Education, 1)
}
