// Package models defines the onboarding wizard data model: progress flags,
// the collected identity/personal/education/employment records, and the
// deterministic fallback values used when vendor data is missing.
package models

import (
	"math"
	"strings"

	dErrors "valid8/pkg/domain-errors"
)

// KYCProvider identifies an identity-verification vendor.
type KYCProvider string

const (
	ProviderPersona KYCProvider = "persona"
	ProviderAu10tix KYCProvider = "au10tix"
	ProviderOnfido  KYCProvider = "onfido"
	ProviderIDMe    KYCProvider = "idme"
)

// LiveProviders lead to a real verification sub-state; the others synthesize
// the fallback scan directly.
func (p KYCProvider) Live() bool {
	return p == ProviderPersona || p == ProviderOnfido
}

func ParseProvider(raw string) (KYCProvider, error) {
	p := KYCProvider(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case ProviderPersona, ProviderAu10tix, ProviderOnfido, ProviderIDMe:
		return p, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown verification provider")
}

// IDType identifies the class of government document being verified.
type IDType string

const (
	IDTypeUSPassport        IDType = "us_passport"
	IDTypeDriversLicense    IDType = "drivers_license"
	IDTypeRealID            IDType = "real_id"
	IDTypeForeignPassport   IDType = "foreign_passport"
	IDTypePermanentResident IDType = "permanent_resident"
)

func ParseIDType(raw string) (IDType, error) {
	t := IDType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case IDTypeUSPassport, IDTypeDriversLicense, IDTypeRealID, IDTypeForeignPassport, IDTypePermanentResident:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown id type")
}

// EducationLevel is the highest level selected at the education step.
type EducationLevel string

const (
	LevelNoDegree   EducationLevel = "no_degree"
	LevelHighSchool EducationLevel = "high_school"
	LevelAssociate  EducationLevel = "associate"
	LevelBachelor   EducationLevel = "bachelor"
	LevelMaster     EducationLevel = "master"
	LevelDoctorate  EducationLevel = "doctorate"
)

func ParseEducationLevel(raw string) (EducationLevel, error) {
	l := EducationLevel(strings.ToLower(strings.TrimSpace(raw)))
	switch l {
	case LevelNoDegree, LevelHighSchool, LevelAssociate, LevelBachelor, LevelMaster, LevelDoctorate:
		return l, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown education level")
}

// Progress holds the five independent step-completion flags. A flag is set
// only by its own step's completion action and is never unset by another
// step; nothing enforces completion order.
type Progress struct {
	Identity     bool `json:"identity"`
	PersonalInfo bool `json:"personalInfo"`
	Education    bool `json:"education"`
	Employment   bool `json:"employment"`
	Review       bool `json:"review"`
}

// ProgressPatch carries a partial flag update; nil fields are left untouched.
type ProgressPatch struct {
	Identity     *bool `json:"identity,omitempty"`
	PersonalInfo *bool `json:"personalInfo,omitempty"`
	Education    *bool `json:"education,omitempty"`
	Employment   *bool `json:"employment,omitempty"`
	Review       *bool `json:"review,omitempty"`
}

// IDScanResult is the normalized document scan. Each field individually
// falls back to the fixed mock value when the extracted value is empty.
type IDScanResult struct {
	FullName       string `json:"fullName"`
	Birthdate      string `json:"birthdate"`
	Gender         string `json:"gender"`
	IDType         string `json:"idType"`
	IDNumber       string `json:"idNumber"`
	ExpirationDate string `json:"expirationDate"`
}

// MockScan is the fallback scan record used when a provider is not
// integrated or individual fields are missing from the vendor payload.
var MockScan = IDScanResult{
	FullName:       "Lucas Menegazzo",
	Birthdate:      "01/15/1990",
	Gender:         "Male",
	IDType:         "U.S. Passport",
	IDNumber:       "X12345678",
	ExpirationDate: "01/15/2030",
}

// WithMockFallback fills every empty field of the scan from MockScan,
// leaving present fields verbatim.
func (r IDScanResult) WithMockFallback() IDScanResult {
	fallback := func(value, mock string) string {
		if strings.TrimSpace(value) == "" {
			return mock
		}
		return value
	}
	return IDScanResult{
		FullName:       fallback(r.FullName, MockScan.FullName),
		Birthdate:      fallback(r.Birthdate, MockScan.Birthdate),
		Gender:         fallback(r.Gender, MockScan.Gender),
		IDType:         fallback(r.IDType, MockScan.IDType),
		IDNumber:       fallback(r.IDNumber, MockScan.IDNumber),
		ExpirationDate: fallback(r.ExpirationDate, MockScan.ExpirationDate),
	}
}

// Address is a free-form residential address with a residence interval.
type Address struct {
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// PersonalInfo is the record committed by the personal-info step. The step
// always commits exactly one address.
type PersonalInfo struct {
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Aliases   []string  `json:"aliases"`
	Addresses []Address `json:"addresses"`
}

// MockPersonalInfo is committed by the skip shortcut.
func MockPersonalInfo() PersonalInfo {
	return PersonalInfo{
		Email:   "lucas.menegazzo@bix-tech.com",
		Phone:   "+1 (555) 555-5555",
		Aliases: []string{},
		Addresses: []Address{{
			Street:    "123 Main Street",
			City:      "Los Angeles",
			State:     "CA",
			Zip:       "90001",
			StartDate: "Jan 2014",
			EndDate:   "Present",
		}},
	}
}

// EducationEntry is one committed education record.
type EducationEntry struct {
	Level          string `json:"level"`
	Institution    string `json:"institution"`
	FieldOfStudy   string `json:"fieldOfStudy"`
	GraduationYear string `json:"graduationYear"`
}

// NoDegreeEntry is committed when the no-degree level skips the details
// sub-state entirely.
var NoDegreeEntry = EducationEntry{Level: "No degree"}

// EmploymentEntry is one committed employment record.
type EmploymentEntry struct {
	Employer  string `json:"employer"`
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Current   bool   `json:"current"`
}

// IdentitySubStep names the identity step's local sub-states.
type IdentitySubStep string

const (
	SubStepProviderSelect IdentitySubStep = "provider-select"
	SubStepSelectID       IdentitySubStep = "select-id"
	SubStepVerifyIntro    IdentitySubStep = "verify-intro"
	SubStepVerification   IdentitySubStep = "verification"
	SubStepPersonaAPI     IdentitySubStep = "persona-api"
	SubStepReview         IdentitySubStep = "review"
)

// IdentityFlow tracks the identity step's sub-state machine plus any
// server-issued verification session identifiers. Cancellation clears the
// identifiers so a retry issues a fresh inquiry.
type IdentityFlow struct {
	SubStep      IdentitySubStep `json:"subStep"`
	Provider     KYCProvider     `json:"provider,omitempty"`
	IDType       IDType          `json:"idType,omitempty"`
	InquiryID    string          `json:"inquiryId,omitempty"`
	SessionToken string          `json:"-"`
}

// State is the per-user onboarding container: progress flags, the active
// step indicator, and everything collected so far. It is a plain value;
// the store serializes access.
type State struct {
	Progress     Progress
	CurrentStep  int
	Identity     IdentityFlow
	IDScan       *IDScanResult
	PersonalInfo *PersonalInfo
	Education    []EducationEntry
	Employment   []EmploymentEntry
	// Drafts is the employment step's pre-commit scratch list; a single
	// save moves every draft, in order, into Employment.
	Drafts    []EmploymentEntry
	Submitted bool
}

// NewState starts a wizard at step 1 with the identity sub-machine at
// provider selection.
func NewState() *State {
	return &State{
		CurrentStep: 1,
		Identity:    IdentityFlow{SubStep: SubStepProviderSelect},
	}
}

// ApplyProgress merges the given flags. Any flag may be set independent of
// prerequisites; ordering is deliberately not enforced.
func (s *State) ApplyProgress(patch ProgressPatch) {
	if patch.Identity != nil {
		s.Progress.Identity = *patch.Identity
	}
	if patch.PersonalInfo != nil {
		s.Progress.PersonalInfo = *patch.PersonalInfo
	}
	if patch.Education != nil {
		s.Progress.Education = *patch.Education
	}
	if patch.Employment != nil {
		s.Progress.Employment = *patch.Employment
	}
	if patch.Review != nil {
		s.Progress.Review = *patch.Review
	}
}

// SetCurrentStep sets the stepper indicator. Valid steps are 1 through 5.
func (s *State) SetCurrentStep(step int) error {
	if step < 1 || step > 5 {
		return dErrors.New(dErrors.CodeInvalidInput, "step must be between 1 and 5")
	}
	s.CurrentStep = step
	return nil
}

// SetIDScan replaces the scan record wholesale; last write wins.
func (s *State) SetIDScan(scan IDScanResult) {
	s.IDScan = &scan
}

// SetPersonalInfo replaces the personal-info record wholesale.
func (s *State) SetPersonalInfo(info PersonalInfo) {
	s.PersonalInfo = &info
}

// AddEducation appends; entries keep insertion order and are never mutated
// or removed once committed.
func (s *State) AddEducation(entry EducationEntry) {
	s.Education = append(s.Education, entry)
}

// AddEmployment appends; same append-only contract as AddEducation.
func (s *State) AddEmployment(entry EmploymentEntry) {
	s.Employment = append(s.Employment, entry)
}

// AddDraft appends a pre-commit employment row.
func (s *State) AddDraft(entry EmploymentEntry) {
	s.Drafts = append(s.Drafts, entry)
}

// RemoveDraft drops the draft at index; committed entries are untouchable.
func (s *State) RemoveDraft(index int) error {
	if index < 0 || index >= len(s.Drafts) {
		return dErrors.New(dErrors.CodeInvalidInput, "draft index out of range")
	}
	s.Drafts = append(s.Drafts[:index], s.Drafts[index+1:]...)
	return nil
}

// CompletionPercent derives the wizard completion from the five flags,
// recomputed on every read.
func (s *State) CompletionPercent() int {
	count := 0
	for _, flag := range []bool{
		s.Progress.Identity,
		s.Progress.PersonalInfo,
		s.Progress.Education,
		s.Progress.Employment,
		s.Progress.Review,
	} {
		if flag {
			count++
		}
	}
	return int(math.Round(100 * float64(count) / 5))
}

// Clone returns a deep copy so callers can read without holding store locks.
func (s *State) Clone() *State {
	copied := *s
	if s.IDScan != nil {
		scan := *s.IDScan
		copied.IDScan = &scan
	}
	if s.PersonalInfo != nil {
		info := *s.PersonalInfo
		info.Aliases = append([]string(nil), s.PersonalInfo.Aliases...)
		info.Addresses = append([]Address(nil), s.PersonalInfo.Addresses...)
		copied.PersonalInfo = &info
	}
	copied.Education = append([]EducationEntry(nil), s.Education...)
	copied.Employment = append([]EmploymentEntry(nil), s.Employment...)
	copied.Drafts = append([]EmploymentEntry(nil), s.Drafts...)
	return &copied
}
