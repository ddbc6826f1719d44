package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	casemodels "reunite/internal/cases/models"
)

func newCase(kind casemodels.CaseKind, name string, age *int, gender casemodels.Gender, city string, date *time.Time) *casemodels.Case {
	return &casemodels.Case{
		Kind:              kind,
		FullName:          name,
		Age:               age,
		Gender:            gender,
		City:              city,
		LastSeenOrFoundOn: date,
	}
}

func intPtr(v int) *int { return &v }

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestScore_GenderMismatchDisqualifies(t *testing.T) {
	m := newCase(casemodels.KindMissing, "Ali", intPtr(30), casemodels.GenderMale, "Lahore", nil)
	f := newCase(casemodels.KindFound, "Ali", intPtr(30), casemodels.GenderFemale, "Lahore", nil)
	assert.Equal(t, 0, Score(m, f))
}

func TestScore_AgeGapDisqualifies(t *testing.T) {
	m := newCase(casemodels.KindMissing, "Ali", intPtr(30), casemodels.GenderMale, "Lahore", nil)
	f := newCase(casemodels.KindFound, "Ali", intPtr(34), casemodels.GenderMale, "Lahore", nil)
	assert.Equal(t, 0, Score(m, f))

	// Gap of exactly three years passes the gate.
	f.Age = intPtr(33)
	assert.Greater(t, Score(m, f), 0)
}

func TestScore_MissingAgeIsNotAGate(t *testing.T) {
	m := newCase(casemodels.KindMissing, "Ali", nil, casemodels.GenderMale, "Lahore", nil)
	f := newCase(casemodels.KindFound, "Ali", intPtr(90), casemodels.GenderMale, "Lahore", nil)
	assert.Greater(t, Score(m, f), 0)
}

func TestScore_NameComponent(t *testing.T) {
	base := func(name string) (*casemodels.Case, *casemodels.Case) {
		m := newCase(casemodels.KindMissing, "Ali", nil, casemodels.GenderMale, "", nil)
		f := newCase(casemodels.KindFound, name, nil, casemodels.GenderMale, "", nil)
		return m, f
	}

	// Shared tail: neutral date 0.5*30=15, city floor 0.15*30=4.5.
	m, f := base("Ali")
	exact := Score(m, f)
	assert.Equal(t, 60, exact) // 40 + 15 + 4.5 = 59.5 rounds to 60

	m, f = base("Ali Khan")
	substring := Score(m, f)
	assert.Equal(t, 56, substring) // 36 + 15 + 4.5 = 55.5 rounds to 56

	m, f = base("Zrqw")
	disjoint := Score(m, f)
	assert.Less(t, disjoint, substring)

	// Missing name contributes zero without disqualifying.
	m, f = base("")
	assert.Equal(t, 20, Score(m, f)) // 0 + 15 + 4.5 rounds to 20
}

func TestScore_CharacterOverlapRatio(t *testing.T) {
	// "abc" vs "cab": all three characters pair up, no substring relation.
	assert.InDelta(t, 1.0, overlapRatio("abc", "cab"), 1e-9)
	// "abc" vs "axyz": only "a" pairs; longer length 4.
	assert.InDelta(t, 0.25, overlapRatio("abc", "axyz"), 1e-9)
	// Duplicate characters pair at most once each.
	assert.InDelta(t, 0.5, overlapRatio("aa", "ab"), 1e-9)
}

func TestScore_DateBuckets(t *testing.T) {
	m := newCase(casemodels.KindMissing, "Ali", nil, casemodels.GenderMale, "Lahore", datePtr(2024, time.January, 1))

	near := newCase(casemodels.KindFound, "Ali", nil, casemodels.GenderMale, "Lahore", datePtr(2024, time.February, 25))
	far := newCase(casemodels.KindFound, "Ali", nil, casemodels.GenderMale, "Lahore", datePtr(2024, time.March, 20))
	distant := newCase(casemodels.KindFound, "Ali", nil, casemodels.GenderMale, "Lahore", datePtr(2024, time.June, 1))

	assert.Equal(t, 100, Score(m, near))   // 40 + 30 + 30
	assert.Equal(t, 91, Score(m, far))     // 40 + 21 + 30
	assert.Equal(t, 79, Score(m, distant)) // 40 + 9 + 30
}

func TestScore_CityComparison(t *testing.T) {
	m := newCase(casemodels.KindMissing, "Ali", nil, casemodels.GenderMale, " Lahore ", nil)
	f := newCase(casemodels.KindFound, "Ali", nil, casemodels.GenderMale, "lahore", nil)
	// 40 + 15 + 30 = 85: trimmed, case-insensitive equality counts as same city.
	assert.Equal(t, 85, Score(m, f))

	f.City = "Karachi"
	// 40 + 15 + 4.5 rounds to 60: different city keeps the floor, never zero.
	assert.Equal(t, 60, Score(m, f))
}

func TestScore_EndToEndScenario(t *testing.T) {
	m := newCase(casemodels.KindMissing, "Ali", intPtr(30), casemodels.GenderMale, "Lahore", datePtr(2024, time.January, 10))
	f := newCase(casemodels.KindFound, "Ali Raza", intPtr(31), casemodels.GenderMale, "Lahore", datePtr(2024, time.February, 1))

	// name substring 36 + date within 60 days 30 + same city 30.
	assert.Equal(t, 96, Score(m, f))
}

func TestScore_Deterministic(t *testing.T) {
	m := newCase(casemodels.KindMissing, "Fatima Noor", intPtr(22), casemodels.GenderFemale, "Multan", datePtr(2024, time.April, 2))
	f := newCase(casemodels.KindFound, "Noor Fatima", intPtr(23), casemodels.GenderFemale, "Multan", datePtr(2024, time.April, 20))

	first := Score(m, f)
	for range 5 {
		assert.Equal(t, first, Score(m, f))
	}
}
