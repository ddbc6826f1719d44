// Package score computes the compatibility score between a missing case and a
// found case. The function is pure and deterministic: the same pair always
// yields the same score, and every component is explainable to the reviewing
// administrator.
package score

import (
	"math"
	"sort"
	"strings"
	"time"

	casemodels "reunite/internal/cases/models"
)

// Component weights. The three weights sum to 100 so component values in
// [0,1] produce a 0-100 score.
const (
	nameWeight     = 40.0
	dateWeight     = 30.0
	locationWeight = 30.0
)

// Hard-gate and component thresholds.
const (
	maxAgeGapYears = 3

	nearWindowDays = 60
	farWindowDays  = 90

	nearDateValue    = 1.0
	farDateValue     = 0.7
	distantDateValue = 0.3
	neutralDateValue = 0.5

	exactNameValue     = 1.0
	substringNameValue = 0.9

	sameCityValue = 1.0
	// Different or unknown cities still score above zero: same-country
	// relocation between report and sighting is plausible.
	cityFloorValue = 0.15
)

// Score returns the 0-100 compatibility score for the pair. Gender mismatch,
// or an age gap above maxAgeGapYears when both ages are present, disqualifies
// the pair outright. Rounding happens once, on the weighted sum.
func Score(missing, found *casemodels.Case) int {
	if missing.Gender != found.Gender {
		return 0
	}
	if missing.Age != nil && found.Age != nil {
		gap := *missing.Age - *found.Age
		if gap < 0 {
			gap = -gap
		}
		if gap > maxAgeGapYears {
			return 0
		}
	}

	total := nameWeight*nameSimilarity(missing.FullName, found.FullName) +
		dateWeight*dateProximity(missing.LastSeenOrFoundOn, found.LastSeenOrFoundOn) +
		locationWeight*citySimilarity(missing.City, found.City)

	return int(math.Round(total))
}

// nameSimilarity returns 1.0 for an exact match, 0.9 for case-insensitive
// substring containment in either direction, otherwise a symmetric multiset
// character-overlap ratio. A missing name contributes nothing without
// disqualifying the pair.
func nameSimilarity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return exactNameValue
	}
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if strings.Contains(la, lb) || strings.Contains(lb, la) {
		return substringNameValue
	}
	return overlapRatio(la, lb)
}

// overlapRatio counts matched character pairs between the two names via a
// two-pointer merge over their sorted characters, normalized by the longer
// name's length.
func overlapRatio(a, b string) float64 {
	ra := sortedRunes(a)
	rb := sortedRunes(b)

	matched := 0
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		switch {
		case ra[i] == rb[j]:
			matched++
			i++
			j++
		case ra[i] < rb[j]:
			i++
		default:
			j++
		}
	}

	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 0
	}
	return float64(matched) / float64(longer)
}

func sortedRunes(s string) []rune {
	runes := []rune(s)
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return runes
}

// dateProximity buckets the absolute day difference between the last-seen and
// found dates. An absent date on either side is neutral rather than
// disqualifying.
func dateProximity(a, b *time.Time) float64 {
	if a == nil || b == nil {
		return neutralDateValue
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	days := diff.Hours() / 24
	switch {
	case days <= nearWindowDays:
		return nearDateValue
	case days <= farWindowDays:
		return farDateValue
	default:
		return distantDateValue
	}
}

// citySimilarity is exact-equality only: trimmed, case-insensitive. Anything
// else gets the floor value, never zero.
func citySimilarity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return cityFloorValue
	}
	if strings.EqualFold(a, b) {
		return sameCityValue
	}
	return cityFloorValue
}
