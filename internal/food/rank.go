package food

import (
	"sort"
	"strings"
)

// dataTypeRank orders sources by data quality; lower is better.
var dataTypeRank = map[string]int{
	DataTypeSurvey:     0,
	DataTypeSRLegacy:   1,
	DataTypeFoundation: 2,
	DataTypeBranded:    3,
}

const unknownDataTypeRank = 4

// Rank returns the best candidate for query, or false when candidates is empty.
func Rank(candidates []Candidate, query string) (Candidate, bool) {
	ranked := RankAll(candidates, query)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], true
}

// RankAll returns a sorted copy of candidates, best first. The sort key is:
//  1. data type priority (survey, SR legacy, foundation, branded, unknown)
//  2. "dried" agreement between query and description
//  3. relevance score, descending
//
// Ties keep their input order. The input slice is not modified.
func RankAll(candidates []Candidate, query string) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)

	wantDried := strings.Contains(strings.ToLower(query), "dried")

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if ra, rb := typeRank(a.DataType), typeRank(b.DataType); ra != rb {
			return ra < rb
		}
		if pa, pb := driedPenalty(a, wantDried), driedPenalty(b, wantDried); pa != pb {
			return pa < pb
		}
		return a.Score > b.Score
	})

	return ranked
}

func typeRank(dataType string) int {
	if r, ok := dataTypeRank[dataType]; ok {
		return r
	}
	return unknownDataTypeRank
}

func driedPenalty(c Candidate, wantDried bool) int {
	hasDried := strings.Contains(strings.ToLower(c.Description), "dried")
	if hasDried == wantDried {
		return 0
	}
	return 1
}
