// Package scoring validates answers and computes the points they are worth.
package scoring

import "strings"

const (
	BasePoints = 1
	// TimeoutPenalty is added to the active player's total when the answer window expires.
	TimeoutPenalty = -1

	longFragment   = 3
	longAnswer     = 7
	rareCandidates = 100
)

// Result is the outcome of evaluating one submitted answer.
type Result struct {
	Word     string
	Accepted bool
	Points   int
}

// Normalize trims surrounding whitespace and uppercases the text.
func Normalize(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}

// Points returns the award for an accepted answer.
func Points(fragment, answer string, candidateCount int) int {
	points := BasePoints
	if len(fragment) > longFragment {
		points++
	}
	if len(answer) > longAnswer {
		points++
	}
	if candidateCount < rareCandidates {
		points++
	}
	return points
}

// Evaluate checks submitted against the round's candidates and the words already used in the match.
// It does not modify used.
func Evaluate(fragment string, candidates, used map[string]struct{}, submitted string) Result {
	word := Normalize(submitted)
	res := Result{Word: word}
	if word == "" {
		return res
	}
	if _, ok := candidates[word]; !ok {
		return res
	}
	if _, dup := used[word]; dup {
		return res
	}
	res.Accepted = true
	res.Points = Points(fragment, word, len(candidates))
	return res
}
