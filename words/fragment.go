package words

import (
	"context"
)

const (
	minFragmentLength = 2
	maxFragmentLength = 4
)

// Round is the letter fragment for one turn and every word that contains it.
type Round struct {
	Fragment   string
	Candidates map[string]struct{}
}

// FragmentPicker derives round fragments from a Source.
type FragmentPicker struct {
	source        Source
	rnd           Random
	minCandidates int
	maxAttempts   int
}

func NewFragmentPicker(source Source, rnd Random, minCandidates, maxAttempts int) *FragmentPicker {
	if rnd == nil {
		rnd = DefaultRandom
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FragmentPicker{
		source:        source,
		rnd:           rnd,
		minCandidates: minCandidates,
		maxAttempts:   maxAttempts,
	}
}

// Fragment picks a contiguous substring of word, 2 to 4 letters long and never longer than word.
func Fragment(word string, rnd Random) string {
	length := minFragmentLength + rnd.Intn(maxFragmentLength-minFragmentLength+1)
	if length > len(word) {
		length = len(word)
	}
	start := rnd.Intn(len(word) - length + 1)
	return word[start : start+length]
}

// Next draws random words until a fragment with at least minCandidates candidates is found.
// After maxAttempts draws the fragment with the most candidates seen so far is returned.
func (p *FragmentPicker) Next(ctx context.Context) (Round, error) {
	var best Round
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Round{}, err
		}

		word, err := p.source.RandomWord(ctx)
		if err != nil {
			return Round{}, err
		}
		fragment := Fragment(word, p.rnd)

		candidates, err := p.source.WordsContaining(ctx, fragment)
		if err != nil {
			return Round{}, err
		}
		if len(candidates) >= p.minCandidates {
			return Round{Fragment: fragment, Candidates: candidates}, nil
		}
		if len(candidates) > len(best.Candidates) {
			best = Round{Fragment: fragment, Candidates: candidates}
		}
	}
	return best, nil
}
