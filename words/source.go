// Package words provides the dictionary the game draws fragments and valid answers from.
package words

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
)

var ErrNoWords = errors.New("word list is empty")

// Source is the query interface the game uses. Implementations must be safe for concurrent use.
type Source interface {
	RandomWord(ctx context.Context) (string, error)
	WordsContaining(ctx context.Context, fragment string) (map[string]struct{}, error)
}

// Store loads the raw word list from wherever it is kept.
type Store interface {
	Words(ctx context.Context) ([]string, error)
}

// Saver persists a word list, replacing any previous one.
type Saver interface {
	SaveWords(ctx context.Context, words []string) error
}

// Random can be replaced in tests.
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

type mathRandom struct{}

func (mathRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

// DefaultRandom is backed by math/rand/v2 and safe for concurrent use.
var DefaultRandom Random = mathRandom{}

// Index is an in-memory Source. Words are stored uppercased.
type Index struct {
	rnd   Random
	mu    sync.RWMutex
	words []string
}

func NewIndex(rnd Random) *Index {
	if rnd == nil {
		rnd = DefaultRandom
	}
	return &Index{rnd: rnd}
}

// LoadIndex builds an Index from a store.
func LoadIndex(ctx context.Context, store Store, rnd Random) (*Index, error) {
	list, err := store.Words(ctx)
	if err != nil {
		return nil, err
	}
	idx := NewIndex(rnd)
	if idx.Load(list) == 0 {
		return nil, ErrNoWords
	}
	return idx, nil
}

// Load replaces the word list and returns how many words were kept.
// Only words of at least two ASCII letters are kept; duplicates are dropped.
func (i *Index) Load(list []string) int {
	clean := Clean(list)

	i.mu.Lock()
	i.words = clean
	i.mu.Unlock()
	return len(clean)
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.words)
}

func (i *Index) RandomWord(ctx context.Context) (string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.words) == 0 {
		return "", ErrNoWords
	}
	return i.words[i.rnd.Intn(len(i.words))], nil
}

func (i *Index) WordsContaining(ctx context.Context, fragment string) (map[string]struct{}, error) {
	fragment = strings.ToUpper(fragment)

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.words) == 0 {
		return nil, ErrNoWords
	}
	found := make(map[string]struct{})
	for _, w := range i.words {
		if strings.Contains(w, fragment) {
			found[w] = struct{}{}
		}
	}
	return found, nil
}

// Clean uppercases, trims and filters a raw word list.
func Clean(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	clean := make([]string, 0, len(list))
	for _, w := range list {
		w = strings.ToUpper(strings.TrimSpace(w))
		if len(w) < 2 || !isLetters(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		clean = append(clean, w)
	}
	return clean
}

func isLetters(w string) bool {
	for i := 0; i < len(w); i++ {
		if w[i] < 'A' || w[i] > 'Z' {
			return false
		}
	}
	return true
}

var _ Source = (*Index)(nil)
