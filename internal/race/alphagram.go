package race

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// normalizeWord uppercases and trims a candidate word.
func normalizeWord(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

// Alphagram returns the canonical form of a letter set: its letters
// uppercased and sorted into a fixed order.
func Alphagram(letters string) string {
	runes := []rune(normalizeWord(letters))
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return string(runes)
}

// ValidAnagram reports whether word uses every letter of the target
// set exactly once. Shorter sub-anagrams are rejected: the letter
// multisets must match exactly.
func ValidAnagram(word, letters string) bool {
	if normalizeWord(word) == "" {
		return false
	}
	return Alphagram(word) == Alphagram(letters)
}

// Generator produces the ordered alphagram list for a race.
type Generator interface {
	Generate(count int, difficulty Difficulty, wordLength int) []string
}

// alphagramPools maps each difficulty tier to its curated pool of
// letter sets. Harder tiers carry longer and rarer combinations.
var alphagramPools = map[Difficulty][]string{
	DifficultyEasy: {
		"AET", "ACT", "ADN", "OPT", "AERT", "AELT",
		"ADER", "EIMT", "OPST", "ENOT", "AEMT", "DORW",
	},
	DifficultyMedium: {
		"AELST", "ACERT", "AEPRS", "AELRT", "AELPT", "EINST",
		"ABERZ", "AEHRT", "ADEST", "EORST", "AGINR", "EIRST",
	},
	DifficultyHard: {
		"EILNST", "ADEGNR", "EINRST", "AEPRST", "ACERST", "AEGLNS",
		"DEIRST", "AEILNS", "EGINRS", "AEMNST",
	},
	DifficultyExpert: {
		"AEINRST", "AEGINRT", "AEILNRT", "EGINRST", "ADEINRS",
		"AEGILNS", "ACEINRST", "AEGINRST",
	},
}

// PoolGenerator draws alphagrams uniformly at random, with
// replacement, from the pool for the requested tier. It makes no
// guarantee that a drawn set has any minimum number of valid words.
type PoolGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPoolGenerator returns a generator backed by the given source, or
// a time-seeded one when src is nil.
func NewPoolGenerator(src rand.Source) *PoolGenerator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &PoolGenerator{rng: rand.New(src)}
}

// Generate draws count letter sets for the tier. When wordLength is
// positive the pool is narrowed to sets of that exact length; if the
// filter empties the pool the whole tier pool is used instead.
func (g *PoolGenerator) Generate(count int, difficulty Difficulty, wordLength int) []string {
	pool, ok := alphagramPools[difficulty]
	if !ok {
		pool = alphagramPools[DifficultyMedium]
	}
	if wordLength > 0 {
		filtered := make([]string, 0, len(pool))
		for _, letters := range pool {
			if len(letters) == wordLength {
				filtered = append(filtered, letters)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	sets := make([]string, count)
	for i := range sets {
		sets[i] = pool[g.rng.Intn(len(pool))]
	}
	return sets
}

// FixedGenerator always returns the same alphagram sequence, cycling
// when asked for more sets than it holds.
type FixedGenerator struct {
	Sets []string
}

func (g FixedGenerator) Generate(count int, _ Difficulty, _ int) []string {
	sets := make([]string, count)
	for i := range sets {
		sets[i] = Alphagram(g.Sets[i%len(g.Sets)])
	}
	return sets
}
