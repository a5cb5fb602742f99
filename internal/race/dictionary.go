package race

import "context"

// WordInfo carries the rarity/frequency data for a dictionary word.
// Rarity is 0-100 where higher means more common.
type WordInfo struct {
	Rarity    int
	TileScore int
}

// Dictionary is the lexicon oracle consumed by the engine. Lookups
// are asynchronous I/O from the engine's point of view and take a
// context.
type Dictionary interface {
	Exists(ctx context.Context, word string) (bool, error)
	FrequencyOf(ctx context.Context, word string) (WordInfo, error)
}

// Lexicon is an in-memory Dictionary seeded with a word list and
// per-word rarity scores. Unknown words looked up through FrequencyOf
// fall back to a neutral rarity.
type Lexicon struct {
	rarity map[string]int
}

const defaultRarity = 50

// NewLexicon returns a lexicon containing the built-in word list.
func NewLexicon() *Lexicon {
	l := &Lexicon{rarity: make(map[string]int, len(builtinWords))}
	for word, rarity := range builtinWords {
		l.rarity[word] = rarity
	}
	return l
}

// Add inserts or overrides a word with the given rarity.
func (l *Lexicon) Add(word string, rarity int) {
	l.rarity[normalizeWord(word)] = rarity
}

func (l *Lexicon) Exists(_ context.Context, word string) (bool, error) {
	_, ok := l.rarity[normalizeWord(word)]
	return ok, nil
}

func (l *Lexicon) FrequencyOf(_ context.Context, word string) (WordInfo, error) {
	word = normalizeWord(word)
	rarity, ok := l.rarity[word]
	if !ok {
		rarity = defaultRarity
	}
	return WordInfo{Rarity: rarity, TileScore: TileScore(word)}, nil
}
