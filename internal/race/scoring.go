package race

// tileScores holds the standard letter tile values used for the
// scrabble bonus.
var tileScores = map[rune]int{
	'A': 1, 'B': 3, 'C': 3, 'D': 2, 'E': 1, 'F': 4, 'G': 2,
	'H': 4, 'I': 1, 'J': 8, 'K': 5, 'L': 1, 'M': 3, 'N': 1,
	'O': 1, 'P': 3, 'Q': 10, 'R': 1, 'S': 1, 'T': 1, 'U': 1,
	'V': 4, 'W': 4, 'X': 8, 'Y': 4, 'Z': 10,
}

// TileScore sums the tile values of a word. Unknown runes count zero.
func TileScore(word string) int {
	total := 0
	for _, r := range normalizeWord(word) {
		total += tileScores[r]
	}
	return total
}

// ScoreWord computes the full score breakdown for an accepted word.
// Rarity is a 0-100 frequency score where higher means more common, so
// rarer words earn a larger bonus. The time bonus is supplied by the
// caller and is zero when time-bonus scoring is disabled for the race.
// Pure; the caller must reject empty words before scoring.
func ScoreWord(word string, timeBonus, streak, rarity int) WordSubmission {
	word = normalizeWord(word)

	base := 10 + 2*len(word)

	rarityBonus := 0
	switch {
	case rarity < 30:
		rarityBonus = 15
	case rarity < 50:
		rarityBonus = 10
	case rarity < 70:
		rarityBonus = 5
	}

	streakBonus := streak * 2
	if streakBonus > 20 {
		streakBonus = 20
	}

	tiles := TileScore(word)
	scrabbleBonus := tiles / 2

	return WordSubmission{
		Word:          word,
		Rarity:        rarity,
		TileScore:     tiles,
		BaseScore:     base,
		RarityBonus:   rarityBonus,
		StreakBonus:   streakBonus,
		ScrabbleBonus: scrabbleBonus,
		TimeBonus:     timeBonus,
		Total:         base + rarityBonus + streakBonus + scrabbleBonus + timeBonus,
	}
}
