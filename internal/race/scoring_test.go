package race

import "testing"

func TestScoreWordZebraBreakdown(t *testing.T) {
	// ZEBRA: base 10+2*5=20, rarity 20 -> +15, no streak,
	// tiles Z10+E1+B3+R1+A1=16 -> scrabble +8, no time bonus.
	sub := ScoreWord("ZEBRA", 0, 0, 20)
	if sub.BaseScore != 20 {
		t.Fatalf("base = %d, want 20", sub.BaseScore)
	}
	if sub.RarityBonus != 15 {
		t.Fatalf("rarity bonus = %d, want 15", sub.RarityBonus)
	}
	if sub.StreakBonus != 0 {
		t.Fatalf("streak bonus = %d, want 0", sub.StreakBonus)
	}
	if sub.TileScore != 16 || sub.ScrabbleBonus != 8 {
		t.Fatalf("tiles = %d scrabble = %d, want 16/8", sub.TileScore, sub.ScrabbleBonus)
	}
	if sub.Total != 43 {
		t.Fatalf("total = %d, want 43", sub.Total)
	}
}

func TestScoreWordDeterministic(t *testing.T) {
	first := ScoreWord("ZEBRA", 0, 0, 20)
	for i := 0; i < 10; i++ {
		if got := ScoreWord("ZEBRA", 0, 0, 20); got.Total != first.Total {
			t.Fatalf("call %d: total %d != %d", i, got.Total, first.Total)
		}
	}
}

func TestScoreWordRarityTiers(t *testing.T) {
	cases := []struct {
		rarity int
		bonus  int
	}{
		{0, 15}, {29, 15}, {30, 10}, {49, 10}, {50, 5}, {69, 5}, {70, 0}, {100, 0},
	}
	for _, tc := range cases {
		if got := ScoreWord("TEA", 0, 0, tc.rarity).RarityBonus; got != tc.bonus {
			t.Errorf("rarity %d: bonus = %d, want %d", tc.rarity, got, tc.bonus)
		}
	}
}

func TestScoreWordStreakBonusCapped(t *testing.T) {
	if got := ScoreWord("TEA", 0, 3, 100).StreakBonus; got != 6 {
		t.Fatalf("streak 3 bonus = %d, want 6", got)
	}
	if got := ScoreWord("TEA", 0, 50, 100).StreakBonus; got != 20 {
		t.Fatalf("streak 50 bonus = %d, want capped 20", got)
	}
}

func TestScoreWordTimeBonusCarried(t *testing.T) {
	sub := ScoreWord("TEA", 7, 0, 100)
	if sub.TimeBonus != 7 {
		t.Fatalf("time bonus = %d, want 7", sub.TimeBonus)
	}
	want := sub.BaseScore + sub.RarityBonus + sub.StreakBonus + sub.ScrabbleBonus + sub.TimeBonus
	if sub.Total != want {
		t.Fatalf("total = %d, want sum of components %d", sub.Total, want)
	}
}

func TestTileScoreNormalizesCase(t *testing.T) {
	if TileScore("zebra") != TileScore("ZEBRA") {
		t.Fatal("tile score must be case-insensitive")
	}
	if got := TileScore("QI"); got != 11 {
		t.Fatalf("QI = %d, want 11", got)
	}
}
