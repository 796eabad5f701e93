package classify

import (
	"testing"

	"github.com/nagarseva/nagarseva/internal/lexicon"
)

func TestKeywordScores_TierWeighting(t *testing.T) {
	lex := lexicon.Default()

	// "water" is a primary water keyword, "leak" secondary, "pani" regional.
	scores := KeywordScores(lex, "water leak near the pani tanker")
	// water(3) + leak(2) + pani(2.5) + tanker(3) = 10.5
	if got := scores[lexicon.DepartmentWater]; got != 10.5 {
		t.Errorf("expected water score 10.5, got %f", got)
	}
	if _, ok := scores[lexicon.DepartmentRoads]; ok {
		t.Error("roads should not score on water-only text")
	}
}

func TestKeywordScores_TokenBoundaries(t *testing.T) {
	lex := lexicon.Default()

	// "light" is an electricity synonym; it must not match inside "slightly".
	scores := KeywordScores(lex, "the door is slightly ajar")
	if got := scores[lexicon.DepartmentElectricity]; got != 0 {
		t.Errorf("substring must not match: expected 0, got %f", got)
	}

	scores = KeywordScores(lex, "the light is broken")
	if scores[lexicon.DepartmentElectricity] == 0 {
		t.Error("whole-word keyword should match")
	}
}

func TestKeywordScores_CountsRepeats(t *testing.T) {
	lex := lexicon.Default()

	one := KeywordScores(lex, "garbage on the street")[lexicon.DepartmentSanitation]
	two := KeywordScores(lex, "garbage garbage on the street")[lexicon.DepartmentSanitation]
	if two <= one {
		t.Errorf("repeated keyword should score higher: %f vs %f", two, one)
	}
}

func TestPatternScores_PhraseBonus(t *testing.T) {
	lex := lexicon.Default()

	scores := PatternScores(lex, "There is NO WATER in our colony")
	if got := scores[lexicon.DepartmentWater]; got != lex.PatternBonus() {
		t.Errorf("expected one pattern bonus %f, got %f", lex.PatternBonus(), got)
	}

	scores = PatternScores(lex, "nothing relevant here")
	if len(scores) != 0 {
		t.Errorf("expected no pattern hits, got %v", scores)
	}
}

func TestPatternScores_PotholeSpelling(t *testing.T) {
	lex := lexicon.Default()

	for _, text := range []string{"huge pothole", "huge pot hole", "potholes everywhere"} {
		if PatternScores(lex, text)[lexicon.DepartmentRoads] == 0 {
			t.Errorf("expected pothole pattern to match %q", text)
		}
	}
}

func TestIntensityScores_BoostAndNegation(t *testing.T) {
	lex := lexicon.Default()

	base := IntensityScores(lex, "the road is damaged")[lexicon.DepartmentRoads]
	boosted := IntensityScores(lex, "the road is very damaged")[lexicon.DepartmentRoads]
	negated := IntensityScores(lex, "the road is not damaged")[lexicon.DepartmentRoads]

	if boosted <= base {
		t.Errorf("intensity word should boost: base %f, boosted %f", base, boosted)
	}
	if negated >= base {
		t.Errorf("negation should discount: base %f, negated %f", base, negated)
	}
}

func TestIntensityScores_SentenceLocal(t *testing.T) {
	lex := lexicon.Default()

	// The negation sits in its own clause; the water clause keeps full weight.
	split := IntensityScores(lex, "water is leaking, not sure since when")
	whole := IntensityScores(lex, "water is not leaking")
	if split[lexicon.DepartmentWater] <= whole[lexicon.DepartmentWater] {
		t.Errorf("negation must stay clause-local: split %f, whole %f",
			split[lexicon.DepartmentWater], whole[lexicon.DepartmentWater])
	}
}

func TestUrgencyHits(t *testing.T) {
	lex := lexicon.Default()

	emergency, important := UrgencyHits(lex, "Pipe BURST, flooding everywhere, please fix urgently")
	if emergency != 2 {
		t.Errorf("expected 2 emergency hits, got %d", emergency)
	}
	if important != 1 {
		t.Errorf("expected 1 important hit, got %d", important)
	}
}

func TestSentimentBand(t *testing.T) {
	lex := lexicon.Default()

	tests := []struct {
		text string
		want int
	}{
		{"pipe burst flooding the lane", 2},
		{"please fix this urgently", 1},
		{"the drain is very dirty", 1},
		{"streetlight not working", 0},
	}
	for _, tt := range tests {
		if got := SentimentBand(lex, tt.text); got != tt.want {
			t.Errorf("SentimentBand(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestTokenize_KeepsUnicode(t *testing.T) {
	toks := tokenize("पानी नहीं water")
	if len(toks) != 3 {
		t.Fatalf("expected 3 tokens, got %v", toks)
	}
	if toks[2] != "water" {
		t.Errorf("expected lowercased ascii token, got %q", toks[2])
	}
}
