package classify

import (
	"strings"

	"github.com/nagarseva/nagarseva/internal/lexicon"
)

// Scores maps departments to a raw signal score. Scorers are pure functions
// over an immutable lexicon; the scales differ per scorer and are normalized
// by the engine before weighting.
type Scores map[lexicon.Department]float64

// KeywordScores sums tierWeight x occurrence count over the configured
// keyword tiers for every department.
func KeywordScores(lex *lexicon.Lexicon, text string) Scores {
	padded := padTokens(text)
	weights := lex.TierWeights()

	scores := make(Scores)
	for _, dept := range lex.Departments() {
		ks := lex.Keywords(dept)
		total := weights.Primary*countAny(padded, ks.Primary) +
			weights.Secondary*countAny(padded, ks.Secondary) +
			weights.Regional*countAny(padded, ks.Regional) +
			weights.Synonym*countAny(padded, ks.Synonyms)
		if total > 0 {
			scores[dept] = total
		}
	}
	return scores
}

// PatternScores adds a flat bonus per contextual phrase-pattern match. This
// corrects cases where isolated keywords are ambiguous but a phrase ("no
// water", "power cut") is not.
func PatternScores(lex *lexicon.Lexicon, text string) Scores {
	scores := make(Scores)
	bonus := lex.PatternBonus()
	for _, dept := range lex.Departments() {
		var total float64
		for _, re := range lex.Patterns(dept) {
			total += bonus * float64(len(re.FindAllStringIndex(text, -1)))
		}
		if total > 0 {
			scores[dept] = total
		}
	}
	return scores
}

// Intensity scoring constants. Modifiers and negations apply to the sentence
// they appear in, never to the whole text.
const (
	intensityBoostPerWord = 0.25
	negationDiscount      = 0.5
)

// IntensityScores re-scores keyword hits sentence by sentence, boosting
// sentences with intensity modifiers and discounting negated ones.
func IntensityScores(lex *lexicon.Lexicon, text string) Scores {
	scores := make(Scores)
	for _, sentence := range splitSentences(text) {
		multiplier := 1.0
		for _, tok := range tokenize(sentence) {
			if lex.IsIntensityWord(tok) {
				multiplier += intensityBoostPerWord
			}
			if lex.IsNegationWord(tok) {
				multiplier *= negationDiscount
			}
		}
		for dept, s := range KeywordScores(lex, sentence) {
			scores[dept] += s * multiplier
		}
	}
	return scores
}

// UrgencyHits counts emergency and important word occurrences; the priority
// engine weighs emergencies higher.
func UrgencyHits(lex *lexicon.Lexicon, text string) (emergency, important int) {
	for _, tok := range tokenize(text) {
		if lex.IsEmergencyWord(tok) {
			emergency++
		}
		if lex.IsImportantWord(tok) {
			important++
		}
	}
	return emergency, important
}

// SentimentBand buckets text into a coarse agitation level: 2 when emergency
// language dominates, 1 when intensity/importance language is present, else
// 0. Used by the similarity engine as a match indicator.
func SentimentBand(lex *lexicon.Lexicon, text string) int {
	emergency, important := UrgencyHits(lex, text)
	if emergency > 0 {
		return 2
	}
	intense := 0
	for _, tok := range tokenize(text) {
		if lex.IsIntensityWord(tok) {
			intense++
		}
	}
	if important > 0 || intense > 0 {
		return 1
	}
	return 0
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return r == '\'' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r > 127
}

// padTokens normalizes text into a space-padded token stream so multi-word
// keywords match on token boundaries rather than raw substrings ("light"
// must not match inside "slightly").
func padTokens(text string) string {
	return " " + strings.Join(tokenize(text), " ") + " "
}

func countAny(padded string, keywords []string) float64 {
	var count int
	for _, kw := range keywords {
		count += strings.Count(padded, " "+kw+" ")
	}
	return float64(count)
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ',' || r == ';' || r == '\n'
	})
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
