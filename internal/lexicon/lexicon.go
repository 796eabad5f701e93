package lexicon

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Department is a municipal department/category label.
type Department string

const (
	DepartmentWater       Department = "water"
	DepartmentElectricity Department = "electricity"
	DepartmentRoads       Department = "roads"
	DepartmentSanitation  Department = "sanitation"
	DepartmentHealth      Department = "health"
	// DepartmentOther is the reserved low-confidence fallback. It is always
	// present even when a loaded lexicon omits it.
	DepartmentOther Department = "other"
)

// TierWeights are the relative weights of the keyword tiers. Exact-language
// primary matches must outrank loose synonyms.
type TierWeights struct {
	Primary   float64 `yaml:"primary"`
	Regional  float64 `yaml:"regional"`
	Secondary float64 `yaml:"secondary"`
	Synonym   float64 `yaml:"synonym"`
}

// DefaultTierWeights returns the built-in tier weighting.
func DefaultTierWeights() TierWeights {
	return TierWeights{Primary: 3.0, Regional: 2.5, Secondary: 2.0, Synonym: 1.0}
}

// KeywordSet holds the tiered keyword lists for one department.
type KeywordSet struct {
	Primary   []string `yaml:"primary"`
	Secondary []string `yaml:"secondary"`
	Regional  []string `yaml:"regional"`
	Synonyms  []string `yaml:"synonyms"`
}

// DepartmentSpec is the loadable definition of one department.
type DepartmentSpec struct {
	Name         Department `yaml:"name"`
	Keywords     KeywordSet `yaml:"keywords"`
	Patterns     []string   `yaml:"patterns"`
	PriorityBase float64    `yaml:"priority_base"`
}

// Spec is the loadable definition of a full lexicon.
type Spec struct {
	Departments    []DepartmentSpec `yaml:"departments"`
	TierWeights    TierWeights      `yaml:"tier_weights"`
	PatternBonus   float64          `yaml:"pattern_bonus"`
	EmergencyWords []string         `yaml:"emergency_words"`
	ImportantWords []string         `yaml:"important_words"`
	IntensityWords []string         `yaml:"intensity_words"`
	NegationWords  []string         `yaml:"negation_words"`
}

// Lexicon is an immutable, loaded-once keyword and pattern store. All scorer
// lookups go through accessors; nothing is mutated after New returns, so a
// single Lexicon is safe to share across goroutines.
type Lexicon struct {
	order        []Department
	keywords     map[Department]KeywordSet
	patterns     map[Department][]*regexp.Regexp
	priorityBase map[Department]float64

	tierWeights  TierWeights
	patternBonus float64

	emergency map[string]bool
	important map[string]bool
	intensity map[string]bool
	negation  map[string]bool
}

// New validates and compiles a Spec into a Lexicon.
func New(spec Spec) (*Lexicon, error) {
	if len(spec.Departments) == 0 {
		return nil, fmt.Errorf("lexicon: no departments defined")
	}

	lex := &Lexicon{
		keywords:     make(map[Department]KeywordSet),
		patterns:     make(map[Department][]*regexp.Regexp),
		priorityBase: make(map[Department]float64),
		tierWeights:  spec.TierWeights,
		patternBonus: spec.PatternBonus,
		emergency:    wordSet(spec.EmergencyWords),
		important:    wordSet(spec.ImportantWords),
		intensity:    wordSet(spec.IntensityWords),
		negation:     wordSet(spec.NegationWords),
	}

	if lex.tierWeights == (TierWeights{}) {
		lex.tierWeights = DefaultTierWeights()
	}
	if lex.patternBonus == 0 {
		lex.patternBonus = 2.5
	}

	for _, d := range spec.Departments {
		name := Department(strings.ToLower(strings.TrimSpace(string(d.Name))))
		if name == "" {
			return nil, fmt.Errorf("lexicon: department with empty name")
		}
		if _, dup := lex.keywords[name]; dup {
			return nil, fmt.Errorf("lexicon: duplicate department %q", name)
		}

		var compiled []*regexp.Regexp
		for _, p := range d.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("lexicon: department %q pattern %q: %w", name, p, err)
			}
			compiled = append(compiled, re)
		}

		lex.order = append(lex.order, name)
		lex.keywords[name] = lowerKeywordSet(d.Keywords)
		lex.patterns[name] = compiled
		lex.priorityBase[name] = d.PriorityBase
	}

	// The fallback category always exists, even if the file omits it.
	if _, ok := lex.keywords[DepartmentOther]; !ok {
		lex.order = append(lex.order, DepartmentOther)
		lex.keywords[DepartmentOther] = KeywordSet{}
		lex.priorityBase[DepartmentOther] = 2.0
	}

	return lex, nil
}

// LoadFile reads a YAML lexicon file.
func LoadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("lexicon: parse %s: %w", path, err)
	}
	return New(spec)
}

// Departments returns the department declaration order. Classification ties
// break in this order, so it is part of the lexicon contract.
func (l *Lexicon) Departments() []Department {
	out := make([]Department, len(l.order))
	copy(out, l.order)
	return out
}

// Keywords returns the keyword tiers for a department.
func (l *Lexicon) Keywords(d Department) KeywordSet {
	return l.keywords[d]
}

// Patterns returns the compiled phrase patterns for a department.
func (l *Lexicon) Patterns(d Department) []*regexp.Regexp {
	return l.patterns[d]
}

// PriorityBase returns the department's base priority weight.
func (l *Lexicon) PriorityBase(d Department) float64 {
	return l.priorityBase[d]
}

// TierWeights returns the keyword tier weights.
func (l *Lexicon) TierWeights() TierWeights {
	return l.tierWeights
}

// PatternBonus returns the flat score added per phrase-pattern match.
func (l *Lexicon) PatternBonus() float64 {
	return l.patternBonus
}

// IsEmergencyWord reports whether the token signals an emergency.
func (l *Lexicon) IsEmergencyWord(tok string) bool { return l.emergency[tok] }

// IsImportantWord reports whether the token signals mere importance.
func (l *Lexicon) IsImportantWord(tok string) bool { return l.important[tok] }

// IsIntensityWord reports whether the token is an intensity modifier.
func (l *Lexicon) IsIntensityWord(tok string) bool { return l.intensity[tok] }

// IsNegationWord reports whether the token is a negation.
func (l *Lexicon) IsNegationWord(tok string) bool { return l.negation[tok] }

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = true
		}
	}
	return set
}

func lowerKeywordSet(ks KeywordSet) KeywordSet {
	lower := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return KeywordSet{
		Primary:   lower(ks.Primary),
		Secondary: lower(ks.Secondary),
		Regional:  lower(ks.Regional),
		Synonyms:  lower(ks.Synonyms),
	}
}
