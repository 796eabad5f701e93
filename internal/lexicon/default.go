package lexicon

// Default returns the built-in lexicon. Regional tiers carry transliterated
// Hindi terms so reports in mixed language/script still land in the right
// department.
func Default() *Lexicon {
	lex, err := New(DefaultSpec())
	if err != nil {
		// The built-in definition is validated by tests; a compile failure
		// here is a programming error, not a runtime condition.
		panic(err)
	}
	return lex
}

// DefaultSpec returns the built-in lexicon definition. Exposed so operators
// can dump it as a starting point for a custom YAML file.
func DefaultSpec() Spec {
	return Spec{
		TierWeights:  DefaultTierWeights(),
		PatternBonus: 2.5,
		EmergencyWords: []string{
			"emergency", "accident", "fire", "burst", "flooding", "collapsed",
			"electrocution", "sparking", "overflow", "danger", "dangerous",
		},
		ImportantWords: []string{
			"urgent", "urgently", "important", "immediately", "asap", "serious",
		},
		IntensityWords: []string{
			"very", "extremely", "severely", "completely", "totally", "bahut",
		},
		NegationWords: []string{
			"no", "not", "never", "without", "nahi",
		},
		Departments: []DepartmentSpec{
			{
				Name:         DepartmentWater,
				PriorityBase: 5.0,
				Keywords: KeywordSet{
					Primary:   []string{"water", "pipeline", "pipe", "tap", "borewell", "tanker"},
					Secondary: []string{"leak", "leaking", "leakage", "supply", "drinking", "contaminated", "sewage"},
					Regional:  []string{"pani", "paani", "nal", "tanki"},
					Synonyms:  []string{"h2o", "aqua", "plumbing"},
				},
				Patterns: []string{
					`no\s+water`,
					`water\s+(supply|shortage|problem|leak\w*)`,
					`pipe\w*\s+(burst|broken|leak\w*)`,
					`dirty\s+water`,
				},
			},
			{
				Name:         DepartmentElectricity,
				PriorityBase: 5.0,
				Keywords: KeywordSet{
					Primary:   []string{"electricity", "power", "transformer", "voltage", "streetlight"},
					Secondary: []string{"outage", "blackout", "wire", "wires", "pole", "meter", "shock"},
					Regional:  []string{"bijli", "batti", "current"},
					Synonyms:  []string{"electric", "electrical", "light", "lights"},
				},
				Patterns: []string{
					`power\s+(cut|outage|failure|gone)`,
					`no\s+(power|electricity|light)`,
					`live\s+wire`,
					`street\s*light\w*\s+(out|broken|not\s+working)`,
				},
			},
			{
				Name:         DepartmentRoads,
				PriorityBase: 3.0,
				Keywords: KeywordSet{
					Primary:   []string{"road", "pothole", "potholes", "footpath", "bridge", "divider"},
					Secondary: []string{"crack", "cracked", "asphalt", "speedbreaker", "signal", "traffic", "manhole"},
					Regional:  []string{"sadak", "gaddha", "gadda"},
					Synonyms:  []string{"street", "pavement", "highway", "lane"},
				},
				Patterns: []string{
					`pot\s*hole\w*`,
					`road\s+(damaged|broken|blocked|caved)`,
					`open\s+manhole`,
				},
			},
			{
				Name:         DepartmentSanitation,
				PriorityBase: 4.0,
				Keywords: KeywordSet{
					Primary:   []string{"garbage", "trash", "waste", "drain", "drainage", "gutter"},
					Secondary: []string{"smell", "stink", "dump", "dumping", "litter", "clogged", "mosquito", "mosquitoes"},
					Regional:  []string{"kachra", "naali", "naala", "safai"},
					Synonyms:  []string{"rubbish", "debris", "filth", "sewer"},
				},
				Patterns: []string{
					`garbage\s+(pile\w*|dump\w*|not\s+collected)`,
					`drain\w*\s+(blocked|clogged|overflow\w*)`,
					`open\s+(drain|gutter)`,
				},
			},
			{
				Name:         DepartmentHealth,
				PriorityBase: 6.0,
				Keywords: KeywordSet{
					Primary:   []string{"hospital", "clinic", "ambulance", "disease", "dengue", "malaria"},
					Secondary: []string{"epidemic", "infection", "stray", "dogs", "bite", "fogging", "vaccination"},
					Regional:  []string{"bimari", "dawai", "aspatal"},
					Synonyms:  []string{"medical", "doctor", "illness", "sick"},
				},
				Patterns: []string{
					`stray\s+(dog|dogs|cattle|animals)`,
					`(dengue|malaria|cholera)\s+(outbreak|cases|spread\w*)`,
					`ambulance\s+not`,
				},
			},
			{
				Name:         DepartmentOther,
				PriorityBase: 2.0,
				Keywords:     KeywordSet{},
			},
		},
	}
}
