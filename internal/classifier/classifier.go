// Package classifier maps free-form hypothesis text to a domain tag.
package classifier

import (
	"sort"
	"strings"
	"unicode"

	"hypogate/domain/experiment"
	"hypogate/internal/errors"
)

// Classification is the outcome of classifying one experiment.
type Classification struct {
	Domain     experiment.DomainTag             `json:"domain"`
	Confidence float64                          `json:"confidence"`
	Scores     map[experiment.DomainTag]float64 `json:"scores"`
	Overridden bool                             `json:"overridden"`
}

// Classifier scores hypothesis text against per-domain keyword tables.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	floor    float64
	profiles []profile
}

// New creates a classifier. A non-positive floor selects the default.
func New(floor float64) *Classifier {
	if floor <= 0 {
		floor = DEFAULT_CONFIDENCE_FLOOR
	}
	return &Classifier{floor: floor, profiles: profiles}
}

// Classify returns the domain for text. A non-empty override wins outright;
// an unknown override is a CONFIGURATION_ERROR.
func (c *Classifier) Classify(text, override string) (Classification, error) {
	if strings.TrimSpace(override) != "" {
		d, err := experiment.ParseDomain(override)
		if err != nil {
			return Classification{}, errors.WithCode(errors.CodeConfigInvalid, err)
		}
		return Classification{Domain: d, Confidence: 1, Overridden: true}, nil
	}

	words := tokenize(text)
	joined := " " + strings.Join(words, " ") + " "

	scores := make(map[experiment.DomainTag]float64, len(c.profiles))
	total := 0.0
	for _, p := range c.profiles {
		s := scoreProfile(p, words, joined)
		if s > 0 {
			scores[p.domain] = s
			total += s
		}
	}

	ranked := make([]profile, 0, len(c.profiles))
	for _, p := range c.profiles {
		if scores[p.domain] >= c.floor {
			ranked = append(ranked, p)
		}
	}
	if len(ranked) == 0 {
		return Classification{Domain: experiment.DomainGeneric, Scores: scores}, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i].domain], scores[ranked[j].domain]
		if si != sj {
			return si > sj
		}
		if ranked[i].specificity != ranked[j].specificity {
			return ranked[i].specificity > ranked[j].specificity
		}
		return ranked[i].domain < ranked[j].domain
	})

	best := ranked[0].domain
	return Classification{
		Domain:     best,
		Confidence: scores[best] / total,
		Scores:     scores,
	}, nil
}

// ClassifyExperiment classifies exp using its hypothesis and override.
func (c *Classifier) ClassifyExperiment(exp *experiment.Experiment) (Classification, error) {
	return c.Classify(exp.Hypothesis, exp.DomainOverride)
}

func scoreProfile(p profile, words []string, joined string) float64 {
	score := 0.0
	for term, weight := range p.terms {
		phrase := strings.Contains(term, " ")
		if weight == 0 {
			weight = WORD_WEIGHT
			if phrase {
				weight = PHRASE_WEIGHT
			}
		}
		switch {
		case phrase:
			score += weight * float64(strings.Count(joined, " "+term+" "))
		case strings.HasSuffix(term, "*"):
			prefix := strings.TrimSuffix(term, "*")
			for _, w := range words {
				if strings.HasPrefix(w, prefix) {
					score += weight
				}
			}
		default:
			for _, w := range words {
				if w == term {
					score += weight
				}
			}
		}
	}
	return score
}

// tokenize lowercases text and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
