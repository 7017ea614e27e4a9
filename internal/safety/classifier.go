// Package safety screens user messages before any backend call is made.
package safety

import "strings"

// Verdict is the result of screening one message.
type Verdict int

const (
	// VerdictClear means the message may proceed to the coaching pipeline.
	VerdictClear Verdict = iota
	// VerdictHarmful means the message matched the violence/crisis lexicon.
	VerdictHarmful
	// VerdictOffTopic means the message matched the personal-health lexicon.
	VerdictOffTopic
)

// Classifier screens a message and returns a verdict. Implementations must be
// deterministic and side-effect free; the classifier gates every turn before
// any network call.
type Classifier interface {
	Classify(text string) Verdict
}

// Harmful takes precedence over off-topic when both lexicons match.
var (
	harmfulKeywords = []string{
		"kill", "murder", "suicide", "violence", "assault", "weapon",
		"gun", "knife", "blood", "attack", "stab", "abuse", "threat", "harass",
	}
	healthKeywords = []string{
		"headache", "sick", "pain", "fever", "medication", "doctor",
		"hospital", "injury", "hurt",
	}
)

// LexiconClassifier is a keyword-based Classifier using fixed lexicons.
type LexiconClassifier struct {
	harmful []string
	health  []string
}

// NewLexiconClassifier returns a classifier with the default lexicons.
func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{harmful: harmfulKeywords, health: healthKeywords}
}

// Classify scans the normalized message against both lexicons.
func (c *LexiconClassifier) Classify(text string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if containsAny(normalized, c.harmful) {
		return VerdictHarmful
	}
	if containsAny(normalized, c.health) {
		return VerdictOffTopic
	}
	return VerdictClear
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
