package taxonomy

import (
	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/ports"
)

// maxLabels caps how many topics the fallback assigns to one print.
const maxLabels = 3

// Classifier assigns topics by keyword matching when no language model can.
type Classifier struct{}

var _ ports.FallbackClassifier = (*Classifier)(nil)

// NewClassifier builds the deterministic fallback classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns up to three bilingual topic labels ranked by keyword
// hits. An empty result means the text matched nothing; the caller records
// that as-is rather than guessing.
func (c *Classifier) Classify(title, text string) []domain.Bilingual {
	matches := Rank(title, text)
	if len(matches) > maxLabels {
		matches = matches[:maxLabels]
	}

	labels := make([]domain.Bilingual, 0, len(matches))
	for _, match := range matches {
		labels = append(labels, domain.Bilingual{CS: match.Topic.LabelCS, EN: match.Topic.LabelEN})
	}
	return labels
}
