package engines

import "github.com/shopspring/decimal"

// Explain enumerates every intermediate figure of an engine calculation so
// a chat layer can narrate it without re-deriving anything (spec.md §4.3:
// "Each engine also returns an explain structure").
type Explain struct {
	Steps []ExplainStep `json:"steps"`
}

// ExplainStep is one labeled intermediate value.
type ExplainStep struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

func (e *Explain) add(label string, value decimal.Decimal) {
	e.Steps = append(e.Steps, ExplainStep{Label: label, Value: value})
}
