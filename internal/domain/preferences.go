package domain

// Preferences last selected currency pair. Empty fields were never persisted.
type Preferences struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// PairOr fills missing sides from fallback.
func (p Preferences) PairOr(fallback Pair) Pair {
	pair := fallback
	if p.From != "" {
		pair.From = p.From
	}
	if p.To != "" {
		pair.To = p.To
	}
	return pair
}
