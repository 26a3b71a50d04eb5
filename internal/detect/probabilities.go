package detect

import (
	"errors"
	"sort"
	"strings"
)

// ErrNoProbabilities reports a selection attempted on an empty mapping.
var ErrNoProbabilities = errors.New("detect: language probability mapping is empty")

// Probabilities maps a language code to the model's probability for it.
type Probabilities map[string]float64

// Candidate is a single language with its probability.
type Candidate struct {
	Language    string  `json:"language"`
	Probability float64 `json:"probability"`
}

// Len returns the number of languages in the mapping.
func (p Probabilities) Len() int {
	return len(p)
}

// Sum adds every probability. Diagnostics only; the model guarantees ~1.0.
func (p Probabilities) Sum() float64 {
	var total float64
	for _, value := range p {
		total += value
	}
	return total
}

// Candidates returns every entry ordered by language code.
func (p Probabilities) Candidates() []Candidate {
	codes := make([]string, 0, len(p))
	for code := range p {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]Candidate, 0, len(codes))
	for _, code := range codes {
		out = append(out, Candidate{Language: code, Probability: p[code]})
	}
	return out
}

// Normalize lowercases and trims codes, then maps them through canon when
// it is non-nil. Blank keys are dropped. When several raw keys collapse to
// the same code the higher probability is kept.
func (p Probabilities) Normalize(canon func(string) string) Probabilities {
	out := make(Probabilities, len(p))
	for code, value := range p {
		key := strings.ToLower(strings.TrimSpace(code))
		if canon != nil && key != "" {
			key = canon(key)
		}
		if key == "" {
			continue
		}
		if prev, ok := out[key]; ok && prev >= value {
			continue
		}
		out[key] = value
	}
	return out
}

// SelectTop returns the language with the highest probability. Equal
// probabilities resolve to the lowest language code.
func SelectTop(p Probabilities) (Candidate, error) {
	if len(p) == 0 {
		return Candidate{}, ErrNoProbabilities
	}
	var best Candidate
	first := true
	for _, cand := range p.Candidates() {
		if first || cand.Probability > best.Probability {
			best = cand
			first = false
		}
	}
	return best, nil
}

// TopN returns up to n entries sorted by descending probability.
func TopN(p Probabilities, n int) []Candidate {
	if n <= 0 || len(p) == 0 {
		return []Candidate{}
	}
	ranked := p.Candidates()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
