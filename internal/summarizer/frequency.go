// Package summarizer produces short extractive overviews of a corpus.
package summarizer

import (
	"math"
	"sort"
	"strings"

	"ragstore/internal/textutil"
)

// Frequency ranks sentences by normalized content-word frequency and keeps
// the top ones in original order.
type Frequency struct{}

// NewFrequency creates a frequency-based sentence-ranking summarizer.
func NewFrequency() *Frequency { return &Frequency{} }

// Summarize returns up to maxSentences of the highest-scoring sentences.
func (s *Frequency) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return "", nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range textutil.ContentTokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		tokens := textutil.Tokens(sent)
		total := 0.0
		for _, tok := range tokens {
			total += freq[tok]
		}
		// length normalization so long sentences don't dominate
		if l := float64(len(tokens)); l > 0 {
			total /= math.Sqrt(l)
		}
		scores[i] = scored{i, total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)

	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}
