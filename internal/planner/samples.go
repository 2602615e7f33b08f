package planner

import (
	"math"
	"strings"

	"jotx/internal/domain"
	"jotx/internal/store/sqlite"
)

// modelSize buckets a model's declared parameter count for exemplar-count
// and prompt-detail selection, mirroring how the LLM adapter's prompt
// builder scales with model capability.
type modelSize int

const (
	sizeTiny modelSize = iota
	sizeSmall
	sizeMedium
	sizeLarge
)

// detectModelSize guesses a bucket from substrings commonly present in
// Ollama model tags (e.g. "llama3:8b", "qwen2.5:0.5b").
func detectModelSize(name string) modelSize {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "0.5b"):
		return sizeTiny
	case strings.Contains(lower, "1.5b"), strings.Contains(lower, "3b"):
		return sizeSmall
	case strings.Contains(lower, "7b"), strings.Contains(lower, "8b"):
		return sizeMedium
	case strings.Contains(lower, "13b"), strings.Contains(lower, "70b"):
		return sizeLarge
	default:
		return sizeSmall
	}
}

// sampleCount is the number of exemplars offered to the model's interpret
// prompt for each size bucket.
func sampleCount(sz modelSize) int {
	switch sz {
	case sizeTiny:
		return 3
	case sizeSmall:
		return 5
	case sizeMedium:
		return 8
	case sizeLarge:
		return 15
	default:
		return 5
	}
}

// adaptiveAlpha weights cosine similarity against usage frequency; as the
// corpus grows past 1000 entries, recency/frequency carries relatively
// more signal than similarity alone, so alpha decays from 1.0 to 0.5 over
// the next 9000 entries.
func adaptiveAlpha(corpusSize int) float32 {
	if corpusSize <= 1000 {
		return 1.0
	}
	frac := float32(corpusSize-1000) / 9000.0
	if frac > 1 {
		frac = 1
	}
	return 1.0 - 0.5*frac
}

// SelectSamples ranks candidates by alpha*cosine(queryVec, entry) +
// (1-alpha)*log(1+times_run), diverse-rejecting any candidate whose word
// overlap with an already-selected sample exceeds 0.7, until n are chosen
// or candidates are exhausted.
func SelectSamples(queryVec []float32, candidates []domain.Entry, n, corpusSize int) []domain.Entry {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	alpha := adaptiveAlpha(corpusSize)

	type scored struct {
		entry domain.Entry
		words map[string]struct{}
		score float32
	}
	ranked := make([]scored, len(candidates))
	for i, e := range candidates {
		cos := sqlite.CosineSimilarity(queryVec, e.Embedding)
		freq := float32(math.Log(1 + float64(e.TimesRun)))
		ranked[i] = scored{
			entry: e,
			words: wordSet(e.Content),
			score: alpha*cos + (1-alpha)*freq,
		}
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].score > ranked[j-1].score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	var chosen []domain.Entry
	var chosenWords []map[string]struct{}
	for _, r := range ranked {
		if len(chosen) >= n {
			break
		}
		tooSimilar := false
		for _, cw := range chosenWords {
			if wordJaccard(r.words, cw) > 0.7 {
				tooSimilar = true
				break
			}
		}
		if tooSimilar {
			continue
		}
		chosen = append(chosen, r.entry)
		chosenWords = append(chosenWords, r.words)
	}
	return chosen
}

func wordSet(content string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(content)) {
		out[w] = struct{}{}
	}
	return out
}

func wordJaccard(a, b map[string]struct{}) float32 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float32(inter) / float32(union)
}
