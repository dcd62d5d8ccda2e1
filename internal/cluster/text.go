package cluster

import (
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "shall": true,
	"to": true, "of": true, "in": true, "for": true, "on": true, "with": true, "at": true,
	"by": true, "from": true, "as": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "and": true, "but": true, "or": true, "not": true,
	"its": true, "their": true, "this": true, "that": true, "these": true, "those": true,
	"it": true, "what": true, "which": true, "who": true, "how": true, "about": true,
	"over": true, "next": true, "years": true, "year": true,
	// canonical question template
	"evolve": true, "regarding": true, "under": true, "scenarios": true, "plausible": true,
}

// Tokens returns the content words of text, lowercased, with stop words and
// canonical template words removed.
func Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, w := range fields {
		if len(w) < 3 || stopWords[w] {
			continue
		}
		if len(w) > 4 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			w = w[:len(w)-1]
		}
		out = append(out, w)
	}
	return out
}

// Vectorize builds unit-length term-frequency vectors over the shared
// vocabulary of texts. A text with no content words gets a private dimension
// so it never collapses onto another empty text.
func Vectorize(texts []string) [][]float64 {
	tokens := make([][]string, len(texts))
	vocab := make(map[string]int)
	for i, text := range texts {
		tokens[i] = Tokens(text)
		for _, w := range tokens[i] {
			if _, ok := vocab[w]; !ok {
				vocab[w] = len(vocab)
			}
		}
	}

	dims := len(vocab) + len(texts)
	vectors := make([][]float64, len(texts))
	for i, words := range tokens {
		v := make([]float64, dims)
		for _, w := range words {
			v[vocab[w]]++
		}
		if len(words) == 0 {
			v[len(vocab)+i] = 1
		}
		normalize(v)
		vectors[i] = v
	}
	return vectors
}

// Label names a group of texts by its most frequent content words.
func Label(texts []string) string {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, w := range Tokens(text) {
			counts[w]++
		}
	}
	if len(counts) == 0 {
		return ""
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
