package memory

import (
	"strings"
	"unicode"

	"github.com/netguy47/Scenario-Atlas/internal/cluster"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// DriftPolicy holds the thresholds used to classify drift.
type DriftPolicy struct {
	// StableThreshold is the change magnitude below which the latest
	// revision counts as Stable.
	StableThreshold float64
	// AccelerationMargin is how much the change magnitude must grow between
	// consecutive revisions to count as widening.
	AccelerationMargin float64
	// WideningMarkers are phrases in a version's change list that signal a
	// deliberate widening of scope. Each marker word matches a word starting
	// with it, so "broaden" also matches "broadened".
	WideningMarkers []string
}

// DefaultDriftPolicy returns the built-in thresholds.
func DefaultDriftPolicy() DriftPolicy {
	return DriftPolicy{
		StableThreshold:    0.15,
		AccelerationMargin: 0.05,
		WideningMarkers: []string{
			"broaden", "widen", "expand", "longer", "lengthen", "extend", "black swan",
		},
	}
}

// DeriveDrift classifies a version history. It is a pure function of the
// versions and the policy.
func DeriveDrift(versions []scenario.PromptVersion, p DriftPolicy) scenario.DriftStatus {
	n := len(versions)
	if n <= 1 {
		return scenario.DriftNew
	}

	latest := versions[n-1]
	if hasMarker(latest.Changes, p.WideningMarkers) {
		return scenario.DriftWideningUncertainty
	}

	m := ChangeMagnitude(versions[n-2].Text, latest.Text)
	if n >= 3 {
		prev := ChangeMagnitude(versions[n-3].Text, versions[n-2].Text)
		if m-prev > p.AccelerationMargin {
			return scenario.DriftWideningUncertainty
		}
	}
	if m < p.StableThreshold {
		return scenario.DriftStable
	}
	return scenario.DriftGradualShift
}

// ChangeMagnitude is one minus the Jaccard similarity of the content words
// of a and b: 0 for the same wording, 1 for disjoint wording.
func ChangeMagnitude(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 0
	}

	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return 1 - float64(inter)/float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range cluster.Tokens(s) {
		set[w] = true
	}
	return set
}

// negators cancel a marker that follows within two words.
var negators = map[string]bool{
	"no": true, "not": true, "never": true, "without": true, "less": true, "fewer": true,
	"avoid": true, "reduce": true, "reduced": true, "reduces": true, "reducing": true,
	"narrow": true, "narrowed": true, "narrowing": true, "shorten": true, "shortened": true,
}

func hasMarker(changes, markers []string) bool {
	for _, c := range changes {
		words := splitWords(c)
		for _, m := range markers {
			if mw := splitWords(m); len(mw) > 0 && containsMarker(words, mw) {
				return true
			}
		}
	}
	return false
}

// containsMarker reports whether marker occurs in words without a negating
// word just before it.
func containsMarker(words, marker []string) bool {
	for i := 0; i+len(marker) <= len(words); i++ {
		matched := true
		for j, mw := range marker {
			if !strings.HasPrefix(words[i+j], mw) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		if (i >= 1 && negators[words[i-1]]) || (i >= 2 && negators[words[i-2]]) {
			continue
		}
		return true
	}
	return false
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
