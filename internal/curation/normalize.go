package curation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// templateRe matches the canonical question template and captures actor,
// issue and constraints.
var templateRe = regexp.MustCompile(`^How might (.+?) evolve regarding (.+?) under (.+?), and what scenarios are plausible\?$`)

// clauseRe finds a constraint clause in a free-form question: a connective
// such as "under", "after" or "given" and the text up to the next break.
var clauseRe = regexp.MustCompile(`(?i)\b(under|after|amid|amidst|given|if|during|with|following|despite|as)\s+([^,?;]+)`)

var loadedWordRe = regexp.MustCompile(`(?i)\b(definitely|inevitably|inevitable|certainly|surely|undoubtedly|obviously|` +
	`catastrophic|catastrophically|disastrous|devastating|shocking|terrifying|horrific|horrifying|doomed|` +
	`apocalyptic|dramatically|dramatic|unprecedented|alarming|outrageous)\b`)

var (
	spaceRe      = regexp.MustCompile(`\s+`)
	spacePunctRe = regexp.MustCompile(`\s+([,?.;:])`)
)

// buildQuestion renders the canonical template.
func buildQuestion(actor, issue, constraints string) string {
	return fmt.Sprintf("How might %s evolve regarding %s under %s, and what scenarios are plausible?",
		actor, issue, constraints)
}

// matchesTemplate reports whether q is already in full template form.
func matchesTemplate(q string) bool {
	return templateRe.MatchString(q)
}

// stripLoaded removes emotionally loaded or speculative words and tidies the
// whitespace left behind.
func stripLoaded(s string) string {
	s = loadedWordRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = spacePunctRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// firstQuestion keeps text up to and including the first question mark.
func firstQuestion(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return strings.TrimSpace(s[:i+1])
	}
	return strings.TrimSpace(s)
}

// cleanPhrase prepares a record field for use inside the template.
func cleanPhrase(s string) string {
	s = strings.ReplaceAll(s, "?", "")
	s = stripLoaded(s)
	return strings.Trim(s, " ,.;:")
}

// deriveConstraints describes the scope already present in the record. A
// clause stated in the question is kept; the clause after the issue is
// preferred over one elsewhere in the sentence. Only a question without any
// clause falls back to the record's geography and horizon.
func deriveConstraints(q, issue, geography string, th scenario.TimeHorizon) string {
	if c := statedConstraint(q, issue); c != "" {
		return c
	}

	var where string
	geo := cleanPhrase(geography)
	if geo == "" || strings.EqualFold(geo, "global") {
		where = "global conditions"
	} else {
		where = "prevailing conditions in " + geo
	}

	switch {
	case len(th) == 0 || th.IsIrrelevant():
		return where
	case len(th) == 1:
		return fmt.Sprintf("%s over a %s horizon", where, th[0])
	default:
		return fmt.Sprintf("%s across %s horizons", where, joinHorizons(th))
	}
}

// statedConstraint returns the question's own constraint clause in a form
// that reads after "under", or "" when it has none.
func statedConstraint(q, issue string) string {
	tail := q
	if i := strings.Index(strings.ToLower(q), strings.ToLower(issue)); issue != "" && i >= 0 {
		tail = q[i+len(issue):]
	}
	m := clauseRe.FindStringSubmatch(tail)
	if m == nil && tail != q {
		m = clauseRe.FindStringSubmatch(q)
	}
	if m == nil {
		return ""
	}
	clause := cleanPhrase(m[2])
	if clause == "" {
		return ""
	}
	if strings.EqualFold(m[1], "under") {
		return clause
	}
	return "conditions " + strings.ToLower(m[1]) + " " + clause
}

func joinHorizons(th scenario.TimeHorizon) string {
	labels := th.Strings()
	if len(labels) == 2 {
		return labels[0] + " and " + labels[1]
	}
	return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
}

// normalizeRecord rewrites the canonical question into template form and
// fills actor and issue from the record when missing. It never consults
// anything outside the record. The bool reports whether the question changed.
func normalizeRecord(l *scenario.LibraryEntry) (bool, error) {
	original := l.CanonicalQuestion
	q := firstQuestion(stripLoaded(original))

	actor := cleanPhrase(l.SystemActor)
	if actor == "" {
		actor = cleanPhrase(l.Title)
	}
	issue := cleanPhrase(l.IssueFocus)
	if issue == "" {
		issue = cleanPhrase(l.Title)
	}

	if m := templateRe.FindStringSubmatch(q); m != nil {
		if actor == "" {
			actor = m[1]
		}
		if issue == "" {
			issue = m[2]
		}
	} else {
		if actor == "" || issue == "" {
			return false, fmt.Errorf("%w: %s: no actor or issue to build a canonical question from",
				scenario.ErrInvalidFormat, l.ScenarioID)
		}
		q = buildQuestion(actor, issue, deriveConstraints(q, issue, l.Geography, l.TimeHorizon))
	}

	if err := scenario.ValidateCanonicalQuestion(q); err != nil {
		return false, fmt.Errorf("%s: %w", l.ScenarioID, err)
	}

	l.CanonicalQuestion = q
	l.SystemActor = actor
	l.IssueFocus = issue
	l.Title = strings.TrimSpace(stripLoaded(l.Title))
	return q != original, nil
}
