package curation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/cluster"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// strength scores a record as a canonical candidate. Higher is stronger.
func strength(l scenario.LibraryEntry) int {
	score := 0
	if scenario.ValidateCanonicalQuestion(l.CanonicalQuestion) == nil {
		score += 4
	}
	if matchesTemplate(l.CanonicalQuestion) {
		score += 2
	}
	if clauseRe.MatchString(l.CanonicalQuestion) {
		score++
	}
	geo := strings.TrimSpace(l.Geography)
	if geo != "" && !strings.EqualFold(geo, "global") {
		score++
	}
	if strings.TrimSpace(l.Notes) != "" {
		score++
	}
	if geo != "" {
		score++
	}
	if len(l.Tags) > 0 {
		score++
	}
	return score
}

// similarityText is the text compared for duplicate detection: the
// normalized question plus actor and issue.
func similarityText(l scenario.LibraryEntry) string {
	n := l.Clone()
	if _, err := normalizeRecord(&n); err != nil {
		n = l
	}
	return n.CanonicalQuestion + " " + n.SystemActor + " " + n.IssueFocus
}

// mergeGroup collapses a cluster into its strongest member. Ties go to the
// earliest. The survivor keeps its own fields; weaker members contribute a
// passing question when the survivor's fails, and their tags.
func mergeGroup(members []scenario.LibraryEntry) scenario.LibraryEntry {
	best := 0
	bestScore := strength(members[0])
	for i := 1; i < len(members); i++ {
		if s := strength(members[i]); s > bestScore {
			best, bestScore = i, s
		}
	}
	survivor := members[best].Clone()

	if scenario.ValidateCanonicalQuestion(survivor.CanonicalQuestion) != nil {
		for i, m := range members {
			if i != best && scenario.ValidateCanonicalQuestion(m.CanonicalQuestion) == nil {
				survivor.CanonicalQuestion = m.CanonicalQuestion
				break
			}
		}
	}

	seen := make(map[string]bool)
	var tags []string
	addTags := func(ts []string) {
		for _, t := range ts {
			t = strings.TrimSpace(t)
			key := strings.ToLower(t)
			if t == "" || seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, t)
		}
	}
	addTags(survivor.Tags)
	for i, m := range members {
		if i != best {
			addTags(m.Tags)
		}
	}
	survivor.Tags = tags
	return survivor
}

// dedupe merges near-duplicates until a pass finds none, so the output is
// stable under another curation pass. It returns the survivors in order of
// their cluster's earliest member.
func (e *Engine) dedupe(ctx context.Context, records []scenario.LibraryEntry) ([]scenario.LibraryEntry, error) {
	records = e.mergeByFocus(records)
	for len(records) > 1 {
		texts := make([]string, len(records))
		for i, r := range records {
			texts[i] = similarityText(r)
		}

		groups, err := e.grouper.Group(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("grouping duplicates: %w", err)
		}
		if len(groups) == len(records) {
			break
		}

		next := make([]scenario.LibraryEntry, 0, len(groups))
		for _, g := range groups {
			members := make([]scenario.LibraryEntry, len(g))
			for i, idx := range g {
				members[i] = records[idx]
			}
			next = append(next, e.merge(members))
		}
		records = next
	}
	return records, nil
}

// focusKey identifies the actor and issue a record is about, ignoring case,
// stop words and plurals. Records without both have no key.
func focusKey(l scenario.LibraryEntry) string {
	n := l.Clone()
	if _, err := normalizeRecord(&n); err != nil {
		n = l
	}
	actor := strings.Join(cluster.Tokens(n.SystemActor), " ")
	issue := strings.Join(cluster.Tokens(n.IssueFocus), " ")
	if actor == "" || issue == "" {
		return ""
	}
	return actor + "|" + issue
}

// mergeByFocus collapses records about the same actor and issue, whatever
// their constraint clauses say. Groups keep the position of their earliest
// member.
func (e *Engine) mergeByFocus(records []scenario.LibraryEntry) []scenario.LibraryEntry {
	index := make(map[string]int)
	var groups [][]scenario.LibraryEntry
	for _, r := range records {
		key := focusKey(r)
		if i, ok := index[key]; ok && key != "" {
			groups[i] = append(groups[i], r)
			continue
		}
		if key != "" {
			index[key] = len(groups)
		}
		groups = append(groups, []scenario.LibraryEntry{r})
	}
	if len(groups) == len(records) {
		return records
	}

	out := make([]scenario.LibraryEntry, len(groups))
	for i, g := range groups {
		out[i] = e.merge(g)
	}
	return out
}

// merge collapses a group and logs what was folded together.
func (e *Engine) merge(members []scenario.LibraryEntry) scenario.LibraryEntry {
	survivor := mergeGroup(members)
	if len(members) > 1 {
		questions := make([]string, len(members))
		for i, m := range members {
			questions[i] = m.CanonicalQuestion
		}
		e.logger.Debug("merged duplicates",
			zap.String("survivor", survivor.ScenarioID),
			zap.Int("members", len(members)),
			zap.String("label", cluster.Label(questions)))
	}
	return survivor
}

// uniqueIDs suffixes ids that collide across distinct survivors.
func uniqueIDs(records []scenario.LibraryEntry) {
	used := make(map[string]bool, len(records))
	for i := range records {
		id := strings.TrimSpace(records[i].ScenarioID)
		if id == "" {
			id = fmt.Sprintf("scenario-%d", i+1)
		}
		candidate := id
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", id, n)
		}
		used[candidate] = true
		records[i].ScenarioID = candidate
	}
}
