package generate

import (
	"fmt"
	"strings"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

const recordShape = `{
  "scenarioId": "short stable identifier",
  "title": "clear neutral title",
  "category": "one of the categories above",
  "canonicalQuestion": "How might [system/actor] evolve regarding [issue] under [constraints], and what scenarios are plausible?",
  "systemActor": "primary system, institution, actor or network",
  "issueFocus": "bounded uncertainty being explored",
  "timeHorizon": ["1-year", "3-year", "5-year"] or ["Time-irrelevant"],
  "domain": "political | economic | security | technological | mixed",
  "geography": "specific region or Global",
  "notes": "optional scope notes, no analysis",
  "tags": ["optional", "tags"]
}`

const generationPrompt = `You build a library of simulation-ready scenario prompts for a downstream
uncertainty engine. You produce questions only: no analysis, predictions,
probabilities or outcomes.

Every entry must be neutral, non-predictive, clearly scoped and reusable.

Rotate evenly through these categories, in this order:
%s

Each entry is a JSON object shaped like:
%s

The canonicalQuestion must begin with "How might" and must avoid certainty,
advocacy, moral judgment and outcome claims. Keep phrasing professional and free
of emotionally loaded language.

Generate %d to %d entries. They must be diverse, not variations of one idea.

Return ONLY a JSON array of objects.`

const subjectPrompt = `You build simulation scenarios about one subject: %q.

Explore the subject from several angles: its history (counterfactual "what if"
questions about its past), its 1 to 5 year future, and its economics, politics
and technology. Spread the entries across different categories from:
%s

History & Counterfactuals entries may use ["Time-irrelevant"]; the others use
1-year, 3-year and 5-year horizons.

Each entry is a JSON object shaped like:
%s

Every canonicalQuestion must begin with "How might". Add the tag %q to every
entry's tags array.

Generate %d to %d entries strictly related to the subject, with a wide
diversity of angles.

Return ONLY a JSON array of objects.`

func buildGenerationPrompt(rotation, lo, hi int) string {
	return fmt.Sprintf(generationPrompt, categoryList(rotate(rotation)), recordShape, lo, hi)
}

func buildSubjectPrompt(subject string, lo, hi int) string {
	return fmt.Sprintf(subjectPrompt, subject, categoryList(scenario.Categories), recordShape, subject, lo, hi)
}

func categoryList(cats []scenario.Category) string {
	lines := make([]string, len(cats))
	for i, c := range cats {
		lines[i] = "- " + string(c)
	}
	return strings.Join(lines, "\n")
}
