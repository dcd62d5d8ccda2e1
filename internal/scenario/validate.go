package scenario

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CanonicalPrefix is the required opening of every canonical question.
const CanonicalPrefix = "How might"

// ValidateCanonicalQuestion fails with ErrInvalidFormat unless text begins
// with the case-sensitive prefix "How might".
func ValidateCanonicalQuestion(text string) error {
	if !strings.HasPrefix(text, CanonicalPrefix) {
		return fmt.Errorf("%w: %q does not begin with %q", ErrInvalidFormat, truncate(text, 60), CanonicalPrefix)
	}
	return nil
}

// Validate checks a raw record before it enters the session store. Category
// and domain are not checked here; curation remaps them.
func (r RawScenarioEntry) Validate() error {
	var errs []error
	if strings.TrimSpace(r.ScenarioID) == "" {
		errs = append(errs, errors.New("scenarioId is required"))
	}
	if strings.TrimSpace(r.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if err := ValidateCanonicalQuestion(r.CanonicalQuestion); err != nil {
		errs = append(errs, err)
	}
	if err := r.TimeHorizon.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the full library schema.
func (l LibraryEntry) Validate() error {
	var errs []error
	if strings.TrimSpace(l.ScenarioID) == "" {
		errs = append(errs, errors.New("scenarioId is required"))
	}
	if strings.TrimSpace(l.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if !l.Category.Valid() {
		errs = append(errs, fmt.Errorf("category %q is not canonical", l.Category))
	}
	if err := ValidateCanonicalQuestion(l.CanonicalQuestion); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(l.SystemActor) == "" {
		errs = append(errs, errors.New("systemActor is required"))
	}
	if strings.TrimSpace(l.IssueFocus) == "" {
		errs = append(errs, errors.New("issueFocus is required"))
	}
	if err := l.TimeHorizon.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !l.Domain.Valid() {
		errs = append(errs, fmt.Errorf("domain %q is not known", l.Domain))
	}
	if !l.Difficulty.Valid() {
		errs = append(errs, fmt.Errorf("difficulty %q is not known", l.Difficulty))
	}
	if !l.Reusability.Valid() {
		errs = append(errs, fmt.Errorf("reusability %q is not known", l.Reusability))
	}
	if len(l.IdealUseCases) == 0 {
		errs = append(errs, errors.New("idealUseCases is required"))
	}
	for _, uc := range l.IdealUseCases {
		if !uc.Valid() {
			errs = append(errs, fmt.Errorf("use case %q is not known", uc))
		}
	}
	return errors.Join(errs...)
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
