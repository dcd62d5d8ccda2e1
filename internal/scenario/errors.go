package scenario

import "errors"

var (
	// ErrInvalidFormat means a canonical question does not begin with "How might".
	ErrInvalidFormat = errors.New("invalid canonical question format")

	// ErrMalformedCurationOutput means a curated batch was not a JSON array of
	// library entries or violated the library schema.
	ErrMalformedCurationOutput = errors.New("malformed curation output")

	// ErrMalformedGenerationOutput means a generated batch was not a JSON array
	// of raw entries or violated the raw schema.
	ErrMalformedGenerationOutput = errors.New("malformed generation output")

	// ErrUnknownWatchlist means an operation referenced a watchlist id that does
	// not exist, or no watchlist exists at all.
	ErrUnknownWatchlist = errors.New("unknown watchlist")

	// ErrEmptyTimeHorizon means a record carried no time horizon.
	ErrEmptyTimeHorizon = errors.New("empty time horizon")

	// ErrUnknownScenario means a saved scenario id does not exist.
	ErrUnknownScenario = errors.New("unknown saved scenario")

	// ErrInvalidWatchlist means seed watchlist data violates the watchlist schema.
	ErrInvalidWatchlist = errors.New("invalid watchlist")
)
