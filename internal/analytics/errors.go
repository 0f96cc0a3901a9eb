package analytics

import "errors"

// Validation errors surfaced by the calculators. All failures are
// deterministic and local to a single call; nothing here is retryable.
var (
	// ErrSymbolMismatch is returned when paired legs name different symbols.
	ErrSymbolMismatch = errors.New("symbol mismatch between legs")

	// ErrDirectionConflict is returned when paired legs do not trade in
	// opposite directions.
	ErrDirectionConflict = errors.New("legs must trade in opposite directions")

	// ErrInvalidQuantity is returned when the matched quantity is
	// non-positive or exceeds the opening leg's quantity.
	ErrInvalidQuantity = errors.New("matched quantity must be positive and within the opening leg")

	// ErrInstrumentMismatch is returned when option legs matched as a pair
	// differ in strike, expiry or option kind.
	ErrInstrumentMismatch = errors.New("option legs describe different contracts")

	// ErrWrongAsset is returned when a leg's asset kind does not fit the
	// requested calculation.
	ErrWrongAsset = errors.New("unexpected asset kind for this calculation")

	// ErrUnmatchedClose is returned by the matcher when a closing leg has
	// no open lot to consume.
	ErrUnmatchedClose = errors.New("closing leg exceeds open quantity")
)
