// Package errors re-exports github.com/cockroachdb/errors so every package
// wraps, hints and inspects errors the same way.
//
//	if err := store.SaveScene(ctx, s); err != nil {
//	    return errors.Wrap(err, "saving scene")
//	}
//	return errors.WithHint(err, "run `resonance generate` first")
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllHints   = crdb.GetAllHints
	FlattenHints  = crdb.FlattenHints
	Mark          = crdb.Mark
	CombineErrors = crdb.CombineErrors
)

// Inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinels. Wrap or Mark them to add context while keeping errors.Is working.
var (
	// ErrNotFound indicates the requested scene, session or file does not exist.
	ErrNotFound = New("not found")

	// ErrInvalidInput indicates malformed tabular input (missing required
	// columns, non-numeric values).
	ErrInvalidInput = New("invalid input")

	// ErrIncompatibleScene indicates a scene document the renderer cannot read.
	ErrIncompatibleScene = New("incompatible scene")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return err != nil && Is(err, ErrInvalidInput)
}

// UserMessage returns the error text followed by any hints, one per line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if hint := FlattenHints(err); hint != "" {
		msg += "\nhint: " + hint
	}
	return msg
}
