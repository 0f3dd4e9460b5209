package domain

import "errors"

// Sentinel errors for the engine. Checked with errors.Is; the web layer
// maps them onto HTTP status codes and otherwise passes messages through
// untransformed.
var (
	ErrInvalidGrade = errors.New("cardamom: invalid grade")
	ErrNotFound     = errors.New("cardamom: not found")
	ErrForbidden    = errors.New("cardamom: forbidden")
	ErrConflict     = errors.New("cardamom: concurrent update conflict")
)
