package server

import (
	"errors"
	"net/http"
)

type errorKind int

const (
	kindValidation errorKind = iota
	kindNotFound
	kindPrecondition
	kindConflict
	kindInvariant
	kindStorage
)

// gameError carries the four-way HTTP classification alongside the
// user-facing message. Core operations return these; handlers translate
// exactly once via errorStatus.
type gameError struct {
	kind errorKind
	msg  string
}

func (e *gameError) Error() string { return e.msg }

func validationError(msg string) error   { return &gameError{kind: kindValidation, msg: msg} }
func notFoundError(msg string) error     { return &gameError{kind: kindNotFound, msg: msg} }
func preconditionError(msg string) error { return &gameError{kind: kindPrecondition, msg: msg} }
func conflictError(msg string) error     { return &gameError{kind: kindConflict, msg: msg} }
func invariantError(msg string) error    { return &gameError{kind: kindInvariant, msg: msg} }
func storageError(msg string) error      { return &gameError{kind: kindStorage, msg: msg} }

func errorStatus(err error) int {
	var ge *gameError
	if errors.As(err, &ge) {
		switch ge.kind {
		case kindValidation, kindPrecondition:
			return http.StatusBadRequest
		case kindNotFound:
			return http.StatusNotFound
		case kindConflict:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

func errorIs(err error, kind errorKind) bool {
	var ge *gameError
	return errors.As(err, &ge) && ge.kind == kind
}
