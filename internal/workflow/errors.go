package workflow

import (
	"errors"
	"fmt"

	"github.com/terra-clan/translation-workflow/internal/storage"
)

// Kind is the category of a workflow failure
type Kind string

const (
	KindValidation             Kind = "ValidationError"
	KindNotFound               Kind = "NotFoundError"
	KindStateConflict          Kind = "StateConflictError"
	KindAuthorization          Kind = "AuthorizationError"
	KindConcurrentModification Kind = "ConcurrentModification"
	KindInfrastructure         Kind = "InfrastructureError"
)

// Error is a workflow failure with a category and a specific code.
// The sentinel values below are compared with errors.Is; wrap them with
// fmt.Errorf("%w: ...") to add detail.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

func newError(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

// Validation errors
var (
	ErrInvalidRole          = newError(KindValidation, "InvalidRole")
	ErrInvalidStatus        = newError(KindValidation, "InvalidStatus")
	ErrInvalidScore         = newError(KindValidation, "InvalidScore")
	ErrInvalidDecision      = newError(KindValidation, "InvalidDecision")
	ErrInvalidVersion       = newError(KindValidation, "InvalidVersion")
	ErrInvalidParagraphType = newError(KindValidation, "InvalidParagraphType")
	ErrEmptyText            = newError(KindValidation, "EmptyText")
	ErrMissingField         = newError(KindValidation, "MissingField")
	ErrLanguageNotTargeted  = newError(KindValidation, "LanguageNotTargeted")
)

// Not found errors
var (
	ErrUnknownProject      = newError(KindNotFound, "UnknownProject")
	ErrUnknownParagraph    = newError(KindNotFound, "UnknownParagraph")
	ErrUnknownUser         = newError(KindNotFound, "UnknownUser")
	ErrUnknownLanguage     = newError(KindNotFound, "UnknownLanguage")
	ErrUnknownAssignment   = newError(KindNotFound, "UnknownAssignment")
	ErrUnknownTranslation  = newError(KindNotFound, "UnknownTranslation")
	ErrUnknownReview       = newError(KindNotFound, "UnknownReview")
	ErrUnknownApproval     = newError(KindNotFound, "UnknownApproval")
	ErrUnknownNotification = newError(KindNotFound, "UnknownNotification")
	ErrNoFinalText         = newError(KindNotFound, "NoFinalText")
)

// State conflict errors
var (
	ErrDuplicateAssignment  = newError(KindStateConflict, "DuplicateAssignment")
	ErrDuplicateLanguage    = newError(KindStateConflict, "DuplicateLanguage")
	ErrDuplicateUser        = newError(KindStateConflict, "DuplicateUser")
	ErrDuplicatePosition    = newError(KindStateConflict, "DuplicatePosition")
	ErrAlreadyTerminal      = newError(KindStateConflict, "AlreadyTerminal")
	ErrAlreadySubmitted     = newError(KindStateConflict, "AlreadySubmitted")
	ErrTranslationRejected  = newError(KindStateConflict, "TranslationRejected")
	ErrTranslationNotReady  = newError(KindStateConflict, "TranslationNotReady")
	ErrReviewAlreadyPending = newError(KindStateConflict, "ReviewAlreadyPending")
	ErrReviewNotEditable    = newError(KindStateConflict, "ReviewNotEditable")
	ErrReviewNotApprovable  = newError(KindStateConflict, "ReviewNotApprovable")
	ErrAlreadyApproved      = newError(KindStateConflict, "AlreadyApproved")
	ErrProjectClosed        = newError(KindStateConflict, "ProjectClosed")
	ErrParagraphLocked      = newError(KindStateConflict, "ParagraphLocked")
)

// ErrConcurrentModification is returned when an optimistic version check fails
var ErrConcurrentModification = newError(KindConcurrentModification, "ConcurrentModification")

// Authorization errors
var (
	ErrNotYourAssignment = newError(KindAuthorization, "NotYourAssignment")
	ErrWrongReviewer     = newError(KindAuthorization, "WrongReviewer")
	ErrWrongSupervisor   = newError(KindAuthorization, "WrongSupervisor")
	ErrInvalidToken      = newError(KindAuthorization, "InvalidToken")
	ErrNotRecipient      = newError(KindAuthorization, "NotRecipient")
)

// ErrInfrastructure is returned once retries against the store are exhausted
var ErrInfrastructure = newError(KindInfrastructure, "InfrastructureError")

// KindOf returns the kind of a workflow error, or "" for anything else
func KindOf(err error) Kind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return ""
}

// CodeOf returns the specific code of a workflow error, or "" for anything else
func CodeOf(err error) string {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Code
	}
	return ""
}

// notFound turns storage.ErrNotFound into the given sentinel and passes anything else through
func notFound(err error, sentinel *Error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %d", sentinel, id)
	}
	return err
}

// fromStore maps storage conflicts onto the workflow taxonomy
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	default:
		return err
	}
}
