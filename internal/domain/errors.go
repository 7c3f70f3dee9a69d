package domain

import "errors"

var (
	// ErrSpreadsheetNotFound indicates the backing spreadsheet or a required tab is missing.
	ErrSpreadsheetNotFound = errors.New("spreadsheet not found")
	// ErrAccessDenied indicates the service account may not read the spreadsheet.
	ErrAccessDenied = errors.New("spreadsheet access denied")
	// ErrNoQuestions is returned when the questions tab has zero usable rows.
	ErrNoQuestions = errors.New("quiz has no usable questions")
	// ErrAttemptInProgress is returned when a user already has a live session open.
	ErrAttemptInProgress = errors.New("an attempt is already in progress for this user")
)
