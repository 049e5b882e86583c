package domain

import "errors"

var (
	// ErrDuplicateUsername is returned when registering a username that already exists.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials is returned when login finds no matching account.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingCredentials is returned when registration or login fields are empty.
	ErrMissingCredentials = errors.New("username and password required")
	// ErrUnknownCategory indicates a category name outside the fixed set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNoQuestions indicates the trivia provider returned no usable questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrSessionFinished is returned when mutating a session that already finished.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrNoActiveSession is returned when acting on a session that was never started.
	ErrNoActiveSession = errors.New("no active quiz session")
	// ErrInvalidOption indicates a submitted answer that is not one of the
	// current question's options.
	ErrInvalidOption = errors.New("option not part of current question")
)
