package game

import "errors"

var (
	ErrSessionNotFound          = errors.New("no session with that code was found")
	ErrSessionAlreadyStarted    = errors.New("that session has already started")
	ErrStackNotFound            = errors.New("no stack with that id was found")
	ErrSessionFull              = errors.New("that session is full")
	ErrAlreadyInSession         = errors.New("player is already in that session")
	ErrNotHost                  = errors.New("only the host can start the session")
	ErrNotEnoughPlayers         = errors.New("not enough players to start the session")
	ErrSessionNotRunning        = errors.New("that session is not running")
	ErrNotYourTurn              = errors.New("that stack is held by another player")
	ErrStackNotWaiting          = errors.New("that stack has already received a submission this round")
	ErrUnexpectedSubmissionType = errors.New("unexpected submission type for this turn")
	ErrInvalidSubmission        = errors.New("invalid submission")
	ErrCodeSpaceExhausted       = errors.New("could not allocate a unique session code")
)
