package domain

import "errors"

var (
	// ErrValidation wraps every malformed-input error.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCPF is returned for a CPF failing the checksum.
	ErrInvalidCPF = errors.New("invalid cpf")

	// ErrUnauthorized means no usable identity was presented.
	ErrUnauthorized = errors.New("authentication required")
	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrForbidden is returned when acting on a quiz owned by someone else.
	ErrForbidden = errors.New("not allowed to manage this quiz")

	// ErrUserNotFound indicates an unknown account.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrParticipantNotFound is returned by stores when no participant row matches.
	ErrParticipantNotFound = errors.New("participant not found in quiz")
	// ErrNotParticipant is returned when someone acts on a quiz before joining it.
	ErrNotParticipant = errors.New("you are not participating in this quiz")

	// ErrCodeTaken is returned by stores when a join code collides.
	ErrCodeTaken = errors.New("join code already in use")
	// ErrInvalidTransition is returned for a lifecycle move the quiz's status forbids.
	ErrInvalidTransition = errors.New("quiz status does not allow this action")
	// ErrQuizLocked is returned when editing a quiz that already started.
	ErrQuizLocked = errors.New("quiz can no longer be edited")
	// ErrNoQuestions is returned when starting a quiz without questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrQuizNotOpen is returned when joining a quiz that is not accepting participants.
	ErrQuizNotOpen = errors.New("quiz is not open for participants")
	// ErrQuizFull is returned when the participant ceiling is reached.
	ErrQuizFull = errors.New("quiz is full")
	// ErrQuizNotStarted is returned when playing a quiz that has not started.
	ErrQuizNotStarted = errors.New("quiz has not started yet")
	// ErrQuizFinished is returned when playing a quiz the organizer already closed.
	ErrQuizFinished = errors.New("quiz is finished")
	// ErrAlreadyCompleted is returned once a participant answered every question.
	ErrAlreadyCompleted = errors.New("you already completed this quiz")
	// ErrAlreadyAnswered is returned for a second answer to the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrTimeExpired is returned once the quiz time budget is spent.
	ErrTimeExpired = errors.New("quiz time is over")
)
