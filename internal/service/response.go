package service

import (
	"encoding/json"
	"errors"

	"github.com/iliyamo/pms-backend/internal/repository"
)

var (
	// ErrInvalid marks business-rule failures on otherwise valid input,
	// such as a due date before the start date.
	ErrInvalid = errors.New("invalid request")
	// ErrUnauthenticated marks failed login and refresh exchanges.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Re-exported so transport code depends on one package for failure kinds.
var (
	ErrConflict   = repository.ErrConflict
	ErrNotFound   = repository.ErrNotFound
	ErrConstraint = repository.ErrConstraint
)

// CommandResponse is the envelope every command returns. Outcome and
// message are fixed at construction; ID may be set later once the store
// has assigned it.
type CommandResponse struct {
	ID int64

	successful bool
	message    string
	failure    error
}

// Success builds a successful response.
func Success(message string, id int64) CommandResponse {
	return CommandResponse{ID: id, successful: true, message: message}
}

// Failure builds a business failure of the given kind.
func Failure(kind error, message string) CommandResponse {
	return CommandResponse{message: message, failure: kind}
}

func (r CommandResponse) IsSuccessful() bool { return r.successful }
func (r CommandResponse) Message() string    { return r.message }

// Err returns the failure kind, nil on success.
func (r CommandResponse) Err() error { return r.failure }

type commandJSON struct {
	ID           int64  `json:"id"`
	IsSuccessful bool   `json:"isSuccessful"`
	Message      string `json:"message"`
}

func (r CommandResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(commandJSON{ID: r.ID, IsSuccessful: r.successful, Message: r.message})
}

// TokenResponse is returned by login and refresh. Both tokens are empty
// on failure.
type TokenResponse struct {
	CommandResponse
	Token        string
	RefreshToken string
}

func (r TokenResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		commandJSON
		Token        string `json:"token,omitempty"`
		RefreshToken string `json:"refreshToken,omitempty"`
	}{
		commandJSON:  commandJSON{ID: r.ID, IsSuccessful: r.successful, Message: r.message},
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
	})
}

// QueryResponse is the identity every read projection carries.
type QueryResponse struct {
	ID int64 `json:"id"`
}
