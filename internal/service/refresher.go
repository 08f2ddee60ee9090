package service

import (
	"context"

	"github.com/noah-isme/medichat-api/internal/models"
)

// RefreshStatus is the terminal state of a silent refresh attempt.
type RefreshStatus int

const (
	RefreshNotAuthenticated RefreshStatus = iota
	RefreshSucceeded
	RefreshTokenNotActive
	RefreshTokenUserMismatch
)

// RefreshOutcome is returned to the authorization gate. Credentials is set
// only for RefreshSucceeded; Reason carries the client-facing message for the
// terminal failure states.
type RefreshOutcome struct {
	Status      RefreshStatus
	Credentials *models.RefreshedCredentials
	Reason      string
}

// NoopRefresher never refreshes. It is wired when silent refresh is disabled.
type NoopRefresher struct{}

// SilentRefresh always reports RefreshNotAuthenticated.
func (NoopRefresher) SilentRefresh(context.Context, string, string) RefreshOutcome {
	return RefreshOutcome{Status: RefreshNotAuthenticated}
}
