package interfaces

import (
	"context"

	"ryan-quiz/backend/internal/model"
	"ryan-quiz/backend/internal/service"
)

// ConversationService is what the API layer needs from the conversation
// controller. Handlers depend on this so they can be tested against a mock.
type ConversationService interface {
	Questions() []string
	CreateSession(ctx context.Context) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Submit(ctx context.Context, sessionID, text string) (*service.SubmitResult, error)
}

var _ ConversationService = (*service.ConversationService)(nil)
