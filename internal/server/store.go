package server

import (
	"context"
	"errors"

	"github.com/playperu/philosophersclick/internal/game"
)

var ErrNotFound = errors.New("not found")

// SessionRecord is the persisted summary of a game session. The live game
// state is never stored.
type SessionRecord struct {
	ID         string  `json:"id"`
	GameName   string  `json:"gameName"`
	CreatedAt  string  `json:"createdAt"`
	EndedAt    *string `json:"endedAt"`
	FinalScore *int    `json:"finalScore"`
}

// Reflection is a resolved question kept in the session journal.
type Reflection struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	Question    string       `json:"question"`
	Answer      string       `json:"answer,omitempty"`
	Outcome     game.Outcome `json:"outcome"`
	ScoreBefore int          `json:"scoreBefore"`
	ResolvedAt  string       `json:"resolvedAt"`
}

type Store interface {
	CreateSession(ctx context.Context, id, gameName string) error
	EndSession(ctx context.Context, id string, finalScore int) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)

	RecordReflection(ctx context.Context, sessionID string, r game.Resolution) (Reflection, error)
	ListReflections(ctx context.Context, sessionID string) ([]Reflection, error)
}
