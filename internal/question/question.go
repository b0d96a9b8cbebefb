// Package question generates and curates the philosophical questions put to
// the player.
package question

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmptyQuestion  = errors.New("model returned an empty question")
	ErrEmptyCuration  = errors.New("model returned an empty curation")
	errEmptyModelText = errors.New("model returned no text")
)

type GenerateRequest struct {
	GameName string `json:"gameName"`
}

type GenerateResult struct {
	Question string `json:"question"`
}

type CurateRequest struct {
	Question string `json:"question"`
}

type CurateResult struct {
	CuratedQuestion string `json:"curatedQuestion"`
	IsValid         bool   `json:"isValid"`
}

// Accepted reports whether the curated question may be put to the player.
func (r CurateResult) Accepted() bool {
	return r.IsValid && strings.TrimSpace(r.CuratedQuestion) != ""
}

// Service is the two-call contract of a question backend.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	Curate(ctx context.Context, req CurateRequest) (CurateResult, error)
}

var gamingKeywords = []string{
	"game", "gaming", "player", "play", "score", "idle", "clicker", "virtual", "online",
	"trò chơi", "chơi", "game thủ", "điểm", "ảo", "trực tuyến",
}

// IsGamingRelated reports whether q mentions any gaming keyword, ignoring case.
func IsGamingRelated(q string) bool {
	q = strings.ToLower(q)
	for _, kw := range gamingKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
