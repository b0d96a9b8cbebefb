package question

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

var offlineTemplates = []string{
	"If the points in %s ceased to exist, would you still play?",
	"Does the score in %s measure your time, or does your time measure the score?",
	"When %s plays itself while you are away, who is the player?",
	"Is a number that only grows in %s a reward, or a reason to keep clicking?",
	"If nobody ever saw your score in %s, would it still matter to you?",
	"What are you waiting for while %s counts for you?",
}

// Offline serves built-in questions and curates them with the local keyword
// check. It needs no network access.
type Offline struct {
	rand func(n int) int
}

func NewOffline() *Offline {
	return &Offline{rand: rand.IntN}
}

func (o *Offline) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return GenerateResult{}, err
	}
	tmpl := offlineTemplates[o.rand(len(offlineTemplates))]
	return GenerateResult{Question: fmt.Sprintf(tmpl, req.GameName)}, nil
}

func (o *Offline) Curate(ctx context.Context, req CurateRequest) (CurateResult, error) {
	if err := ctx.Err(); err != nil {
		return CurateResult{}, err
	}
	q := strings.TrimSpace(req.Question)
	if !IsGamingRelated(q) {
		return CurateResult{}, nil
	}
	return CurateResult{CuratedQuestion: q, IsValid: true}, nil
}
