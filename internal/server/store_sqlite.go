package server

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/playperu/philosophersclick/internal/game"
)

// SQLiteStore implements Store on the schema in internal/migrations.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) CreateSession(ctx context.Context, id, gameName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, game_name) VALUES (?, ?)
	`, id, gameName)
	return err
}

func (s *SQLiteStore) EndSession(ctx context.Context, id string, finalScore int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET ended_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now'), final_score = ?
		WHERE id = ? AND ended_at IS NULL
	`, finalScore, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	var endedAt sql.NullString
	var finalScore sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_name, created_at, ended_at, final_score
		FROM sessions WHERE id = ?
	`, id).Scan(&rec.ID, &rec.GameName, &rec.CreatedAt, &endedAt, &finalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.String
	}
	if finalScore.Valid {
		score := int(finalScore.Int64)
		rec.FinalScore = &score
	}
	return rec, nil
}

func (s *SQLiteStore) RecordReflection(ctx context.Context, sessionID string, r game.Resolution) (Reflection, error) {
	ref := Reflection{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Question:    r.Question,
		Answer:      r.Answer,
		Outcome:     r.Outcome,
		ScoreBefore: r.ScoreBefore,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reflections (id, session_id, question, answer, outcome, score_before)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING resolved_at
	`, ref.ID, sessionID, ref.Question, ref.Answer, string(ref.Outcome), ref.ScoreBefore).Scan(&ref.ResolvedAt)
	if err != nil {
		return Reflection{}, err
	}
	return ref, nil
}

func (s *SQLiteStore) ListReflections(ctx context.Context, sessionID string) ([]Reflection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question, answer, outcome, score_before, resolved_at
		FROM reflections
		WHERE session_id = ?
		ORDER BY resolved_at DESC, rowid DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reflection
	for rows.Next() {
		var ref Reflection
		var outcome string
		if err := rows.Scan(&ref.ID, &ref.SessionID, &ref.Question, &ref.Answer, &outcome, &ref.ScoreBefore, &ref.ResolvedAt); err != nil {
			return nil, err
		}
		ref.Outcome = game.Outcome(outcome)
		out = append(out, ref)
	}
	return out, rows.Err()
}
