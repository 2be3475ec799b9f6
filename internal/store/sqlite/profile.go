package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// UpsertProfile stores the user's display name.
func (s *Store) UpsertProfile(ctx context.Context, userID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET name = excluded.name`, userID, name)
	if err != nil {
		return fmt.Errorf("UpsertProfile: %w", err)
	}
	return nil
}

// AddGoal appends a goal to the user's profile.
func (s *Store) AddGoal(ctx context.Context, userID string, g domain.Goal) error {
	status := g.Status
	if status == "" {
		status = "active"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (user_id, goal, category, target_amount, current_amount, progress, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, g.Goal, g.Category, g.TargetAmount, g.CurrentAmount, g.Progress, status)
	if err != nil {
		return fmt.Errorf("AddGoal: %w", err)
	}
	return nil
}

// ReadUserProfile returns the profile with its goals in insertion order. A
// user without a stored profile gets an empty one.
func (s *Store) ReadUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p := &domain.UserProfile{UserID: userID, Goals: []domain.Goal{}}

	err := s.db.QueryRowContext(ctx, `SELECT name FROM profiles WHERE user_id = ?`, userID).Scan(&p.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ReadUserProfile: reading profile: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT goal, category, target_amount, current_amount, progress, status
		FROM goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ReadUserProfile: querying goals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g domain.Goal
		if err := rows.Scan(&g.Goal, &g.Category, &g.TargetAmount, &g.CurrentAmount, &g.Progress, &g.Status); err != nil {
			return nil, fmt.Errorf("ReadUserProfile: scanning goal: %w", err)
		}
		g.Progress = g.EffectiveProgress()
		p.Goals = append(p.Goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadUserProfile: iterating goals: %w", err)
	}
	return p, nil
}

// ReadStylePreferences returns the stored preferences, or nil when the user
// has never left feedback.
func (s *Store) ReadStylePreferences(ctx context.Context, userID string) (*domain.StylePreferences, error) {
	var (
		p               domain.StylePreferences
		scores, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, style_preference, tone_preference, style_scores, updated_at
		FROM style_preferences WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.StylePreference, &p.TonePreference, &scores, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ReadStylePreferences: %w", err)
	}
	p.Scores = domain.StyleScores{}
	if err := json.Unmarshal([]byte(scores), &p.Scores); err != nil {
		return nil, fmt.Errorf("ReadStylePreferences: decoding scores: %w", err)
	}
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// SaveStylePreferences replaces the user's preferences.
func (s *Store) SaveStylePreferences(ctx context.Context, p domain.StylePreferences) error {
	if p.Scores == nil {
		p.Scores = domain.StyleScores{}
	}
	scores, err := json.Marshal(p.Scores)
	if err != nil {
		return fmt.Errorf("SaveStylePreferences: encoding scores: %w", err)
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO style_preferences (user_id, style_preference, tone_preference, style_scores, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			style_preference = excluded.style_preference,
			tone_preference = excluded.tone_preference,
			style_scores = excluded.style_scores,
			updated_at = excluded.updated_at`,
		p.UserID, p.StylePreference, p.TonePreference, string(scores), formatTime(updated))
	if err != nil {
		return fmt.Errorf("SaveStylePreferences: %w", err)
	}
	return nil
}

// InsertFeedback persists a feedback record and returns it with its id.
func (s *Store) InsertFeedback(ctx context.Context, f domain.Feedback) (*domain.Feedback, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}
	f.CreatedAt = f.CreatedAt.UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, user_id, session_id, message_id, value, applied_style, preferred_style, preferred_tone, feedback_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.SessionID, f.MessageID, f.Value, f.AppliedStyle, f.PreferredStyle, f.PreferredTone, f.FeedbackText, formatTime(f.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("InsertFeedback: %w", err)
	}
	return &f, nil
}
