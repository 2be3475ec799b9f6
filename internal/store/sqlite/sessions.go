package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// CreateSession inserts a new active session and returns it.
func (s *Store) CreateSession(ctx context.Context, userID, language string) (*domain.Session, error) {
	now := s.now().UTC()
	sess := &domain.Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Language:       language,
		Status:         domain.SessionActive,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, language, status, created_at, last_activity_at, message_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)`,
		sess.ID, sess.UserID, sess.Language, sess.Status, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("CreateSession: inserting session: %w", err)
	}
	return sess, nil
}

const sessionColumns = `id, user_id, language, status, created_at, last_activity_at, message_count`

func scanSession(row scanner) (*domain.Session, error) {
	var (
		sess             domain.Session
		created, touched string
	)
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Language, &sess.Status, &created, &touched, &sess.MessageCount); err != nil {
		return nil, err
	}
	sess.CreatedAt = parseTime(created)
	sess.LastActivityAt = parseTime(touched)
	return &sess, nil
}

// GetSession returns the user's session with the given id, or nil when it
// does not exist.
func (s *Store) GetSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetSession: %w", err)
	}
	return sess, nil
}

// LatestActiveSession returns the user's most recently active session whose
// last activity is at or after since, or nil.
func (s *Store) LatestActiveSession(ctx context.Context, userID string, since time.Time) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND status = ? AND last_activity_at >= ?
		ORDER BY last_activity_at DESC
		LIMIT 1`, userID, domain.SessionActive, formatTime(since))
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestActiveSession: %w", err)
	}
	return sess, nil
}

// TouchSession bumps last activity and adds delta to the message count.
func (s *Store) TouchSession(ctx context.Context, sessionID string, at time.Time, delta int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = ?, message_count = message_count + ? WHERE id = ?`,
		formatTime(at), delta, sessionID)
	if err != nil {
		return fmt.Errorf("TouchSession: %w", err)
	}
	return nil
}

// AppendMessage persists msg, assigning an id and timestamp when missing.
// A message whose idempotency key was already stored is not inserted again;
// the stored message is returned instead.
func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if key := msg.Metadata.IdempotencyKey; key != "" {
		existing, err := s.messageByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("AppendMessage: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.CreatedAt = stored.CreatedAt.UTC()

	meta, err := json.Marshal(stored.Metadata)
	if err != nil {
		return nil, fmt.Errorf("AppendMessage: encoding metadata: %w", err)
	}
	var key any
	if stored.Metadata.IdempotencyKey != "" {
		key = stored.Metadata.IdempotencyKey
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, session_id, role, content, metadata, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.UserID, stored.SessionID, stored.Role, stored.Content, string(meta), key, formatTime(stored.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("AppendMessage: inserting message: %w", err)
	}
	return &stored, nil
}

const messageColumns = `id, user_id, session_id, role, content, metadata, created_at`

func scanMessage(row scanner) (*domain.Message, error) {
	var (
		m             domain.Message
		meta, created string
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.SessionID, &m.Role, &m.Content, &meta, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &m.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata of message %s: %w", m.ID, err)
	}
	m.CreatedAt = parseTime(created)
	return &m, nil
}

func (s *Store) messageByIdempotencyKey(ctx context.Context, key string) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE idempotency_key = ?`, key)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetMessage returns the user's message with the given id, or nil.
func (s *Store) GetMessage(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ? AND user_id = ?`, messageID, userID)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetMessage: %w", err)
	}
	return m, nil
}

// LatestAssistantMessage returns the newest assistant message of the user,
// restricted to sessionID when it is not empty, or nil.
func (s *Store) LatestAssistantMessage(ctx context.Context, userID, sessionID string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE user_id = ? AND role = ?`
	args := []any{userID, domain.RoleAssistant}
	if sessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT 1`

	m, err := scanMessage(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LatestAssistantMessage: %w", err)
	}
	return m, nil
}

// ListMessages returns the most recent limit messages of the user, oldest
// first. An empty sessionID spans every session of the user.
func (s *Store) ListMessages(ctx context.Context, userID, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE user_id = ?`
	args := []any{userID}
	if sessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListMessages: querying: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("ListMessages: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListMessages: iterating: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ReadRecentDialogue returns the last limit turns of a session, oldest first.
func (s *Store) ReadRecentDialogue(ctx context.Context, userID, sessionID string, limit int) ([]domain.DialogueTurn, error) {
	if sessionID == "" {
		return nil, nil
	}
	msgs, err := s.ListMessages(ctx, userID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("ReadRecentDialogue: %w", err)
	}
	turns := make([]domain.DialogueTurn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, domain.DialogueTurn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}
