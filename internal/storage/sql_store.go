package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sessionhistory/internal/models"
)

const messageColumns = `m.id, m.session_id, m.sender, m.content, m.message_order, m.metadata, m.ai_state,
	m.processing_time_ms, m.is_insight, m.is_exercise, m.is_feedback, m.generated_resources,
	m.related_topics, m.user_rating, m.user_found_helpful, m.created_at, m.updated_at`

// SQLStore implements Store on top of database/sql (sqlite3 or mysql).
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an opened and migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

var _ Store = (*SQLStore)(nil)

// GetSessionForUser returns ErrNotFound both for unknown ids and for sessions owned by someone else.
func (s *SQLStore) GetSessionForUser(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	var session models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, mode, status, total_messages, insights_count, progress, created_at, updated_at
		 FROM learning_sessions WHERE id = ? AND user_id = ?`,
		sessionID, userID,
	).Scan(&session.ID, &session.UserID, &session.Title, &session.Mode, &session.Status,
		&session.TotalMessages, &session.InsightsCount, &session.Progress, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// ListMessages orders by message_order alone; the unique index makes it total.
func (s *SQLStore) ListMessages(ctx context.Context, sessionID string, offset, limit int) ([]*models.Message, error) {
	messages := make([]*models.Message, 0, limit)
	if limit <= 0 {
		return messages, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM session_messages m
		 WHERE m.session_id = ? ORDER BY m.message_order ASC LIMIT ? OFFSET ?`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// GetMessageWithOwner joins the parent session to fetch its user_id.
func (s *SQLStore) GetMessageWithOwner(ctx context.Context, messageID string) (*OwnedMessage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+`, s.user_id FROM session_messages m
		 JOIN learning_sessions s ON s.id = m.session_id
		 WHERE m.id = ?`,
		messageID,
	)
	var owner string
	m, err := scanMessage(row, &owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &OwnedMessage{Message: m, OwnerID: owner}, nil
}

// AnnotateMessage issues one UPDATE touching only the supplied fields.
func (s *SQLStore) AnnotateMessage(ctx context.Context, messageID string, a models.Annotation, now time.Time) error {
	sets := []string{"updated_at = ?"}
	args := []any{now.UTC()}
	if rating, ok := a.UserRating.Get(); ok {
		sets = append(sets, "user_rating = ?")
		args = append(args, rating)
	}
	if helpful, ok := a.UserFoundHelpful.Get(); ok {
		sets = append(sets, "user_found_helpful = ?")
		args = append(args, helpful)
	}
	args = append(args, messageID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE session_messages SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("annotate message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("message rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertSession stores a session created by the conversation flow.
func (s *SQLStore) InsertSession(ctx context.Context, session *models.Session) error {
	if session.UserID == "" {
		return errors.New("user_id is required")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.StatusActive
	}
	now := time.Now().UTC()
	session.CreatedAt, session.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learning_sessions (id, user_id, title, mode, status, total_messages, insights_count, progress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Title, session.Mode, session.Status,
		session.TotalMessages, session.InsightsCount, session.Progress, now, now,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// InsertMessage appends a message at the next order position of its session
// and bumps the session counters.
func (s *SQLStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if !msg.Sender.Valid() {
		return fmt.Errorf("invalid sender %q", msg.Sender)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	metadata, err := encodeMetadata(msg.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	resources, err := encodeNullableJSON(msg.GeneratedResources)
	if err != nil {
		return fmt.Errorf("encode generated resources: %w", err)
	}
	topics, err := encodeNullableJSON(msg.RelatedTopics)
	if err != nil {
		return fmt.Errorf("encode related topics: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_messages (id, session_id, sender, content, message_order, metadata, ai_state,
			processing_time_ms, is_insight, is_exercise, is_feedback, generated_resources, related_topics,
			user_rating, user_found_helpful, created_at, updated_at)
		 SELECT ?, ?, ?, ?, COALESCE(MAX(message_order), 0) + 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 FROM session_messages WHERE session_id = ?`,
		msg.ID, msg.SessionID, msg.Sender, msg.Content, metadata, msg.AIState,
		msg.ProcessingTimeMs, msg.IsInsight, msg.IsExercise, msg.IsFeedback, resources, topics,
		msg.UserRating, msg.UserFoundHelpful, now, now,
		msg.SessionID,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT message_order FROM session_messages WHERE id = ?`, msg.ID,
	).Scan(&msg.Order); err != nil {
		return fmt.Errorf("message order: %w", err)
	}
	insight := 0
	if msg.IsInsight {
		insight = 1
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE learning_sessions SET total_messages = total_messages + 1, insights_count = insights_count + ?, updated_at = ? WHERE id = ?`,
		insight, now, msg.SessionID,
	); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	msg.CreatedAt, msg.UpdatedAt = now, now
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner, extra ...any) (*models.Message, error) {
	var (
		m         models.Message
		metadata  sql.NullString
		aiState   sql.NullString
		procTime  sql.NullInt64
		resources sql.NullString
		topics    sql.NullString
		rating    sql.NullInt64
		helpful   sql.NullBool
		insight   bool
		exercise  bool
		feedback  bool
		createdAt time.Time
		updatedAt time.Time
	)
	dest := []any{&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.Order, &metadata, &aiState,
		&procTime, &insight, &exercise, &feedback, &resources, &topics, &rating, &helpful,
		&createdAt, &updatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.IsInsight, m.IsExercise, m.IsFeedback = insight, exercise, feedback
	m.CreatedAt, m.UpdatedAt = createdAt, updatedAt
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of message %s: %w", m.ID, err)
		}
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	if aiState.Valid {
		v := aiState.String
		m.AIState = &v
	}
	if procTime.Valid {
		v := procTime.Int64
		m.ProcessingTimeMs = &v
	}
	if resources.Valid && resources.String != "" {
		if err := json.Unmarshal([]byte(resources.String), &m.GeneratedResources); err != nil {
			return nil, fmt.Errorf("decode generated resources of message %s: %w", m.ID, err)
		}
	}
	if topics.Valid && topics.String != "" {
		if err := json.Unmarshal([]byte(topics.String), &m.RelatedTopics); err != nil {
			return nil, fmt.Errorf("decode related topics of message %s: %w", m.ID, err)
		}
	}
	if rating.Valid {
		v := int(rating.Int64)
		m.UserRating = &v
	}
	if helpful.Valid {
		v := helpful.Bool
		m.UserFoundHelpful = &v
	}
	return &m, nil
}

func encodeMetadata(v map[string]any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeNullableJSON(v []string) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
