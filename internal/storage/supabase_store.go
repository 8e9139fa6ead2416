package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"sessionhistory/internal/models"
)

const (
	sessionsTable = "learning_sessions"
	messagesTable = "session_messages"
)

// SupabaseConfig holds Supabase connection configuration
type SupabaseConfig struct {
	URL    string
	APIKey string
	Schema string
}

// SupabaseStore implements Store against a Supabase project through PostgREST.
type SupabaseStore struct {
	client *supabase.Client
}

var _ Store = (*SupabaseStore)(nil)

// NewSupabaseStore creates a new Supabase-backed store
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, &supabase.ClientOptions{Schema: cfg.Schema})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

type supabaseSession struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Mode          string    `json:"mode"`
	Status        string    `json:"status"`
	TotalMessages int       `json:"total_messages"`
	InsightsCount int       `json:"insights_count"`
	Progress      int       `json:"progress"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type supabaseMessage struct {
	ID                 string         `json:"id"`
	SessionID          string         `json:"session_id"`
	Sender             string         `json:"sender"`
	Content            string         `json:"content"`
	MessageOrder       int            `json:"message_order"`
	Metadata           map[string]any `json:"metadata"`
	AIState            *string        `json:"ai_state"`
	ProcessingTimeMs   *int64         `json:"processing_time_ms"`
	IsInsight          bool           `json:"is_insight"`
	IsExercise         bool           `json:"is_exercise"`
	IsFeedback         bool           `json:"is_feedback"`
	GeneratedResources []string       `json:"generated_resources"`
	RelatedTopics      []string       `json:"related_topics"`
	UserRating         *int           `json:"user_rating"`
	UserFoundHelpful   *bool          `json:"user_found_helpful"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`

	// populated by the inner join in GetMessageWithOwner
	Session *struct {
		UserID string `json:"user_id"`
	} `json:"learning_sessions,omitempty"`
}

func (r supabaseMessage) toModel() *models.Message {
	m := &models.Message{
		ID:                 r.ID,
		SessionID:          r.SessionID,
		Sender:             models.Sender(r.Sender),
		Content:            r.Content,
		Order:              r.MessageOrder,
		Metadata:           r.Metadata,
		AIState:            r.AIState,
		ProcessingTimeMs:   r.ProcessingTimeMs,
		IsInsight:          r.IsInsight,
		IsExercise:         r.IsExercise,
		IsFeedback:         r.IsFeedback,
		GeneratedResources: r.GeneratedResources,
		RelatedTopics:      r.RelatedTopics,
		UserRating:         r.UserRating,
		UserFoundHelpful:   r.UserFoundHelpful,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	return m
}

// GetSessionForUser filters on both id and user_id so foreign sessions look absent.
func (s *SupabaseStore) GetSessionForUser(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	var rows []supabaseSession
	_, err := s.client.From(sessionsTable).
		Select("*", "", false).
		Eq("id", sessionID).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	r := rows[0]
	return &models.Session{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Mode:          models.LearningMode(r.Mode),
		Status:        models.SessionStatus(r.Status),
		TotalMessages: r.TotalMessages,
		InsightsCount: r.InsightsCount,
		Progress:      r.Progress,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func (s *SupabaseStore) ListMessages(ctx context.Context, sessionID string, offset, limit int) ([]*models.Message, error) {
	messages := make([]*models.Message, 0, limit)
	if limit <= 0 {
		return messages, nil
	}
	var rows []supabaseMessage
	_, err := s.client.From(messagesTable).
		Select("*", "", false).
		Eq("session_id", sessionID).
		Order("message_order", &postgrest.OrderOpts{Ascending: true}).
		Range(offset, offset+limit-1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	for _, r := range rows {
		messages = append(messages, r.toModel())
	}
	return messages, nil
}

func (s *SupabaseStore) GetMessageWithOwner(ctx context.Context, messageID string) (*OwnedMessage, error) {
	var rows []supabaseMessage
	_, err := s.client.From(messagesTable).
		Select("*, learning_sessions!inner(user_id)", "", false).
		Eq("id", messageID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if len(rows) == 0 || rows[0].Session == nil {
		return nil, ErrNotFound
	}
	return &OwnedMessage{Message: rows[0].toModel(), OwnerID: rows[0].Session.UserID}, nil
}

func (s *SupabaseStore) AnnotateMessage(ctx context.Context, messageID string, a models.Annotation, now time.Time) error {
	patch := map[string]any{"updated_at": now.UTC()}
	if rating, ok := a.UserRating.Get(); ok {
		patch["user_rating"] = rating
	}
	if helpful, ok := a.UserFoundHelpful.Get(); ok {
		patch["user_found_helpful"] = helpful
	}
	body, _, err := s.client.From(messagesTable).
		Update(patch, "representation", "").
		Eq("id", messageID).
		Execute()
	if err != nil {
		return fmt.Errorf("annotate message: %w", err)
	}
	var updated []json.RawMessage
	if err := json.Unmarshal(body, &updated); err != nil {
		return fmt.Errorf("decode annotate response: %w", err)
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping selects a single id from the sessions table.
func (s *SupabaseStore) Ping(ctx context.Context) error {
	_, _, err := s.client.From(sessionsTable).
		Select("id", "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("ping supabase: %w", err)
	}
	return nil
}

// Close is a no-op; the Supabase client holds no pooled connections.
func (s *SupabaseStore) Close() error {
	return nil
}
