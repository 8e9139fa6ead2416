package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"sessionhistory/internal/config"
	"sessionhistory/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {
				DSN: ":memory:",
			},
		},
	}
	db, err := Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func insertUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		id, id+"@example.com", time.Now().UTC())
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func seedSession(t *testing.T, store *SQLStore, userID string, senders ...models.Sender) *models.Session {
	t.Helper()
	ctx := context.Background()
	session := &models.Session{UserID: userID, Title: "Fractions", Mode: models.ModeSocratic}
	if err := store.InsertSession(ctx, session); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	for i, sender := range senders {
		msg := &models.Message{SessionID: session.ID, Sender: sender, Content: "turn"}
		if sender == models.SenderAssistant {
			ms := int64(100 * (i + 1))
			msg.ProcessingTimeMs = &ms
		}
		if err := store.InsertMessage(ctx, msg); err != nil {
			t.Fatalf("insert message: %v", err)
		}
	}
	return session
}

func TestSQLStoreSessionOwnership(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewSQLStore(db)
	owner := insertUser(t, db)
	other := insertUser(t, db)
	session := seedSession(t, store, owner)

	got, err := store.GetSessionForUser(context.Background(), session.ID, owner)
	if err != nil {
		t.Fatalf("GetSessionForUser owner: %v", err)
	}
	if got.Title != "Fractions" || got.Mode != models.ModeSocratic || got.Status != models.StatusActive {
		t.Fatalf("unexpected session %+v", got)
	}
	if _, err := store.GetSessionForUser(context.Background(), session.ID, other); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	if _, err := store.GetSessionForUser(context.Background(), uuid.NewString(), owner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing session, got %v", err)
	}
}

func TestSQLStoreListMessagesWindows(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewSQLStore(db)
	owner := insertUser(t, db)
	session := seedSession(t, store, owner,
		models.SenderUser, models.SenderAssistant, models.SenderUser, models.SenderAssistant, models.SenderUser)

	ctx := context.Background()
	all, err := store.ListMessages(ctx, session.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(all))
	}
	for i, m := range all {
		if m.Order != i+1 {
			t.Fatalf("message %d has order %d", i, m.Order)
		}
	}

	first, err := store.ListMessages(ctx, session.ID, 0, 2)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	rest, err := store.ListMessages(ctx, session.ID, 2, 3)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	joined := append(first, rest...)
	if len(joined) != len(all) {
		t.Fatalf("pages cover %d messages, want %d", len(joined), len(all))
	}
	for i := range all {
		if joined[i].ID != all[i].ID {
			t.Fatalf("page concatenation differs at %d", i)
		}
	}

	empty, err := store.ListMessages(ctx, session.ID, 10, 5)
	if err != nil {
		t.Fatalf("past end: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no messages past the end, got %d", len(empty))
	}

	zero, err := store.ListMessages(ctx, session.ID, 0, 0)
	if err != nil || len(zero) != 0 {
		t.Fatalf("zero limit: %d messages err=%v", len(zero), err)
	}
}

func TestSQLStoreMessageFieldsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewSQLStore(db)
	owner := insertUser(t, db)
	session := seedSession(t, store, owner)

	state := "explaining"
	ms := int64(420)
	msg := &models.Message{
		SessionID:          session.ID,
		Sender:             models.SenderAssistant,
		Content:            "A fraction is a part of a whole.",
		Metadata:           map[string]any{"model": "tutor-v2"},
		AIState:            &state,
		ProcessingTimeMs:   &ms,
		IsInsight:          true,
		GeneratedResources: []string{"res-1"},
		RelatedTopics:      []string{"topic-a", "topic-b"},
	}
	if err := store.InsertMessage(context.Background(), msg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetMessageWithOwner(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("GetMessageWithOwner: %v", err)
	}
	if got.OwnerID != owner {
		t.Fatalf("owner mismatch: %s", got.OwnerID)
	}
	m := got.Message
	if m.AIState == nil || *m.AIState != state || m.ProcessingTimeMs == nil || *m.ProcessingTimeMs != ms {
		t.Fatalf("optional fields lost: %+v", m)
	}
	if !m.IsInsight || m.IsExercise || m.IsFeedback {
		t.Fatalf("flags mismatch: %+v", m)
	}
	if m.Metadata["model"] != "tutor-v2" || len(m.RelatedTopics) != 2 || len(m.GeneratedResources) != 1 {
		t.Fatalf("json fields mismatch: %+v", m)
	}
	if m.UserRating != nil || m.UserFoundHelpful != nil {
		t.Fatalf("annotations should be unset")
	}

	reloaded, err := store.GetSessionForUser(context.Background(), session.ID, owner)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.TotalMessages != 1 || reloaded.InsightsCount != 1 {
		t.Fatalf("session counters not bumped: %+v", reloaded)
	}

	if _, err := store.GetMessageWithOwner(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLStoreAnnotateIsPartial(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	store := NewSQLStore(db)
	owner := insertUser(t, db)
	session := seedSession(t, store, owner, models.SenderAssistant)
	msgs, err := store.ListMessages(context.Background(), session.ID, 0, 1)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("list: %v", err)
	}
	id := msgs[0].ID
	ctx := context.Background()

	later := time.Now().UTC().Add(time.Minute)
	if err := store.AnnotateMessage(ctx, id, models.Annotation{UserRating: models.Some(4)}, later); err != nil {
		t.Fatalf("annotate rating: %v", err)
	}
	if err := store.AnnotateMessage(ctx, id, models.Annotation{UserFoundHelpful: models.Some(true)}, later.Add(time.Second)); err != nil {
		t.Fatalf("annotate helpful: %v", err)
	}

	got, err := store.GetMessageWithOwner(ctx, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Message.UserRating == nil || *got.Message.UserRating != 4 {
		t.Fatalf("rating lost: %+v", got.Message.UserRating)
	}
	if got.Message.UserFoundHelpful == nil || !*got.Message.UserFoundHelpful {
		t.Fatalf("helpful not stored")
	}
	if !got.Message.UpdatedAt.After(msgs[0].UpdatedAt) {
		t.Fatalf("updated_at not refreshed: %v vs %v", got.Message.UpdatedAt, msgs[0].UpdatedAt)
	}

	if err := store.AnnotateMessage(ctx, uuid.NewString(), models.Annotation{UserRating: models.Some(1)}, later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown message, got %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{"postgres": {DSN: "x"}}}
	if _, err := Open("postgres", cfg); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if _, err := Open("sqlite3", &config.Config{}); err == nil {
		t.Fatalf("expected error for missing config")
	}
}
