package models

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Message is one turn of a session. Order is unique within the session and
// defines the canonical read sequence.
type Message struct {
	ID                 string         `json:"id"`
	SessionID          string         `json:"session_id"`
	Sender             Sender         `json:"sender"`
	Content            string         `json:"content"`
	Order              int            `json:"message_order"`
	Metadata           map[string]any `json:"metadata"`
	AIState            *string        `json:"ai_state,omitempty"`
	ProcessingTimeMs   *int64         `json:"processing_time_ms,omitempty"`
	IsInsight          bool           `json:"is_insight"`
	IsExercise         bool           `json:"is_exercise"`
	IsFeedback         bool           `json:"is_feedback"`
	GeneratedResources []string       `json:"generated_resources,omitempty"`
	RelatedTopics      []string       `json:"related_topics,omitempty"`
	UserRating         *int           `json:"user_rating,omitempty"`
	UserFoundHelpful   *bool          `json:"user_found_helpful,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// Annotation is a partial update of the user-writable message fields.
// Absent fields are left unchanged; clearing a field is not supported.
type Annotation struct {
	UserRating       Optional[int]
	UserFoundHelpful Optional[bool]
}

// Empty reports whether no field was supplied.
func (a Annotation) Empty() bool {
	return !a.UserRating.Present() && !a.UserFoundHelpful.Present()
}
