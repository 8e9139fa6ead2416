package api

import (
	"time"

	"sessionhistory/internal/models"
	"sessionhistory/internal/service/history"
)

type sessionSummary struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Mode          models.LearningMode  `json:"mode"`
	Status        models.SessionStatus `json:"status"`
	TotalMessages int                  `json:"totalMessages"`
	Insights      int                  `json:"insights"`
	Progress      int                  `json:"progress"`
	CreatedAt     time.Time            `json:"createdAt"`
}

type messageResponse struct {
	ID                 string         `json:"id"`
	Role               models.Sender  `json:"role"`
	Content            string         `json:"content"`
	Order              int            `json:"order"`
	Metadata           map[string]any `json:"metadata"`
	AIState            *string        `json:"aiState"`
	ProcessingTimeMs   *int64         `json:"processingTimeMs"`
	IsInsight          bool           `json:"isInsight"`
	IsExercise         bool           `json:"isExercise"`
	IsFeedback         bool           `json:"isFeedback"`
	GeneratedResources []string       `json:"generatedResources"`
	RelatedTopics      []string       `json:"relatedTopics"`
	UserRating         *int           `json:"userRating"`
	UserFoundHelpful   *bool          `json:"userFoundHelpful"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// statsResponse marks the counters as covering the returned page only.
type statsResponse struct {
	Scope string `json:"scope"`
	models.PageStats
}

type historyResponse struct {
	Success    bool               `json:"success"`
	Session    sessionSummary     `json:"session"`
	Messages   []messageResponse  `json:"messages"`
	Stats      statsResponse      `json:"stats"`
	Pagination history.Pagination `json:"pagination"`
}

func newHistoryResponse(res *history.Result) historyResponse {
	s := res.Session
	messages := make([]messageResponse, 0, len(res.Messages))
	for _, m := range res.Messages {
		messages = append(messages, messageResponse{
			ID:                 m.ID,
			Role:               m.Sender,
			Content:            m.Content,
			Order:              m.Order,
			Metadata:           m.Metadata,
			AIState:            m.AIState,
			ProcessingTimeMs:   m.ProcessingTimeMs,
			IsInsight:          m.IsInsight,
			IsExercise:         m.IsExercise,
			IsFeedback:         m.IsFeedback,
			GeneratedResources: m.GeneratedResources,
			RelatedTopics:      m.RelatedTopics,
			UserRating:         m.UserRating,
			UserFoundHelpful:   m.UserFoundHelpful,
			CreatedAt:          m.CreatedAt,
			UpdatedAt:          m.UpdatedAt,
		})
	}
	return historyResponse{
		Success: true,
		Session: sessionSummary{
			ID:            s.ID,
			Title:         s.Title,
			Mode:          s.Mode,
			Status:        s.Status,
			TotalMessages: s.TotalMessages,
			Insights:      s.InsightsCount,
			Progress:      s.Progress,
			CreatedAt:     s.CreatedAt,
		},
		Messages:   messages,
		Stats:      statsResponse{Scope: "page", PageStats: res.Stats},
		Pagination: res.Pagination,
	}
}
