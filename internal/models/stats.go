package models

// PageStats summarises one page of messages. It is not a session-lifetime total.
type PageStats struct {
	UserMessageCount      int   `json:"userMessageCount"`
	AssistantMessageCount int   `json:"assistantMessageCount"`
	InsightCount          int   `json:"insightCount"`
	ExerciseCount         int   `json:"exerciseCount"`
	FeedbackCount         int   `json:"feedbackCount"`
	TotalProcessingTimeMs int64 `json:"totalProcessingTimeMs"`
	AverageResponseTimeMs int64 `json:"averageResponseTimeMs"`
}
