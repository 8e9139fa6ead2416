package history

import "sessionhistory/internal/models"

// Aggregate summarises one page of messages in a single pass. Flags and
// processing time only count for assistant messages.
func Aggregate(messages []*models.Message) models.PageStats {
	var stats models.PageStats
	for _, m := range messages {
		switch m.Sender {
		case models.SenderUser:
			stats.UserMessageCount++
		case models.SenderAssistant:
			stats.AssistantMessageCount++
			if m.IsInsight {
				stats.InsightCount++
			}
			if m.IsExercise {
				stats.ExerciseCount++
			}
			if m.IsFeedback {
				stats.FeedbackCount++
			}
			if m.ProcessingTimeMs != nil {
				stats.TotalProcessingTimeMs += *m.ProcessingTimeMs
			}
		}
	}
	stats.AverageResponseTimeMs = roundHalfUp(stats.TotalProcessingTimeMs, int64(stats.AssistantMessageCount))
	return stats
}

// roundHalfUp divides non-negative num by den, rounding .5 upwards. Zero den yields 0.
func roundHalfUp(num, den int64) int64 {
	if den <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}
