package domain

import "time"

// UsageMetrics is the 30-day rolling usage aggregate for a customer. It is
// produced by summing externally ingested daily rows and is consumed, not
// owned, by the segmentation engine.
type UsageMetrics struct {
	Logins         int        `json:"logins"`
	PiecesCreated  int        `json:"pieces_created"`
	Downloads      int        `json:"downloads"`
	AIUsage        int        `json:"ai_usage"`
	ActiveDays     int        `json:"active_days"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}

// UsageDay is one externally aggregated day of activity for a customer.
type UsageDay struct {
	CustomerID    string    `json:"customer_id"`
	Day           time.Time `json:"day"`
	Logins        int       `json:"logins"`
	PiecesCreated int       `json:"pieces_created"`
	Downloads     int       `json:"downloads"`
	AIUsage       int       `json:"ai_usage"`
}

// ThreadSentiment is the informational sentiment signal from email-thread
// classification. It does not gate segmentation.
type ThreadSentiment string

const (
	SentimentPositive ThreadSentiment = "positive"
	SentimentNeutral  ThreadSentiment = "neutral"
	SentimentNegative ThreadSentiment = "negative"
)

// ThreadSummary is the slice of a classified email thread the segmentation
// engine sees.
type ThreadSummary struct {
	ID            string          `json:"id"`
	Subject       string          `json:"subject"`
	Sentiment     ThreadSentiment `json:"sentiment"`
	LastMessageAt time.Time       `json:"last_message_at"`
}
