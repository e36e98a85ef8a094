package model

// Channel identifies the external system a message came from
type Channel string

const (
	ChannelGmail     Channel = "gmail"
	ChannelIMAP      Channel = "imap"
	ChannelHelpScout Channel = "helpscout"
)

// Valid reports whether c is a supported channel
func (c Channel) Valid() bool {
	switch c {
	case ChannelGmail, ChannelIMAP, ChannelHelpScout:
		return true
	}
	return false
}

// Category of a feature request
type Category string

const (
	CategoryFeature       Category = "feature"
	CategoryImprovement   Category = "improvement"
	CategoryBug           Category = "bug"
	CategoryIntegration   Category = "integration"
	CategoryUX            Category = "ux"
	CategoryPerformance   Category = "performance"
	CategoryDocumentation Category = "documentation"
	CategoryOther         Category = "other"
)

// ParseCategory returns the matching category or CategoryFeature
func ParseCategory(s string) Category {
	switch c := Category(s); c {
	case CategoryFeature, CategoryImprovement, CategoryBug, CategoryIntegration,
		CategoryUX, CategoryPerformance, CategoryDocumentation, CategoryOther:
		return c
	}
	return CategoryFeature
}

// Sentiment of a piece of feedback
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment returns the matching sentiment or SentimentNeutral
func ParseSentiment(s string) Sentiment {
	switch v := Sentiment(s); v {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return v
	}
	return SentimentNeutral
}

// RequestStatus is the triage state of a feature request
type RequestStatus string

const (
	StatusUntriaged  RequestStatus = "untriaged"
	StatusReviewing  RequestStatus = "reviewing"
	StatusPlanned    RequestStatus = "planned"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusRejected   RequestStatus = "rejected"
)

// SyncTrigger names what started a sync run
type SyncTrigger string

const (
	TriggerManual   SyncTrigger = "manual"
	TriggerPush     SyncTrigger = "push"
	TriggerWebhook  SyncTrigger = "webhook"
	TriggerSchedule SyncTrigger = "schedule"
	TriggerBackfill SyncTrigger = "backfill"
)

// SyncStatus is the final state of a sync run
type SyncStatus string

const (
	SyncInitialized SyncStatus = "initialized"
	SyncSuccess     SyncStatus = "success"
	SyncPartial     SyncStatus = "partial"
	SyncFailed      SyncStatus = "failed"
	SyncSkipped     SyncStatus = "skipped"
)
