package model

// MediaItem is one entry of a published media set.
// Caption is only ever set on the first item of a request.
type MediaItem struct {
	Kind    MediaKind
	Ref     string
	Caption string
}

// PublishRequest is the artifact handed to the outbound transport exactly once
// per logical submission (single item or whole album).
type PublishRequest struct {
	ID             string
	SubmitterID    int64
	DestinationID  string
	SequenceNumber int64
	Text           string // used when Media is empty
	Media          []MediaItem
}

// Caption returns the text shown with the post, whichever field carries it.
func (r *PublishRequest) Caption() string {
	if len(r.Media) > 0 {
		return r.Media[0].Caption
	}
	return r.Text
}

// Kind summarizes the request for logs and metrics.
func (r *PublishRequest) Kind() string {
	switch {
	case len(r.Media) > 1:
		return "album"
	case len(r.Media) == 1:
		return string(r.Media[0].Kind)
	default:
		return string(MediaKindText)
	}
}

type PublishStatus string

const (
	PublishStatusPublished PublishStatus = "published"
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusFailed    PublishStatus = "failed"
)

// PublishOutcome is returned by the coordinator for every submission.
// Pending means the submission joined an album that will be published on flush.
type PublishOutcome struct {
	Status         PublishStatus
	SequenceNumber int64
	RequestID      string
}
