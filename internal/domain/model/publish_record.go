package model

import "time"

// PublishRecord is the audit row written for every publish attempt that got a sequence number.
type PublishRecord struct {
	ID             string
	SubmitterID    int64
	DestinationID  string
	SequenceNumber int64
	Kind           string
	Items          int
	Status         PublishStatus
	Error          string
	CreatedAt      time.Time
}

func NewPublishRecord(req *PublishRequest, status PublishStatus, err error) *PublishRecord {
	rec := &PublishRecord{
		ID:             req.ID,
		SubmitterID:    req.SubmitterID,
		DestinationID:  req.DestinationID,
		SequenceNumber: req.SequenceNumber,
		Kind:           req.Kind(),
		Items:          len(req.Media),
		Status:         status,
		CreatedAt:      time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}
