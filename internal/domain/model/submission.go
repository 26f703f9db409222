package model

import (
	"strings"
	"time"

	"telegram-object-publisher/internal/domain"
)

type MediaKind string

const (
	MediaKindText        MediaKind = "text"
	MediaKindPhoto       MediaKind = "photo"
	MediaKindVideo       MediaKind = "video"
	MediaKindUnsupported MediaKind = "unsupported"
)

// HasMedia reports whether the kind carries a media handle.
func (k MediaKind) HasMedia() bool { return k == MediaKindPhoto || k == MediaKindVideo }

// Submission is one inbound unit delivered by the transport.
// It is treated as immutable once built; use WithDestination to derive a copy.
type Submission struct {
	SubmitterID   int64
	DestinationID string
	GroupKey      string // set iff the part belongs to an album
	Kind          MediaKind
	MediaRef      string // opaque content handle, empty for text
	RawText       string // caption or body
	ArrivalTime   time.Time
	SourceRef     string // transport-level identity of the update, used for redelivery detection
}

// NewSubmission validates and constructs a submission.
func NewSubmission(submitterID int64, kind MediaKind, mediaRef, rawText, groupKey string) (*Submission, error) {
	if submitterID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	switch kind {
	case MediaKindText, MediaKindUnsupported:
		mediaRef = ""
	case MediaKindPhoto, MediaKindVideo:
		if strings.TrimSpace(mediaRef) == "" {
			return nil, domain.ErrInvalidArgument
		}
	default:
		return nil, domain.ErrInvalidArgument
	}
	return &Submission{
		SubmitterID: submitterID,
		GroupKey:    groupKey,
		Kind:        kind,
		MediaRef:    mediaRef,
		RawText:     rawText,
		ArrivalTime: time.Now(),
	}, nil
}

func (s *Submission) IsAlbumPart() bool { return s != nil && s.GroupKey != "" }

// WithDestination returns a copy bound to the given destination.
func (s Submission) WithDestination(destinationID string) *Submission {
	s.DestinationID = destinationID
	return &s
}
