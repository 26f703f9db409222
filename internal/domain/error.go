package domain

import "errors"

var (
	// Publishing pipeline errors
	ErrNotAuthorized      = errors.New("submitter is not authorized to publish")
	ErrStorageUnavailable = errors.New("counter storage unavailable")
	ErrTransport          = errors.New("transport rejected publish request")
	ErrAggregationAnomaly = errors.New("album aggregation anomaly")
	ErrDuplicateDelivery  = errors.New("submission already accepted")

	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCounterRegress  = errors.New("counter value must not decrease")
)
