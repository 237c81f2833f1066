package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates cluster authentication failed
	ErrUnauthorized = errors.New("cluster authentication failed")

	// ErrAlreadyExists indicates a Job with the same name already exists
	ErrAlreadyExists = errors.New("job already exists in cluster")

	// ErrClusterUnavailable indicates the cluster API is temporarily unavailable
	ErrClusterUnavailable = errors.New("cluster api temporarily unavailable")
)

// SubmissionError represents a cluster-API rejection of a Job creation call
type SubmissionError struct {
	Code    int
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission error %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("submission error %d: %s", e.Code, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
