package models

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// EventType is the Eiffel type name for TERCC events
const EventType = "EiffelTestExecutionRecipeCollectionCreatedEvent"

// LinkCause is the link relation pointing at the event that caused the TERCC
const LinkCause = "CAUSE"

// Event is a test execution recipe collection created (TERCC) event
type Event struct {
	Meta  Meta   `json:"meta"`
	Data  Data   `json:"data"`
	Links []Link `json:"links"`
}

// Meta carries event identity and type information
type Meta struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
	Time    int64  `json:"time,omitempty"`
}

// Data is the TERCC payload
type Data struct {
	BatchesURI        string            `json:"batchesUri"`
	SelectionStrategy SelectionStrategy `json:"selectionStrategy"`
}

// SelectionStrategy describes how the recipe collection was selected
type SelectionStrategy struct {
	Tracker string `json:"tracker"`
	ID      string `json:"id"`
	URI     string `json:"uri"`
}

// Link is a relation/target pair pointing at another event
type Link struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Validate checks that the event carries everything required to start a suite
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Meta, validation.Required, validation.By(validateMeta)),
		validation.Field(&e.Data, validation.By(validateData)),
		validation.Field(&e.Links, validation.By(validateCauseLink)),
	)
}

func validateMeta(value interface{}) error {
	meta, ok := value.(Meta)
	if !ok {
		return errors.New("can't convert value to event meta")
	}
	if meta.ID == "" {
		return errors.New("meta.id is required")
	}
	if _, err := uuid.Parse(meta.ID); err != nil {
		return fmt.Errorf("meta.id is not a valid UUID: %w", err)
	}
	return nil
}

func validateData(value interface{}) error {
	data, ok := value.(Data)
	if !ok {
		return errors.New("can't convert value to event data")
	}
	if data.BatchesURI == "" {
		return errors.New("data.batchesUri is required")
	}
	if data.SelectionStrategy.Tracker == "" || data.SelectionStrategy.ID == "" {
		return errors.New("data.selectionStrategy requires tracker and id")
	}
	return nil
}

func validateCauseLink(value interface{}) error {
	links, ok := value.([]Link)
	if !ok {
		return errors.New("can't convert value to event links")
	}
	for _, link := range links {
		if link.Type == LinkCause && link.Target != "" {
			return nil
		}
	}
	return errors.New("links must include a CAUSE relation")
}

// CauseID returns the target of the CAUSE link, or "" if absent
func (e Event) CauseID() string {
	for _, link := range e.Links {
		if link.Type == LinkCause {
			return link.Target
		}
	}
	return ""
}

// JobHandle identifies a Job accepted by the cluster scheduler
type JobHandle struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	UID       string `json:"uid,omitempty"`
}

// Submission is the record kept for one dispatched event
type Submission struct {
	EventID       string `json:"event_id"`
	CorrelationID string `json:"correlation_id"`
	JobName       string `json:"job_name"`
	Namespace     string `json:"namespace,omitempty"`
	SubmittedAt   int64  `json:"submitted_at"`
}
