// internal/models/submission.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SubmissionType identifies what a player produced on their turn.
type SubmissionType string

const (
	SubmissionDrawing     SubmissionType = "drawing"
	SubmissionDescription SubmissionType = "description"
)

// Opposite returns the type that must follow t in a stack.
func (t SubmissionType) Opposite() SubmissionType {
	if t == SubmissionDrawing {
		return SubmissionDescription
	}
	return SubmissionDrawing
}

// Valid reports whether t is a known submission type.
func (t SubmissionType) Valid() bool {
	return t == SubmissionDrawing || t == SubmissionDescription
}

var (
	ErrUnknownSubmissionType = errors.New("unknown submission type")
	ErrEmptySubmission       = errors.New("submission has no data")
)

// Submission is either a drawing (Image holds the encoded picture, usually a
// data URL produced by the client canvas) or a description (Text). Only the
// field matching Type is meaningful.
//
// On the wire both variants share the shape {"type": ..., "data": "..."}.
type Submission struct {
	Type  SubmissionType
	Image string
	Text  string
}

// NewDrawing builds a drawing submission from an encoded image.
func NewDrawing(image string) Submission {
	return Submission{Type: SubmissionDrawing, Image: image}
}

// NewDescription builds a description submission from free text.
func NewDescription(text string) Submission {
	return Submission{Type: SubmissionDescription, Text: text}
}

// Data returns the payload for the submission's type.
func (s Submission) Data() string {
	switch s.Type {
	case SubmissionDrawing:
		return s.Image
	case SubmissionDescription:
		return s.Text
	}
	return ""
}

// Validate checks the type tag and that the matching payload is present.
// It does not inspect the content itself.
func (s Submission) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSubmissionType, s.Type)
	}
	if strings.TrimSpace(s.Data()) == "" {
		return ErrEmptySubmission
	}
	return nil
}

type wireSubmission struct {
	Type SubmissionType  `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s Submission) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(s.Data())
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireSubmission{Type: s.Type, Data: data})
}

func (s *Submission) UnmarshalJSON(b []byte) error {
	var w wireSubmission
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var data string
	if len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, &data); err != nil {
			return fmt.Errorf("submission data must be a string: %w", err)
		}
	}

	*s = Submission{Type: w.Type}
	switch w.Type {
	case SubmissionDrawing:
		s.Image = data
	case SubmissionDescription:
		s.Text = data
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSubmissionType, w.Type)
	}
	return nil
}
