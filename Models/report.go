package Models

import (
	"strings"
	"time"
)

// Report is a patient's disease-outbreak submission. Reports are immutable
// once stored and removed individually by their owner or a doctor.
type Report struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Location   *string   `json:"location"`
	ReporterID string    `json:"reporterId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (r *Report) Validate() error {
	var fields []string
	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		fields = append(fields, "type is required")
	} else if len(r.Type) > 120 {
		fields = append(fields, "type must be at most 120 characters")
	}
	if r.Location != nil {
		loc := strings.TrimSpace(*r.Location)
		if len(loc) > 120 {
			fields = append(fields, "location must be at most 120 characters")
		}
		if loc == "" {
			r.Location = nil
		} else {
			r.Location = &loc
		}
	}
	return validation(fields)
}

func (r Report) OwnedBy(uid string) bool {
	return r.ReporterID != "" && r.ReporterID == uid
}

func (r *Report) SetID(id string) { r.ID = id }
