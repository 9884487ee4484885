package Models

import (
	"strings"
	"time"
)

type Booking struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patientId"`
	PatientName  string    `json:"patientName"`
	PatientPhone string    `json:"patientPhone,omitempty"`
	DoctorID     string    `json:"doctorId"`
	DoctorName   string    `json:"doctorName"`
	ScheduledAt  time.Time `json:"scheduledAt"`
	Reason       string    `json:"reason,omitempty"`
	RoomName     string    `json:"roomName"`
	ReminderSent bool      `json:"reminderSent"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MaxBookingHorizon is how far ahead a patient may book.
const MaxBookingHorizon = 14 * 24 * time.Hour

func (b *Booking) Validate(now time.Time) error {
	var fields []string
	b.Reason = strings.TrimSpace(b.Reason)
	if !ValidKey(b.DoctorID) {
		fields = append(fields, "doctorId is required")
	}
	if b.ScheduledAt.IsZero() {
		fields = append(fields, "scheduledAt is required")
	} else if b.ScheduledAt.Before(now) {
		fields = append(fields, "scheduledAt must be in the future")
	} else if b.ScheduledAt.Sub(now) > MaxBookingHorizon {
		fields = append(fields, "can't book more than 14 days ahead")
	}
	if len(b.Reason) > 1000 {
		fields = append(fields, "reason must be at most 1000 characters")
	}
	return validation(fields)
}

func (b Booking) HasParticipant(uid string) bool {
	return uid != "" && (b.PatientID == uid || b.DoctorID == uid)
}

type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m *ChatMessage) Validate() error {
	var fields []string
	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		fields = append(fields, "text is required")
	} else if len(m.Text) > 4000 {
		fields = append(fields, "text must be at most 4000 characters")
	}
	return validation(fields)
}

type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookingID string    `json:"bookingId,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f *Feedback) Validate() error {
	var fields []string
	f.Comment = strings.TrimSpace(f.Comment)
	if f.Rating < 1 || f.Rating > 5 {
		fields = append(fields, "rating must be between 1 and 5")
	}
	if len(f.Comment) > 2000 {
		fields = append(fields, "comment must be at most 2000 characters")
	}
	return validation(fields)
}

func (b *Booking) SetID(id string) { b.ID = id }
func (m *ChatMessage) SetID(id string) { m.ID = id }
func (f *Feedback) SetID(id string) { f.ID = id }
