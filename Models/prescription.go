package Models

import (
	"sort"
	"strings"
	"time"
)

type PrescriptionMessage struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	SenderRole   Role      `json:"senderRole"`
	Text         string    `json:"text"`
	PurchaseLink string    `json:"purchaseLink,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	// Withheld is set on the patient's view when the payment gate hides this message.
	Withheld bool `json:"withheld,omitempty"`
}

func (m *PrescriptionMessage) Validate() error {
	var fields []string
	m.Text = strings.TrimSpace(m.Text)
	m.PurchaseLink = strings.TrimSpace(m.PurchaseLink)
	if m.Text == "" && m.PurchaseLink == "" {
		fields = append(fields, "text or purchaseLink is required")
	}
	if len(m.Text) > 4000 {
		fields = append(fields, "text must be at most 4000 characters")
	}
	if m.PurchaseLink != "" && !strings.HasPrefix(m.PurchaseLink, "https://") && !strings.HasPrefix(m.PurchaseLink, "http://") {
		fields = append(fields, "purchaseLink must be an http(s) URL")
	}
	return validation(fields)
}

// ThreadDocument is the stored shape under prescriptions/{patientId}.
type ThreadDocument struct {
	Messages      map[string]PrescriptionMessage `json:"messages,omitempty"`
	PaymentStatus *PaymentStatus                 `json:"payment_status,omitempty"`
}

// Thread is a prescription conversation between a patient and their doctors.
type Thread struct {
	PatientID     string                `json:"patientId"`
	Messages      []PrescriptionMessage `json:"messages"`
	PaymentStatus *PaymentStatus        `json:"paymentStatus"`
	PaymentState  PaymentState          `json:"paymentState"`
}

// NewThread orders messages by creation time, push key breaking ties.
func NewThread(patientID string, doc ThreadDocument) Thread {
	messages := make([]PrescriptionMessage, 0, len(doc.Messages))
	for key, msg := range doc.Messages {
		if msg.ID == "" {
			msg.ID = key
		}
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	thread := Thread{PatientID: patientID, Messages: messages, PaymentStatus: doc.PaymentStatus}
	if doc.PaymentStatus != nil {
		thread.PaymentState = doc.PaymentStatus.State()
	} else {
		thread.PaymentState = PaymentUnclaimed
	}
	return thread
}

func (t Thread) HasDoctorMessage() bool {
	for _, m := range t.Messages {
		if m.SenderRole == RoleDoctor || m.SenderRole == RoleAdmin {
			return true
		}
	}
	return false
}

// LastDoctorID is the doctor who most recently wrote in the thread.
func (t Thread) LastDoctorID() string {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].SenderRole == RoleDoctor || t.Messages[i].SenderRole == RoleAdmin {
			return t.Messages[i].SenderID
		}
	}
	return ""
}

// ViewFor applies the payment gate for the given reader. Doctors always see
// everything; a patient gets doctor messages with text and links removed while
// the gate withholds them.
func (t Thread) ViewFor(reader Session) Thread {
	if reader.IsDoctor() || t.PaymentStatus == nil {
		return t
	}
	if !t.PaymentStatus.Withholds(t.HasDoctorMessage()) {
		return t
	}

	view := t
	view.Messages = make([]PrescriptionMessage, len(t.Messages))
	for i, m := range t.Messages {
		if m.SenderRole == RoleDoctor || m.SenderRole == RoleAdmin {
			m.Text = ""
			m.PurchaseLink = ""
			m.Withheld = true
		}
		view.Messages[i] = m
	}
	return view
}

func (m *PrescriptionMessage) SetID(id string) { m.ID = id }
