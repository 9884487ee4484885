package Models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threadFixture(status *PaymentStatus) Thread {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return NewThread("p1", ThreadDocument{
		Messages: map[string]PrescriptionMessage{
			"k2": {SenderID: "d1", SenderRole: RoleDoctor, Text: "Amoxicillin 500mg", PurchaseLink: "https://pharmacy.example/rx", CreatedAt: base.Add(time.Minute)},
			"k1": {SenderID: "p1", SenderRole: RolePatient, Text: "I have a sore throat", CreatedAt: base},
		},
		PaymentStatus: status,
	})
}

func TestNewThreadOrdersMessages(t *testing.T) {
	thread := threadFixture(nil)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "k1", thread.Messages[0].ID)
	assert.Equal(t, "k2", thread.Messages[1].ID)
	assert.Equal(t, PaymentUnclaimed, thread.PaymentState)
	assert.True(t, thread.HasDoctorMessage())
	assert.Equal(t, "d1", thread.LastDoctorID())
}

func TestViewForRedactsWhileClaimPending(t *testing.T) {
	thread := threadFixture(&PaymentStatus{Claimed: true})
	patient := Session{UID: "p1", Role: RolePatient}

	view := thread.ViewFor(patient)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "I have a sore throat", view.Messages[0].Text)
	assert.Empty(t, view.Messages[1].Text)
	assert.Empty(t, view.Messages[1].PurchaseLink)
	assert.True(t, view.Messages[1].Withheld)

	// the stored thread is untouched
	assert.Equal(t, "Amoxicillin 500mg", thread.Messages[1].Text)
}

func TestViewForDoctorSeesEverything(t *testing.T) {
	thread := threadFixture(&PaymentStatus{Claimed: true})
	view := thread.ViewFor(Session{UID: "d1", Role: RoleDoctor})
	assert.Equal(t, "Amoxicillin 500mg", view.Messages[1].Text)
	assert.False(t, view.Messages[1].Withheld)
}

func TestViewForVerifiedAndUnclaimed(t *testing.T) {
	patient := Session{UID: "p1", Role: RolePatient}
	for _, status := range []*PaymentStatus{{Claimed: true, Verified: true}, {}, nil} {
		view := threadFixture(status).ViewFor(patient)
		assert.Equal(t, "https://pharmacy.example/rx", view.Messages[1].PurchaseLink)
	}
}

func TestPrescriptionMessageValidate(t *testing.T) {
	msg := PrescriptionMessage{Text: "   "}
	var verr *ValidationError
	require.ErrorAs(t, msg.Validate(), &verr)

	msg = PrescriptionMessage{PurchaseLink: "ftp://x"}
	require.Error(t, msg.Validate())

	msg = PrescriptionMessage{Text: " take twice daily "}
	require.NoError(t, msg.Validate())
	assert.Equal(t, "take twice daily", msg.Text)
}
