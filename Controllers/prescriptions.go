package Controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/Store"
)

type prescriptionInput struct {
	Text         string `json:"text"`
	PurchaseLink string `json:"purchaseLink"`
}

type verifyInput struct {
	Approved *bool `json:"approved" binding:"required"`
}

// threadParam resolves :patientId and checks the caller may see that thread.
func (h *Handler) threadParam(c *gin.Context) (string, Models.Session, bool) {
	patientID, ok := keyParam(c, "patientId")
	if !ok {
		return "", Models.Session{}, false
	}
	session := Middleware.CurrentSession(c)
	if !session.IsDoctor() && session.UID != patientID {
		respondError(c, h.Logger, Models.ErrForbidden)
		return "", Models.Session{}, false
	}
	return patientID, session, true
}

func (h *Handler) loadThread(ctx context.Context, patientID string) (Models.Thread, error) {
	var doc Models.ThreadDocument
	if err := h.Store.Get(ctx, Models.ThreadPath(patientID), &doc); err != nil && !errors.Is(err, Store.ErrNotFound) {
		return Models.Thread{}, err
	}
	return Models.NewThread(patientID, doc), nil
}

func (h *Handler) respondThread(c *gin.Context, status int, patientID string, session Models.Session) {
	thread, err := h.loadThread(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(status, thread.ViewFor(session))
}

// GetThread returns the prescription thread with the payment gate applied
// for the caller.
func (h *Handler) GetThread(c *gin.Context) {
	patientID, session, ok := h.threadParam(c)
	if !ok {
		return
	}
	h.respondThread(c, http.StatusOK, patientID, session)
}

func (h *Handler) SendPrescriptionMessage(c *gin.Context) {
	patientID, session, ok := h.threadParam(c)
	if !ok {
		return
	}
	var input prescriptionInput
	if !bindJSON(c, &input) {
		return
	}
	msg := &Models.PrescriptionMessage{
		SenderID:     session.UID,
		SenderName:   session.DisplayName(),
		SenderRole:   session.Role,
		Text:         input.Text,
		PurchaseLink: input.PurchaseLink,
		CreatedAt:    h.now().UTC(),
	}
	if err := msg.Validate(); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Store.Push(ctx, Models.MessagesPath(patientID), msg); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	if session.IsDoctor() {
		if err := h.ensurePaymentStatus(ctx, patientID); err != nil {
			respondError(c, h.Logger, err)
			return
		}
		h.notify(patientID, "New prescription", "Dr. "+session.DisplayName()+" sent you a prescription.",
			map[string]string{"type": "prescription", "patientId": patientID})
	} else if thread, err := h.loadThread(ctx, patientID); err == nil {
		h.notify(thread.LastDoctorID(), "New message", session.DisplayName()+" replied in their prescription thread.",
			map[string]string{"type": "prescription", "patientId": patientID})
	}
	h.respondThread(c, http.StatusCreated, patientID, session)
}

// ensurePaymentStatus creates the unclaimed status on a doctor's first send
// and leaves an existing one alone.
func (h *Handler) ensurePaymentStatus(ctx context.Context, patientID string) error {
	return h.Store.Update(ctx, Models.PaymentStatusPath(patientID), func(current json.RawMessage) (any, error) {
		if len(current) > 0 && string(current) != "null" {
			return current, nil
		}
		return Models.PaymentStatus{}, nil
	})
}

// applyPayment runs one gate transition inside a store transaction.
func (h *Handler) applyPayment(ctx context.Context, patientID string, action Models.PaymentAction) (Models.PaymentStatus, error) {
	var next Models.PaymentStatus
	err := h.Store.Update(ctx, Models.PaymentStatusPath(patientID), func(current json.RawMessage) (any, error) {
		if len(current) == 0 || string(current) == "null" {
			return nil, Models.ErrNoPaymentPending
		}
		var status Models.PaymentStatus
		if err := Store.Decode(current, &status); err != nil {
			return nil, err
		}
		updated, err := status.Apply(action)
		if err != nil {
			return nil, err
		}
		next = updated
		return updated, nil
	})
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	h.Metrics.PaymentTransitions.WithLabelValues(string(action), result).Inc()
	return next, err
}

// ClaimPayment is the patient confirming they paid for their prescription.
func (h *Handler) ClaimPayment(c *gin.Context) {
	patientID, ok := keyParam(c, "patientId")
	if !ok {
		return
	}
	session := Middleware.CurrentSession(c)
	if session.UID != patientID {
		respondError(c, h.Logger, Models.ErrForbidden)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.applyPayment(ctx, patientID, Models.ActionClaim); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if thread, err := h.loadThread(ctx, patientID); err == nil {
		h.notify(thread.LastDoctorID(), "Payment claimed", session.DisplayName()+" confirmed their payment. Please verify it.",
			map[string]string{"type": "payment", "patientId": patientID})
	}
	h.respondThread(c, http.StatusOK, patientID, session)
}

// VerifyPayment is a doctor accepting or rejecting the patient's claim.
func (h *Handler) VerifyPayment(c *gin.Context) {
	patientID, ok := keyParam(c, "patientId")
	if !ok {
		return
	}
	var input verifyInput
	if !bindJSON(c, &input) {
		return
	}
	action, body := Models.ActionDeny, "Your payment could not be verified. Please check and confirm again."
	if *input.Approved {
		action, body = Models.ActionVerify, "Your payment was verified. Your prescription is now available."
	}

	if _, err := h.applyPayment(c.Request.Context(), patientID, action); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.notify(patientID, "Prescription payment", body, map[string]string{"type": "payment", "patientId": patientID})
	h.respondThread(c, http.StatusOK, patientID, Middleware.CurrentSession(c))
}

// ClearThread removes the whole thread, payment status included.
func (h *Handler) ClearThread(c *gin.Context) {
	patientID, ok := keyParam(c, "patientId")
	if !ok {
		return
	}
	if err := h.Store.Remove(c.Request.Context(), Models.ThreadPath(patientID)); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "prescription thread cleared"})
}
