package Controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/Store"
	"TeleCare/VideoRoom"
)

// consultationSlot is how long a booking keeps its doctor busy.
const consultationSlot = 30 * time.Minute

type bookingInput struct {
	DoctorID    string    `json:"doctorId" binding:"required"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Reason      string    `json:"reason"`
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var input bookingInput
	if !bindJSON(c, &input) {
		return
	}
	session := Middleware.CurrentSession(c)
	now := h.now().UTC()
	booking := Models.Booking{
		PatientID:    session.UID,
		PatientName:  session.DisplayName(),
		PatientPhone: session.Phone,
		DoctorID:     input.DoctorID,
		ScheduledAt:  input.ScheduledAt.UTC(),
		Reason:       input.Reason,
		CreatedAt:    now,
	}
	if err := booking.Validate(now); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	ctx := c.Request.Context()
	var doctor Models.UserProfile
	if err := h.Store.Get(ctx, Models.UserPath(booking.DoctorID), &doctor); err != nil {
		if errors.Is(err, Store.ErrNotFound) {
			err = Models.ErrNotDoctor
		}
		respondError(c, h.Logger, err)
		return
	}
	if doctor.Role != Models.RoleDoctor {
		respondError(c, h.Logger, Models.ErrNotDoctor)
		return
	}
	booking.DoctorName = doctor.Name

	key, err := Store.NewKey()
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	booking.ID = key
	booking.RoomName = VideoRoom.RoomName(key)

	// the whole collection is updated so the overlap check and the insert are atomic
	err = h.Store.Update(ctx, Models.BookingsPath, func(current json.RawMessage) (any, error) {
		existing := map[string]json.RawMessage{}
		if err := Store.Decode(current, &existing); err != nil {
			return nil, err
		}
		for _, raw := range existing {
			var other Models.Booking
			if json.Unmarshal(raw, &other) != nil || other.DoctorID != booking.DoctorID {
				continue
			}
			if gap := other.ScheduledAt.Sub(booking.ScheduledAt).Abs(); gap < consultationSlot {
				return nil, Models.ErrSlotTaken
			}
		}
		encoded, err := json.Marshal(booking)
		if err != nil {
			return nil, err
		}
		existing[key] = encoded
		return existing, nil
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	h.Metrics.BookingsCreated.Inc()
	h.notify(booking.DoctorID, "New consultation", booking.PatientName+" booked a consultation for "+booking.ScheduledAt.Format(time.RFC1123),
		map[string]string{"type": "booking", "bookingId": key})
	c.JSON(http.StatusCreated, booking)
}

// ListBookings returns the caller's bookings in schedule order. Admins see all.
func (h *Handler) ListBookings(c *gin.Context) {
	bookings, err := Store.List[Models.Booking](c.Request.Context(), h.Store, Models.BookingsPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	session := Middleware.CurrentSession(c)
	list := lo.Filter(lo.Values(bookings), func(b Models.Booking, _ int) bool {
		return session.Role == Models.RoleAdmin || b.HasParticipant(session.UID)
	})
	c.JSON(http.StatusOK, oldestFirst(list,
		func(b Models.Booking) time.Time { return b.ScheduledAt },
		func(b Models.Booking) string { return b.ID },
	))
}

// participantBooking loads :id and checks the caller takes part in it.
func (h *Handler) participantBooking(c *gin.Context) (Models.Booking, Models.Session, bool) {
	id, ok := keyParam(c, "id")
	if !ok {
		return Models.Booking{}, Models.Session{}, false
	}
	var booking Models.Booking
	if err := h.Store.Get(c.Request.Context(), Models.BookingPath(id), &booking); err != nil {
		respondError(c, h.Logger, err)
		return Models.Booking{}, Models.Session{}, false
	}
	if booking.ID == "" {
		booking.ID = id
	}
	session := Middleware.CurrentSession(c)
	if session.Role != Models.RoleAdmin && !booking.HasParticipant(session.UID) {
		respondError(c, h.Logger, Models.ErrForbidden)
		return Models.Booking{}, Models.Session{}, false
	}
	return booking, session, true
}

func (h *Handler) CancelBooking(c *gin.Context) {
	booking, session, ok := h.participantBooking(c)
	if !ok {
		return
	}
	if err := h.Store.Remove(c.Request.Context(), Models.BookingPath(booking.ID)); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	other := booking.DoctorID
	if session.UID == booking.DoctorID {
		other = booking.PatientID
	}
	h.notify(other, "Consultation cancelled",
		"The consultation on "+booking.ScheduledAt.Format(time.RFC1123)+" was cancelled by "+session.DisplayName()+".",
		map[string]string{"type": "booking", "bookingId": booking.ID})
	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}

// JoinRoom returns what the client needs to open the video call.
func (h *Handler) JoinRoom(c *gin.Context) {
	booking, session, ok := h.participantBooking(c)
	if !ok {
		return
	}
	room, err := h.Rooms.Join(booking, session)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
