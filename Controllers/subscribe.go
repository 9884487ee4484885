package Controllers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/SSE"
	"TeleCare/Store"
)

// Subscribe streams the value at ?path= as full snapshots over SSE. Each path
// is checked against the caller's role and passed through the same filtering
// the REST views apply.
func (h *Handler) Subscribe(c *gin.Context) {
	path := Models.CleanPath(c.Query("path"))
	transform, err := h.subscriptionPolicy(Middleware.CurrentSession(c), path)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	sub, err := h.Hub.Subscribe(c.Request.Context(), path, transform)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	SSE.Stream(c, h.Hub, sub)
}

func (h *Handler) subscriptionPolicy(session Models.Session, path string) (SSE.Transform, error) {
	segs := Models.SplitPath(path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: path is required", Store.ErrInvalidPath)
	}
	for _, s := range segs {
		if !Models.ValidKey(s) {
			return nil, fmt.Errorf("%w: %q", Store.ErrInvalidPath, path)
		}
	}
	doctorOnly := func(t SSE.Transform) (SSE.Transform, error) {
		if !session.IsDoctor() {
			return nil, Models.ErrForbidden
		}
		return t, nil
	}

	switch {
	case path == Models.ReportsPath:
		return h.reportsTransform(session), nil
	case path == Models.BookingsPath:
		return h.bookingsTransform(session), nil
	case path == Models.CampaignsPath, path == Models.UsersPath:
		return SSE.Identity, nil
	case path == Models.TransactionsPath:
		return h.transactionsTransform(session), nil
	case path == Models.HubPath, path == Models.FeedbackPath:
		return doctorOnly(SSE.Identity)

	case segs[0] == Models.PrescriptionsPath && len(segs) >= 2:
		patientID := segs[1]
		if !session.IsDoctor() && session.UID != patientID {
			return nil, Models.ErrForbidden
		}
		switch {
		case len(segs) == 2:
			return threadTransform(session, patientID), nil
		case len(segs) == 3 && segs[2] == "payment_status":
			return SSE.Identity, nil
		}
		// raw messages would bypass the payment gate
		return doctorOnly(SSE.Identity)

	case segs[0] == Models.ChatsPath && len(segs) == 2:
		first, second, ok := Models.ChatRoomMembers(segs[1])
		if !ok || (session.UID != first && session.UID != second) {
			return nil, Models.ErrForbidden
		}
		return SSE.Identity, nil

	case segs[0] == Models.PreferencesPath && len(segs) == 2:
		if segs[1] != session.UID {
			return nil, Models.ErrForbidden
		}
		return SSE.Identity, nil
	}
	return nil, Models.ErrForbidden
}

func threadTransform(session Models.Session, patientID string) SSE.Transform {
	return func(raw json.RawMessage) (any, error) {
		var doc Models.ThreadDocument
		if err := Store.Decode(raw, &doc); err != nil {
			return nil, err
		}
		return Models.NewThread(patientID, doc).ViewFor(session), nil
	}
}

// decodeChildren decodes each child of a collection snapshot, skipping the
// ones that do not match T.
func decodeChildren[T any](raw json.RawMessage, logger *zap.Logger) (map[string]T, error) {
	children := map[string]json.RawMessage{}
	if err := Store.Decode(raw, &children); err != nil {
		return nil, err
	}
	out := make(map[string]T, len(children))
	for key, value := range children {
		var item T
		if err := json.Unmarshal(value, &item); err != nil {
			logger.Debug("skipping malformed document in snapshot", zap.String("key", key), zap.Error(err))
			continue
		}
		out[key] = item
	}
	return out, nil
}

func (h *Handler) reportsTransform(session Models.Session) SSE.Transform {
	return func(raw json.RawMessage) (any, error) {
		reports, err := decodeChildren[Models.Report](raw, h.Logger)
		if err != nil {
			return nil, err
		}
		list := make([]Models.Report, 0, len(reports))
		for key, r := range reports {
			if r.ID == "" {
				r.ID = key
			}
			if !session.IsDoctor() && !r.OwnedBy(session.UID) {
				r.ReporterID = ""
			}
			list = append(list, r)
		}
		return newestFirst(list,
			func(r Models.Report) time.Time { return r.CreatedAt },
			func(r Models.Report) string { return r.ID },
		), nil
	}
}

func (h *Handler) bookingsTransform(session Models.Session) SSE.Transform {
	return func(raw json.RawMessage) (any, error) {
		bookings, err := decodeChildren[Models.Booking](raw, h.Logger)
		if err != nil {
			return nil, err
		}
		list := make([]Models.Booking, 0, len(bookings))
		for _, b := range bookings {
			if session.Role == Models.RoleAdmin || b.HasParticipant(session.UID) {
				list = append(list, b)
			}
		}
		return oldestFirst(list,
			func(b Models.Booking) time.Time { return b.ScheduledAt },
			func(b Models.Booking) string { return b.ID },
		), nil
	}
}

func (h *Handler) transactionsTransform(session Models.Session) SSE.Transform {
	return func(raw json.RawMessage) (any, error) {
		txs, err := decodeChildren[Models.Transaction](raw, h.Logger)
		if err != nil {
			return nil, err
		}
		list := make([]Models.Transaction, 0, len(txs))
		for _, t := range txs {
			if session.IsDoctor() || t.DonorID == session.UID {
				list = append(list, t)
			}
		}
		return newestFirst(list,
			func(t Models.Transaction) time.Time { return t.CreatedAt },
			func(t Models.Transaction) string { return t.ID },
		), nil
	}
}
