package Controllers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"TeleCare/Middleware"
	"TeleCare/Models"
	"TeleCare/Store"
)

// Me returns the caller's session and theme preference and refreshes their
// directory entry so doctors show up in the booking list.
func (h *Handler) Me(c *gin.Context) {
	session := Middleware.CurrentSession(c)
	ctx := c.Request.Context()

	if err := h.Store.Set(ctx, Models.UserPath(session.UID), session.Profile(h.now().UTC())); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	var prefs Models.Preferences
	if err := h.Store.Get(ctx, Models.UserPreferencesPath(session.UID), &prefs); err != nil && !errors.Is(err, Store.ErrNotFound) {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "preferences": prefs})
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var prefs Models.Preferences
	if !bindJSON(c, &prefs) {
		return
	}
	session := Middleware.CurrentSession(c)
	if err := h.Store.Set(c.Request.Context(), Models.UserPreferencesPath(session.UID), prefs); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *Handler) RegisterToken(c *gin.Context) {
	var token Models.DeviceToken
	if !bindJSON(c, &token) {
		return
	}
	token.CreatedAt = h.now().Unix()
	session := Middleware.CurrentSession(c)
	if err := h.Notifier.RegisterToken(c.Request.Context(), session.UID, token); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "device registered"})
}

// ListDoctors returns the doctors that have signed in at least once.
func (h *Handler) ListDoctors(c *gin.Context) {
	users, err := Store.List[Models.UserProfile](c.Request.Context(), h.Store, Models.UsersPath, h.Logger)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	doctors := lo.Filter(lo.Values(users), func(u Models.UserProfile, _ int) bool { return u.Role == Models.RoleDoctor })
	sort.Slice(doctors, func(i, j int) bool {
		if doctors[i].Name == doctors[j].Name {
			return doctors[i].UID < doctors[j].UID
		}
		return doctors[i].Name < doctors[j].Name
	})
	c.JSON(http.StatusOK, doctors)
}
