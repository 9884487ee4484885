package VideoRoom

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"TeleCare/Config"
	"TeleCare/Models"
)

// Room is everything the video embed needs to join a consultation.
type Room struct {
	Name        string     `json:"roomName"`
	Domain      string     `json:"domain"`
	URL         string     `json:"url"`
	DisplayName string     `json:"displayName"`
	Token       string     `json:"token,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

type userContext struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Moderator bool   `json:"moderator"`
}

type roomClaims struct {
	Room    string `json:"room"`
	Context struct {
		User userContext `json:"user"`
	} `json:"context"`
	jwt.RegisteredClaims
}

// Issuer names rooms and signs per-user room tokens for a Jitsi deployment.
// Without an app id it issues plain rooms for the public service.
type Issuer struct {
	cfg Config.VideoConfig
	now func() time.Time
}

func NewIssuer(cfg Config.VideoConfig) *Issuer {
	return &Issuer{cfg: cfg, now: time.Now}
}

// RoomName derives the room for a booking. It is stable so both participants
// land in the same room.
func RoomName(bookingID string) string {
	return "telecare-" + strings.ToLower(bookingID)
}

func (i *Issuer) Join(booking Models.Booking, user Models.Session) (Room, error) {
	if i.cfg.JitsiDomain == "" {
		return Room{}, fmt.Errorf("video: %w", Models.ErrNotConfigured)
	}
	name := booking.RoomName
	if name == "" {
		name = RoomName(booking.ID)
	}
	room := Room{
		Name:        name,
		Domain:      i.cfg.JitsiDomain,
		URL:         fmt.Sprintf("https://%s/%s", i.cfg.JitsiDomain, name),
		DisplayName: user.DisplayName(),
	}
	if i.cfg.JitsiAppID == "" {
		return room, nil
	}
	if i.cfg.JitsiAppSecret == "" {
		return Room{}, fmt.Errorf("video token signing: %w", Models.ErrNotConfigured)
	}

	now := i.now()
	ttl := i.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	exp := now.Add(ttl)

	claims := roomClaims{
		Room: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.JitsiAppID,
			Subject:   i.cfg.JitsiDomain,
			Audience:  jwt.ClaimStrings{"jitsi"},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	claims.Context.User = userContext{
		ID:        user.UID,
		Name:      user.DisplayName(),
		Email:     user.Email,
		Moderator: user.IsDoctor(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.JitsiAppSecret))
	if err != nil {
		return Room{}, fmt.Errorf("signing room token: %w", err)
	}
	room.Token = token
	room.URL += "?jwt=" + token
	room.ExpiresAt = &exp
	return room, nil
}
