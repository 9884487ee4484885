package Models

import "time"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Session is the authenticated caller of a single request. It is built by the
// auth middleware from a verified ID token and passed down explicitly.
type Session struct {
	UID   string `json:"uid"`
	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (s Session) IsDoctor() bool {
	return s.Role == RoleDoctor || s.Role == RoleAdmin
}

func (s Session) IsPatient() bool {
	return s.Role == RolePatient
}

// DisplayName falls back to the uid when the token carried no name.
func (s Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.UID
}

type Preferences struct {
	DarkMode bool `json:"darkMode"`
}

// UserProfile is the public directory entry kept under users/{uid}. It is
// refreshed from the ID token whenever the user loads their session.
type UserProfile struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s Session) Profile(now time.Time) UserProfile {
	return UserProfile{UID: s.UID, Name: s.DisplayName(), Role: s.Role, UpdatedAt: now}
}
