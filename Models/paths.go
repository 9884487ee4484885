package Models

import (
	"sort"
	"strings"
)

// Collection roots in the document store.
const (
	ReportsPath       = "reports"
	PrescriptionsPath = "prescriptions"
	HubPath           = "collaborativeHub"
	TransactionsPath  = "transactions"
	CampaignsPath     = "campaigns"
	BookingsPath      = "bookings"
	FeedbackPath      = "feedback"
	ChatsPath         = "chats"
	TokensPath        = "tokens"
	PreferencesPath   = "preferences"
	UsersPath         = "users"
)

func ReportPath(id string) string { return ReportsPath + "/" + id }
func ThreadPath(patientID string) string { return PrescriptionsPath + "/" + patientID }
func MessagesPath(patientID string) string { return ThreadPath(patientID) + "/messages" }
func PaymentStatusPath(patientID string) string { return ThreadPath(patientID) + "/payment_status" }
func BookingPath(id string) string { return BookingsPath + "/" + id }
func CampaignPath(id string) string { return CampaignsPath + "/" + id }
func ChatRoomPath(roomID string) string { return ChatsPath + "/" + roomID }
func UserTokensPath(uid string) string { return TokensPath + "/" + uid }
func UserPreferencesPath(uid string) string { return PreferencesPath + "/" + uid }
func UserPath(uid string) string { return UsersPath + "/" + uid }

// ChatRoomID is the same for both participants regardless of who asks.
func ChatRoomID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// ChatRoomMembers splits a room id built by ChatRoomID. Only canonical ids with
// a single separator are accepted, so a uid containing '_' cannot take part in
// a room and no id resolves to two different member pairs.
func ChatRoomMembers(roomID string) (string, string, bool) {
	if strings.Count(roomID, "_") != 1 {
		return "", "", false
	}
	first, second, _ := strings.Cut(roomID, "_")
	if first == "" || second == "" || first > second {
		return "", "", false
	}
	return first, second, true
}

// ValidKey reports whether s can be used as a single path segment.
func ValidKey(s string) bool {
	if s == "" || len(s) > 768 {
		return false
	}
	return !strings.ContainsAny(s, "/.#$[]")
}

// SplitPath returns the non-empty segments of a slash separated path.
func SplitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// CleanPath normalises a path to its canonical slash-joined form.
func CleanPath(path string) string {
	return strings.Join(SplitPath(path), "/")
}

// PathsOverlap reports whether a change at one path can alter the value at the other.
func PathsOverlap(a, b string) bool {
	a, b = CleanPath(a), CleanPath(b)
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
