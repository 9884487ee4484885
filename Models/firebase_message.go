package Models

// NotificationRequest is a push message addressed to one or more device tokens.
type NotificationRequest struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

type DeviceToken struct {
	Value     string `json:"value" binding:"required"`
	Platform  string `json:"platform"`
	CreatedAt int64  `json:"createdAt"`
}
