package message

import "strings"

// SendMessageRequest represents the input for sending a message.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" form:"recipient_id" binding:"required,max=128"`
	Subject     string `json:"subject" form:"subject" binding:"required,max=200"`
	Body        string `json:"body" form:"body" binding:"required,max=5000"`
}

// Payload trims the fields and reports whether every one is still present.
func (r SendMessageRequest) Payload() (map[string]any, bool) {
	recipient := strings.TrimSpace(r.RecipientID)
	subject := strings.TrimSpace(r.Subject)
	body := strings.TrimSpace(r.Body)
	if recipient == "" || subject == "" || body == "" {
		return nil, false
	}
	return map[string]any{
		"recipient_id": recipient,
		"subject":      subject,
		"body":         body,
	}, true
}
