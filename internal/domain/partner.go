package domain

// ChatPartnerSummary is a counterpart of a user with the latest message
// exchanged between them. It is derived on every request.
type ChatPartnerSummary struct {
	PartnerID   string   `json:"partner_id"`
	Profile     Profile  `json:"profile"`
	LastMessage *Message `json:"last_message"`
}
