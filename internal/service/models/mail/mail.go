package mail

// Templates understood by the send-email function.
const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateCartRecovery      = "cart_recovery"
)

// Message is a transactional email rendered by the send-email function.
type Message struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}
