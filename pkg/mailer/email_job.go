package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Subject/Text/HTML are set directly, or Template names a shipped
// template and Data carries its fields.
type EmailJob struct {
	To       []string       `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // verify_email, forgot_password, password_changed, profile_updated
	Data     map[string]any `json:"data,omitempty"`
}
