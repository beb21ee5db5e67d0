package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freshwater0/Celestial-SphereX/pkg/mailer"
	mailtpl "github.com/Freshwater0/Celestial-SphereX/pkg/mailer/templates"
)

func TestNormalizeJob_MapsLegacyAndFillsRecipient(t *testing.T) {
	job := &mailer.EmailJob{To: []string{"ada@example.com"}, Template: " Password_Reset "}
	NormalizeJob(job)

	assert.Equal(t, mailtpl.ForgotPassword, job.Template)
	assert.Equal(t, "ada@example.com", job.Data["Email"])
	assert.Equal(t, "ada@example.com", job.Data["RecipientEmail"])
	assert.Equal(t, mailtpl.ForgotPassword, job.Data["Type"])
}

func TestNormalizeJob_KeepsExplicitEmail(t *testing.T) {
	job := &mailer.EmailJob{To: []string{"a@example.com"}, Template: mailtpl.VerifyEmail, Data: map[string]any{"Email": "b@example.com"}}
	NormalizeJob(job)
	assert.Equal(t, "b@example.com", job.Data["Email"])
}

func TestNormalizeJob_RawJobUntouched(t *testing.T) {
	job := &mailer.EmailJob{To: []string{"a@example.com"}, Subject: "hi", Text: "body"}
	NormalizeJob(job)
	assert.Nil(t, job.Data)
}

func TestTemplateData_Decodes(t *testing.T) {
	d, err := TemplateData(map[string]any{
		"Name":      "Ada",
		"ResetURL":  "https://app/reset?token=x",
		"ExpiresAt": "2026-03-01T10:00:00Z",
		"Changes":   map[string]any{"bio": "new"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", d.Name)
	assert.Equal(t, "https://app/reset?token=x", d.ResetURL)
	assert.True(t, d.ExpiresAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "new", d.Changes["bio"])
}
