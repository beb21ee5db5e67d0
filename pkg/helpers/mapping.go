package helpers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Freshwater0/Celestial-SphereX/pkg/mailer"
	mailtpl "github.com/Freshwater0/Celestial-SphereX/pkg/mailer/templates"
)

// legacy template names still accepted from older producers
var legacyTemplates = map[string]string{
	"verify":          mailtpl.VerifyEmail,
	"verification":    mailtpl.VerifyEmail,
	"reset_password":  mailtpl.ForgotPassword,
	"password_reset":  mailtpl.ForgotPassword,
	"password_change": mailtpl.PasswordChanged,
	"profile_update":  mailtpl.ProfileUpdated,
}

// NormalizeJob lowercases the template name, maps legacy names and fills the
// recipient fields of Data from the first address in To.
func NormalizeJob(job *mailer.EmailJob) {
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if mapped, ok := legacyTemplates[job.Template]; ok {
		job.Template = mapped
	}
	if job.Template == "" || len(job.To) == 0 {
		return
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	for _, k := range []string{"Email", "RecipientEmail"} {
		if v, ok := job.Data[k]; !ok || fmt.Sprintf("%v", v) == "" {
			job.Data[k] = job.To[0]
		}
	}
	if v, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Type"] = job.Template
	}
}

// TemplateData decodes a queued Data map into the typed template fields.
func TemplateData(data map[string]any) (mailtpl.EmailData, error) {
	var out mailtpl.EmailData
	if len(data) == 0 {
		return out, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode template data: %w", err)
	}
	return out, nil
}
