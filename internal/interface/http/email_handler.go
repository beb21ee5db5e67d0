package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/config"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/mailer"
	mailtpl "github.com/Freshwater0/Celestial-SphereX/pkg/mailer/templates"
	"github.com/Freshwater0/Celestial-SphereX/pkg/response"
	"github.com/Freshwater0/Celestial-SphereX/pkg/validation"
)

type EmailHandler struct {
	Pub    mailer.Publisher
	Logger *logrus.Logger
	Cfg    *config.Config
}

func NewEmailHandler(pub mailer.Publisher, logger *logrus.Logger, cfg *config.Config) *EmailHandler {
	return &EmailHandler{Pub: pub, Logger: logger, Cfg: cfg}
}

type sendEmailRequest struct {
	To       []string       `json:"to" binding:"required,min=1,max=50,dive,email"`
	Template string         `json:"template"` // optional: verify_email, forgot_password, password_changed, profile_updated
	Data     map[string]any `json:"data"`     // optional template data
	Subject  string         `json:"subject"`  // required if no template
	Text     string         `json:"text"`     // optional if html provided
	HTML     string         `json:"html"`     // optional if text provided
}

// Send enqueues an email job to RabbitMQ (admin only).
func (h *EmailHandler) Send(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	job := mailer.EmailJob{To: req.To, Template: req.Template, Data: req.Data}
	helpers.NormalizeJob(&job)
	switch {
	case job.Template == "":
		if req.Subject == "" || (req.Text == "" && req.HTML == "") {
			response.Error[any](c, http.StatusBadRequest, "either template or subject with text/html is required", nil)
			return
		}
		job.Subject, job.Text, job.HTML, job.Data = req.Subject, req.Text, req.HTML, nil
	case !mailtpl.Known(job.Template):
		response.Error[any](c, http.StatusBadRequest, "unknown template", gin.H{"known": mailtpl.Names})
		return
	}

	if h.Cfg != nil && !h.Cfg.MailSendEnabled {
		response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": false, "disabled": true}, "email sending disabled", nil)
		return
	}
	if h.Pub == nil {
		response.Error[any](c, http.StatusServiceUnavailable, "email queue not configured", nil)
		return
	}
	if err := h.Pub.PublishJSON(c.Request.Context(), job); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("failed to publish email job")
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to enqueue", nil)
		return
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": true}, "email enqueued", nil)
}
