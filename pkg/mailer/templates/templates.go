package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"io"
	"reflect"
	"slices"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	// Basic info
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	// Company info
	CompanyName    string `json:"CompanyName"`
	CompanyAddress string `json:"CompanyAddress"`
	AppName        string `json:"AppName"`

	// URLs
	LogoURL        string `json:"LogoURL"`
	SupportURL     string `json:"SupportURL"`
	PrivacyURL     string `json:"PrivacyURL"`
	UnsubscribeURL string `json:"UnsubscribeURL"`

	// Action URLs
	ResetURL  string `json:"ResetURL"`
	VerifyURL string `json:"VerifyURL"`

	// Additional data
	ExpiresAt     time.Time         `json:"ExpiresAt"`
	ExpiresAtText string            `json:"ExpiresAtText"`
	IP            string            `json:"IP"`
	Time          string            `json:"Time"`
	TimeAt        time.Time         `json:"TimeAt"`
	UserAgent     string            `json:"UserAgent"`
	Location      string            `json:"Location"`
	Changes       map[string]string `json:"Changes"`
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		zero := reflect.Zero(rv.Type()).Interface()
		if reflect.DeepEqual(value, zero) {
			return fallback
		}
		return value
	}
}

// html and text templates share one func map

func baseFuncs() map[string]any {
	return map[string]any{
		"now":        func() time.Time { return time.Now().UTC() },
		"formatTime": func(t time.Time, layout string) string { return t.Format(layout) },
		"upper":      strings.ToUpper,
		"default":    defaultFn,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

// TimeLayout is how timestamps are shown to recipients.
const TimeLayout = "02 January 2006, 15:04 MST"

const (
	VerifyEmail     = "verify_email"
	ForgotPassword  = "forgot_password"
	PasswordChanged = "password_changed"
	ProfileUpdated  = "profile_updated"
)

// Names lists every template that Render accepts.
var Names = []string{VerifyEmail, ForgotPassword, PasswordChanged, ProfileUpdated}

// Known reports whether name is a shipped template.
func Known(name string) bool {
	return slices.Contains(Names, name)
}

type compiled struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var (
	compileOnce sync.Once
	compiledSet map[string]compiled
	compileErr  error
)

// compileAll parses every shipped template once.
func compileAll() (map[string]compiled, error) {
	compileOnce.Do(func() {
		set := make(map[string]compiled, len(Names))
		for _, name := range Names {
			var c compiled
			if c.subject, compileErr = texttpl.New(name + ".subject.tmpl").Funcs(textFuncMap).ParseFS(FS, name+".subject.tmpl"); compileErr != nil {
				return
			}
			if c.text, compileErr = texttpl.New(name + ".text.tmpl").Funcs(textFuncMap).ParseFS(FS, name+".text.tmpl"); compileErr != nil {
				return
			}
			if c.html, compileErr = htmpl.New(name + ".html.tmpl").Funcs(htmlFuncMap).ParseFS(FS, name+".html.tmpl"); compileErr != nil {
				return
			}
			set[name] = c
		}
		compiledSet = set
	})
	return compiledSet, compileErr
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(t executor, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render produces the subject, text and html bodies of a shipped template.
func Render(name string, data any) (subject string, text string, html string, err error) {
	set, err := compileAll()
	if err != nil {
		return "", "", "", fmt.Errorf("parse templates: %w", err)
	}
	c, ok := set[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
	if subject, err = execute(c.subject, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s subject: %w", name, err)
	}
	if text, err = execute(c.text, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s text: %w", name, err)
	}
	if html, err = execute(c.html, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s html: %w", name, err)
	}
	return strings.TrimSpace(subject), text, html, nil
}
