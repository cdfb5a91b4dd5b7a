package service

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/ds124wfegd/afritix/internal/entity"
)

// TemplateData is what notification templates can reference.
type TemplateData struct {
	Title    string
	Message  string
	Metadata entity.Metadata
}

type notificationTemplate struct {
	title *template.Template
	body  *template.Template
}

// TemplateRegistry holds per-type title and body templates.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[entity.NotificationType]notificationTemplate
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[entity.NotificationType]notificationTemplate)}
}

// Register parses and stores the templates for t. Referencing a metadata key
// the notification lacks makes rendering fail.
func (r *TemplateRegistry) Register(t entity.NotificationType, title, body string) error {
	name := string(t)
	tt, err := template.New(name + ".title").Option("missingkey=error").Parse(title)
	if err != nil {
		return fmt.Errorf("failed to parse %s title template: %w", t, err)
	}
	bt, err := template.New(name + ".body").Option("missingkey=error").Parse(body)
	if err != nil {
		return fmt.Errorf("failed to parse %s body template: %w", t, err)
	}

	r.mu.Lock()
	r.templates[t] = notificationTemplate{title: tt, body: bt}
	r.mu.Unlock()
	return nil
}

// Render reports ok=false when no template is registered for t.
func (r *TemplateRegistry) Render(t entity.NotificationType, data TemplateData) (title, body string, ok bool, err error) {
	r.mu.RLock()
	tmpl, found := r.templates[t]
	r.mu.RUnlock()
	if !found {
		return "", "", false, nil
	}

	var tb, bb strings.Builder
	if err := tmpl.title.Execute(&tb, data); err != nil {
		return "", "", true, fmt.Errorf("failed to render %s title: %w", t, err)
	}
	if err := tmpl.body.Execute(&bb, data); err != nil {
		return "", "", true, fmt.Errorf("failed to render %s body: %w", t, err)
	}
	return strings.TrimSpace(tb.String()), strings.TrimSpace(bb.String()), true, nil
}

// DefaultTemplates registers the stock wording for booking notifications.
func DefaultTemplates() *TemplateRegistry {
	r := NewTemplateRegistry()
	defaults := []struct {
		t           entity.NotificationType
		title, body string
	}{
		{
			entity.NotificationTicketPurchased,
			"Your tickets for {{.Metadata.eventTitle}}",
			"{{.Message}}\nOrder reference: {{.Metadata.reference}}",
		},
		{
			entity.NotificationPaymentFailed,
			"Payment failed",
			"We could not charge your payment for order {{.Metadata.reference}}. No tickets were issued and nothing was kept on hold.",
		},
		{
			entity.NotificationOrderExpired,
			"Order expired",
			"Order {{.Metadata.reference}} was not completed in time and its tickets were released.",
		},
	}
	for _, d := range defaults {
		if err := r.Register(d.t, d.title, d.body); err != nil {
			panic(err)
		}
	}
	return r
}
