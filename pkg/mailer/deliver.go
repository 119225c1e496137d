package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/oksasatya/authorization-service/pkg/mailer/templates"
)

// ErrPermanent marks a job that can never be delivered (bad payload, render failure).
// Workers should drop such jobs instead of requeueing them.
var ErrPermanent = errors.New("permanent email failure")

// Deliver renders job (when it names a template) and sends it.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrPermanent)
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = templates.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrPermanent, job.Template, err)
		}
	}
	if subject == "" || (text == "" && html == "") {
		return fmt.Errorf("%w: empty message", ErrPermanent)
	}
	return s.Send(ctx, job.To, subject, text, html)
}
