package templates

import "time"

// Option pattern
type Option func(*EmailData)

func WithAppName(name string) Option    { return func(d *EmailData) { d.AppName = name } }
func WithIdentifier(id string) Option   { return func(d *EmailData) { d.Identifier = id } }
func WithActivationURL(u string) Option { return func(d *EmailData) { d.ActivationURL = u } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

// WithExpiresIn sets the expiry relative to now.
func WithExpiresIn(ttl time.Duration) Option {
	return WithExpiresAt(time.Now().Add(ttl))
}

// NewActivationData builds the data map for the account activation email.
func NewActivationData(email string, opts ...Option) map[string]any {
	d := EmailData{Email: email}
	for _, o := range opts {
		o(&d)
	}
	return ToMap(d)
}
