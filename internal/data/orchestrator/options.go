// File path: internal/data/orchestrator/options.go
package orchestrator

import (
	"github.com/nicodishanthj/ata_conselho/internal/records"
	"github.com/nicodishanthj/ata_conselho/internal/workflow"
)

type Option func(*options)

type options struct {
	source       records.Source
	mailer       workflow.Mailer
	watchDisable bool
}

// WithSource injects a record source, bypassing Config.Source.
func WithSource(source records.Source) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithMailer injects the archive mailer instead of the SMTP_* configuration.
func WithMailer(m workflow.Mailer) Option {
	return func(o *options) {
		o.mailer = m
	}
}

// WithWatchDisabled keeps file watching off regardless of Config.Watch.
func WithWatchDisabled() Option {
	return func(o *options) {
		o.watchDisable = true
	}
}
