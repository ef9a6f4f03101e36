package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type options struct {
	Logger   *log.Logger
	Cron     *cron.Cron
	Location *time.Location
	Schedule string
	Account  Account
	Timeout  time.Duration
}

// Option applies configuration to the sweep service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:   log.Default(),
		Location: time.UTC,
		Schedule: "*/15 * * * *",
		Timeout:  2 * time.Minute,
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithLocation sets the scheduler timezone location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}

// WithSchedule overrides the cron expression for the sweep.
func WithSchedule(spec string) Option {
	return func(o *options) {
		o.Schedule = spec
	}
}

// WithAccount sets the service account the sweep authenticates as.
func WithAccount(acct Account) Option {
	return func(o *options) {
		o.Account = acct
	}
}

// WithTimeout bounds each sweep execution.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.Timeout = d
	}
}
