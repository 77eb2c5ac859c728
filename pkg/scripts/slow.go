package scripts

import (
	"cgibox/pkg/cgi"
	"time"
)

const (
	DEFAULT_SLOW_DELAY = 10 * time.Second

	// ENV_SLOW_DELAY lets a gateway pass its configured delay to an exec'd slow script.
	ENV_SLOW_DELAY = "CGIBOX_SLOW_DELAY"
)

// NewSlow returns a script that outlives the host's CGI timeout. It has no
// cancellation of its own; stopping it is the host's job.
func NewSlow(delay time.Duration) Handler {
	return func(req *cgi.Request) *cgi.Response {
		time.Sleep(delay)
		return cgi.NewResponse(200, "slow done")
	}
}

// SlowDelayFromEnv reads ENV_SLOW_DELAY, falling back to DEFAULT_SLOW_DELAY when
// it is unset or not a positive duration.
func SlowDelayFromEnv(env cgi.Env) time.Duration {
	raw, ok := env.LookupEnv(ENV_SLOW_DELAY)
	if !ok {
		return DEFAULT_SLOW_DELAY
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return DEFAULT_SLOW_DELAY
	}
	return d
}
