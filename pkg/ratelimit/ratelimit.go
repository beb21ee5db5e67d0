// Package ratelimit is a fixed-window admission gate keyed by client and action.
package ratelimit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Action names a class of requests that shares one quota.
type Action string

const (
	ActionRegister       Action = "register"
	ActionLogin          Action = "login"
	ActionForgotPassword Action = "forgot_password"
	ActionResetPassword  Action = "reset_password"
	ActionChangePassword Action = "change_password"
)

// Rule allows Max hits per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

func (r Rule) enabled() bool { return r.Max > 0 && r.Window > 0 }

type Rules map[Action]Rule

// DefaultRules mirrors the defaults in config.
func DefaultRules() Rules {
	return Rules{
		ActionRegister:       {Max: 3, Window: time.Hour},
		ActionLogin:          {Max: 5, Window: time.Minute},
		ActionForgotPassword: {Max: 3, Window: time.Hour},
		ActionResetPassword:  {Max: 3, Window: time.Hour},
		ActionChangePassword: {Max: 3, Window: time.Hour},
	}
}

// Key identifies one counter. Client is usually the caller IP.
type Key struct {
	Client string
	Action Action
}

func (k Key) String() string {
	client := k.Client
	if client == "" {
		client = "unknown"
	}
	return "rl:" + string(k.Action) + ":" + client
}

// Counter increments a windowed counter and reports the count and time left.
// Implementations must be safe for concurrent use.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Take counts one hit against rule. A disabled rule always admits.
func Take(ctx context.Context, c Counter, key string, rule Rule) (Result, error) {
	if !rule.enabled() {
		return Result{Allowed: true}, nil
	}
	count, resetIn, err := c.Hit(ctx, key, rule.Window)
	if err != nil {
		return Result{Allowed: true, Limit: rule.Max}, err
	}
	remaining := rule.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(rule.Max),
		Limit:     rule.Max,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

// Limiter applies per-action rules to a Counter.
type Limiter struct {
	counter Counter
	rules   Rules
	logger  *logrus.Logger
}

func NewLimiter(counter Counter, rules Rules, logger *logrus.Logger) *Limiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Limiter{counter: counter, rules: rules, logger: logger}
}

// Allow reports whether key may proceed. Counter failures admit the request
// and are logged; actions without a rule are not throttled.
func (l *Limiter) Allow(ctx context.Context, key Key) bool {
	rule, ok := l.rules[key.Action]
	if !ok {
		return true
	}
	res, err := Take(ctx, l.counter, key.String(), rule)
	if err != nil && l.logger != nil {
		l.logger.WithError(err).WithField("action", key.Action).Warn("rate limiter unavailable, admitting request")
	}
	return res.Allowed
}
