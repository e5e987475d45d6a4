package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule kinds.
const (
	KindEvery = "every"
	KindCron  = "cron"
)

// MinEvery keeps interval schedules from hammering the service.
const MinEvery = 10 * time.Second

// Schedule says when the next session check runs.
type Schedule struct {
	Kind  string
	Every time.Duration // for "every"
	Expr  string        // 5-field cron expression, for "cron"
}

// ParseSchedule accepts "@every 15m", a bare duration ("15m"), or a cron
// expression ("*/30 * * * *", "@hourly").
func ParseSchedule(s string) (Schedule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Schedule{}, fmt.Errorf("empty schedule")
	}

	raw := strings.TrimSpace(strings.TrimPrefix(s, "@every"))
	if d, err := time.ParseDuration(raw); err == nil {
		if d < MinEvery {
			return Schedule{}, fmt.Errorf("interval %v is shorter than %v", d, MinEvery)
		}
		return Schedule{Kind: KindEvery, Every: d}, nil
	}
	if strings.HasPrefix(s, "@every") {
		return Schedule{}, fmt.Errorf("invalid interval in %q", s)
	}

	if !gronx.New().IsValid(s) {
		return Schedule{}, fmt.Errorf("invalid cron expression: %s", s)
	}
	return Schedule{Kind: KindCron, Expr: s}, nil
}

// Next returns the first run time strictly after now.
func (s Schedule) Next(now time.Time) (time.Time, error) {
	switch s.Kind {
	case KindEvery:
		if s.Every <= 0 {
			return time.Time{}, fmt.Errorf("every schedule requires a positive interval")
		}
		return now.Add(s.Every), nil
	case KindCron:
		return gronx.NextTickAfter(s.Expr, now, false)
	}
	return time.Time{}, fmt.Errorf("unknown schedule kind: %s", s.Kind)
}

func (s Schedule) String() string {
	if s.Kind == KindEvery {
		return "@every " + s.Every.String()
	}
	return s.Expr
}
