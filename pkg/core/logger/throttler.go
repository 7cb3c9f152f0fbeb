package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LogThrottler downgrades repeated warnings to DEBUG. Consumers use it for
// broker errors that repeat on every poll while a broker is unreachable.
type LogThrottler struct {
	log      *zap.Logger
	keys     sync.Map // map[string]*throttleState
	interval time.Duration
}

type throttleState struct {
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewLogThrottler creates a LogThrottler allowing one WARN per key per interval.
// A zero interval defaults to 5 minutes.
func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &LogThrottler{
		log:      log,
		interval: interval,
	}
}

// Warn logs as WARN once per interval per key and as DEBUG otherwise. The
// WARN entry carries the number of entries downgraded since the previous one.
func (t *LogThrottler) Warn(key string, msg string, fields ...zap.Field) {
	st := t.state(key)
	if !st.limiter.Allow() {
		st.suppressed.Add(1)
		t.log.Debug(msg, fields...)
		return
	}
	if n := st.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	t.log.Warn(msg, fields...)
}

func (t *LogThrottler) state(key string) *throttleState {
	if st, ok := t.keys.Load(key); ok {
		return st.(*throttleState)
	}
	st := &throttleState{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
	actual, _ := t.keys.LoadOrStore(key, st)
	return actual.(*throttleState)
}
