package store

import (
	"fmt"
	"sync"
	"time"
)

// DefaultLogCapacity is the activity log's line cap.
const DefaultLogCapacity = 50

// ActivityLog is a bounded, newest-first sequence of human-readable status
// lines. Producers only append; eviction from the back is the only removal.
type ActivityLog struct {
	mu       sync.Mutex
	capacity int
	lines    []string
	notify   func(line string)
	now      func() time.Time
}

// NewActivityLog creates a log with the given cap. notify, if non-nil, is
// called with each appended line (outside the lock) so the panel feed can
// mirror the log live.
func NewActivityLog(capacity int, notify func(line string)) *ActivityLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &ActivityLog{
		capacity: capacity,
		notify:   notify,
		now:      time.Now,
	}
}

// Appendf formats and appends a timestamped line at the front, evicting the
// oldest lines past the cap.
func (l *ActivityLog) Appendf(format string, args ...interface{}) {
	l.mu.Lock()
	line := fmt.Sprintf("[%s] %s", l.now().Format("15:04:05"), fmt.Sprintf(format, args...))
	l.lines = append([]string{line}, l.lines...)
	if len(l.lines) > l.capacity {
		l.lines = l.lines[:l.capacity]
	}
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify(line)
	}
}

// Lines returns a newest-first copy of the log.
func (l *ActivityLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Reset clears the log.
func (l *ActivityLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}
