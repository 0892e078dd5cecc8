package chat_test

import (
	"sync"
	"time"

	"camerashop/backend/internal/notify"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Enqueue(n notify.Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

func (r *recordingNotifier) Sent() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

// clock returns a now func that advances one second per call.
func clock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func uintPtr(v uint) *uint { return &v }
