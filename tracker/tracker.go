// Package tracker remembers recent contact form submissions per submitter.
package tracker

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Tracker keeps the time of the last submission per email address. It is
// bounded in size and entries expire after ttl. It never blocks a
// submission; callers only use it to flag repeats.
type Tracker struct {
	submissions *expirable.LRU[string, time.Time]
}

func NewTracker(size int, ttl time.Duration) *Tracker {
	if size <= 0 {
		size = 1024
	}
	return &Tracker{
		submissions: expirable.NewLRU[string, time.Time](size, nil, ttl),
	}
}

// Record stores at as the latest submission of email and reports whether a
// previous one was still remembered.
func (t *Tracker) Record(email string, at time.Time) (repeat bool) {
	key := normalize(email)
	_, repeat = t.submissions.Get(key)
	t.submissions.Add(key, at)
	return repeat
}

func (t *Tracker) LastSubmission(email string) (time.Time, bool) {
	return t.submissions.Get(normalize(email))
}

func (t *Tracker) Len() int {
	return t.submissions.Len()
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
