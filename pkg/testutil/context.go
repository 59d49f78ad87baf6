package testutil

import (
	"context"
	"time"

	"refunds/pkg/requestcontext"
)

// ReferenceTime is a fixed instant used across tests so time-window logic is deterministic.
var ReferenceTime = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

// ContextAt returns a background context whose request clock is pinned to t.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// DaysAgo returns ReferenceTime minus n days.
func DaysAgo(n int) time.Time {
	return ReferenceTime.AddDate(0, 0, -n)
}
