package store

import "time"

// Clock returns the current wall-clock time. Sessions read it once per operation.
type Clock func() time.Time

func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
