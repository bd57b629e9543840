// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import "time"

// TruncateToDate returns midnight (00:00:00) of t's calendar day in loc.
// A nil loc is treated as UTC.
//
// Example (loc = Asia/Seoul):
//   - Input: 2025-10-17 16:23:45 UTC
//   - Output: 2025-10-18 00:00:00 KST
//
// Usage: Use this when a mission is eligible only on the day it was issued.
func TruncateToDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return TruncateToDate(a, loc).Equal(TruncateToDate(b, loc))
}
