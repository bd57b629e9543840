// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"testing"
	"time"
)

func TestTruncateToDate(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)

	tests := []struct {
		name     string
		input    time.Time
		loc      *time.Location
		expected time.Time
	}{
		{
			name:     "truncate afternoon time",
			input:    time.Date(2025, 10, 17, 14, 23, 45, 123456789, time.UTC),
			loc:      time.UTC,
			expected: time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "truncate midnight (already truncated)",
			input:    time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC),
			loc:      time.UTC,
			expected: time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "truncate just before midnight",
			input:    time.Date(2025, 10, 17, 23, 59, 59, 999999999, time.UTC),
			loc:      time.UTC,
			expected: time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "nil location means UTC",
			input:    time.Date(2025, 10, 17, 8, 0, 0, 0, time.UTC),
			loc:      nil,
			expected: time.Date(2025, 10, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "UTC afternoon is next day in Seoul",
			input:    time.Date(2025, 10, 17, 16, 0, 0, 0, time.UTC),
			loc:      seoul,
			expected: time.Date(2025, 10, 18, 0, 0, 0, 0, seoul),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncateToDate(tt.input, tt.loc)

			if !result.Equal(tt.expected) {
				t.Errorf("TruncateToDate(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSameDay(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	base := time.Date(2025, 10, 17, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b time.Time
		loc  *time.Location
		want bool
	}{
		{"same instant", base, base, time.UTC, true},
		{"later same day", base, base.Add(13 * time.Hour), time.UTC, true},
		{"yesterday", base.Add(-24 * time.Hour), base, time.UTC, false},
		{"crosses midnight", base, base.Add(14 * time.Hour), time.UTC, false},
		{"same UTC day but different Seoul day", base.Add(-6 * time.Hour), base.Add(6 * time.Hour), seoul, false},
		{"different UTC day but same Seoul day", base.Add(6 * time.Hour), base.Add(14 * time.Hour), seoul, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameDay(tt.a, tt.b, tt.loc); got != tt.want {
				t.Errorf("SameDay(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
