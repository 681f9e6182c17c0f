package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTokenRecord(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		record := &TokenRecord{
			UserID:       "u1",
			AccessToken:  "T1",
			RefreshToken: "R1",
			ExpiresAt:    time.Now().Add(time.Hour),
		}

		if err := record.Validate(); err != nil {
			t.Fatalf("expected valid record, got %v", err)
		}

		invalid := *record
		invalid.UserID = ""
		if err := invalid.Validate(); err == nil {
			t.Error("expected error for missing user id")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		now := time.Now()
		skew := 60 * time.Second

		cases := []struct {
			name      string
			expiresAt time.Time
			want      bool
		}{
			{"long lived", now.Add(time.Hour), false},
			{"past expiry", now.Add(-time.Minute), true},
			{"inside skew window", now.Add(10 * time.Second), true},
			{"exactly at skew boundary", now.Add(skew), true},
			{"just outside skew", now.Add(skew + time.Second), false},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				record := &TokenRecord{ExpiresAt: tc.expiresAt}
				if got := record.Expired(now, skew); got != tc.want {
					t.Errorf("Expired() = %v, want %v", got, tc.want)
				}
			})
		}
	})
}

func TestPlaybackSnapshot(t *testing.T) {
	t.Run("NotPlaying omits track", func(t *testing.T) {
		data, err := json.Marshal(NotPlaying())
		if err != nil {
			t.Fatalf("failed to marshal snapshot: %v", err)
		}

		payload := string(data)
		if strings.Contains(payload, `"track"`) {
			t.Errorf("not-playing snapshot must not include a track object: %s", payload)
		}
		if !strings.Contains(payload, `"isPlaying":false`) {
			t.Errorf("expected isPlaying false: %s", payload)
		}
		if !strings.Contains(payload, `"features":null`) {
			t.Errorf("features must serialize as explicit null: %s", payload)
		}
	})

	t.Run("palette serializes as rgb triples", func(t *testing.T) {
		snapshot := &PlaybackSnapshot{
			IsPlaying: true,
			Track:     &Track{ID: "t1", Name: "Song", Artists: []string{"Artist"}, Album: "Album"},
			Palette:   []RGB{{255, 0, 0}, {0, 128, 255}},
		}

		data, err := json.Marshal(snapshot)
		if err != nil {
			t.Fatalf("failed to marshal snapshot: %v", err)
		}

		if !strings.Contains(string(data), `"palette":[[255,0,0],[0,128,255]]`) {
			t.Errorf("unexpected palette encoding: %s", data)
		}
	})
}
