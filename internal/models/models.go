// package models defines the data model for the playback visualizer service
package models

import (
	"fmt"
	"time"
)

// TokenRecord is the persisted OAuth token state for one Spotify user.
//
// There is at most one record per UserID; writes are upserts. ExpiresAt is
// recomputed from the provider-reported lifetime on every exchange or refresh.
type TokenRecord struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks that the record carries everything the token lifecycle needs.
func (t *TokenRecord) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("token record missing user id")
	}
	if t.AccessToken == "" {
		return fmt.Errorf("token record missing access token")
	}
	if t.RefreshToken == "" {
		return fmt.Errorf("token record missing refresh token")
	}
	if t.ExpiresAt.IsZero() {
		return fmt.Errorf("token record missing expiry")
	}
	return nil
}

// Expired reports whether the access token is unusable at instant now,
// treating anything within skew of the expiry as already expired.
func (t *TokenRecord) Expired(now time.Time, skew time.Duration) bool {
	return !now.Before(t.ExpiresAt.Add(-skew))
}

// RGB is one palette entry, serialized as a [r, g, b] array for the device.
type RGB [3]int

// Track identifies the currently playing track.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	AlbumArtURL string   `json:"albumArtUrl,omitempty"`
	URI         string   `json:"uri,omitempty"`
}

// Device describes the playback device, when the provider reports one.
type Device struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent int    `json:"volume_percent"`
}

// AudioFeatures holds the provider's audio analysis summary for a track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    int     `json:"time_signature"`
}

// PlaybackSnapshot is a single immutable read of playback state at one
// instant. Constructed fresh each poll cycle or request, published as JSON to
// the visualizer topic, and discarded. Never persisted.
//
// Features is always present in the serialized form (null when absent) so the
// device can distinguish "no enrichment" from a truncated payload.
type PlaybackSnapshot struct {
	IsPlaying    bool           `json:"isPlaying"`
	ProgressMS   int            `json:"progress_ms,omitempty"`
	DurationMS   int            `json:"duration_ms,omitempty"`
	Timestamp    int64          `json:"timestamp,omitempty"`
	Track        *Track         `json:"track,omitempty"`
	Palette      []RGB          `json:"palette,omitempty"`
	Device       *Device        `json:"device,omitempty"`
	ShuffleState *bool          `json:"shuffle_state,omitempty"`
	RepeatState  string         `json:"repeat_state,omitempty"`
	Features     *AudioFeatures `json:"features"`
}

// NotPlaying returns the safe default snapshot used whenever playback state
// is unavailable: no active device, a fetch failure, or no authenticated user.
func NotPlaying() *PlaybackSnapshot {
	return &PlaybackSnapshot{IsPlaying: false}
}
