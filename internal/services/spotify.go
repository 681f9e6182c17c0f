// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Scopes requested during the authorization-code flow.
var spotifyScopes = []string{
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-read-email",
	"user-read-private",
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type spotifyItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	URI        string          `json:"uri"`
	DurationMS int             `json:"duration_ms"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
}

type spotifyDevice struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent int    `json:"volume_percent"`
}

type playbackResponse struct {
	IsPlaying    bool           `json:"is_playing"`
	ProgressMS   int            `json:"progress_ms"`
	Timestamp    int64          `json:"timestamp"`
	ShuffleState *bool          `json:"shuffle_state"`
	RepeatState  string         `json:"repeat_state"`
	Device       *spotifyDevice `json:"device"`
	Item         *spotifyItem   `json:"item"`
}

// SpotifyService wraps the Spotify Web API for the authorization-code flow
// and playback reads. Uses [oauth2] for the token exchanges and a
// [rate.Limiter] to pace API calls below the provider's limits.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	apiBaseURL string
	limiter    *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials shared.SpotifyConfig) (*SpotifyService, error) {
	if credentials.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if credentials.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/auth/callback"
	}

	config := &oauth2.Config{
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiBaseURL: spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(8), 4),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig exposes the underlying [oauth2.Config] for handlers that drive
// the authorization flow directly.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for an access/refresh token pair.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new access token.
//
// The provider may rotate the refresh token; callers must persist whatever
// comes back. Only an invalid_grant response, meaning the grant itself is
// revoked or expired, maps to [shared.ErrReauthRequired]. A rate-limited
// token endpoint maps to [shared.ErrRateLimited]; everything else (network
// failures, provider 5xx, misconfigured client credentials) is
// [shared.ErrTransient], since none of those mean the user's grant is dead.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			switch {
			case retrieveErr.ErrorCode == "invalid_grant":
				return nil, fmt.Errorf("%w: %v", shared.ErrReauthRequired, err)
			case retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusTooManyRequests:
				return nil, fmt.Errorf("%w: %v", shared.ErrRateLimited, err)
			}
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}

	// Spotify usually keeps the refresh token stable; carry the old one
	// forward when the response omits it.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return token, nil
}

// Profile retrieves the authenticated user's profile.
func (s *SpotifyService) Profile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, accessToken, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentPlayback retrieves the user's current playback state.
//
// "Nothing playing" is a successful result: a 204 response and a response
// without an item both yield the not-playing snapshot, never an error.
func (s *SpotifyService) CurrentPlayback(ctx context.Context, accessToken string) (*models.PlaybackSnapshot, error) {
	var playback playbackResponse
	found, err := s.doRequestOptional(ctx, accessToken, "/me/player", &playback)
	if err != nil {
		return nil, err
	}
	if !found || playback.Item == nil {
		return models.NotPlaying(), nil
	}

	track := &models.Track{
		ID:    playback.Item.ID,
		Name:  playback.Item.Name,
		URI:   playback.Item.URI,
		Album: playback.Item.Album.Name,
	}
	for _, artist := range playback.Item.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}
	if len(playback.Item.Album.Images) > 0 {
		track.AlbumArtURL = playback.Item.Album.Images[0].URL
	}

	snapshot := &models.PlaybackSnapshot{
		IsPlaying:    playback.IsPlaying,
		ProgressMS:   playback.ProgressMS,
		DurationMS:   playback.Item.DurationMS,
		Timestamp:    playback.Timestamp,
		Track:        track,
		ShuffleState: playback.ShuffleState,
		RepeatState:  playback.RepeatState,
	}
	if playback.Device != nil {
		snapshot.Device = &models.Device{
			Name:          playback.Device.Name,
			Type:          playback.Device.Type,
			VolumePercent: playback.Device.VolumePercent,
		}
	}

	return snapshot, nil
}

// TrackFeatures retrieves the audio analysis summary for a track.
func (s *SpotifyService) TrackFeatures(ctx context.Context, accessToken, trackID string) (*models.AudioFeatures, error) {
	var features models.AudioFeatures
	endpoint := fmt.Sprintf("/audio-features/%s", trackID)
	if err := s.doRequest(ctx, accessToken, endpoint, &features); err != nil {
		return nil, err
	}
	return &features, nil
}

// DownloadImage fetches raw image bytes, typically album art, for palette extraction.
func (s *SpotifyService) DownloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: image download status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	return data, nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string, result any) error {
	found, err := s.doRequestOptional(ctx, accessToken, endpoint, result)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: empty response for %s", shared.ErrAPIRequest, endpoint)
	}
	return nil
}

// doRequestOptional is doRequest for endpoints where 204 No Content is a
// valid outcome. Returns false when the provider sent no body.
func (s *SpotifyService) doRequestOptional(ctx context.Context, accessToken, endpoint string, result any) (bool, error) {
	if accessToken == "" {
		return false, shared.ErrNotAuthenticated
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, fmt.Errorf("%w: retry-after %s", shared.ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusUnauthorized:
		return false, fmt.Errorf("%w: status 401", shared.ErrNotAuthenticated)
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("%w: spotify API status %d", shared.ErrTransient, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return true, nil
}
