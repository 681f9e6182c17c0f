package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/prism/internal/models"
	"github.com/desertthunder/prism/internal/repositories"
	"github.com/desertthunder/prism/internal/shared"
	"golang.org/x/oauth2"
)

// fakeRefresher counts refresh calls and returns a scripted result.
type fakeRefresher struct {
	calls int64
	token *oauth2.Token
	err   error
	delay time.Duration
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func setupStore(t *testing.T) *repositories.TokenRepository {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return repositories.NewTokenRepository(db)
}

func seed(t *testing.T, store *repositories.TokenRepository, expiresAt time.Time) {
	t.Helper()

	err := store.Save(&models.TokenRecord{
		UserID:       "u1",
		AccessToken:  "T1",
		RefreshToken: "R1",
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		t.Fatalf("failed to seed token: %v", err)
	}
}

func TestManager(t *testing.T) {
	t.Run("fresh token returned without refresh", func(t *testing.T) {
		store := setupStore(t)
		seed(t, store, time.Now().Add(time.Hour))

		refresher := &fakeRefresher{}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		token, err := manager.Valid(context.Background(), "u1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "T1" {
			t.Errorf("expected stored token T1, got %s", token)
		}
		if refresher.calls != 0 {
			t.Errorf("expected zero refresh calls, got %d", refresher.calls)
		}
	})

	t.Run("expired token refreshed exactly once", func(t *testing.T) {
		store := setupStore(t)
		before := time.Now().Add(-time.Minute)
		seed(t, store, before)

		refresher := &fakeRefresher{
			token: &oauth2.Token{AccessToken: "T2", RefreshToken: "R1", Expiry: time.Now().Add(time.Hour)},
		}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		token, err := manager.Valid(context.Background(), "u1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "T2" {
			t.Errorf("expected refreshed token T2, got %s", token)
		}
		if refresher.calls != 1 {
			t.Errorf("expected exactly one refresh call, got %d", refresher.calls)
		}

		record, err := store.Get("u1")
		if err != nil {
			t.Fatalf("failed to read persisted record: %v", err)
		}
		if !record.ExpiresAt.After(before) {
			t.Errorf("persisted expiry %v must be strictly greater than %v", record.ExpiresAt, before)
		}
		if record.AccessToken != "T2" {
			t.Errorf("expected persisted access token T2, got %s", record.AccessToken)
		}
	})

	t.Run("near-expiry token inside skew is refreshed", func(t *testing.T) {
		store := setupStore(t)
		seed(t, store, time.Now().Add(10*time.Second))

		refresher := &fakeRefresher{
			token: &oauth2.Token{AccessToken: "T2", RefreshToken: "R1", Expiry: time.Now().Add(time.Hour)},
		}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		if _, err := manager.Valid(context.Background(), "u1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if refresher.calls != 1 {
			t.Errorf("expected one refresh call inside skew window, got %d", refresher.calls)
		}
	})

	t.Run("rotated refresh token persisted", func(t *testing.T) {
		store := setupStore(t)
		seed(t, store, time.Now().Add(-time.Minute))

		refresher := &fakeRefresher{
			token: &oauth2.Token{AccessToken: "T2", RefreshToken: "R2", Expiry: time.Now().Add(time.Hour)},
		}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		if _, err := manager.Valid(context.Background(), "u1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		record, err := store.Get("u1")
		if err != nil {
			t.Fatalf("failed to read persisted record: %v", err)
		}
		if record.RefreshToken != "R2" {
			t.Errorf("expected rotated refresh token R2, got %s", record.RefreshToken)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		store := setupStore(t)
		manager := NewManager(store, &fakeRefresher{}, DefaultSkew, nil)

		_, err := manager.Valid(context.Background(), "nobody")
		if !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("revoked grant removes record and requires reauth", func(t *testing.T) {
		store := setupStore(t)
		seed(t, store, time.Now().Add(-time.Minute))

		refresher := &fakeRefresher{err: fmt.Errorf("%w: invalid_grant", shared.ErrReauthRequired)}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		_, err := manager.Valid(context.Background(), "u1")
		if !errors.Is(err, shared.ErrReauthRequired) {
			t.Fatalf("expected ErrReauthRequired, got %v", err)
		}

		if _, err := store.Get("u1"); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected record removed after revoked grant, got %v", err)
		}
	})

	t.Run("transient failure leaves record untouched", func(t *testing.T) {
		store := setupStore(t)
		seed(t, store, time.Now().Add(-time.Minute))

		refresher := &fakeRefresher{err: fmt.Errorf("%w: connection refused", shared.ErrTransient)}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		_, err := manager.Valid(context.Background(), "u1")
		if !errors.Is(err, shared.ErrTransient) {
			t.Fatalf("expected ErrTransient, got %v", err)
		}

		record, err := store.Get("u1")
		if err != nil {
			t.Fatalf("record should survive a transient failure: %v", err)
		}
		if record.AccessToken != "T1" {
			t.Errorf("record must be unchanged, got %+v", record)
		}
	})

	t.Run("rate limited refresh leaves record untouched", func(t *testing.T) {
		store := setupStore(t)
		seed(t, store, time.Now().Add(-time.Minute))

		refresher := &fakeRefresher{err: fmt.Errorf("%w: token endpoint throttled", shared.ErrRateLimited)}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		_, err := manager.Valid(context.Background(), "u1")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}

		record, err := store.Get("u1")
		if err != nil {
			t.Fatalf("record should survive a rate limited refresh: %v", err)
		}
		if record.RefreshToken != "R1" {
			t.Errorf("refresh token must be retained, got %+v", record)
		}
	})

	t.Run("concurrent callers single-flight the refresh", func(t *testing.T) {
		store := setupStore(t)
		seed(t, store, time.Now().Add(-time.Minute))

		refresher := &fakeRefresher{
			token: &oauth2.Token{AccessToken: "T2", RefreshToken: "R1", Expiry: time.Now().Add(time.Hour)},
			delay: 20 * time.Millisecond,
		}
		manager := NewManager(store, refresher, DefaultSkew, nil)

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				token, err := manager.Valid(context.Background(), "u1")
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				if token != "T2" {
					t.Errorf("expected refreshed token T2, got %s", token)
				}
			}()
		}
		wg.Wait()

		if got := atomic.LoadInt64(&refresher.calls); got != 1 {
			t.Errorf("expected one in-flight refresh across concurrent callers, got %d", got)
		}
	})
}
