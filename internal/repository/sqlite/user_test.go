package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/model"
)

// newTestDB creates a fresh in-memory database for one test. t.Cleanup makes
// sure the connection (and with it the whole database) is released when the
// test finishes, subtests included.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:", time.Hour)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser resolves a fresh identity and fails the test on error.
func createTestUser(t *testing.T, db *DB, provider, providerID string) *model.User {
	t.Helper()
	user, err := db.FindOrCreate(context.Background(), &model.User{
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: "user-" + providerID,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// FIND-OR-CREATE TESTS
// =========================================================================

func TestFindOrCreate_CreatesOnFirstSight(t *testing.T) {
	db := newTestDB(t)

	user, err := db.FindOrCreate(context.Background(), &model.User{
		Provider:    "google",
		ProviderID:  "42",
		DisplayName: "Alice",
		Email:       "alice@example.com",
		AvatarURL:   "https://example.com/a.png",
	})
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}

	if user.ID == "" {
		t.Error("FindOrCreate() did not assign an internal ID")
	}
	if user.Provider != "google" || user.ProviderID != "42" {
		t.Errorf("identity = (%s, %s), want (google, 42)", user.Provider, user.ProviderID)
	}
	if user.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want Alice", user.DisplayName)
	}
	if user.CreatedAt.IsZero() {
		t.Error("FindOrCreate() did not set CreatedAt")
	}
}

func TestFindOrCreate_SecondLoginReturnsSameUser(t *testing.T) {
	db := newTestDB(t)

	first, err := db.FindOrCreate(context.Background(), &model.User{
		Provider:    "google",
		ProviderID:  "42",
		DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("first FindOrCreate() error = %v", err)
	}

	second, err := db.FindOrCreate(context.Background(), &model.User{
		Provider:    "google",
		ProviderID:  "42",
		DisplayName: "Alice Renamed", // must be ignored
		Email:       "new@example.com",
	})
	if err != nil {
		t.Fatalf("second FindOrCreate() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second login resolved to id %s, want %s", second.ID, first.ID)
	}
	// The resolver never updates an existing profile from provider data.
	if second.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, existing attributes must not change", second.DisplayName)
	}
	if second.Email != "" {
		t.Errorf("Email = %q, existing attributes must not change", second.Email)
	}
}

func TestFindOrCreate_SameProviderIDDifferentProviders(t *testing.T) {
	db := newTestDB(t)

	a := createTestUser(t, db, "google", "42")
	b := createTestUser(t, db, "facebook", "42")

	if a.ID == b.ID {
		t.Error("identities from different providers must not share a user")
	}
}

// The double-clicked sign-in button: concurrent first-logins for one
// identity must converge on exactly one user row, and every caller must
// resolve to it.
func TestFindOrCreate_ConcurrentFirstLogins(t *testing.T) {
	db := newTestDB(t)

	const logins = 10

	var wg sync.WaitGroup
	ids := make([]string, logins)
	errs := make([]error, logins)

	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := db.FindOrCreate(context.Background(), &model.User{
				Provider:    "google",
				ProviderID:  "42",
				DisplayName: fmt.Sprintf("racer-%d", i),
			})
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = user.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("login %d error = %v, the race must resolve internally", i, err)
		}
	}
	for i := 1; i < logins; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("login %d resolved to %s, login 0 to %s — want one user", i, ids[i], ids[0])
		}
	}

	users, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users after concurrent logins, want exactly 1", len(users))
	}
}

// =========================================================================
// LOOKUP AND UPDATE TESTS
// =========================================================================

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateAttributes(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "google", "42")

	user.Email = "alice@example.com"
	user.Phone = "+15550001111"
	user.Location = "Dhaka"

	if err := db.UpdateAttributes(context.Background(), user); err != nil {
		t.Fatalf("UpdateAttributes() error = %v", err)
	}

	got, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "alice@example.com" || got.Phone != "+15550001111" || got.Location != "Dhaka" {
		t.Errorf("attributes not persisted: %+v", got)
	}
	// Identity is untouched by attribute updates.
	if got.Provider != "google" || got.ProviderID != "42" {
		t.Errorf("identity changed: (%s, %s)", got.Provider, got.ProviderID)
	}
}

func TestUpdateAttributes_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateAttributes(context.Background(), &model.User{ID: "ghost"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateAttributes() error = %v, want ErrNotFound", err)
	}
}
