package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/config"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/payment"
)

// stubProcessor stands in for Stripe. It succeeds unless an error is set.
type stubProcessor struct {
	customerErr error
	chargeErr   error
	charges     int
}

func (p *stubProcessor) CreateCustomer(ctx context.Context, email, cardToken string) (string, error) {
	if p.customerErr != nil {
		return "", p.customerErr
	}
	return "cus_test", nil
}

func (p *stubProcessor) CreateCharge(ctx context.Context, customerID string, amountCents int64, description string) (string, error) {
	if p.chargeErr != nil {
		return "", p.chargeErr
	}
	p.charges++
	return fmt.Sprintf("ch_test_%d", p.charges), nil
}

var _ payment.Processor = (*stubProcessor)(nil)

func newTestServer(t *testing.T) (*Server, *stubProcessor) {
	t.Helper()

	cfg := config.Config{
		Port:               0,
		BaseURL:            "http://localhost",
		DBPath:             ":memory:",
		SessionTTL:         time.Hour,
		PostPriceCents:     2500,
		PaymentCurrency:    "usd",
		LoginRatePerMinute: 100,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	proc := &stubProcessor{}

	srv, err := NewWithProcessor(cfg, logger, proc)
	if err != nil {
		t.Fatalf("NewWithProcessor() error = %v", err)
	}
	t.Cleanup(func() {
		srv.limiter.Stop()
		srv.db.Close()
	})

	return srv, proc
}

// loginUser creates a user and a live session directly in the store,
// standing in for a completed provider round-trip, and returns the cookie a
// browser would hold afterwards.
func loginUser(t *testing.T, srv *Server, provider, providerID string) (*model.User, *http.Cookie) {
	t.Helper()

	user, err := srv.db.FindOrCreate(context.Background(), &model.User{
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: "Test User " + providerID,
	})
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}

	session, err := srv.db.CreateSession(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}

	return user, &http.Cookie{Name: auth.SessionCookie, Value: session.Token}
}

func doJSON(t *testing.T, srv *Server, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func doForm(t *testing.T, srv *Server, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

// payAndPost runs the paid authoring workflow for an already logged-in user
// and returns the created post.
func payAndPost(t *testing.T, srv *Server, cookie *http.Cookie, title, status string, allowComments bool) model.Post {
	t.Helper()

	rr := doJSON(t, srv, http.MethodPost, "/acceptPayment", cookie, map[string]string{"token": "tok_visa"})
	if rr.Code != http.StatusOK {
		t.Fatalf("acceptPayment status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/savePost", cookie, map[string]any{
		"title":         title,
		"body":          "some body text",
		"status":        status,
		"allowComments": allowComments,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("savePost status = %d, body %s", rr.Code, rr.Body.String())
	}

	var post model.Post
	if err := json.NewDecoder(rr.Body).Decode(&post); err != nil {
		t.Fatalf("decoding post: %v", err)
	}
	return post
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestHome(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("anonymous", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/", nil, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, false, body["authenticated"])
	})

	t.Run("signed in", func(t *testing.T) {
		user, cookie := loginUser(t, srv, "google", "home-user")

		rr := doJSON(t, srv, http.MethodGet, "/", cookie, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, true, body["authenticated"])
		assert.Equal(t, user.ID, body["userId"])
	})
}

func TestRequireAuth_RedirectsToHome(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/profile", "/users", "/posts", "/addPost", "/displayPostForm"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusSeeOther, rr.Code, "GET %s", path)
		assert.Equal(t, "/", rr.Header().Get("Location"), "GET %s", path)
	}
}

func TestRequireAuth_RejectsStaleCookie(t *testing.T) {
	srv, _ := newTestServer(t)

	cookie := &http.Cookie{Name: auth.SessionCookie, Value: "never-issued-token"}
	rr := doJSON(t, srv, http.MethodGet, "/profile", cookie, nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestRequireGuest_RedirectsToProfile(t *testing.T) {
	srv, _ := newTestServer(t)
	_, cookie := loginUser(t, srv, "google", "guest-check")

	rr := doJSON(t, srv, http.MethodGet, "/auth/google", cookie, nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/profile", rr.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	srv, _ := newTestServer(t)
	_, cookie := loginUser(t, srv, "google", "logout-user")

	rr := doJSON(t, srv, http.MethodGet, "/logout", cookie, nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	// The token is dead server-side even though the client still holds it.
	rr = doJSON(t, srv, http.MethodGet, "/profile", cookie, nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestSavePost_WithoutPayment(t *testing.T) {
	srv, _ := newTestServer(t)
	_, cookie := loginUser(t, srv, "google", "cheapskate")

	rr := doJSON(t, srv, http.MethodPost, "/savePost", cookie, map[string]any{
		"title": "Free Lunch", "body": "?", "status": "public",
	})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)

	// Nothing was persisted.
	rr = doJSON(t, srv, http.MethodGet, "/posts", cookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var posts []model.Post
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&posts))
	assert.Empty(t, posts)
}

func TestPostForm_RequiresCredit(t *testing.T) {
	srv, _ := newTestServer(t)
	_, cookie := loginUser(t, srv, "google", "author")

	// Before paying, the authoring form is withheld.
	rr := doJSON(t, srv, http.MethodGet, "/displayPostForm", cookie, nil)
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/acceptPayment", cookie, map[string]string{"token": "tok_visa"})
	assert.Equal(t, http.StatusOK, rr.Code)

	// With an unspent credit the form is served, and viewing it does not
	// spend the credit.
	rr = doJSON(t, srv, http.MethodGet, "/displayPostForm", cookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, srv, http.MethodGet, "/displayPostForm", cookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/savePost", cookie, map[string]any{
		"title": "Paid For", "body": "body", "status": "draft",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	// The save spent the credit, so the form is withheld again.
	rr = doJSON(t, srv, http.MethodGet, "/displayPostForm", cookie, nil)
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
}

func TestAcceptPayment_Declined(t *testing.T) {
	srv, proc := newTestServer(t)
	proc.chargeErr = &payment.Declined{Reason: "insufficient funds"}
	_, cookie := loginUser(t, srv, "google", "declined-card")

	rr := doJSON(t, srv, http.MethodPost, "/acceptPayment", cookie, map[string]string{"token": "tok_chargeDeclined"})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)

	// A declined charge grants no credit; posting still fails.
	rr = doJSON(t, srv, http.MethodPost, "/savePost", cookie, map[string]any{
		"title": "Paid?", "status": "draft",
	})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
}

func TestAcceptPayment_ProcessorDown(t *testing.T) {
	srv, proc := newTestServer(t)
	proc.customerErr = errors.New("connection refused")
	_, cookie := loginUser(t, srv, "google", "unlucky")

	rr := doJSON(t, srv, http.MethodPost, "/acceptPayment", cookie, map[string]string{"token": "tok_visa"})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestAuthoringWorkflow(t *testing.T) {
	srv, _ := newTestServer(t)
	author, authorCookie := loginUser(t, srv, "google", "author")
	_, readerCookie := loginUser(t, srv, "facebook", "reader")

	// The payment form advertises the price.
	rr := doJSON(t, srv, http.MethodGet, "/addPost", authorCookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var form struct {
		AmountCents int64 `json:"amountCents"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&form))
	assert.Equal(t, int64(2500), form.AmountCents)

	// Pay, compose, publish.
	post := payAndPost(t, srv, authorCookie, "Paid Post", "public", true)
	assert.Equal(t, author.ID, post.OwnerID)

	// One payment buys exactly one post.
	rr = doJSON(t, srv, http.MethodPost, "/savePost", authorCookie, map[string]any{
		"title": "Second Post", "status": "draft",
	})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)

	// The post is on the public feed for another user.
	rr = doJSON(t, srv, http.MethodGet, "/posts", readerCookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var feed []model.Post
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&feed))
	if assert.Len(t, feed, 1) {
		assert.Equal(t, post.ID, feed[0].ID)
	}

	// The reader comments.
	rr = doJSON(t, srv, http.MethodPost, "/addComment/"+post.ID, readerCookie, map[string]string{"body": "great read"})
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/post/"+post.ID, authorCookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var withComments model.Post
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&withComments))
	if assert.Len(t, withComments.Comments, 1) {
		assert.Equal(t, "great read", withComments.Comments[0].Body)
	}

	// Only the owner may delete.
	rr = doJSON(t, srv, http.MethodDelete, "/"+post.ID, readerCookie, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, srv, http.MethodDelete, "/"+post.ID, authorCookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Gone from the feed and from the edit form.
	rr = doJSON(t, srv, http.MethodGet, "/posts", readerCookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	feed = nil
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&feed))
	assert.Empty(t, feed)

	rr = doJSON(t, srv, http.MethodGet, "/editPost/"+post.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDraftVisibility(t *testing.T) {
	srv, _ := newTestServer(t)
	author, authorCookie := loginUser(t, srv, "google", "drafter")
	_, readerCookie := loginUser(t, srv, "facebook", "snooper")

	draft := payAndPost(t, srv, authorCookie, "Work In Progress", "draft", true)

	// Invisible on the feed and unreadable by id for anyone else.
	rr := doJSON(t, srv, http.MethodGet, "/posts", readerCookie, nil)
	var feed []model.Post
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&feed))
	assert.Empty(t, feed)

	rr = doJSON(t, srv, http.MethodGet, "/post/"+draft.ID, readerCookie, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// The owner's listing shows it, another user's view of the owner doesn't.
	rr = doJSON(t, srv, http.MethodGet, "/showposts/"+author.ID, authorCookie, nil)
	var own []model.Post
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&own))
	assert.Len(t, own, 1)

	rr = doJSON(t, srv, http.MethodGet, "/showposts/"+author.ID, readerCookie, nil)
	var visible []model.Post
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&visible))
	assert.Empty(t, visible)
}

func TestEditingPost_PublishIsOneWay(t *testing.T) {
	srv, _ := newTestServer(t)
	_, cookie := loginUser(t, srv, "google", "editor")

	post := payAndPost(t, srv, cookie, "Draft First", "draft", true)

	// draft → public succeeds.
	rr := doJSON(t, srv, http.MethodPut, "/editingPost/"+post.ID, cookie, map[string]any{
		"title": "Draft First", "body": "v2", "status": "public",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	// public → draft is rejected.
	rr = doJSON(t, srv, http.MethodPut, "/editingPost/"+post.ID, cookie, map[string]any{
		"title": "Draft First", "body": "v3", "status": "draft",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEditingPost_NonOwner(t *testing.T) {
	srv, _ := newTestServer(t)
	_, ownerCookie := loginUser(t, srv, "google", "owner")
	_, intruderCookie := loginUser(t, srv, "facebook", "intruder")

	post := payAndPost(t, srv, ownerCookie, "Mine", "public", true)

	rr := doJSON(t, srv, http.MethodPut, "/editingPost/"+post.ID, intruderCookie, map[string]any{
		"title": "Hijacked", "status": "public",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestEditPostForm_NoGate(t *testing.T) {
	srv, _ := newTestServer(t)
	_, cookie := loginUser(t, srv, "google", "author")

	post := payAndPost(t, srv, cookie, "Open Form", "draft", true)

	// No cookie at all: the form data is still served.
	rr := doJSON(t, srv, http.MethodGet, "/editPost/"+post.ID, nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/editPost/no-such-id", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddComment_Disabled(t *testing.T) {
	srv, _ := newTestServer(t)
	_, authorCookie := loginUser(t, srv, "google", "author")
	_, readerCookie := loginUser(t, srv, "facebook", "reader")

	post := payAndPost(t, srv, authorCookie, "No Comments Please", "public", false)

	rr := doJSON(t, srv, http.MethodPost, "/addComment/"+post.ID, readerCookie, map[string]string{"body": "anyway"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/post/"+post.ID, readerCookie, nil)
	var got model.Post
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Empty(t, got.Comments)
}

func TestProfileAndAttributes(t *testing.T) {
	srv, _ := newTestServer(t)
	user, cookie := loginUser(t, srv, "google", "profiled")

	rr := doForm(t, srv, "/addEmail", cookie, url.Values{"email": {"me@example.com"}})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doForm(t, srv, "/addPhone", cookie, url.Values{"phone": {"+1 555 0100"}})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doForm(t, srv, "/addLocation", cookie, url.Values{"location": {"Dhaka"}})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/profile", cookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var profile struct {
		User  model.User   `json:"user"`
		Posts []model.Post `json:"posts"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
	assert.Equal(t, user.ID, profile.User.ID)
	assert.Equal(t, "me@example.com", profile.User.Email)
	assert.Equal(t, "+1 555 0100", profile.User.Phone)
	assert.Equal(t, "Dhaka", profile.User.Location)
}

func TestAddEmail_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	_, cookie := loginUser(t, srv, "google", "typo")

	rr := doForm(t, srv, "/addEmail", cookie, url.Values{"email": {"not-an-address"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserListing(t *testing.T) {
	srv, _ := newTestServer(t)
	a, cookie := loginUser(t, srv, "google", "first")
	loginUser(t, srv, "facebook", "second")

	rr := doJSON(t, srv, http.MethodGet, "/users", cookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var users []model.User
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&users))
	assert.Len(t, users, 2)

	rr = doJSON(t, srv, http.MethodGet, "/user/"+a.ID, cookie, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/user/no-such-user", cookie, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
