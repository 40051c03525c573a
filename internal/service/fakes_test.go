package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================
//
// In-memory fakes for the repository and processor interfaces. Fakes (not a
// mock framework) keep these tests dependency-free and readable — what each
// fake does is right here on the page.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeUserRepo implements repository.UserRepository.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	byPair map[string]*model.User // keyed by provider + "/" + providerID
	nextID int
	// set to a non-nil error to simulate a database failure
	findOrCreateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byPair: make(map[string]*model.User),
		nextID: 1,
	}
}

func (f *fakeUserRepo) FindOrCreate(ctx context.Context, user *model.User) (*model.User, error) {
	if f.findOrCreateErr != nil {
		return nil, f.findOrCreateErr
	}
	key := user.Provider + "/" + user.ProviderID
	if existing, ok := f.byPair[key]; ok {
		// Existing identity: return the stored row untouched.
		copied := *existing
		return &copied, nil
	}
	created := *user
	created.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.users[created.ID] = &created
	f.byPair[key] = &created
	result := created
	return &result, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateAttributes(ctx context.Context, user *model.User) error {
	stored, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored.Email = user.Email
	stored.Phone = user.Phone
	stored.Location = user.Location
	return nil
}

// fakePostRepo implements repository.PostRepository.
type fakePostRepo struct {
	posts  map[string]*model.Post
	nextID int
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post), nextID: 1}
}

func (f *fakePostRepo) Create(ctx context.Context, post *model.Post) error {
	if f.createErr != nil {
		return f.createErr
	}
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	f.nextID++
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePostRepo) ListPublic(ctx context.Context) ([]model.Post, error) {
	var out []model.Post
	for _, p := range f.posts {
		if p.Status == model.StatusPublic {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) ListByOwner(ctx context.Context, ownerID string, includeDrafts bool) ([]model.Post, error) {
	var out []model.Post
	for _, p := range f.posts {
		if p.OwnerID != ownerID {
			continue
		}
		if p.Status != model.StatusPublic && !includeDrafts {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePostRepo) Update(ctx context.Context, post *model.Post) error {
	stored, ok := f.posts[post.ID]
	if !ok {
		return apperror.NotFound("post", post.ID)
	}
	// OwnerID deliberately not written, matching the real store.
	stored.Title = post.Title
	stored.Body = post.Body
	stored.Status = post.Status
	stored.AllowComments = post.AllowComments
	return nil
}

func (f *fakePostRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.posts, id)
	return nil
}

// fakeCommentRepo implements repository.CommentRepository.
type fakeCommentRepo struct {
	comments  []model.Comment
	nextID    int
	appendErr error
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{nextID: 1}
}

func (f *fakeCommentRepo) Append(ctx context.Context, comment *model.Comment) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	comment.ID = fmt.Sprintf("comment-%d", f.nextID)
	f.nextID++
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range f.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeSessionRepo implements repository.SessionRepository.
type fakeSessionRepo struct {
	sessions map[string]*model.Session
	nextID   int
	// set to non-nil to simulate failures on the corresponding call
	createErr error
	grantErr  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session), nextID: 1}
}

// newSession creates a session directly, bypassing Create's error hook.
// Tests use it to set up an authenticated caller.
func (f *fakeSessionRepo) newSession(userID string, credits int) *model.Session {
	s := &model.Session{
		Token:       fmt.Sprintf("token-%d", f.nextID),
		UserID:      userID,
		PostCredits: credits,
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	f.nextID++
	f.sessions[s.Token] = s
	return s
}

func (f *fakeSessionRepo) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	copied := *f.newSession(userID, 0)
	return &copied, nil
}

func (f *fakeSessionRepo) GetSession(ctx context.Context, token string) (*model.Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, apperror.NotFound("session", token)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) DeleteSession(ctx context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionRepo) GrantPostCredit(ctx context.Context, token string) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	s, ok := f.sessions[token]
	if !ok {
		return apperror.NotFound("session", token)
	}
	s.PostCredits++
	return nil
}

func (f *fakeSessionRepo) ConsumePostCredit(ctx context.Context, token string) error {
	s, ok := f.sessions[token]
	if !ok || s.PostCredits < 1 {
		return apperror.PaymentRequired()
	}
	s.PostCredits--
	return nil
}

// credits is a test accessor for the remaining balance.
func (f *fakeSessionRepo) credits(token string) int {
	s, ok := f.sessions[token]
	if !ok {
		return -1
	}
	return s.PostCredits
}

// fakeProcessor implements payment.Processor and records the call order.
type fakeProcessor struct {
	calls       []string
	customerErr error
	chargeErr   error
}

func (f *fakeProcessor) CreateCustomer(ctx context.Context, email, cardToken string) (string, error) {
	f.calls = append(f.calls, "customer")
	if f.customerErr != nil {
		return "", f.customerErr
	}
	return "cus_fake", nil
}

func (f *fakeProcessor) CreateCharge(ctx context.Context, customerID string, amountCents int64, description string) (string, error) {
	f.calls = append(f.calls, fmt.Sprintf("charge:%s:%d", customerID, amountCents))
	if f.chargeErr != nil {
		return "", f.chargeErr
	}
	return "ch_fake", nil
}

var errDatabaseDown = errors.New("database is on fire")
