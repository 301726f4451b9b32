package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/campuskart/campuskart/internal/cleanup"
	"github.com/campuskart/campuskart/internal/imagestore"
	"github.com/campuskart/campuskart/internal/model"
	"github.com/campuskart/campuskart/internal/moderation"
	"github.com/campuskart/campuskart/internal/repository"
)

var testImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(
	append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 64)...),
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory ListingStore and UserStore.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	listings map[string]*model.Listing
	payments  []*model.Payment
	admitErr  error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*model.User),
		listings: make(map[string]*model.Listing),
	}
}

func (m *memStore) addUser(id string, ent model.Entitlement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &model.User{ID: id, Email: id + "@campus.edu", DisplayName: "Test " + id, Entitlement: ent}
}

func (m *memStore) entitlement(id string) model.Entitlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Entitlement
}

func (m *memStore) CreateUser(_ context.Context, user *model.User) (*model.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[user.ID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return nil, false, repository.ErrEmailExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return user, true, nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GrantNextListing(_ context.Context, userID string, receipt *model.Payment) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.Entitlement = u.Entitlement.Grant()
	if receipt != nil {
		m.payments = append(m.payments, receipt)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) ListPaymentsByUser(_ context.Context, userID string, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.payments {
		if p.UserID == userID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) AdmitListing(_ context.Context, listing *model.Listing) (model.Authorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.admitErr != nil {
		return 0, m.admitErr
	}
	u, ok := m.users[listing.Seller.ID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	by, err := u.Entitlement.Authorize()
	if err != nil {
		return 0, err
	}
	u.Entitlement = u.Entitlement.Consume(by)
	cp := *listing
	m.listings[listing.ID] = &cp
	return by, nil
}

func (m *memStore) GetListingByID(_ context.Context, id string) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) ListFeed(_ context.Context, filter repository.FeedFilter, cursor string, limit int) ([]*model.Listing, string, error) {
	if cursor != "" {
		return nil, "", repository.ErrInvalidCursor
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Listing
	for _, l := range m.listings {
		if l.IsActive() && (filter.Category == "" || l.Category == filter.Category) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, "", nil
}

func (m *memStore) ListListingsBySeller(_ context.Context, sellerID string) ([]*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Listing, 0)
	for _, l := range m.listings {
		if l.Seller.ID == sellerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateListingStatus(_ context.Context, id string, status model.ListingStatus) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	l.Status = status
	cp := *l
	return &cp, nil
}

func (m *memStore) UpdateListing(_ context.Context, listing *model.Listing) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	l, ok := m.listings[listing.ID]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	l.Title = listing.Title
	l.Description = listing.Description
	l.Price = listing.Price
	l.ImageURL = listing.ImageURL
	l.ImageKey = listing.ImageKey
	cp := *l
	return &cp, nil
}

type fakeUploader struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (u *fakeUploader) Upload(_ context.Context, listingID string, img *imagestore.Image) (*imagestore.Uploaded, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return nil, u.err
	}
	key := imagestore.ObjectKey(listingID, img)
	return &imagestore.Uploaded{Key: key, URL: "https://img.test/" + key}, nil
}

type fakeModerator struct {
	mu      sync.Mutex
	verdict moderation.Verdict
	err     error
	urls    []string
}

func safeModerator() *fakeModerator {
	return &fakeModerator{verdict: moderation.Verdict{Safe: true}}
}

func (m *fakeModerator) Moderate(_ context.Context, url string) (moderation.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, url)
	return m.verdict, m.err
}

func (m *fakeModerator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urls)
}

type fakeDiscarder struct {
	mu      sync.Mutex
	orphans []cleanup.Orphan
}

func (d *fakeDiscarder) Discard(_ context.Context, o cleanup.Orphan) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.orphans = append(d.orphans, o)
}

func (d *fakeDiscarder) keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.orphans))
	for i, o := range d.orphans {
		out[i] = o.Key
	}
	return out
}

func (d *fakeDiscarder) reasons() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.orphans))
	for i, o := range d.orphans {
		out[i] = o.Reason
	}
	return out
}

var errBoom = errors.New("boom")
