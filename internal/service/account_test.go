package service

import (
	"context"
	"errors"
	"testing"

	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/campuskart/campuskart/internal/model"
)

func TestRegister(t *testing.T) {
	store := newMemStore()
	svc := NewAccountService(store, []string{"campus.edu"}, discardLogger())
	ctx := context.Background()

	testCases := []struct {
		name        string
		id          model.Identity
		wantCreated bool
		wantErr     error
	}{
		{
			name:        "new campus user",
			id:          model.Identity{UserID: "u1", Email: "Asha@Campus.edu", DisplayName: "Asha"},
			wantCreated: true,
		},
		{
			name: "same user again",
			id:   model.Identity{UserID: "u1", Email: "asha@campus.edu", DisplayName: "Asha"},
		},
		{
			name:        "subdomain",
			id:          model.Identity{UserID: "u2", Email: "ravi@students.campus.edu"},
			wantCreated: true,
		},
		{
			name:    "outside domain",
			id:      model.Identity{UserID: "u3", Email: "eve@gmail.com"},
			wantErr: ErrEmailDomainNotAllowed,
		},
		{
			name:    "lookalike domain",
			id:      model.Identity{UserID: "u4", Email: "eve@notcampus.edu"},
			wantErr: ErrEmailDomainNotAllowed,
		},
		{
			name:    "no email",
			id:      model.Identity{UserID: "u5"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "email owned by another account",
			id:      model.Identity{UserID: "u6", Email: "asha@campus.edu"},
			wantErr: ErrEmailTaken,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user, created, err := svc.Register(ctx, tc.id)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if created != tc.wantCreated {
				t.Errorf("created = %v, want %v", created, tc.wantCreated)
			}
			if user.Entitlement != (model.Entitlement{}) {
				t.Errorf("new account entitlement = %+v", user.Entitlement)
			}
		})
	}

	user, err := svc.Get(ctx, "u2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if user.DisplayName != DefaultSellerName {
		t.Errorf("display name = %q, want default", user.DisplayName)
	}
	if _, err := svc.Get(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRegister_AnyDomainWhenUnrestricted(t *testing.T) {
	svc := NewAccountService(newMemStore(), nil, discardLogger())
	if _, created, err := svc.Register(context.Background(), model.Identity{UserID: "u1", Email: "a@b.org"}); err != nil || !created {
		t.Fatalf("Register() = %v, %v", created, err)
	}
}

func TestGrantNextListing(t *testing.T) {
	store := newMemStore()
	store.addUser("u1", model.Entitlement{HasUsedFreeListing: true, ListingsCount: 1})
	rec := metrics.NewInMemory()
	tracker := NewEntitlementTracker(store, 20, discardLogger(), rec)
	ctx := context.Background()

	if err := tracker.CheckQuota(ctx, "u1"); !errors.Is(err, ErrQuotaDenied) {
		t.Fatalf("expected ErrQuotaDenied, got %v", err)
	}

	for i := 0; i < 2; i++ {
		user, err := tracker.GrantNextListing(ctx, "u1")
		if err != nil {
			t.Fatalf("GrantNextListing #%d failed: %v", i+1, err)
		}
		if !user.Entitlement.CanListNext {
			t.Errorf("grant #%d: can_list_next not set", i+1)
		}
	}

	if err := tracker.CheckQuota(ctx, "u1"); err != nil {
		t.Errorf("CheckQuota after grant: %v", err)
	}
	if rec.Snapshot().Grants != 2 {
		t.Errorf("grants = %d, want 2", rec.Snapshot().Grants)
	}

	payments, _ := NewAccountService(store, nil, discardLogger()).Payments(ctx, "u1", 0)
	if len(payments) != 2 || payments[0].Amount != 20 || payments[0].Type != model.PaymentTypeListing {
		t.Errorf("unexpected receipts: %+v", payments)
	}

	if _, err := tracker.GrantNextListing(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if err := tracker.CheckQuota(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		in      any
		want    float64
		wantErr bool
	}{
		{in: 12.5, want: 12.5},
		{in: "  99 ", want: 99},
		{in: "10.006", want: 10.01},
		{in: 7, want: 7},
		{in: "0.001", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "1e12", wantErr: true},
		{in: true, wantErr: true},
		{in: "", wantErr: true},
		{in: nil, wantErr: true},
	}

	for _, tc := range testCases {
		got, err := ParsePrice(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParsePrice(%v) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParsePrice(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
