package model

import "testing"

func TestAuthContext_HasScope(t *testing.T) {
	testCases := []struct {
		name     string
		scopes   []string
		checkFor string
		want     bool
	}{
		{
			name:     "has scope",
			scopes:   []string{ScopeRead},
			checkFor: ScopeRead,
			want:     true,
		},
		{
			name:     "admin grants read",
			scopes:   []string{ScopeAdmin},
			checkFor: ScopeRead,
			want:     true,
		},
		{
			name:     "read does not grant admin",
			scopes:   []string{ScopeRead},
			checkFor: ScopeAdmin,
			want:     false,
		},
		{
			name:     "no scopes",
			scopes:   nil,
			checkFor: ScopeRead,
			want:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &AuthContext{Scopes: tc.scopes}
			if got := auth.HasScope(tc.checkFor); got != tc.want {
				t.Errorf("HasScope(%s) = %v, want %v", tc.checkFor, got, tc.want)
			}
		})
	}
}

func TestAreScopesValid(t *testing.T) {
	testCases := []struct {
		scopes []string
		want   bool
	}{
		{[]string{ScopeRead}, true},
		{[]string{ScopeRead, ScopeAdmin}, true},
		{[]string{"write"}, false},
		{nil, false},
	}

	for _, tc := range testCases {
		if got := AreScopesValid(tc.scopes); got != tc.want {
			t.Errorf("AreScopesValid(%v) = %v, want %v", tc.scopes, got, tc.want)
		}
	}
}
