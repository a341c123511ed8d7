package iam

import (
	"testing"
	"time"
)

func testUser() User {
	return User{
		ID:   "u-1",
		Name: "alice",
		Roles: []Role{
			{ID: "r-1", Name: "editor", Scopes: []Scope{
				{ID: "s-1", Name: "docs:read"},
				{ID: "s-2", Name: "docs:write"},
			}},
		},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	raw, err := signToken(testUser(), testSignKey, 5*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}

	claims, err := parseToken(raw, testSignKey)
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}

	if claims.Issuer != TokenIssuer {
		t.Errorf("issuer = %q, want %q", claims.Issuer, TokenIssuer)
	}
	if claims.Subject != "u-1" {
		t.Errorf("subject = %q, want u-1", claims.Subject)
	}
	if claims.Name != "alice" {
		t.Errorf("name = %q, want alice", claims.Name)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "editor" {
		t.Errorf("roles = %v, want [editor]", claims.Roles)
	}
	if len(claims.Scopes) != 2 {
		t.Errorf("scopes = %v, want two entries", claims.Scopes)
	}
}

func TestParseTokenWrongKey(t *testing.T) {
	raw, err := signToken(testUser(), testSignKey, 5*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}

	if _, err := parseToken(raw, []byte("a different key")); err == nil {
		t.Error("token signed with another key parsed successfully")
	}
}

func TestParseTokenExpired(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	raw, err := signToken(testUser(), testSignKey, time.Minute, issued)
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}

	if _, err := parseToken(raw, testSignKey); err == nil {
		t.Error("expired token parsed successfully")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := parseToken("not.a.token", testSignKey); err == nil {
		t.Error("garbage token parsed successfully")
	}
}
