package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const testIssuer = "https://idp.example.com"

type testKeys struct {
	private jwk.Key
	set     jwk.Set
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	private, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("Failed to wrap key: %v", err)
	}
	_ = private.Set(jwk.KeyIDKey, "test-key")
	_ = private.Set(jwk.AlgorithmKey, jwa.RS256)

	public, err := private.PublicKey()
	if err != nil {
		t.Fatalf("Failed to derive public key: %v", err)
	}
	_ = public.Set(jwk.KeyIDKey, "test-key")
	_ = public.Set(jwk.AlgorithmKey, jwa.RS256)

	set := jwk.NewSet()
	if err := set.AddKey(public); err != nil {
		t.Fatalf("Failed to build set: %v", err)
	}
	return testKeys{private: private, set: set}
}

func (k testKeys) sign(t *testing.T, issuer, subject string, exp time.Time) string {
	t.Helper()

	tok := jwt.New()
	_ = tok.Set(jwt.IssuerKey, issuer)
	_ = tok.Set(jwt.SubjectKey, subject)
	_ = tok.Set(jwt.ExpirationKey, exp)
	_ = tok.Set(jwt.IssuedAtKey, time.Now().Add(-time.Minute))
	_ = tok.Set("email", "person@example.com")
	_ = tok.Set("name", "Test Person")

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, k.private))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return string(signed)
}

type staticKeys struct{ set jwk.Set }

func (s staticKeys) GetJWKS(context.Context, string) (jwk.Set, error) { return s.set, nil }

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	other := newTestKeys(t)
	verifier := NewVerifier(staticKeys{set: keys.set}, testIssuer, "unused")

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: keys.sign(t, testIssuer, "user-1", time.Now().Add(time.Hour))},
		{name: "expired", token: keys.sign(t, testIssuer, "user-1", time.Now().Add(-time.Hour)), wantErr: true},
		{name: "wrong issuer", token: keys.sign(t, "https://evil.example.com", "user-1", time.Now().Add(time.Hour)), wantErr: true},
		{name: "unknown key", token: other.sign(t, testIssuer, "user-1", time.Now().Add(time.Hour)), wantErr: true},
		{name: "missing subject", token: keys.sign(t, testIssuer, "", time.Now().Add(time.Hour)), wantErr: true},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := verifier.Verify(context.Background(), tt.token)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got claims %+v", claims)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if claims.Sub != "user-1" || claims.Email != "person@example.com" || claims.Name != "Test Person" {
				t.Errorf("Unexpected claims %+v", claims)
			}
		})
	}
}

func TestJWKSManager_CachesUntilExpiry(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	body, err := json.Marshal(keys.set)
	if err != nil {
		t.Fatalf("Failed to marshal set: %v", err)
	}

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := NewJWKSManagerWithClient(server.Client(), time.Minute)
	manager.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		set, err := manager.GetJWKS(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("GetJWKS failed: %v", err)
		}
		if set.Len() != 1 {
			t.Fatalf("Expected 1 key, got %d", set.Len())
		}
	}
	if hits.Load() != 1 {
		t.Errorf("Expected 1 fetch, got %d", hits.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := manager.GetJWKS(context.Background(), server.URL); err != nil {
		t.Fatalf("GetJWKS after expiry failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("Expected refetch after expiry, got %d fetches", hits.Load())
	}
}

func TestJWKSManager_ErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	manager := NewJWKSManagerWithClient(server.Client(), time.Minute)
	if _, err := manager.GetJWKS(context.Background(), server.URL); err == nil {
		t.Error("Expected error for failing endpoint")
	}
}

func TestDefaultJWKSURL(t *testing.T) {
	t.Parallel()

	if got := DefaultJWKSURL("https://idp.example.com"); got != "https://idp.example.com/.well-known/jwks.json" {
		t.Errorf("Unexpected URL %s", got)
	}
	if got := DefaultJWKSURL("https://idp.example.com/"); got != "https://idp.example.com/.well-known/jwks.json" {
		t.Errorf("Unexpected URL %s", got)
	}
}
