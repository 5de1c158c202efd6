package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChain(t *testing.T) {
	store := NewMemoryAPIKeyStore(&APIKeyInfo{ID: "k", KeyHash: HashAPIKey("key"), Principal: "svc"})
	jwtAuth, err := NewJWTAuthenticator(JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatal(err)
	}
	chain := NewChain(jwtAuth, nil, NewAPIKeyAuthenticator(APIKeyConfig{}, store))
	if len(chain) != 2 {
		t.Fatalf("len(chain) = %d, want 2", len(chain))
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer garbage")
	h.Set("X-API-Key", "key")
	result, err := chain.Authenticate(context.Background(), &AuthRequest{Header: h})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Authenticated || result.Identity.Principal != "svc" {
		t.Errorf("result = %+v, want api key success after jwt rejection", result)
	}

	result, err = chain.Authenticate(context.Background(), &AuthRequest{Header: http.Header{}})
	if err != nil {
		t.Fatal(err)
	}
	if result.Authenticated || result.Error != ErrMissingCredentials {
		t.Errorf("result = %+v, want ErrMissingCredentials", result)
	}
}

func TestMiddleware(t *testing.T) {
	store := NewMemoryAPIKeyStore(&APIKeyInfo{KeyHash: HashAPIKey("key"), Principal: "ops", Roles: []string{"operator"}})
	mw := Middleware(NewAPIKeyAuthenticator(APIKeyConfig{}, store), nil)

	var gotID *Identity
	var privileged, operator, admin bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = IdentityFromContext(r.Context())
		privileged = Privileged(r.Context(), "")
		operator = Privileged(r.Context(), "operator")
		admin = Privileged(r.Context(), "admin")
	}))

	tests := []struct {
		name     string
		key      string
		wantAuth bool
	}{
		{"valid key", "key", true},
		{"bad key", "nope", false},
		{"anonymous", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if (gotID != nil) != tt.wantAuth {
				t.Errorf("identity = %+v, wantAuth %v", gotID, tt.wantAuth)
			}
			if privileged != tt.wantAuth || operator != tt.wantAuth || admin {
				t.Errorf("privileged=%v operator=%v admin=%v", privileged, operator, admin)
			}
		})
	}
}

func TestMiddleware_NilAuthenticator(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	if got := Middleware(nil, nil)(next); got == nil {
		t.Fatal("Middleware(nil) returned nil handler")
	}
}
