package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warimas-orderflow/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(storefrontURL string) *config.Config {
	return &config.Config{
		AppPort:            "8080",
		AppEnv:             "test",
		StorefrontBaseURL:  storefrontURL,
		StorefrontTimeout:  time.Second,
		JWTSecret:          "test-secret",
		PaymentRedirectURL: "https://pay.local/checkout",
	}
}

func testToken(t *testing.T, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u-1",
		"role":    "USER",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestNewServer(t *testing.T) {
	storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/cart/me" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sellers":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer storefront.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(storefront.URL)
	srv, err := newServer(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", srv.Addr)

	t.Run("Health Check", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Status     string `json:"status"`
			Storefront struct {
				Breaker string `json:"breaker"`
			} `json:"storefront"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "closed", body.Storefront.Breaker)
	})

	t.Run("Cart requires a user", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cart/", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Cart loads from the storefront", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart/", nil)
		req.Header.Set("Authorization", "Bearer "+testToken(t, cfg.JWTSecret))
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"count":0`)
	})

	t.Run("GraphQL cart query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"{ cart { count groups { merchantId } } }"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+testToken(t, cfg.JWTSecret))
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"data":{"cart":{"count":0,"groups":[]}}}`, rr.Body.String())
	})

	t.Run("GraphQL refuses anonymous fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"{ cart { count } }"}`))
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"code":"UNAUTHORIZED"`)
		assert.Contains(t, rr.Body.String(), `"data":null`)
	})

	t.Run("Playground", func(t *testing.T) {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/playground", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	})
}

func TestNewServer_PostgresLedger(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	srv, err := newServer(context.Background(), testConfig("http://storefront.local"), db)
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler)
}

func TestNewServer_InvalidConfig(t *testing.T) {
	t.Run("Storefront URL", func(t *testing.T) {
		_, err := newServer(context.Background(), testConfig("not a url"), nil)
		assert.Error(t, err)
	})

	t.Run("Payment redirect", func(t *testing.T) {
		cfg := testConfig("http://storefront.local")
		cfg.PaymentRedirectURL = "/relative"

		_, err := newServer(context.Background(), cfg, nil)
		assert.Error(t, err)
	})
}
