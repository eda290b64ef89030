package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tokenforge/auth-service/internal/adapters/db/postgres"
	jwtImpl "github.com/tokenforge/auth-service/internal/app/auth/jwt"
	"github.com/tokenforge/auth-service/internal/app/auth/keys"
	"github.com/tokenforge/auth-service/internal/app/auth/password"
	"github.com/tokenforge/auth-service/internal/app/auth/service"
	"github.com/tokenforge/auth-service/internal/domain/auth/model"
	"github.com/tokenforge/auth-service/internal/infra/db"
	"github.com/tokenforge/auth-service/internal/infra/health"
	"github.com/tokenforge/auth-service/internal/infra/metrics"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *postgres.RefreshTokenRepo
	util   *jwtImpl.JwtUtilImpl
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithKeys(t, func(priv *rsa.PrivateKey) keys.Provider {
		return keys.NewStaticProvider(priv)
	})
}

func newTestServerWithKeys(t *testing.T, provider func(*rsa.PrivateKey) keys.Provider) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open("sqlite", filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	kp := provider(priv)

	util, err := jwtImpl.NewJWTUtil(kp, jwtImpl.Options{
		Issuer:        "auth-test",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		RefreshSecret: []byte("refresh-secret"),
	})
	require.NoError(t, err)

	hasher, err := password.New(password.Options{BcryptCost: bcrypt.MinCost, Concurrency: 4})
	require.NoError(t, err)

	tokens := postgres.NewRefreshTokenRepo(gdb)
	svc := service.New(service.Deps{
		Users:      postgres.NewPostgresUserRepo(gdb),
		Tokens:     tokens,
		JWT:        util,
		Hasher:     hasher,
		RefreshTTL: 24 * time.Hour,
	})

	checks := health.Checks{"database": func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
	h := NewHandler(svc, kp, CookieOptions{Domain: "localhost"}, checks, zap.NewNop())
	reg := prometheus.NewRegistry()
	router := NewRouter(h, util, metrics.NewHTTP(reg, reg), RouterConfig{}, zap.NewNop())

	return &testServer{router: router, db: gdb, tokens: tokens, util: util}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*stdhttp.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func cookieByName(t *testing.T, w *httptest.ResponseRecorder, name string) *stdhttp.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

var adaBody = map[string]string{
	"firstName": "Ada",
	"lastName":  "Lovelace",
	"email":     "ada@example.com",
	"password":  "analytical1",
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, stdhttp.MethodPost, "/auth/register", adaBody)
	require.Equal(t, stdhttp.StatusCreated, w.Code)

	var resp struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.ID)

	access := cookieByName(t, w, AccessTokenCookie)
	refresh := cookieByName(t, w, RefreshTokenCookie)
	for _, c := range []*stdhttp.Cookie{access, refresh} {
		require.NotEmpty(t, c.Value)
		require.True(t, c.HttpOnly)
		require.Equal(t, stdhttp.SameSiteStrictMode, c.SameSite)
	}
	require.InDelta(t, 3600, access.MaxAge, 1)

	var stored model.User
	require.NoError(t, s.db.First(&stored, resp.ID).Error)
	require.Equal(t, model.RoleCustomer, stored.Role)
	require.NotEqual(t, adaBody["password"], stored.PasswordHash)
	require.Len(t, stored.PasswordHash, 60)

	claims, err := s.util.ValidateRefreshToken(refresh.Value)
	require.NoError(t, err)
	jti, err := strconv.ParseUint(claims.ID, 10, 64)
	require.NoError(t, err)
	record, err := s.tokens.FindByID(context.Background(), uint(jti))
	require.NoError(t, err)
	require.Equal(t, resp.ID, record.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, stdhttp.StatusCreated, s.do(t, stdhttp.MethodPost, "/auth/register", adaBody).Code)

	dup := map[string]string{}
	for k, v := range adaBody {
		dup[k] = v
	}
	dup["email"] = " ADA@example.com  "
	w := s.do(t, stdhttp.MethodPost, "/auth/register", dup)
	require.Equal(t, stdhttp.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "DuplicateEmailError", resp.Errors[0].Type)

	var count int64
	require.NoError(t, s.db.Model(&model.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, stdhttp.MethodPost, "/auth/register", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "", "password": "analytical1",
	})
	require.Equal(t, stdhttp.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []ErrorItem{{Type: "ValidationError", Message: "Email is required", Path: "email", Location: "body"}}, resp.Errors)

	w = s.do(t, stdhttp.MethodPost, "/auth/register", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com", "password": "short",
	})
	require.Equal(t, stdhttp.StatusBadRequest, w.Code)
	require.Empty(t, w.Result().Cookies())
}

func TestLoginFailuresAreIdentical(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, stdhttp.StatusCreated, s.do(t, stdhttp.MethodPost, "/auth/register", adaBody).Code)

	wrongEmail := s.do(t, stdhttp.MethodPost, "/auth/login", map[string]string{"email": "eve@example.com", "password": "analytical1"})
	wrongPassword := s.do(t, stdhttp.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "analytical2"})

	require.Equal(t, stdhttp.StatusBadRequest, wrongEmail.Code)
	require.Equal(t, wrongEmail.Code, wrongPassword.Code)
	require.Equal(t, wrongEmail.Body.String(), wrongPassword.Body.String())
	require.Contains(t, wrongEmail.Body.String(), invalidCredentialsMessage)
}

func TestLoginAndSelf(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, stdhttp.StatusCreated, s.do(t, stdhttp.MethodPost, "/auth/register", adaBody).Code)

	w := s.do(t, stdhttp.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "analytical1"})
	require.Equal(t, stdhttp.StatusOK, w.Code)
	access := cookieByName(t, w, AccessTokenCookie)

	w = s.do(t, stdhttp.MethodGet, "/auth/self", nil, access)
	require.Equal(t, stdhttp.StatusOK, w.Code)

	var self map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &self))
	require.Equal(t, "ada@example.com", self["email"])
	require.Equal(t, "customer", self["role"])
	require.NotContains(t, self, "password")
	require.NotContains(t, self, "PasswordHash")

	req := httptest.NewRequest(stdhttp.MethodGet, "/auth/self", nil)
	req.Header.Set("Authorization", "Bearer "+access.Value)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
}

func TestSelfRejectsMissingOrWrongToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, stdhttp.MethodPost, "/auth/register", adaBody)
	refresh := cookieByName(t, w, RefreshTokenCookie)

	require.Equal(t, stdhttp.StatusUnauthorized, s.do(t, stdhttp.MethodGet, "/auth/self", nil).Code)

	// a refresh token must not pass as an access token
	w = s.do(t, stdhttp.MethodGet, "/auth/self", nil, &stdhttp.Cookie{Name: AccessTokenCookie, Value: refresh.Value})
	require.Equal(t, stdhttp.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "VerificationError")
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, stdhttp.MethodPost, "/auth/register", adaBody)
	oldRefresh := cookieByName(t, w, RefreshTokenCookie)

	w = s.do(t, stdhttp.MethodPost, "/auth/refresh", nil, oldRefresh)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	newRefresh := cookieByName(t, w, RefreshTokenCookie)
	require.NotEqual(t, oldRefresh.Value, newRefresh.Value)

	// rotated tokens cannot be replayed
	require.Equal(t, stdhttp.StatusUnauthorized, s.do(t, stdhttp.MethodPost, "/auth/refresh", nil, oldRefresh).Code)

	w = s.do(t, stdhttp.MethodPost, "/auth/logout", nil, newRefresh)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	require.Equal(t, -1, cookieByName(t, w, RefreshTokenCookie).MaxAge)

	require.Equal(t, stdhttp.StatusUnauthorized, s.do(t, stdhttp.MethodPost, "/auth/refresh", nil, newRefresh).Code)

	// refresh token in the body works for clients without cookies
	w = s.do(t, stdhttp.MethodPost, "/auth/login", map[string]string{"email": "ada@example.com", "password": "analytical1"})
	body := map[string]string{"refreshToken": cookieByName(t, w, RefreshTokenCookie).Value}
	require.Equal(t, stdhttp.StatusOK, s.do(t, stdhttp.MethodPost, "/auth/refresh", body).Code)
}

func TestJWKS(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, stdhttp.MethodGet, "/.well-known/jwks.json", nil)
	require.Equal(t, stdhttp.StatusOK, w.Code)

	var set keys.JWKSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	require.Len(t, set.Keys, 1)
	require.Equal(t, "RSA", set.Keys[0].Kty)
	require.Equal(t, "RS256", set.Keys[0].Alg)
	require.NotEmpty(t, set.Keys[0].Kid)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, stdhttp.MethodGet, "/health", nil)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"database":"up"`)

	w = s.do(t, stdhttp.MethodGet, "/metrics", nil)
	require.Equal(t, stdhttp.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "auth_http_requests_total")
}

func TestSelfWithUnavailableVerificationKey(t *testing.T) {
	// signing works, the public half is missing
	s := newTestServerWithKeys(t, func(priv *rsa.PrivateKey) keys.Provider {
		return &keys.StaticProvider{Private: priv}
	})

	w := s.do(t, stdhttp.MethodPost, "/auth/register", adaBody)
	require.Equal(t, stdhttp.StatusCreated, w.Code)
	access := cookieByName(t, w, AccessTokenCookie)

	w = s.do(t, stdhttp.MethodGet, "/auth/self", nil, access)
	require.Equal(t, stdhttp.StatusInternalServerError, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []ErrorItem{{Type: "KeyUnavailable", Message: "Signing key is unavailable"}}, resp.Errors)
}

func TestSelfMissingTokenPayload(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, stdhttp.MethodGet, "/auth/self", nil)
	require.Equal(t, stdhttp.StatusUnauthorized, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []ErrorItem{{Type: "VerificationError", Message: "Invalid or expired token"}}, resp.Errors)
}
