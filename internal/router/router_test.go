package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/service"
)

const testSecret = "router-test-secret-that-is-long-enough"

var userCols = []string{"id", "name", "email", "role", "photo", "password_hash",
	"password_changed_at", "password_reset_token", "password_reset_expires", "active", "created_at"}

type app struct {
	e    *echo.Echo
	mock sqlmock.Sqlmock
	auth *service.AuthService
	mail *queue.MailLog
}

func newApp(t *testing.T, rdb *redis.Client) *app {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailLog := queue.NewMailLog(t.TempDir())
	users := repository.NewUserRepo(db)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)
	reviewSvc := service.NewReviewService(reviews, tours, users, logger)
	auth := service.NewAuthService(users, queue.NewMailer(mailLog, "test@natours.io", "http://localhost:3000"),
		testSecret, time.Hour, bcrypt.MinCost, logger)

	rl := config.RateLimitConfig{
		Enabled: true, Capacity: 100, RefillTokens: 100,
		RefillInterval: time.Hour, TTL: 2 * time.Hour,
		KeyStrategy: "ip", Prefix: "test:rl",
	}
	cache := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: time.Minute, KeyStrategy: "route_query", Prefix: "test:cache", MaxBodyBytes: 1 << 20,
	}
	e := New(Deps{
		Cfg: &config.Config{
			Env: "production", CORSOrigin: "*", BodyLimit: "10K", JWTCookieDays: 90,
		},
		RateLimit: rl,
		Cache:     cache,
		Auth:      auth,
		Users:     service.NewUserService(users, reviewSvc),
		Tours:     service.NewTourService(tours, reviews, users, logger),
		Reviews:   reviewSvc,
		DB:        db,
		Redis:     rdb,
		Logger:    logger,
	})
	return &app{e: e, mock: mock, auth: auth, mail: mailLog}
}

func (a *app) do(method, target, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) expectUser(id int64, role string) {
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	a.mock.ExpectQuery(`SELECT id, name, email, role, photo, .* FROM users WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id, "Leo Gillespie", "leo@example.com", role, "default.jpg", "hash", nil, nil, nil, true, created))
}

func (a *app) token(t *testing.T, id uint64) string {
	t.Helper()
	tok, err := a.auth.SignToken(id)
	require.NoError(t, err)
	return tok.Token
}

func TestHealthz(t *testing.T) {
	a := newApp(t, nil)
	a.mock.ExpectPing()
	rec := a.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t, nil)
	for _, target := range []string{"/api/v1/nowhere", "/elsewhere"} {
		rec := a.do(http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.JSONEq(t, `{"status":"fail","message":"Can't find `+target+` on this server!"}`, rec.Body.String())
	}
}

func TestMeRequiresSession(t *testing.T) {
	a := newApp(t, nil)
	rec := a.do(http.MethodGet, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"fail","message":"You are not logged in! Please log in to get access"}`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/v1/users/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"fail","message":"Token is invalid or expired"}`, rec.Body.String())
}

func TestMeWithToken(t *testing.T) {
	a := newApp(t, nil)
	tok := a.token(t, 3)
	a.expectUser(3, "user")
	a.expectUser(3, "user")

	rec := a.do(http.MethodGet, "/api/v1/users/me", "", tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Status string `json:"status"`
		Data   struct {
			User map[string]any `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "leo@example.com", body.Data.User["email"])
	assert.NotContains(t, rec.Body.String(), "hash")
}

func TestAdminRoutesNeedAdmin(t *testing.T) {
	a := newApp(t, nil)
	a.expectUser(3, "user")

	rec := a.do(http.MethodGet, "/api/v1/users", "", a.token(t, 3))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"status":"fail","message":"You do not have permission to perform this action"}`, rec.Body.String())
}

func TestSignUp(t *testing.T) {
	a := newApp(t, nil)

	rec := a.do(http.MethodPost, "/api/v1/users/signup",
		`{"name":"Eve","email":"eve@example.com","password":"pass1234","passwordConfirm":"pass1234","role":"admin"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	a.mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(7, 1))
	rec = a.do(http.MethodPost, "/api/v1/users/signup",
		`{"name":"Eve","email":"Eve@Example.com","password":"pass1234","passwordConfirm":"pass1234"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Token string `json:"token"`
		Data  struct {
			User map[string]any `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, float64(7), body.Data.User["id"])
	assert.Equal(t, "eve@example.com", body.Data.User["email"])
	assert.Equal(t, "user", body.Data.User["role"])

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "jwt" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, body.Token, cookie.Value)
	assert.True(t, cookie.Secure)
}

func TestRateLimitHeadersOnAPI(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	a := newApp(t, rdb)

	rec := a.do(http.MethodGet, "/api/v1/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))

	a.mock.ExpectPing()
	rec = a.do(http.MethodGet, "/healthz", "", "")
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestAdminDeleteUserRecomputesRatingsAndPurges(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	a := newApp(t, rdb)
	require.NoError(t, mr.Set("test:cache:GET:/api/v1/tours/tour-stats", `{"status":"success"}`))

	a.expectUser(1, "admin")
	a.mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT tour_id FROM reviews WHERE user_id = ?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"tour_id"}).AddRow(4))
	a.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = ?")).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	a.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews WHERE tour_id = ?")).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(2, "3.5"))
	a.mock.ExpectExec(regexp.QuoteMeta("UPDATE tours SET ratings_quantity = ?, ratings_average = ? WHERE id = ?")).
		WithArgs(2, 3.5, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := a.do(http.MethodDelete, "/api/v1/users/9", "", a.token(t, 1))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.False(t, mr.Exists("test:cache:GET:/api/v1/tours/tour-stats"))
}

