package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "password123"

// testEnv is a fully wired server over in-memory SQLite and, optionally, miniredis.
type testEnv struct {
	t   *testing.T
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
	rdb *redis.Client
}

type envOption func(*config.Config)

func withFlags(flags string) envOption {
	return func(c *config.Config) { c.FeatureFlags = flags }
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret-key-12345678901234567890123456789012",
		JWTIssuer:        "skillswap-api",
		JWTAudience:      "skillswap-client",
		Port:             "0",
		Env:              "test",
		AllowedOrigins:   "http://localhost:5173",
		FeatureFlags:     "custom_skills=on,photo_upload=on",
		PhotoMaxUploadMB: 1,
		NotifyQueueSize:  64,
	}
}

func newTestEnv(t *testing.T, withRedis bool, opts ...envOption) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:server_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	env := &testEnv{t: t, db: db}
	if withRedis {
		env.mr = miniredis.RunT(t)
		env.rdb = redis.NewClient(&redis.Options{Addr: env.mr.Addr()})
	}

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	env.srv, err = NewServerWithDeps(cfg, db, env.rdb, store)
	require.NoError(t, err)
	env.app = env.srv.NewApp()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.srv.Shutdown(ctx)
	})
	return env
}

// apiResponse mirrors models.Response with data left raw for typed decoding.
type apiResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Data    json.RawMessage     `json:"data"`
	Errors  []models.FieldError `json:"errors"`
}

func (r apiResponse) decode(t *testing.T, dest interface{}) {
	t.Helper()
	require.NotEmpty(t, r.Data, "response has no data")
	require.NoError(t, json.Unmarshal(r.Data, dest))
}

func (e *testEnv) do(method, path string, body interface{}, token string) (int, apiResponse) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 {
		require.NoError(e.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) token(userID uint) string {
	e.t.Helper()
	tok, err := middleware.IssueToken(e.srv.tokens, userID, uuid.NewString(), time.Now())
	require.NoError(e.t, err)
	return tok
}

var testPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// member inserts a public, available user directly.
func (e *testEnv) member(first, last string, overrides ...func(*models.User)) *models.User {
	e.t.Helper()
	u := &models.User{
		Email:       fmt.Sprintf("%s.%s@example.com", first, last),
		Password:    testPasswordHash,
		FirstName:   first,
		LastName:    last,
		Location:    "Austin, TX",
		IsAvailable: true,
	}
	for _, o := range overrides {
		o(u)
	}
	require.NoError(e.t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) skill(name, category string) *models.Skill {
	e.t.Helper()
	s := &models.Skill{Name: name, Category: category}
	require.NoError(e.t, e.db.Create(s).Error)
	return s
}

func (e *testEnv) link(user *models.User, skill *models.Skill, kind models.SkillType) {
	e.t.Helper()
	us := &models.UserSkill{UserID: user.ID, SkillID: skill.ID, SkillType: kind, Level: 3}
	require.NoError(e.t, e.db.Omit("Skill").Create(us).Error)
}

// barterPair sets up the JavaScript-for-Photography scenario: alice offers
// JavaScript and wants Photography, bob offers Photography.
type barterPair struct {
	alice, bob        *models.User
	javascript, photo *models.Skill
}

func (e *testEnv) barterPair() barterPair {
	e.t.Helper()
	p := barterPair{
		alice:      e.member("alice", "doe"),
		bob:        e.member("bob", "smith"),
		javascript: e.skill("JavaScript", "Programming"),
		photo:      e.skill("Photography", "Creative"),
	}
	e.link(p.alice, p.javascript, models.SkillOffered)
	e.link(p.alice, p.photo, models.SkillWanted)
	e.link(p.bob, p.photo, models.SkillOffered)
	return p
}

func (p barterPair) request() map[string]interface{} {
	return map[string]interface{}{
		"receiverId":       p.bob.ID,
		"offeredSkillId":   p.javascript.ID,
		"requestedSkillId": p.photo.ID,
		"message":          "Trade JavaScript lessons for photography?",
	}
}
