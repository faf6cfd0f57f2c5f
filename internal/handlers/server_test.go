package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xcenweb/lextrade/internal/auth"
	"github.com/xcenweb/lextrade/internal/health"
	"github.com/xcenweb/lextrade/internal/logging"
	"github.com/xcenweb/lextrade/internal/notify"
	"github.com/xcenweb/lextrade/internal/prompt"
	"github.com/xcenweb/lextrade/internal/rate"
	"github.com/xcenweb/lextrade/internal/security"
	"github.com/xcenweb/lextrade/internal/session"
	"github.com/xcenweb/lextrade/internal/storage"
	"github.com/xcenweb/lextrade/internal/verification"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore backs the whole stack in memory for end-to-end handler tests.
// Write paths mirror the SQL semantics: conditional update for codes,
// one session row per user.
type memStore struct {
	mu sync.Mutex

	nextUserID int64
	users      map[string]*storage.User

	nextCodeID int64
	codes      []*storage.VerificationCode

	nextSessionID int64
	sessions      map[int64]*storage.SessionToken

	publicTags []storage.PublicTag
	tags       []storage.Tag
	prompts    []storage.Prompt
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*storage.User{},
		sessions: map[int64]*storage.SessionToken{},
	}
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok && !u.IsDeleted {
		cp := *u
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id && !u.IsDeleted {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[email]
	return ok, nil
}

func (m *memStore) CreateUser(_ context.Context, nickname, passwordHash, avatarURL, email string) (*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	u := &storage.User{
		ID:           m.nextUserID,
		Nickname:     nickname,
		PasswordHash: passwordHash,
		AvatarURL:    avatarURL,
		Email:        email,
		Status:       storage.UserStatusActive,
		CreatedAt:    time.Now(),
	}
	m.users[email] = u
	cp := *u
	return &cp, nil
}

func (m *memStore) UpdateLastLogin(_ context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == userID {
			t := at
			u.LastLoginAt = &t
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memStore) InsertVerificationCode(_ context.Context, target, purpose, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCodeID++
	m.codes = append(m.codes, &storage.VerificationCode{
		ID: m.nextCodeID, Target: target, Purpose: purpose, Code: code, ExpiresAt: expiresAt,
	})
	return nil
}

func (m *memStore) ConsumeVerificationCode(_ context.Context, target, code string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vc := range m.codes {
		if vc.Target == target && vc.Code == code && !vc.Used && vc.ExpiresAt.After(now) {
			vc.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SweepVerificationCodes(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*storage.VerificationCode
	var removed int64
	for _, vc := range m.codes {
		if vc.Used || !vc.ExpiresAt.After(now) {
			removed++
			continue
		}
		kept = append(kept, vc)
	}
	m.codes = kept
	return removed, nil
}

func (m *memStore) UpsertSessionToken(_ context.Context, t *storage.SessionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[t.UserID]; ok {
		t.ID = existing.ID
	} else {
		m.nextSessionID++
		t.ID = m.nextSessionID
	}
	cp := *t
	m.sessions[t.UserID] = &cp
	return nil
}

func (m *memStore) GetSessionByRefreshHash(_ context.Context, hash string) (*storage.SessionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.sessions {
		if t.RefreshHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) GetSessionByAccessHash(_ context.Context, hash string) (*storage.SessionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.sessions {
		if t.AccessHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) ReplaceAccessToken(_ context.Context, sessionID int64, accessHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.sessions {
		if t.ID == sessionID {
			t.AccessHash = accessHash
			t.AccessExpiresAt = expiresAt
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memStore) DeleteSessionByAccessHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, t := range m.sessions {
		if t.AccessHash == hash {
			delete(m.sessions, userID)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListPublicTags(_ context.Context) ([]storage.PublicTag, error) {
	return m.publicTags, nil
}

func (m *memStore) ListTags(_ context.Context, _ string, offset, limit int) ([]storage.Tag, int64, error) {
	total := int64(len(m.tags))
	if offset >= len(m.tags) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(m.tags) {
		end = len(m.tags)
	}
	return m.tags[offset:end], total, nil
}

func (m *memStore) ListRecommendedPrompts(_ context.Context, _ int64, offset, limit int) ([]storage.PromptSummary, error) {
	var out []storage.PromptSummary
	for _, p := range m.prompts {
		out = append(out, storage.PromptSummary{
			ID: p.ID, UserID: p.UserID, Type: p.Type, Title: p.Title,
			SummaryContent: p.SummaryContent, ViewCount: p.ViewCount,
		})
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *memStore) GetUsersByIDs(_ context.Context, ids []int64) (map[int64]*storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]*storage.User{}
	for _, u := range m.users {
		for _, id := range ids {
			if u.ID == id {
				cp := *u
				out[id] = &cp
			}
		}
	}
	return out, nil
}

func (m *memStore) GetPrompt(_ context.Context, promptID int64) (*storage.Prompt, error) {
	for i := range m.prompts {
		if m.prompts[i].ID == promptID {
			cp := m.prompts[i]
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) IncrementPromptViews(_ context.Context, promptID int64) error {
	for i := range m.prompts {
		if m.prompts[i].ID == promptID {
			m.prompts[i].ViewCount++
		}
	}
	return nil
}

type testEnv struct {
	server *Server
	router *gin.Engine
	store  *memStore
	sink   *notify.CaptureSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	sink := &notify.CaptureSink{}
	logger := logging.NewNop()

	codes := verification.NewService(store, sink, logger, 10*time.Minute)
	issuer := session.NewIssuer(store, 7*24*time.Hour, 60*24*time.Hour)
	authSvc := auth.NewService(store, codes, issuer, logger)
	authSvc.Argon2 = security.Argon2Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	srv := &Server{
		Auth:     authSvc,
		Codes:    codes,
		Prompts:  prompt.NewService(store, logger),
		Sessions: issuer,
		Limiter:  rate.NewMemory(100, time.Minute),
		Health:   health.NewManager(true),
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	}
	return &testEnv{server: srv, router: srv.Router(), store: store, sink: sink}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope from %q: %v", w.Body.String(), err)
	}
	return w, env
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

type loginPayload struct {
	User struct {
		ID        int64  `json:"id"`
		Nickname  string `json:"nickname"`
		Email     string `json:"email"`
		Points    int    `json:"points"`
		Level     int    `json:"level"`
		LastLogin int64  `json:"last_login_at"`
	} `json:"user"`
	Token tokenPayload `json:"tokens"`
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

// Full account lifecycle through the HTTP surface: request a code, register
// with it, log out, and confirm the whole pair died.
func TestRegisterLifecycle(t *testing.T) {
	env := newTestEnv(t)
	before := time.Now()

	w, _ := env.do(t, http.MethodPost, "/verification/email/send",
		gin.H{"target": "alice@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("send code: status %d body %s", w.Code, w.Body.String())
	}

	dispatch, ok := env.sink.Last()
	if !ok {
		t.Fatalf("expected a dispatched code")
	}
	if dispatch.Addr != "alice@example.com" || len(dispatch.Code) != 6 {
		t.Fatalf("unexpected dispatch: %+v", dispatch)
	}

	w, resp := env.do(t, http.MethodPost, "/user/auth/register/vcode", gin.H{
		"nickname": "alice",
		"password": "hunter22",
		"target":   "alice@example.com",
		"vcode":    dispatch.Code,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}

	var login loginPayload
	decodeData(t, resp, &login)
	if login.User.Nickname != "alice" || login.User.Points != 0 || login.User.Level != 0 {
		t.Fatalf("unexpected user view: %+v", login.User)
	}
	if login.User.LastLogin == 0 {
		t.Fatalf("expected last_login_at set by register login")
	}
	wantExpiry := before.Add(7 * 24 * time.Hour).Unix()
	if delta := login.Token.ExpiresAt - wantExpiry; delta < 0 || delta > 5 {
		t.Fatalf("expected expires_at near now+7d, got %d want ~%d", login.Token.ExpiresAt, wantExpiry)
	}

	w, _ = env.do(t, http.MethodPost, "/user/auth/logout", nil, bearer(login.Token.AccessToken))
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d body %s", w.Code, w.Body.String())
	}

	// the refresh token shares the revoked row
	w, resp = env.do(t, http.MethodPost, "/user/auth/refresh",
		gin.H{"refresh_token": login.Token.RefreshToken}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("refresh after logout: status %d body %s", w.Code, w.Body.String())
	}
	if kind := errorKind(t, resp); kind != "REFRESH_INVALID" {
		t.Fatalf("expected REFRESH_INVALID, got %q", kind)
	}
}

func errorKind(t *testing.T, env envelope) string {
	t.Helper()
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected error data object, got %#v", env.Data)
	}
	kind, _ := data["kind"].(string)
	return kind
}

func TestRegisterCodeSingleUse(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/verification/email/send", gin.H{"target": "bob@example.com"}, nil)
	dispatch, _ := env.sink.Last()

	w, _ := env.do(t, http.MethodPost, "/user/auth/register/vcode", gin.H{
		"nickname": "bob", "password": "hunter22",
		"target": "bob@example.com", "vcode": dispatch.Code,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register: status %d", w.Code)
	}

	// same code again: spent, and the email is taken anyway
	w, resp := env.do(t, http.MethodPost, "/user/auth/register/vcode", gin.H{
		"nickname": "bob2", "password": "hunter22",
		"target": "bob@example.com", "vcode": dispatch.Code,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("replayed register: status %d", w.Code)
	}
	if kind := errorKind(t, resp); kind != "CODE_INVALID_OR_EXPIRED" {
		t.Fatalf("expected CODE_INVALID_OR_EXPIRED, got %q", kind)
	}
}

func registerUser(t *testing.T, env *testEnv, email, password string) loginPayload {
	t.Helper()
	env.do(t, http.MethodPost, "/verification/email/send", gin.H{"target": email}, nil)
	dispatch, ok := env.sink.Last()
	if !ok {
		t.Fatalf("no code dispatched for %s", email)
	}
	w, resp := env.do(t, http.MethodPost, "/user/auth/register/vcode", gin.H{
		"nickname": "tester", "password": password,
		"target": email, "vcode": dispatch.Code,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: status %d body %s", email, w.Code, w.Body.String())
	}
	var login loginPayload
	decodeData(t, resp, &login)
	return login
}

// Clients key into the payload by name, so the shape is pinned literally:
// the account view under "user", the pair under "tokens".
func TestLoginPayloadShape(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "keys@example.com", "hunter22")

	_, resp := env.do(t, http.MethodPost, "/user/auth/login/psw",
		gin.H{"target": "keys@example.com", "password": "hunter22"}, nil)

	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", resp.Data)
	}
	if _, ok := data["user"]; !ok {
		t.Fatalf("expected account view under \"user\", got keys %v", mapKeys(data))
	}
	pair, ok := data["tokens"].(map[string]any)
	if !ok {
		t.Fatalf("expected pair under \"tokens\", got keys %v", mapKeys(data))
	}
	for _, field := range []string{"access_token", "refresh_token", "expires_at"} {
		if _, ok := pair[field]; !ok {
			t.Fatalf("expected %q in tokens payload, got %v", field, mapKeys(pair))
		}
	}
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestLoginWithPasswordEndpoint(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "carol@example.com", "hunter22")

	w, resp := env.do(t, http.MethodPost, "/user/auth/login/psw",
		gin.H{"target": "carol@example.com", "password": "hunter22"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}
	var login loginPayload
	decodeData(t, resp, &login)
	if login.Token.AccessToken == "" {
		t.Fatalf("expected tokens, got %+v", login)
	}

	w, resp = env.do(t, http.MethodPost, "/user/auth/login/psw",
		gin.H{"target": "carol@example.com", "password": "wrong-password"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad login: status %d", w.Code)
	}
	if kind := errorKind(t, resp); kind != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %q", kind)
	}
}

func TestLoginWithCodeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env, "dave@example.com", "hunter22")

	env.do(t, http.MethodPost, "/verification/email/send", gin.H{"target": "dave@example.com"}, nil)
	dispatch, _ := env.sink.Last()

	w, _ := env.do(t, http.MethodPost, "/user/auth/login/vcode",
		gin.H{"target": "dave@example.com", "vcode": dispatch.Code}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login by code: status %d body %s", w.Code, w.Body.String())
	}

	// unregistered account is told so: mailbox control was already proven
	env.do(t, http.MethodPost, "/verification/email/send", gin.H{"target": "ghost@example.com"}, nil)
	dispatch, _ = env.sink.Last()
	w, resp := env.do(t, http.MethodPost, "/user/auth/login/vcode",
		gin.H{"target": "ghost@example.com", "vcode": dispatch.Code}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("ghost login: status %d", w.Code)
	}
	if kind := errorKind(t, resp); kind != "ACCOUNT_NOT_FOUND" {
		t.Fatalf("expected ACCOUNT_NOT_FOUND, got %q", kind)
	}
}

func TestSecondLoginReplacesSession(t *testing.T) {
	env := newTestEnv(t)
	first := registerUser(t, env, "erin@example.com", "hunter22")

	w, resp := env.do(t, http.MethodPost, "/user/auth/login/psw",
		gin.H{"target": "erin@example.com", "password": "hunter22"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second login: status %d", w.Code)
	}
	var second loginPayload
	decodeData(t, resp, &second)

	// the first device's pair is dead
	w, _ = env.do(t, http.MethodPost, "/user/auth/logout", nil, bearer(first.Token.AccessToken))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected first pair revoked, got status %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/user/auth/logout", nil, bearer(second.Token.AccessToken))
	if w.Code != http.StatusOK {
		t.Fatalf("second pair logout: status %d", w.Code)
	}
}

func TestRefreshEndpointKeepsRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	login := registerUser(t, env, "frank@example.com", "hunter22")

	w, resp := env.do(t, http.MethodPost, "/user/auth/refresh",
		gin.H{"refresh_token": login.Token.RefreshToken}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", w.Code, w.Body.String())
	}
	var refreshed loginPayload
	decodeData(t, resp, &refreshed)
	if refreshed.Token.RefreshToken != login.Token.RefreshToken {
		t.Fatalf("refresh token must not rotate")
	}
	if refreshed.Token.AccessToken == login.Token.AccessToken {
		t.Fatalf("expected a new access token")
	}
	if refreshed.User.Email != "frank@example.com" {
		t.Fatalf("expected account view with pair, got %+v", refreshed.User)
	}

	// the old access token was replaced on the row
	w, _ = env.do(t, http.MethodPost, "/user/auth/logout", nil, bearer(login.Token.AccessToken))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected old access token dead, got status %d", w.Code)
	}
}

func TestMalformedBodyIs422(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, http.MethodPost, "/verification/email/send", gin.H{}, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing target, got %d", w.Code)
	}
}

func TestSendCodeRateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.server.Limiter = rate.NewMemory(2, time.Minute)
	env.router = env.server.Router()

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodPost, "/verification/email/send",
			gin.H{"target": fmt.Sprintf("u%d@example.com", i)}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
	w, _ := env.do(t, http.MethodPost, "/verification/email/send",
		gin.H{"target": "u3@example.com"}, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestUserInfoEndpoint(t *testing.T) {
	env := newTestEnv(t)
	login := registerUser(t, env, "grace@example.com", "hunter22")

	w, resp := env.do(t, http.MethodGet, fmt.Sprintf("/user/info/%d", login.User.ID), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("user info: status %d", w.Code)
	}
	data := resp.Data.(map[string]any)
	if data["nickname"] != "tester" {
		t.Fatalf("unexpected profile: %#v", data)
	}
	if _, hasEmail := data["email"]; hasEmail {
		t.Fatalf("public profile must not expose email")
	}

	w, resp = env.do(t, http.MethodGet, "/user/info/9999", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing user: status %d", w.Code)
	}
	if kind := errorKind(t, resp); kind != "ACCOUNT_NOT_FOUND" {
		t.Fatalf("expected ACCOUNT_NOT_FOUND, got %q", kind)
	}
}

func TestPromptEndpoints(t *testing.T) {
	env := newTestEnv(t)
	login := registerUser(t, env, "henry@example.com", "hunter22")

	env.store.publicTags = []storage.PublicTag{{ID: 1, Name: "featured", ClickCount: 10}}
	env.store.tags = []storage.Tag{{ID: 1, Name: "featured"}, {ID: 2, Name: "coding"}}
	env.store.prompts = []storage.Prompt{{
		ID: 100, UserID: login.User.ID, Type: "article",
		Title: "Hello", SummaryContent: "sum", Content: "body",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}}

	w, resp := env.do(t, http.MethodGet, "/prompt/public/tag", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("public tags: status %d", w.Code)
	}
	if tags := resp.Data.([]any); len(tags) != 1 {
		t.Fatalf("expected 1 public tag, got %#v", resp.Data)
	}

	w, resp = env.do(t, http.MethodGet, "/prompt/tag/list?page=1&page_size=1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tag list: status %d", w.Code)
	}
	page := resp.Data.(map[string]any)
	if page["total"].(float64) != 2 || page["pages"].(float64) != 2 {
		t.Fatalf("unexpected page: %#v", page)
	}

	w, resp = env.do(t, http.MethodGet, "/prompt/recommend", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("recommend: status %d", w.Code)
	}
	entries := resp.Data.([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %#v", resp.Data)
	}
	author := entries[0].(map[string]any)["author"].(map[string]any)
	if author["nickname"] != "tester" {
		t.Fatalf("expected author resolved, got %#v", author)
	}

	w, resp = env.do(t, http.MethodGet, "/prompt/content?prompt_id=100", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("content: status %d", w.Code)
	}
	body := resp.Data.(map[string]any)
	if body["content"] != "body" || body["view_count"].(float64) != 1 {
		t.Fatalf("unexpected content: %#v", body)
	}
}

func TestScaffoldedRoutesRespond(t *testing.T) {
	env := newTestEnv(t)
	login := registerUser(t, env, "iris@example.com", "hunter22")

	// unauthenticated article add is rejected before the stub
	w, _ := env.do(t, http.MethodPost, "/prompt/article/add", gin.H{}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w, _ = env.do(t, http.MethodPost, "/prompt/article/add", gin.H{}, bearer(login.Token.AccessToken))
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}

	w, _ = env.do(t, http.MethodGet, "/prompt/search/hotkey", nil, nil)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", w.Code)
	}

	env.server.Health.SetReady(false)
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while not ready: status %d", w.Code)
	}
}
