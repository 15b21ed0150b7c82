package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/retaildesk/internal/auth"
	"github.com/hitoshi/retaildesk/internal/metrics"
	"github.com/hitoshi/retaildesk/internal/middleware"
	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/password"
	"github.com/hitoshi/retaildesk/internal/repository"
	"github.com/hitoshi/retaildesk/internal/security"
	"github.com/hitoshi/retaildesk/internal/token"
	"github.com/hitoshi/retaildesk/internal/user"
)

// --- 統合テスト用のインメモリストア ---

// memoryAccounts はemail一意性を持つインメモリのAccountRepository。
type memoryAccounts struct {
	mu       sync.Mutex
	accounts []model.Account
	inserts  int
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.accounts {
		if m.accounts[i].Email == email {
			a := m.accounts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memoryAccounts) FindByID(_ context.Context, id int64) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			a := m.accounts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memoryAccounts) Create(_ context.Context, account *model.Account) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.accounts {
		if m.accounts[i].Email == account.Email {
			return 0, model.ErrDuplicateEmail
		}
	}
	m.inserts++
	a := *account
	a.ID = int64(len(m.accounts) + 1)
	a.CreatedAt = time.Now()
	m.accounts = append(m.accounts, a)
	return a.ID, nil
}

func (m *memoryAccounts) List(_ context.Context) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*model.Account, 0, len(m.accounts))
	for i := len(m.accounts) - 1; i >= 0; i-- {
		a := m.accounts[i]
		a.PasswordHash = ""
		result = append(result, &a)
	}
	return result, nil
}

var _ repository.AccountRepository = (*memoryAccounts)(nil)

type testServer struct {
	handler  http.Handler
	accounts *memoryAccounts
	issuer   *token.Issuer
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, requireAuth bool) *testServer {
	t.Helper()
	return newTestServerWith(t, func(d *RouterDeps) { d.RequireAuth = requireAuth })
}

// newTestServerWith はRouterDepsを調整してからルーターを構築する。
func newTestServerWith(t *testing.T, configure func(*RouterDeps)) *testServer {
	t.Helper()

	accounts := &memoryAccounts{}
	issuer := token.NewIssuer([]byte("integration-secret"), token.DefaultTTL)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	hasher := auth.InstrumentHasher(password.NewHasher(4), collector)

	deps := &RouterDeps{
		CORSAllowedOrigin: "*",
		RateLimiter:       rl,
		TokenVerifier:     issuer,
		StatusRecorder:    collector,
		MetricsHandler:    metrics.Handler(reg),
		AuthService:       auth.NewService(accounts, hasher, auth.ServiceConfig{}),
		TokenIssuer:       issuer,
		AuthMetrics:       collector,
		ProductService:    &mockProductService{},
		SaleService:       &mockSaleService{},
		UserService:       user.NewService(accounts, auth.DefaultRole),
		Sanitizer:         security.NewTextSanitizer(),
		DB:                stubPinger{},
	}
	configure(deps)

	return &testServer{
		handler:  NewRouter(deps),
		accounts: accounts,
		issuer:   issuer,
		registry: reg,
	}
}

func (s *testServer) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// TestEndToEnd_RegisterAndLogin は登録からログインまでの一連の流れを検証する。
func TestEndToEnd_RegisterAndLogin(t *testing.T) {
	srv := newTestServer(t, false)

	// 1. 登録
	w := srv.do(t, http.MethodPost, "/api/auth/register",
		`{"firstName":"Johnny","lastName":"Appleseed","email":"j@example.com","password":"secret1","mobile":"1234567890","address":"1 Main St"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201; body = %s", w.Code, w.Body.String())
	}
	var registered authResponse
	if err := json.NewDecoder(w.Body).Decode(&registered); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	if registered.User.Email != "j@example.com" {
		t.Errorf("user.email = %q", registered.User.Email)
	}
	if registered.Token == "" {
		t.Error("token should not be empty")
	}

	// 2. 誤ったパスワードでログイン
	w = srv.do(t, http.MethodPost, "/api/auth/login", `{"email":"j@example.com","password":"wrong"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", w.Code)
	}
	if body := decodeError(t, w); body.Error != "Invalid email or password" {
		t.Errorf("error = %q", body.Error)
	}

	// 3. 正しいパスワードでログイン
	w = srv.do(t, http.MethodPost, "/api/auth/login", `{"email":"j@example.com","password":"secret1"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", w.Code)
	}
	var loggedIn authResponse
	if err := json.NewDecoder(w.Body).Decode(&loggedIn); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if loggedIn.User.ID != registered.User.ID || loggedIn.User.Email != "j@example.com" || loggedIn.User.Name != "Johnny Appleseed" {
		t.Errorf("login user = %+v", loggedIn.User)
	}

	// 4. トークンに同じIDと7日後の有効期限が含まれる
	claims, err := srv.issuer.Verify(loggedIn.Token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Errorf("claims.UserID = %d, want %d", claims.UserID, registered.User.ID)
	}
	wantExp := time.Now().Add(7 * 24 * time.Hour)
	if diff := claims.ExpiresAt.Time.Sub(wantExp); diff > time.Minute || diff < -time.Minute {
		t.Errorf("exp = %v, want ~%v", claims.ExpiresAt.Time, wantExp)
	}

	// 5. 発行されたトークンで自分の情報を取得
	w = srv.do(t, http.MethodGet, "/api/auth/me", "", loggedIn.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", w.Code)
	}
	var me meResponse
	if err := json.NewDecoder(w.Body).Decode(&me); err != nil {
		t.Fatalf("failed to decode me response: %v", err)
	}
	if me.Role != auth.DefaultRole || me.Name != "Johnny Appleseed" {
		t.Errorf("me = %+v", me)
	}
}

// TestEndToEnd_UnknownEmailMatchesWrongPassword は未登録emailとパスワード不一致のレスポンスが同一であることを検証する。
func TestEndToEnd_UnknownEmailMatchesWrongPassword(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, http.MethodPost, "/api/auth/register", validRegisterBody, "")

	unknown := srv.do(t, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"secret1"}`, "")
	wrong := srv.do(t, http.MethodPost, "/api/auth/login", `{"email":"j@example.com","password":"wrong1"}`, "")

	if unknown.Code != wrong.Code {
		t.Errorf("status differs: %d vs %d", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("body differs: %s vs %s", unknown.Body.String(), wrong.Body.String())
	}
}

// TestEndToEnd_DuplicateRegistration は同じemailでの2回目の登録が400となり挿入されないことを検証する。
func TestEndToEnd_DuplicateRegistration(t *testing.T) {
	srv := newTestServer(t, false)

	if w := srv.do(t, http.MethodPost, "/api/auth/register", validRegisterBody, ""); w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", w.Code)
	}
	w := srv.do(t, http.MethodPost, "/api/auth/register", validRegisterBody, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second register status = %d, want 400", w.Code)
	}
	if body := decodeError(t, w); body.Error != "Email already registered" {
		t.Errorf("error = %q", body.Error)
	}
	if srv.accounts.inserts != 1 {
		t.Errorf("inserts = %d, want 1", srv.accounts.inserts)
	}
}

// TestRouter_SanitizesStoredAddress は住所からマークアップが除去されて保存されることを検証する。
func TestRouter_SanitizesStoredAddress(t *testing.T) {
	srv := newTestServer(t, false)

	body := `{"firstName":"Johnny","lastName":"Appleseed","email":"j@example.com","password":"secret1","mobile":"1234567890","address":"<script>alert(1)</script>1 Main St & Co"}`
	if w := srv.do(t, http.MethodPost, "/api/auth/register", body, ""); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d; body = %s", w.Code, w.Body.String())
	}

	account, _ := srv.accounts.FindByEmail(context.Background(), "j@example.com")
	if account.Address != "1 Main St & Co" {
		t.Errorf("address = %q, want %q", account.Address, "1 Main St & Co")
	}
}

func TestRouter_MeRequiresBearer(t *testing.T) {
	srv := newTestServer(t, false)

	if w := srv.do(t, http.MethodGet, "/api/auth/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w := srv.do(t, http.MethodGet, "/api/auth/me", "", "not-a-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRouter_RequireAuthProtectsCatalog(t *testing.T) {
	srv := newTestServer(t, true)

	if w := srv.do(t, http.MethodGet, "/api/products", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	signed, err := srv.issuer.Issue(1)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if w := srv.do(t, http.MethodGet, "/api/products", "", signed); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRouter_OpenCatalogByDefault(t *testing.T) {
	srv := newTestServer(t, false)

	for _, path := range []string{"/api/products", "/api/sales", "/api/users"} {
		if w := srv.do(t, http.MethodGet, path, "", ""); w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

func TestRouter_UsersShareAccountStore(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, http.MethodPost, "/api/auth/register", validRegisterBody, "")

	// 登録済みemailで管理画面からユーザー作成すると重複エラー
	w := srv.do(t, http.MethodPost, "/api/users", `{"name":"Other","email":"j@example.com"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	w = srv.do(t, http.MethodPost, "/api/users", `{"name":"Jane","email":"jane@example.com","role":"manager"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	// パスワードを持たないユーザーはログインできない
	w = srv.do(t, http.MethodPost, "/api/auth/login", `{"email":"jane@example.com","password":"anything"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRouter_HealthAndBanner(t *testing.T) {
	srv := newTestServer(t, false)

	w := srv.do(t, http.MethodGet, "/", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Retail Store API Server is running") {
		t.Errorf("GET / = %d %q", w.Code, w.Body.String())
	}

	for _, path := range []string{"/health", "/api/health"} {
		w := srv.do(t, http.MethodGet, path, "", "")
		if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
			t.Errorf("GET %s = %d %q", path, w.Code, w.Body.String())
		}
	}
}

func TestRouter_SecurityHeadersAndCORS(t *testing.T) {
	srv := newTestServer(t, false)

	w := srv.do(t, http.MethodOptions, "/api/auth/login", "", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do(t, http.MethodPost, "/api/auth/register", validRegisterBody, "")
	srv.do(t, http.MethodPost, "/api/auth/login", `{"email":"j@example.com","password":"wrong1"}`, "")

	w := srv.do(t, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`retaildesk_register_total{outcome="success"} 1`,
		`retaildesk_login_total{outcome="invalid_credentials"} 1`,
		`retaildesk_tokens_issued_total 1`,
		`retaildesk_http_status_total{status_code="201"} 1`,
		`retaildesk_password_hash_seconds_count 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics should contain %q", want)
		}
	}
}

func TestRouter_AuthRateLimit(t *testing.T) {
	srv := newTestServer(t, false)

	var last int
	for i := 0; i < 21; i++ {
		w := srv.do(t, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"x"}`, "")
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("21st login status = %d, want 429", last)
	}
}

func (s *testServer) loginFrom(t *testing.T, forwardedFor string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.com","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("X-Real-IP", forwardedFor)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w.Code
}

// TestRouter_AuthRateLimit_IgnoresForwardedHeaders はプロキシヘッダーを変えても同じ接続元として制限されることを検証する。
func TestRouter_AuthRateLimit_IgnoresForwardedHeaders(t *testing.T) {
	srv := newTestServer(t, false)

	counts := map[int]int{}
	var last int
	for i := 0; i < 21; i++ {
		last = srv.loginFrom(t, fmt.Sprintf("10.0.0.%d", i+1))
		counts[last]++
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("21st login status = %d, want 429 (counts=%v)", last, counts)
	}
	if counts[http.StatusUnauthorized] != 20 {
		t.Errorf("401 count = %d, want 20", counts[http.StatusUnauthorized])
	}
}

// TestRouter_AuthRateLimit_TrustedProxyHeaders はプロキシを信頼する設定では転送元IPごとに制限されることを検証する。
func TestRouter_AuthRateLimit_TrustedProxyHeaders(t *testing.T) {
	srv := newTestServerWith(t, func(d *RouterDeps) { d.TrustProxyHeaders = true })

	for i := 0; i < 20; i++ {
		if code := srv.loginFrom(t, "10.0.0.1"); code != http.StatusUnauthorized {
			t.Fatalf("login %d status = %d, want 401", i+1, code)
		}
	}
	if code := srv.loginFrom(t, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("21st login from same client status = %d, want 429", code)
	}
	if code := srv.loginFrom(t, "10.0.0.2"); code != http.StatusUnauthorized {
		t.Errorf("login from another client status = %d, want 401", code)
	}
}

// TestRouter_RegisterOverlongPassword は72バイトを超えるパスワードが検証エラーになることを検証する。
func TestRouter_RegisterOverlongPassword(t *testing.T) {
	srv := newTestServer(t, false)

	body := `{"firstName":"Johnny","lastName":"Appleseed","email":"j@example.com","password":"` +
		strings.Repeat("a", 80) + `","mobile":"1234567890","address":"1 Main St"}`
	w := srv.do(t, http.MethodPost, "/api/auth/register", body, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
	}
	if got := decodeError(t, w); got.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %q", got.Code, model.ErrCodeValidationFailed)
	}
	if n := srv.accounts.inserts; n != 0 {
		t.Errorf("accounts = %d, want 0", n)
	}
}
