// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/retaildesk/internal/auth"
	"github.com/hitoshi/retaildesk/internal/metrics"
	"github.com/hitoshi/retaildesk/internal/middleware"
	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/validation"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	CurrentAccount(ctx context.Context, id int64) (*model.Account, error)
}

// TokenIssuer はアクセストークンを発行する。
type TokenIssuer interface {
	Issue(accountID int64) (string, error)
}

// AuthMetrics は認証エンドポイントの結果を記録する。
type AuthMetrics interface {
	RecordRegister(outcome string)
	RecordLogin(outcome string)
	RecordTokenIssued()
}

// noopAuthMetrics は何も記録しないAuthMetrics。
type noopAuthMetrics struct{}

func (noopAuthMetrics) RecordRegister(string) {}
func (noopAuthMetrics) RecordLogin(string)    {}
func (noopAuthMetrics) RecordTokenIssued()    {}

// AuthHandler はパスワード認証関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	issuer    TokenIssuer
	sanitizer TextSanitizer
	metrics   AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。
// sanitizer、metricsはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, issuer TokenIssuer, sanitizer TextSanitizer, m AuthMetrics) *AuthHandler {
	if sanitizer == nil {
		sanitizer = passthroughSanitizer{}
	}
	if m == nil {
		m = noopAuthMetrics{}
	}
	return &AuthHandler{
		service:   service,
		issuer:    issuer,
		sanitizer: sanitizer,
		metrics:   m,
	}
}

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Mobile    string `json:"mobile"`
	Address   string `json:"address"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// accountSummary はレスポンスに含めるアカウント情報。
type accountSummary struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// authResponse は登録・ログイン成功時のレスポンス。
type authResponse struct {
	Token string         `json:"token"`
	User  accountSummary `json:"user"`
}

// meResponse は現在のアカウント情報のレスポンス。
type meResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Register はアカウントを作成し、アクセストークンを発行する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.metrics.RecordRegister(metrics.OutcomeInvalidInput)
		handleServiceError(w, r, err)
		return
	}

	form := validation.Registration{
		FirstName: req.FirstName,
		LastName:  h.sanitizer.Clean(req.LastName),
		Password:  req.Password,
		Email:     req.Email,
		Mobile:    req.Mobile,
		Address:   h.sanitizer.Clean(req.Address),
	}.Normalize()

	if err := validation.Struct(form); err != nil {
		h.metrics.RecordRegister(metrics.OutcomeInvalidInput)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.Register(r.Context(), auth.RegisterInput{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Password:  form.Password,
		Mobile:    form.Mobile,
		Address:   form.Address,
	})
	if err != nil {
		h.metrics.RecordRegister(registerOutcome(err))
		handleServiceError(w, r, err)
		return
	}

	signed, err := h.issuer.Issue(result.ID)
	if err != nil {
		h.metrics.RecordRegister(metrics.OutcomeError)
		slog.Error("failed to issue token",
			slog.Int64("account_id", result.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	h.metrics.RecordTokenIssued()
	h.metrics.RecordRegister(metrics.OutcomeSuccess)

	writeJSON(w, http.StatusCreated, authResponse{
		Token: signed,
		User:  accountSummary{ID: result.ID, Email: result.Email},
	})
}

// Login はemailとパスワードで認証し、アクセストークンを発行する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.metrics.RecordLogin(metrics.OutcomeInvalidInput)
		handleServiceError(w, r, err)
		return
	}

	form := validation.Login{Email: strings.TrimSpace(req.Email), Password: req.Password}
	if err := validation.Struct(form); err != nil {
		h.metrics.RecordLogin(metrics.OutcomeInvalidInput)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		h.metrics.RecordLogin(loginOutcome(err))
		handleServiceError(w, r, err)
		return
	}

	signed, err := h.issuer.Issue(result.ID)
	if err != nil {
		h.metrics.RecordLogin(metrics.OutcomeError)
		slog.Error("failed to issue token",
			slog.Int64("account_id", result.ID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	h.metrics.RecordTokenIssued()
	h.metrics.RecordLogin(metrics.OutcomeSuccess)

	writeJSON(w, http.StatusOK, authResponse{
		Token: signed,
		User:  accountSummary{ID: result.ID, Email: result.Email, Name: result.Name},
	})
}

// Me はBearerトークンで認証されたアカウントの情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	account, err := h.service.CurrentAccount(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:    account.ID,
		Email: account.Email,
		Name:  account.Name,
		Role:  account.Role,
	})
}

func registerOutcome(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDuplicateAccount {
		return metrics.OutcomeDuplicate
	}
	return metrics.OutcomeError
}

func loginOutcome(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
		return metrics.OutcomeInvalidCredentials
	}
	return metrics.OutcomeError
}
