package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/user"
	"github.com/hitoshi/retaildesk/internal/validation"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context) ([]*model.Account, error)
	Create(ctx context.Context, in user.CreateInput) (int64, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	sanitizer TextSanitizer
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, sanitizer TextSanitizer) *UserHandler {
	if sanitizer == nil {
		sanitizer = passthroughSanitizer{}
	}
	return &UserHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// createdResponse は作成系エンドポイントのレスポンス。
type createdResponse struct {
	ID int64 `json:"id"`
}

// ListUsers は全ユーザーを返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, userResponse{
			ID:        a.ID,
			Name:      a.Name,
			Email:     a.Email,
			Role:      a.Role,
			CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateUser はユーザーを作成する。
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	form := validation.User{
		Name:  strings.TrimSpace(h.sanitizer.Clean(req.Name)),
		Email: strings.TrimSpace(req.Email),
		Role:  strings.TrimSpace(req.Role),
	}
	if err := validation.Struct(form); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	id, err := h.service.Create(r.Context(), user.CreateInput{
		Name:  form.Name,
		Email: form.Email,
		Role:  form.Role,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}
