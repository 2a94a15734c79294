package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskboard/internal/middleware"
	"github.com/hitoshi/taskboard/internal/model"
)

// CategoryServiceInterface はカテゴリハンドラーが必要とするサービスインターフェース。
type CategoryServiceInterface interface {
	// List はオーナーのカテゴリ一覧を表示順で返す。
	List(ctx context.Context, ownerID string, includeTasks bool) ([]*model.Category, error)
	// GetByID はIDでカテゴリを取得する。他オーナーのものはnilを返す。
	GetByID(ctx context.Context, id, ownerID string, includeTasks bool) (*model.Category, error)
	// GetByOrder は表示順からカテゴリを検索する。
	GetByOrder(ctx context.Context, order int, ownerID string) (*model.Category, error)
	// Create はカテゴリを作成する。
	Create(ctx context.Context, title string, order int, ownerID string) (*model.Category, error)
	// Update はタイトル変更と表示順の並べ替えを行う。
	Update(ctx context.Context, id string, newTitle string, newOrder *int, ownerID string) (*model.Category, error)
	// Delete はカテゴリと所属タスクを連鎖削除する。
	Delete(ctx context.Context, id, ownerID string) error
}

// CategoryHandler はカテゴリ管理のHTTPハンドラー。
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{
		service: service,
	}
}

// categoryCreateRequest はカテゴリ作成リクエストのボディ。
type categoryCreateRequest struct {
	Title string `json:"title"`
	Order int    `json:"order"`
}

// categoryUpdateRequest はカテゴリ更新リクエストのボディ。
// 空のタイトルは「変更しない」、orderの省略は「並べ替えなし」を意味する。
type categoryUpdateRequest struct {
	Title string `json:"title"`
	Order *int   `json:"order"`
}

// categoryResponse はカテゴリ情報のAPIレスポンス。
type categoryResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Order     int            `json:"order"`
	OwnerID   string         `json:"owner_id"`
	Tasks     []taskResponse `json:"tasks,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ListCategories はオーナーのカテゴリ一覧を取得する。
// GET /api/categories?exclude_tasks=true&order=N
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// order指定時は表示順による単一カテゴリ検索
	if rawOrder := r.URL.Query().Get("order"); rawOrder != "" {
		order, convErr := strconv.Atoi(rawOrder)
		if convErr != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("orderパラメータは整数で指定してください。"))
			return
		}

		category, svcErr := h.service.GetByOrder(r.Context(), order, userID)
		if svcErr != nil {
			handleServiceError(w, svcErr)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toCategoryResponse(category))
		return
	}

	includeTasks := r.URL.Query().Get("exclude_tasks") != "true"

	categories, err := h.service.List(r.Context(), userID, includeTasks)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]categoryResponse, len(categories))
	for i, c := range categories {
		results[i] = toCategoryResponse(c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// GetCategory はカテゴリを1件取得する。
// GET /api/categories/:id
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	categoryID := chi.URLParam(r, "id")
	includeTasks := r.URL.Query().Get("exclude_tasks") != "true"

	category, err := h.service.GetByID(r.Context(), categoryID, userID, includeTasks)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCategoryResponse(category))
}

// CreateCategory はカテゴリを作成する。
// POST /api/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req categoryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました。"))
		return
	}

	category, err := h.service.Create(r.Context(), req.Title, req.Order, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCategoryResponse(category))
}

// UpdateCategory はカテゴリのタイトル変更と並べ替えを行う。
// PUT /api/categories/:id
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	categoryID := chi.URLParam(r, "id")

	var req categoryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました。"))
		return
	}

	category, err := h.service.Update(r.Context(), categoryID, req.Title, req.Order, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCategoryResponse(category))
}

// DeleteCategory はカテゴリと所属タスクを削除する。
// DELETE /api/categories/:id
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	categoryID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), categoryID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toCategoryResponse はmodel.CategoryからAPIレスポンスに変換する。
func toCategoryResponse(category *model.Category) categoryResponse {
	resp := categoryResponse{
		ID:        category.ID,
		Title:     category.Title,
		Order:     category.Order,
		OwnerID:   category.OwnerID,
		CreatedAt: category.CreatedAt,
		UpdatedAt: category.UpdatedAt,
	}
	if len(category.Tasks) > 0 {
		resp.Tasks = make([]taskResponse, len(category.Tasks))
		for i, t := range category.Tasks {
			resp.Tasks[i] = toTaskResponse(t)
		}
	}
	return resp
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeUsernameTaken:
		return http.StatusConflict
	case model.ErrCodeInvalidUsername, model.ErrCodeInvalidRequest, model.ErrCodeInvalidPosition:
		return http.StatusBadRequest
	case model.ErrCodeCategoryNotFound, model.ErrCodeTaskNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
