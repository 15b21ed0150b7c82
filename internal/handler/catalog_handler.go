package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/validation"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	List(ctx context.Context) ([]*model.Product, error)
	Create(ctx context.Context, p *model.Product) (int64, error)
}

// SaleServiceInterface は販売ハンドラーが必要とするサービスインターフェース。
type SaleServiceInterface interface {
	List(ctx context.Context) ([]*model.Sale, error)
	Record(ctx context.Context, s *model.Sale) (int64, error)
}

// CatalogHandler は商品と販売記録のHTTPハンドラー。
type CatalogHandler struct {
	products  ProductServiceInterface
	sales     SaleServiceInterface
	sanitizer TextSanitizer
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(products ProductServiceInterface, sales SaleServiceInterface, sanitizer TextSanitizer) *CatalogHandler {
	if sanitizer == nil {
		sanitizer = passthroughSanitizer{}
	}
	return &CatalogHandler{
		products:  products,
		sales:     sales,
		sanitizer: sanitizer,
	}
}

type productResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

type createProductRequest struct {
	Name  string  `json:"name"`
	SKU   string  `json:"sku"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type saleResponse struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	Quantity    int       `json:"quantity"`
	TotalAmount float64   `json:"total_amount"`
	SoldAt      time.Time `json:"sold_at"`
}

type createSaleRequest struct {
	ProductID   int64   `json:"product_id"`
	Quantity    int     `json:"quantity"`
	TotalAmount float64 `json:"total_amount"`
}

// ListProducts は全商品を返す。
// GET /api/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, productResponse{
			ID:        p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			Price:     p.Price,
			Stock:     p.Stock,
			CreatedAt: p.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateProduct は商品を登録する。
// POST /api/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	form := validation.Product{
		Name:  strings.TrimSpace(h.sanitizer.Clean(req.Name)),
		SKU:   strings.TrimSpace(h.sanitizer.Clean(req.SKU)),
		Price: req.Price,
		Stock: req.Stock,
	}
	if err := validation.Struct(form); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	id, err := h.products.Create(r.Context(), &model.Product{
		Name:  form.Name,
		SKU:   form.SKU,
		Price: form.Price,
		Stock: form.Stock,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// ListSales は全販売記録を返す。
// GET /api/sales
func (h *CatalogHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sales.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		resp = append(resp, saleResponse{
			ID:          s.ID,
			ProductID:   s.ProductID,
			Quantity:    s.Quantity,
			TotalAmount: s.TotalAmount,
			SoldAt:      s.SoldAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSale は販売を記録する。
// POST /api/sales
func (h *CatalogHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	form := validation.Sale{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		TotalAmount: req.TotalAmount,
	}
	if err := validation.Struct(form); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	id, err := h.sales.Record(r.Context(), &model.Sale{
		ProductID:   form.ProductID,
		Quantity:    form.Quantity,
		TotalAmount: form.TotalAmount,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}
