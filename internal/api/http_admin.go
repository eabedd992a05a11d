package api

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"cafe-pos-service/internal/admin"
	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/pos"
)

// --- Admin Product Handlers ---

// ProductInput is the full product form used for create and replace.
type ProductInput struct {
	Title         string           `json:"title" validate:"required,max=255"`
	Type          string           `json:"type" validate:"omitempty,max=255"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	Unit          string           `json:"unit" validate:"omitempty,max=50"`
	Detail        string           `json:"detail" validate:"omitempty,max=2000"`
	Image         string           `json:"image" validate:"omitempty,url,max=2048"`
	Status        string           `json:"status" validate:"omitempty,product_status"`
	Category      string           `json:"category" validate:"omitempty,max=255"`
	SuggestDetail bool             `json:"suggest_detail"`
}

func (in ProductInput) draft(upload *admin.Image) admin.ProductDraft {
	return admin.ProductDraft{
		Title:         in.Title,
		Subtype:       in.Type,
		Price:         *in.Price,
		Unit:          in.Unit,
		Detail:        in.Detail,
		Image:         in.Image,
		Status:        domain.ProductStatus(in.Status),
		Category:      in.Category,
		Upload:        upload,
		SuggestDetail: in.SuggestDetail,
	}
}

// ProductPatchInput is the partial product form. Absent fields are kept.
type ProductPatchInput struct {
	Title    *string          `json:"title" validate:"omitempty,max=255"`
	Type     *string          `json:"type" validate:"omitempty,max=255"`
	Price    *decimal.Decimal `json:"price"`
	Unit     *string          `json:"unit" validate:"omitempty,max=50"`
	Detail   *string          `json:"detail" validate:"omitempty,max=2000"`
	Image    *string          `json:"image" validate:"omitempty,max=2048"`
	Status   *string          `json:"status" validate:"omitempty,product_status"`
	Category *string          `json:"category" validate:"omitempty,max=255"`
}

func (in ProductPatchInput) patch() domain.ProductPatch {
	p := domain.ProductPatch{
		Title:    in.Title,
		Subtype:  in.Type,
		Price:    in.Price,
		Unit:     in.Unit,
		Detail:   in.Detail,
		Image:    in.Image,
		Category: in.Category,
	}
	if in.Status != nil {
		status := domain.ProductStatus(*in.Status)
		p.Status = &status
	}
	return p
}

// StatusInput toggles availability.
type StatusInput struct {
	Status string `json:"status" validate:"required,product_status"`
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readUpload returns the "file" part of a multipart request, or nil when the
// form has no file.
func (h *HTTPHandler) readUpload(r *http.Request) (*admin.Image, error) {
	file, header, err := r.FormFile("file")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "invalid file upload"), err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "invalid file upload"), err)
	}
	return &admin.Image{Filename: header.Filename, Data: data}, nil
}

// decodeProductForm reads dst either from a JSON body or from the "product"
// field of a multipart form, together with its optional image file.
func (h *HTTPHandler) decodeProductForm(w http.ResponseWriter, r *http.Request, dst interface{}) (*admin.Image, error) {
	if !isMultipart(r) {
		return nil, h.decodeAndValidate(r, dst)
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "invalid multipart form"), err)
	}
	if err := json.Unmarshal([]byte(r.FormValue("product")), dst); err != nil {
		return nil, errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "invalid request payload"), err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return nil, errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "validation failed: "+err.Error()), err)
	}
	return h.readUpload(r)
}

// ListAdminProducts lists every product with optional category and search
// filters, paginated. Dangling category names are shown as Uncategorized.
func (h *HTTPHandler) ListAdminProducts(w http.ResponseWriter, r *http.Request) {
	qParams := r.URL.Query()

	limit, err := strconv.Atoi(qParams.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	page, err := strconv.Atoi(qParams.Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}

	categories := h.catalog.Categories()
	products := pos.FilterAll(h.catalog.Products(), qParams.Get("category"), qParams.Get("q"))
	totalCount := len(products)

	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}

	// Pages past the end are empty; the offset is only computed in range.
	pageItems := make([]domain.Product, 0, limit)
	if page <= totalPages {
		offset := (page - 1) * limit
		end := offset + limit
		if end > totalCount {
			end = totalCount
		}
		for _, p := range products[offset:end] {
			p.Category = pos.DisplayCategory(p.Category, categories)
			pageItems = append(pageItems, p)
		}
	}

	respondWithJSON(w, http.StatusOK, struct {
		Data       []domain.Product `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}{
		Data: pageItems,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalItems: totalCount,
			TotalPages: totalPages,
		},
	})
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	upload, err := h.decodeProductForm(w, r, &input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	created, err := h.admin.SaveProduct(r.Context(), "", input.draft(upload))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// ReplaceProduct saves the whole edit form over an existing product.
func (h *HTTPHandler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	upload, err := h.decodeProductForm(w, r, &input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	updated, err := h.admin.SaveProduct(r.Context(), chi.URLParam(r, "productId"), input.draft(upload))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductPatchInput
	upload, err := h.decodeProductForm(w, r, &input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	updated, err := h.admin.PatchProduct(r.Context(), chi.URLParam(r, "productId"), input.patch(), upload)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) SetProductStatus(w http.ResponseWriter, r *http.Request) {
	var input StatusInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	updated, err := h.admin.SetProductStatus(r.Context(), chi.URLParam(r, "productId"), domain.ProductStatus(input.Status))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteProduct(r.Context(), chi.URLParam(r, "productId")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Admin Category Handlers ---

// CategoryInput defines the expected input for creating or renaming a category.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (h *HTTPHandler) ListAdminCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, struct {
		Data []domain.Category `json:"data"`
	}{Data: h.catalog.Categories()})
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	created, err := h.admin.AddCategory(r.Context(), input.Name)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	updated, err := h.admin.RenameCategory(r.Context(), chi.URLParam(r, "categoryId"), input.Name)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteCategory(r.Context(), chi.URLParam(r, "categoryId")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

// --- Assets and text ---

// UploadImage stores the multipart "file" on the asset host.
func (h *HTTPHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		respondWithAppError(w, r, errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "invalid multipart form"), err))
		return
	}
	upload, err := h.readUpload(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if upload == nil {
		respondWithAppError(w, r, errx.ErrUploadInvalid)
		return
	}
	url, err := h.admin.UploadImage(r.Context(), upload.Filename, upload.Data)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, struct {
		URL string `json:"url"`
	}{URL: url})
}

// DescribeInput asks for a suggested product description.
type DescribeInput struct {
	Title    string `json:"title" validate:"max=255"`
	Type     string `json:"type" validate:"max=255"`
	Category string `json:"category" validate:"max=255"`
}

func (h *HTTPHandler) SuggestDescription(w http.ResponseWriter, r *http.Request) {
	var input DescribeInput
	if err := h.decodeAndValidate(r, &input); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	detail, err := h.admin.SuggestDescription(r.Context(), input.Title, input.Type, input.Category)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, struct {
		Detail string `json:"detail"`
	}{Detail: detail})
}
