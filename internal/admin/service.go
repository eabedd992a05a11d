// Package admin implements catalog management: products, categories,
// product images and description suggestions.
package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"cafe-pos-service/internal/assets"
	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/logx"
	"cafe-pos-service/internal/pos"
	"cafe-pos-service/internal/store"
	"cafe-pos-service/internal/textgen"
)

// Image is an uploaded image file waiting to be stored.
type Image struct {
	Filename string
	Data     []byte
}

// ProductDraft is the product form. Upload, when set, replaces Image.
type ProductDraft struct {
	Title         string
	Subtype       string
	Price         decimal.Decimal
	Unit          string
	Detail        string
	Image         string
	Status        domain.ProductStatus
	Category      string
	Upload        *Image
	SuggestDetail bool
}

// Service orchestrates the management surface over the document store, the
// asset host and the text generator.
type Service struct {
	products   store.ProductStorer
	categories store.CategoryStorer
	uploader   assets.Uploader
	writer     textgen.Generator
}

func NewService(products store.ProductStorer, categories store.CategoryStorer, uploader assets.Uploader, writer textgen.Generator) *Service {
	return &Service{products: products, categories: categories, uploader: uploader, writer: writer}
}

// SaveProduct creates a product when id is empty, otherwise replaces every
// field of the existing one. Image upload runs before the write, and only
// once an edited product is known to exist; a failed upload aborts the save.
// A failed description suggestion does not.
func (s *Service) SaveProduct(ctx context.Context, id string, draft ProductDraft) (*domain.Product, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "product name is required")
	}
	if draft.Price.IsNegative() {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "price can not be negative")
	}
	if draft.Status == "" {
		draft.Status = domain.StatusInStock
	}
	if !draft.Status.Valid() {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "unknown product status")
	}
	if strings.TrimSpace(draft.Unit) == "" {
		draft.Unit = domain.DefaultUnit
	}

	if draft.Upload != nil {
		if id != "" {
			if err := s.ensureProduct(ctx, id); err != nil {
				return nil, err
			}
		}
		url, err := s.UploadImage(ctx, draft.Upload.Filename, draft.Upload.Data)
		if err != nil {
			return nil, err
		}
		draft.Image = url
	}

	category, err := s.resolveCategory(ctx, draft.Category)
	if err != nil {
		return nil, err
	}
	draft.Category = category

	if draft.SuggestDetail && strings.TrimSpace(draft.Detail) == "" {
		draft.Detail = s.suggestOrEmpty(ctx, draft.Title, draft.Subtype, draft.Category)
	}

	product := &domain.Product{
		Title:    draft.Title,
		Subtype:  strings.TrimSpace(draft.Subtype),
		Price:    draft.Price.Round(2),
		Unit:     strings.TrimSpace(draft.Unit),
		Detail:   strings.TrimSpace(draft.Detail),
		Image:    draft.Image,
		Status:   draft.Status,
		Category: draft.Category,
	}

	var saved *domain.Product
	if id == "" {
		saved, err = s.products.CreateProduct(ctx, product)
	} else {
		saved, err = s.products.UpdateProduct(ctx, id, domain.ProductPatch{
			Title:    &product.Title,
			Subtype:  &product.Subtype,
			Price:    &product.Price,
			Unit:     &product.Unit,
			Detail:   &product.Detail,
			Image:    &product.Image,
			Status:   &product.Status,
			Category: &product.Category,
		})
	}
	if err != nil {
		return nil, store.AsAppError(err)
	}
	logx.Info().Str("product_id", saved.ID).Str("title", saved.Title).Msg("product saved")
	return saved, nil
}

// PatchProduct applies a partial update. upload, when set, is stored after
// the patch is validated and the product is found.
func (s *Service) PatchProduct(ctx context.Context, id string, patch domain.ProductPatch, upload *Image) (*domain.Product, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, errx.WithMessage(errx.ErrStoreInvalid, "product name is required")
		}
		patch.Title = &title
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "price can not be negative")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "unknown product status")
	}
	if upload == nil && patch.Empty() {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "nothing to update")
	}
	if upload != nil {
		if err := s.ensureProduct(ctx, id); err != nil {
			return nil, err
		}
		url, err := s.UploadImage(ctx, upload.Filename, upload.Data)
		if err != nil {
			return nil, err
		}
		patch.Image = &url
	}

	updated, err := s.products.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, store.AsAppError(err)
	}
	return updated, nil
}

func (s *Service) ensureProduct(ctx context.Context, id string) error {
	if _, err := s.products.GetProductByID(ctx, id); err != nil {
		return store.AsAppError(err)
	}
	return nil
}

// SetProductStatus flips a product between In Stock and Sold Out.
func (s *Service) SetProductStatus(ctx context.Context, id string, status domain.ProductStatus) (*domain.Product, error) {
	if !status.Valid() {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "unknown product status")
	}
	updated, err := s.products.UpdateProduct(ctx, id, domain.ProductPatch{Status: &status})
	if err != nil {
		return nil, store.AsAppError(err)
	}
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return store.AsAppError(err)
	}
	logx.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// AddCategory creates a category. Names are trimmed and must not be blank.
func (s *Service) AddCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "category name is required")
	}
	created, err := s.categories.CreateCategory(ctx, name)
	if err != nil {
		return nil, store.AsAppError(err)
	}
	return created, nil
}

// RenameCategory changes a category name. Products keep the old name and
// show as Uncategorized until edited.
func (s *Service) RenameCategory(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errx.WithMessage(errx.ErrStoreInvalid, "category name is required")
	}
	updated, err := s.categories.UpdateCategory(ctx, id, name)
	if err != nil {
		return nil, store.AsAppError(err)
	}
	return updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return store.AsAppError(err)
	}
	return nil
}

// UploadImage stores an image on the asset host and returns its public URL.
func (s *Service) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	url, err := s.uploader.Upload(ctx, filename, data)
	if err != nil {
		logx.Warn().Err(err).Str("filename", filename).Msg("image upload failed")
		return "", err
	}
	return url, nil
}

// SuggestDescription asks the text generator for one sentence. The category
// stands in for a missing product type.
func (s *Service) SuggestDescription(ctx context.Context, title, productType, category string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", errx.ErrGenerationNeedsTitle
	}
	if strings.TrimSpace(productType) == "" {
		productType = category
	}
	return s.writer.SuggestDescription(ctx, title, productType)
}

func (s *Service) suggestOrEmpty(ctx context.Context, title, productType, category string) string {
	text, err := s.SuggestDescription(ctx, title, productType, category)
	if err != nil {
		if !errors.Is(err, errx.ErrGenerationDisabled) {
			logx.Warn().Err(err).Str("title", title).Msg("saving product without a suggested description")
		}
		return ""
	}
	return text
}

// resolveCategory returns name, or the first category when name is blank,
// or Uncategorized when there are no categories.
func (s *Service) resolveCategory(ctx context.Context, name string) (string, error) {
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return "", store.AsAppError(err)
	}
	sorted := pos.SortCategories(categories)
	if len(sorted) == 0 {
		return domain.UncategorizedLabel, nil
	}
	return sorted[0].Name, nil
}
