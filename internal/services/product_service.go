package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dukapos/internal/caching"
	"dukapos/internal/models"
	"dukapos/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const productTTL = 15 * time.Minute

// ProductService is the catalog: products, their variants and categories.
type ProductService interface {
	Create(ctx context.Context, orgID uuid.UUID, product *models.Product) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, orgID uuid.UUID, product *models.Product) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Search(ctx context.Context, orgID uuid.UUID, query string, categoryID *uuid.UUID, limit, offset int) ([]*models.Product, error)
	CreateVariant(ctx context.Context, orgID, productID uuid.UUID, variant *models.ProductVariant) error

	CreateCategory(ctx context.Context, orgID uuid.UUID, category *models.Category) error
	ListCategories(ctx context.Context, orgID uuid.UUID) ([]*models.Category, error)
	DeleteCategory(ctx context.Context, orgID, id uuid.UUID) error
}

type productService struct {
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	cacheService caching.CacheService
	log          *zap.Logger
}

func NewProductService(productRepo repositories.ProductRepository, categoryRepo repositories.CategoryRepository, cacheService caching.CacheService, log *zap.Logger) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cacheService: cacheService,
		log:          log,
	}
}

func (s *productService) validate(ctx context.Context, orgID uuid.UUID, product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return fmt.Errorf("product name is required: %w", models.ErrValidation)
	}
	if product.Price.IsNegative() {
		return fmt.Errorf("price must not be negative: %w", models.ErrValidation)
	}
	if product.ReorderLevel != nil && *product.ReorderLevel < 0 {
		return fmt.Errorf("reorder_level must not be negative: %w", models.ErrValidation)
	}
	if product.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, orgID, *product.CategoryID); err != nil {
			return fmt.Errorf("category: %w", err)
		}
	}
	return nil
}

func (s *productService) Create(ctx context.Context, orgID uuid.UUID, product *models.Product) error {
	if err := s.validate(ctx, orgID, product); err != nil {
		return err
	}
	product.OrganizationID = orgID
	product.ID = uuid.New()
	if err := s.productRepo.Create(ctx, product); err != nil {
		return err
	}
	invalidateOrganization(ctx, s.cacheService, s.log, orgID)
	return nil
}

func (s *productService) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	key := caching.ProductKey(orgID, id)
	var cached models.Product
	hit, err := s.cacheService.GetJSON(ctx, key, &cached)
	if err != nil {
		// cache errors shouldn't fail the operation
		s.log.Warn("product cache read failed", zap.String("product_id", id.String()), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	product, err := s.productRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if err := s.cacheService.SetJSON(ctx, key, product, productTTL); err != nil {
		s.log.Warn("failed to cache product", zap.String("product_id", id.String()), zap.Error(err))
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, orgID uuid.UUID, product *models.Product) error {
	if err := s.validate(ctx, orgID, product); err != nil {
		return err
	}
	product.OrganizationID = orgID
	if err := s.productRepo.Update(ctx, product); err != nil {
		return err
	}
	s.dropProduct(ctx, orgID, product.ID)
	return nil
}

func (s *productService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	if err := s.productRepo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	s.dropProduct(ctx, orgID, id)
	return nil
}

func (s *productService) dropProduct(ctx context.Context, orgID, id uuid.UUID) {
	if err := s.cacheService.Delete(ctx, caching.ProductKey(orgID, id)); err != nil {
		s.log.Warn("failed to invalidate product cache", zap.String("product_id", id.String()), zap.Error(err))
	}
	invalidateOrganization(ctx, s.cacheService, s.log, orgID)
}

func (s *productService) Search(ctx context.Context, orgID uuid.UUID, query string, categoryID *uuid.UUID, limit, offset int) ([]*models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.productRepo.Search(ctx, orgID, strings.TrimSpace(query), categoryID, limit, offset)
}

func (s *productService) CreateVariant(ctx context.Context, orgID, productID uuid.UUID, variant *models.ProductVariant) error {
	variant.Name = strings.TrimSpace(variant.Name)
	if variant.Name == "" {
		return fmt.Errorf("variant name is required: %w", models.ErrValidation)
	}
	if variant.PriceOverride != nil && variant.PriceOverride.IsNegative() {
		return fmt.Errorf("price_override must not be negative: %w", models.ErrValidation)
	}
	if _, err := s.productRepo.GetByID(ctx, orgID, productID); err != nil {
		return fmt.Errorf("product: %w", err)
	}
	variant.ID = uuid.New()
	variant.ProductID = productID
	return s.productRepo.CreateVariant(ctx, orgID, variant)
}

func (s *productService) CreateCategory(ctx context.Context, orgID uuid.UUID, category *models.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return fmt.Errorf("category name is required: %w", models.ErrValidation)
	}
	if category.ParentID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, orgID, *category.ParentID); err != nil {
			return fmt.Errorf("parent category: %w", err)
		}
	}
	category.ID = uuid.New()
	category.OrganizationID = orgID
	return s.categoryRepo.Create(ctx, category)
}

func (s *productService) ListCategories(ctx context.Context, orgID uuid.UUID) ([]*models.Category, error) {
	return s.categoryRepo.List(ctx, orgID)
}

func (s *productService) DeleteCategory(ctx context.Context, orgID, id uuid.UUID) error {
	if err := s.categoryRepo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	invalidateOrganization(ctx, s.cacheService, s.log, orgID)
	return nil
}
