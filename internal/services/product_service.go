// internal/services/product_service.go
package services

import (
	"errors"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/elianhardyy/clothing-marketplace/internal/apperrors"
	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

type ProductService struct {
	db             *gorm.DB
	storageService *StorageService
}

type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=100"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price" validate:"required"`
	Stock       int      `json:"stock" validate:"min=0"`
	CategoryID  string   `json:"category_id" validate:"required,uuid"`
	Images      []string `json:"images,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Brand       string   `json:"brand,omitempty" validate:"omitempty,max=50"`
	Featured    bool     `json:"featured,omitempty"`
}

type UpdateProductRequest struct {
	Name        string   `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description *string  `json:"description,omitempty"`
	Price       string   `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,min=0"`
	CategoryID  string   `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Images      []string `json:"images,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Brand       string   `json:"brand,omitempty" validate:"omitempty,max=50"`
	Featured    *bool    `json:"featured,omitempty"`
}

type ProductFilters struct {
	CategoryID string
	Brand      string
	MinPrice   string
	MaxPrice   string
	InStock    bool
	Featured   bool
	Search     string
}

func NewProductService(db *gorm.DB, storageService *StorageService) *ProductService {
	return &ProductService{
		db:             db,
		storageService: storageService,
	}
}

func (s *ProductService) CreateProduct(req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, apperrors.Validation("Invalid product price")
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, apperrors.Validation("Invalid category id")
	}

	var category models.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Category not found")
		}
		return nil, apperrors.Internal("database error", err)
	}

	var existing models.Product
	if err := s.db.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		return nil, apperrors.Conflict("A product with this name already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("database error", err)
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		CategoryID:  categoryID,
		Images:      pq.StringArray(req.Images),
		Sizes:       pq.StringArray(req.Sizes),
		Colors:      pq.StringArray(req.Colors),
		Brand:       req.Brand,
		Featured:    req.Featured,
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, apperrors.Internal("failed to create product", err)
	}

	return s.GetProductByID(product.ID)
}

func (s *ProductService) GetProductByID(productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.Preload("Category").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &product, nil
}

func (s *ProductService) UpdateProduct(productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	product, err := s.GetProductByID(productID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" && req.Name != product.Name {
		var existing models.Product
		if err := s.db.Where("name = ? AND id != ?", req.Name, productID).First(&existing).Error; err == nil {
			return nil, apperrors.Conflict("A product with this name already exists")
		}
		product.Name = req.Name
	}

	if req.Description != nil {
		product.Description = *req.Description
	}

	if req.Price != "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			return nil, apperrors.Validation("Invalid product price")
		}
		product.Price = price
	}

	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if req.CategoryID != "" {
		categoryID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			return nil, apperrors.Validation("Invalid category id")
		}
		var category models.Category
		if err := s.db.First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("Category not found")
			}
			return nil, apperrors.Internal("database error", err)
		}
		product.CategoryID = categoryID
	}

	if req.Images != nil {
		product.Images = pq.StringArray(req.Images)
	}
	if req.Sizes != nil {
		product.Sizes = pq.StringArray(req.Sizes)
	}
	if req.Colors != nil {
		product.Colors = pq.StringArray(req.Colors)
	}
	if req.Brand != "" {
		product.Brand = req.Brand
	}
	if req.Featured != nil {
		product.Featured = *req.Featured
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, apperrors.Internal("failed to update product", err)
	}

	return s.GetProductByID(product.ID)
}

func (s *ProductService) DeleteProduct(productID uuid.UUID) error {
	product, err := s.GetProductByID(productID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(product).Error; err != nil {
		return apperrors.Internal("failed to delete product", err)
	}

	return nil
}

func (s *ProductService) ListProducts(params utils.PaginationParams, filters ProductFilters) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := s.db.Model(&models.Product{}).Preload("Category")

	if filters.CategoryID != "" {
		categoryID, err := uuid.Parse(filters.CategoryID)
		if err != nil {
			return nil, 0, apperrors.Validation("Invalid category id")
		}
		query = query.Where("category_id = ?", categoryID)
	}

	if filters.Brand != "" {
		query = query.Where("brand = ?", filters.Brand)
	}

	if filters.MinPrice != "" {
		minPrice, err := decimal.NewFromString(filters.MinPrice)
		if err != nil {
			return nil, 0, apperrors.Validation("Invalid minimum price")
		}
		query = query.Where("price >= ?", minPrice)
	}

	if filters.MaxPrice != "" {
		maxPrice, err := decimal.NewFromString(filters.MaxPrice)
		if err != nil {
			return nil, 0, apperrors.Validation("Invalid maximum price")
		}
		query = query.Where("price <= ?", maxPrice)
	}

	if filters.InStock {
		query = query.Where("stock > 0")
	}

	if filters.Featured {
		query = query.Where("featured = ?", true)
	}

	if filters.Search != "" {
		search := "%" + filters.Search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", search, search)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "name", "price", "ratings", "stock"})
	query = utils.ApplyPagination(query, params)

	if err := query.Find(&products).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	return products, total, nil
}

func (s *ProductService) GetFeaturedProducts(limit int) ([]models.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 8
	}

	var products []models.Product
	if err := s.db.Preload("Category").
		Where("featured = ? AND stock > 0", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, apperrors.Internal("database error", err)
	}

	return products, nil
}

func (s *ProductService) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Internal("database error", err)
	}
	return categories, nil
}

// UploadProductImage stores an image and appends its URL to the product's
// image list.
func (s *ProductService) UploadProductImage(productID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*models.Product, error) {
	product, err := s.GetProductByID(productID)
	if err != nil {
		return nil, err
	}

	result, err := s.storageService.UploadFile(file, header, UploadOptions{
		Folder:       "products",
		MaxSize:      5 * 1024 * 1024,
		AllowedTypes: []string{".jpg", ".jpeg", ".png", ".webp"},
		IsPublic:     true,
	})
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	product.Images = append(product.Images, result.URL)
	if err := s.db.Model(product).Update("images", product.Images).Error; err != nil {
		return nil, apperrors.Internal("failed to save product image", err)
	}

	return product, nil
}
