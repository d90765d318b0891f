package services

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/elianhardyy/clothing-marketplace/internal/apperrors"
	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

func (s *ServiceTestSuite) TestCreateProduct() {
	var category models.Category
	s.Require().NoError(s.db.First(&category).Error)

	product, err := s.products.CreateProduct(&CreateProductRequest{
		Name:       "Merino Sweater",
		Price:      "65.50",
		Stock:      12,
		CategoryID: category.ID.String(),
		Sizes:      []string{"S", "M", "L"},
		Colors:     []string{"navy", "oat"},
		Brand:      "Northloom",
	})
	s.Require().NoError(err)

	s.True(product.Price.Equal(decimal.RequireFromString("65.50")))
	s.Equal(12, product.Stock)
	s.Equal(category.ID, product.CategoryID)
	s.Equal(category.Name, product.Category.Name)
}

func (s *ServiceTestSuite) TestCreateProductUnknownCategory() {
	_, err := s.products.CreateProduct(&CreateProductRequest{
		Name:       "Orphan Product",
		Price:      "10.00",
		CategoryID: uuid.New().String(),
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindNotFound, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestCreateProductDuplicateName() {
	s.createProduct("Twice Named", "10.00", 5)

	var category models.Category
	s.Require().NoError(s.db.First(&category).Error)

	_, err := s.products.CreateProduct(&CreateProductRequest{
		Name:       "Twice Named",
		Price:      "12.00",
		CategoryID: category.ID.String(),
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindConflict, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestUpdateProduct() {
	product := s.createProduct("Old Name", "20.00", 3)

	newStock := 9
	updated, err := s.products.UpdateProduct(product.ID, &UpdateProductRequest{
		Name:  "New Name",
		Price: "22.50",
		Stock: &newStock,
	})
	s.Require().NoError(err)
	s.Equal("New Name", updated.Name)
	s.True(updated.Price.Equal(decimal.RequireFromString("22.50")))
	s.Equal(9, updated.Stock)
}

func (s *ServiceTestSuite) TestDeleteProduct() {
	product := s.createProduct("Doomed", "10.00", 1)

	s.Require().NoError(s.products.DeleteProduct(product.ID))

	_, err := s.products.GetProductByID(product.ID)
	s.Require().Error(err)
	s.Equal(apperrors.KindNotFound, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestListProductsFilters() {
	cheap := s.createProduct("Basic Tee", "9.99", 10)
	s.createProduct("Designer Coat", "250.00", 2)
	soldOut := s.createProduct("Sold Out Scarf", "19.99", 0)

	params := utils.PaginationParams{Page: 1, Limit: 10, Sort: "price", Order: "asc"}

	under50, total, err := s.products.ListProducts(params, ProductFilters{MaxPrice: "50.00"})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(under50, 2)
	s.Equal(cheap.ID, under50[0].ID)

	inStock, total, err := s.products.ListProducts(params, ProductFilters{InStock: true})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	for _, p := range inStock {
		s.NotEqual(soldOut.ID, p.ID)
	}

	byBrand, total, err := s.products.ListProducts(params, ProductFilters{Brand: "TestBrand"})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(byBrand, 3)
}

func (s *ServiceTestSuite) TestFeaturedProducts() {
	product := s.createProduct("Showpiece Blazer", "150.00", 4)
	s.Require().NoError(s.db.Model(&models.Product{}).
		Where("id = ?", product.ID).Update("featured", true).Error)
	s.createProduct("Background Hoodie", "40.00", 4)

	featured, err := s.products.GetFeaturedProducts(8)
	s.Require().NoError(err)
	s.Require().Len(featured, 1)
	s.Equal(product.ID, featured[0].ID)
}

func (s *ServiceTestSuite) TestListCategoriesSeeded() {
	categories, err := s.products.ListCategories()
	s.Require().NoError(err)
	s.NotEmpty(categories)
}
