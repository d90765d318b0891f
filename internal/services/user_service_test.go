package services

import (
	"fmt"

	"github.com/elianhardyy/clothing-marketplace/internal/apperrors"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

func (s *ServiceTestSuite) TestRegisterCustomerAssignsRole() {
	user := s.createCustomer("hugo")

	s.NotEmpty(user.ID)
	s.Equal([]string{"CUSTOMER"}, user.RoleNames())
	s.NotEqual("Sup3r$ecret!", user.PasswordHash)
	s.True(user.IsActive)
	s.Zero(user.Points)
}

func (s *ServiceTestSuite) TestRegisterMerchantAssignsRole() {
	testUserSeq++
	merchant, err := s.users.RegisterMerchant(&RegisterRequest{
		Name:     "Thread & Co",
		Email:    fmt.Sprintf("merchant%d@example.com", testUserSeq),
		Password: "Sup3r$ecret!",
	})
	s.Require().NoError(err)
	s.Equal([]string{"MERCHANT"}, merchant.RoleNames())
}

func (s *ServiceTestSuite) TestRegisterDuplicateEmail() {
	testUserSeq++
	email := fmt.Sprintf("dup%d@example.com", testUserSeq)

	_, err := s.users.RegisterCustomer(&RegisterRequest{
		Name: "First", Email: email, Password: "Sup3r$ecret!",
	})
	s.Require().NoError(err)

	_, err = s.users.RegisterCustomer(&RegisterRequest{
		Name: "Second", Email: email, Password: "Sup3r$ecret!",
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindConflict, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestRegisterWeakPassword() {
	testUserSeq++
	_, err := s.users.RegisterCustomer(&RegisterRequest{
		Name:     "Weak",
		Email:    fmt.Sprintf("weak%d@example.com", testUserSeq),
		Password: "password",
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestLoginIssuesToken() {
	utils.SetJWTSecret(s.cfg.JWT.SecretKey)
	user := s.createCustomer("iris")

	response, err := s.users.Login(&LoginRequest{
		Email:    user.Email,
		Password: "Sup3r$ecret!",
	})
	s.Require().NoError(err)
	s.NotEmpty(response.Token)
	s.NotEmpty(response.RefreshToken)
	s.NotNil(response.User.LastLoginAt)

	claims, err := utils.ValidateJWT(response.Token)
	s.Require().NoError(err)
	s.Equal(user.ID.String(), claims.UserID)
	s.Equal([]string{"CUSTOMER"}, claims.Roles)
}

func (s *ServiceTestSuite) TestLoginWrongPassword() {
	user := s.createCustomer("jill")

	_, err := s.users.Login(&LoginRequest{
		Email:    user.Email,
		Password: "Wr0ng$ecret!",
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestLoginUnknownEmail() {
	_, err := s.users.Login(&LoginRequest{
		Email:    "nobody@example.com",
		Password: "Sup3r$ecret!",
	})
	s.Require().Error(err)
	s.Equal(apperrors.KindValidation, apperrors.KindOf(err))
}

func (s *ServiceTestSuite) TestGetCustomersListsOnlyBuyers() {
	buyer := s.createCustomer("kara")
	s.createCustomer("lurker")
	product := s.createProduct("Graphic Tee", "15.00", 5)

	s.placeOrder(buyer, OrderItemRequest{ProductID: product.ID.String(), Quantity: 1})

	params := utils.PaginationParams{Page: 1, Limit: 10, Sort: "created_at", Order: "desc"}
	customers, total, err := s.users.GetCustomers(params)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(customers, 1)
	s.Equal(buyer.ID, customers[0].ID)
}
