// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/elianhardyy/clothing-marketplace/internal/apperrors"
	"github.com/elianhardyy/clothing-marketplace/internal/config"
	"github.com/elianhardyy/clothing-marketplace/internal/database"
	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

type UserService struct {
	db     *gorm.DB
	config *config.Config
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
	Street   string `json:"street,omitempty" validate:"omitempty,max=128"`
	City     string `json:"city,omitempty" validate:"omitempty,max=64"`
	State    string `json:"state,omitempty" validate:"omitempty,max=64"`
	ZipCode  string `json:"zip_code,omitempty" validate:"omitempty,max=20"`
	Country  string `json:"country,omitempty" validate:"omitempty,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

type UpdateProfileRequest struct {
	Name    string `json:"name,omitempty" validate:"omitempty,min=2,max=128"`
	Avatar  string `json:"avatar,omitempty" validate:"omitempty,max=255"`
	Street  string `json:"street,omitempty" validate:"omitempty,max=128"`
	City    string `json:"city,omitempty" validate:"omitempty,max=64"`
	State   string `json:"state,omitempty" validate:"omitempty,max=64"`
	ZipCode string `json:"zip_code,omitempty" validate:"omitempty,max=20"`
	Country string `json:"country,omitempty" validate:"omitempty,max=64"`
}

func NewUserService(db *gorm.DB, config *config.Config) *UserService {
	return &UserService{
		db:     db,
		config: config,
	}
}

func (s *UserService) RegisterCustomer(req *RegisterRequest) (*models.User, error) {
	return s.register(req, models.RoleCustomer)
}

func (s *UserService) RegisterMerchant(req *RegisterRequest) (*models.User, error) {
	return s.register(req, models.RoleMerchant)
}

func (s *UserService) register(req *RegisterRequest, roleName models.RoleName) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	// Check email uniqueness
	var existing models.User
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, apperrors.Conflict("Email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("database error", err)
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Street:   req.Street,
		City:     req.City,
		State:    req.State,
		ZipCode:  req.ZipCode,
		Country:  req.Country,
		IsActive: true,
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			return fmt.Errorf("role %s not found: %w", roleName, err)
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		userRole := &models.UserRole{
			UserID: user.ID,
			RoleID: role.ID,
		}
		if err := tx.Create(userRole).Error; err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, apperrors.Internal("registration failed", err)
	}

	return s.GetUserByID(user.ID)
}

func (s *UserService) Login(req *LoginRequest) (*LoginResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	var user models.User
	if err := s.db.Preload("UserRoles.Role").
		Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("Invalid email or password")
		}
		return nil, apperrors.Internal("database error", err)
	}

	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is deactivated")
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, apperrors.Validation("Invalid email or password")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, apperrors.Internal("failed to update login time", err)
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.RoleNames(), s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.config.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, apperrors.Internal("failed to generate refresh token", err)
	}

	return &LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         &user,
	}, nil
}

func (s *UserService) RefreshToken(refreshToken string) (*LoginResponse, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Validation("Invalid refresh token")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, apperrors.Validation("Invalid refresh token")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is deactivated")
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.RoleNames(), s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token", err)
	}

	newRefresh, err := utils.GenerateRefreshToken(user.ID, s.config.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, apperrors.Internal("failed to generate refresh token", err)
	}

	return &LoginResponse{
		Token:        token,
		RefreshToken: newRefresh,
		User:         user,
	}, nil
}

func (s *UserService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("UserRoles.Role").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal("database error", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "Validation failed", err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if req.Street != "" {
		user.Street = req.Street
	}
	if req.City != "" {
		user.City = req.City
	}
	if req.State != "" {
		user.State = req.State
	}
	if req.ZipCode != "" {
		user.ZipCode = req.ZipCode
	}
	if req.Country != "" {
		user.Country = req.Country
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, apperrors.Internal("failed to update profile", err)
	}

	return user, nil
}

// GetCustomers lists users who have placed at least one order, for the
// merchant dashboard.
func (s *UserService) GetCustomers(params utils.PaginationParams) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := s.db.Model(&models.User{}).
		Where("id IN (?)", s.db.Model(&models.Order{}).Select("DISTINCT user_id"))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "name", "email", "points"})
	query = utils.ApplyPagination(query, params)

	if err := query.Find(&users).Error; err != nil {
		return nil, 0, apperrors.Internal("database error", err)
	}

	return users, total, nil
}
