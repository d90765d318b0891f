// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name         string     `json:"name" gorm:"size:128;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Avatar       string     `json:"avatar,omitempty" gorm:"size:255"`
	Street       string     `json:"street,omitempty" gorm:"size:128"`
	City         string     `json:"city,omitempty" gorm:"size:64"`
	State        string     `json:"state,omitempty" gorm:"size:64"`
	ZipCode      string     `json:"zip_code,omitempty" gorm:"size:20"`
	Country      string     `json:"country,omitempty" gorm:"size:64"`
	Points       int        `json:"points" gorm:"not null;default:0"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	// Relationships
	UserRoles    []UserRole    `json:"user_roles,omitempty" gorm:"foreignKey:UserID"`
	Orders       []Order       `json:"orders,omitempty" gorm:"foreignKey:UserID"`
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// RoleNames flattens the user's role rows into their names for token claims.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.UserRoles))
	for _, ur := range u.UserRoles {
		if ur.Role.Name != "" {
			names = append(names, string(ur.Role.Name))
		}
	}
	return names
}

type Role struct {
	BaseModel
	Name RoleName `json:"name" gorm:"type:varchar(20);uniqueIndex;not null"`

	// Relationships
	UserRoles []UserRole `json:"user_roles,omitempty" gorm:"foreignKey:RoleID"`
}

type UserRole struct {
	BaseModel
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_user_roles_pair"`
	RoleID uuid.UUID `json:"role_id" gorm:"type:uuid;not null;index:idx_user_roles_pair"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}
