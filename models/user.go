package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Username   string    `gorm:"index;size:100;not null" json:"username" binding:"required"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	Role       UserRole  `gorm:"type:enum('super_user','accounts_incharge','store_manager','cashier');default:'cashier';size:20;not null" json:"role"`
	StoreId    int       `gorm:"index" json:"store_id"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role" binding:"required"`
	StoreId  int      `json:"store_id"`
}

type SigninInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SigninResponse struct {
	Token   string   `json:"token"`
	UserId  int      `json:"user_id"`
	Name    string   `json:"name"`
	Role    UserRole `json:"role"`
	StoreId int      `json:"store_id"`
}

func (u User) GetBusinessId() string {
	return u.BusinessId
}

func (u User) GetId() int {
	return u.ID
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateUnique[User](ctx, businessId, "username", input.Username, 0); err != nil {
		return nil, err
	}
	if input.StoreId > 0 {
		if err := utils.ValidateResourceId[Store](ctx, businessId, input.StoreId); err != nil {
			return nil, errors.New("store not found")
		}
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		BusinessId: businessId,
		Name:       input.Name,
		Username:   input.Username,
		Password:   string(hashed),
		Role:       input.Role,
		StoreId:    input.StoreId,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Signin verifies credentials and issues a JWT carrying role + store scope.
func Signin(ctx context.Context, input *SigninInput) (*SigninResponse, error) {

	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).
		Where("username = ? AND is_active = 1", input.Username).
		First(&user).Error
	if err != nil {
		return nil, errors.New("invalid username or password")
	}

	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return nil, errors.New("invalid username or password")
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role), user.BusinessId, user.StoreId)
	if err != nil {
		return nil, err
	}

	return &SigninResponse{
		Token:   token,
		UserId:  user.ID,
		Name:    user.Name,
		Role:    user.Role,
		StoreId: user.StoreId,
	}, nil
}

// GetCallerRole is the identity collaborator interface: role lookup by user id.
func GetCallerRole(ctx context.Context, userId int) (UserRole, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", errors.New("business id is required")
	}
	user, err := utils.FetchModel[User](ctx, businessId, userId)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return GetResource[User](ctx, id)
}
