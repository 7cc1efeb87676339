package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/config"
	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
)

// Store is owned by administration; the core references it but never mutates
// it (beyond creation at setup time).
type Store struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	StoreCode  string    `gorm:"size:50;not null" json:"store_code" binding:"required"`
	Address    string    `gorm:"type:text" json:"address"`
	Timezone   string    `gorm:"size:50" json:"timezone"`
	IsDefault  *bool     `gorm:"not null;default:false" json:"is_default"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name      string `json:"name" binding:"required"`
	StoreCode string `json:"store_code" binding:"required"`
	Address   string `json:"address"`
	Timezone  string `json:"timezone"`
	IsDefault *bool  `json:"is_default"`
}

func (s Store) GetBusinessId() string {
	return s.BusinessId
}

func (s Store) GetId() int {
	return s.ID
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateUnique[Store](ctx, businessId, "store_code", input.StoreCode, 0); err != nil {
		return nil, err
	}

	store := Store{
		BusinessId: businessId,
		Name:       input.Name,
		StoreCode:  input.StoreCode,
		Address:    input.Address,
		Timezone:   input.Timezone,
		IsDefault:  input.IsDefault,
		IsActive:   utils.NewTrue(),
	}
	if store.IsDefault == nil {
		store.IsDefault = utils.NewFalse()
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&store).Error
	if err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Store](businessId); err != nil {
		return nil, err
	}
	return &store, nil
}

func GetStore(ctx context.Context, id int) (*Store, error) {
	return GetResource[Store](ctx, id)
}

// GetDefaultStore returns the store flagged default, falling back to the
// oldest active store when none is flagged.
func GetDefaultStore(ctx context.Context) (*Store, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var store Store
	err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = 1", businessId).
		Order("is_default DESC, created_at ASC").
		First(&store).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &store, nil
}

func GetStores(ctx context.Context) ([]*Store, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ListAllResource[Store, Store](ctx, "name")
}

// GetAccessibleStores narrows the store list to what the caller may see:
// store staff see their own store, elevated roles see all of them.
func GetAccessibleStores(ctx context.Context) ([]*Store, error) {

	stores, err := GetStores(ctx)
	if err != nil {
		return nil, err
	}

	role := CallerRole(ctx)
	if role == UserRoleSuperUser || role == UserRoleAccountsIncharge {
		return stores, nil
	}

	storeId, _ := utils.GetStoreIdFromContext(ctx)
	accessible := make([]*Store, 0, 1)
	for _, s := range stores {
		if s.ID == storeId {
			accessible = append(accessible, s)
		}
	}
	return accessible, nil
}
