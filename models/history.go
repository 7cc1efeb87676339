package models

import (
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/dailysales_backend/utils"
	"gorm.io/gorm"
)

// History is the immutable audit trail. A row is appended, inside the same DB
// transaction, for every state transition in the transfer, adjustment and
// reconciliation flows. Rows are never updated or deleted.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BusinessId    string    `gorm:"index;not null" json:"business_id"`
	ActionType    string    `gorm:"size:20;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceId   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CreateHistory appends an audit row using the caller identity from the
// transaction's context.
func CreateHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	history.BusinessId = businessId
	history.ActionType = actionType
	history.ReferenceId = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.UserName = userName
	history.Description = description
	if before != nil {
		history.Before = string(b)
	}
	if after != nil {
		history.After = string(a)
	}

	return tx.Create(&history).Error
}

// GetHistories lists audit rows for a reference, newest first.
func GetHistories(tx *gorm.DB, businessId string, referenceType string, referenceId int) ([]*History, error) {
	var results []*History
	err := tx.
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, referenceType, referenceId).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
