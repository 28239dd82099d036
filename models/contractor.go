package models

import (
	"context"
	"strings"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
)

// Contractor is directory data owned elsewhere; this service only reads it
// (seed-dev writes it).
type Contractor struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"size:64;not null;uniqueIndex:uniq_contractor_code" json:"businessId"`
	Code       string    `gorm:"size:50;not null;uniqueIndex:uniq_contractor_code" json:"code"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	IsActive   *bool     `gorm:"not null;default:true" json:"isActive"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewContractor struct {
	Code string `json:"code" validate:"required,max=50"`
	Name string `json:"name" validate:"required,max=100"`
}

func CreateContractor(ctx context.Context, input *NewContractor) (*Contractor, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if problem := utils.ValidateStruct(input); problem != nil {
		return nil, newValidationError(problem.Field, problem.Message)
	}

	contractor := Contractor{
		BusinessId: businessId,
		Code:       input.Code,
		Name:       input.Name,
		IsActive:   utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&contractor).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, newValidationError("code", "already exists")
		}
		return nil, err
	}
	return &contractor, nil
}

func GetContractor(ctx context.Context, id int) (*Contractor, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	contractor, err := utils.FetchModel[Contractor](ctx, config.GetDB(), businessId, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, &NotFoundError{Entity: "contractor", Id: id}
		}
		return nil, err
	}
	return contractor, nil
}
