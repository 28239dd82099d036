package models

import (
	"context"
	"strings"
	"time"

	"github.com/LakshayGajra/material-audit-mvp-sub001/config"
	"github.com/LakshayGajra/material-audit-mvp-sub001/utils"
)

type Material struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"size:64;not null;uniqueIndex:uniq_material_code" json:"businessId"`
	Code       string    `gorm:"size:50;not null;uniqueIndex:uniq_material_code" json:"code"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Unit       string    `gorm:"size:20" json:"unit"`
	IsActive   *bool     `gorm:"not null;default:true" json:"isActive"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewMaterial struct {
	Code string `json:"code" validate:"required,max=50"`
	Name string `json:"name" validate:"required,max=100"`
	Unit string `json:"unit" validate:"max=20"`
}

func CreateMaterial(ctx context.Context, input *NewMaterial) (*Material, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if problem := utils.ValidateStruct(input); problem != nil {
		return nil, newValidationError(problem.Field, problem.Message)
	}

	material := Material{
		BusinessId: businessId,
		Code:       input.Code,
		Name:       input.Name,
		Unit:       strings.TrimSpace(input.Unit),
		IsActive:   utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&material).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, newValidationError("code", "already exists")
		}
		return nil, err
	}
	return &material, nil
}

func GetMaterial(ctx context.Context, id int) (*Material, error) {
	businessId, err := requireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	material, err := utils.FetchModel[Material](ctx, config.GetDB(), businessId, id)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, &NotFoundError{Entity: "material", Id: id}
		}
		return nil, err
	}
	return material, nil
}
