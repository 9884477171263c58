package models

import (
	"context"
	"errors"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/utils"
)

// Group bundles related clients (e.g. companies under one owner) so a single
// combined letter can be produced for the whole group.
type Group struct {
	ID        int       `gorm:"primary_key" json:"id"`
	FirmId    string    `gorm:"index;not null" json:"firm_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Clients   []*Client `json:"clients"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewGroup struct {
	Name string `json:"name" binding:"required"`
}

func (input *NewGroup) validate(ctx context.Context, firmId string, id int) error {
	if err := utils.ValidateUnique[Group](ctx, firmId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateGroup(ctx context.Context, input *NewGroup) (*Group, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	group := Group{
		FirmId:   firmId,
		Name:     input.Name,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func UpdateGroup(ctx context.Context, id int, input *NewGroup) (*Group, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	db := config.GetDB()
	group, err := utils.FetchModel[Group](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&group).Updates(map[string]interface{}{
		"Name": input.Name,
	}).Error; err != nil {
		return nil, err
	}
	return group, nil
}

func DeleteGroup(ctx context.Context, id int) (*Group, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	count, err := utils.ResourceCountWhere[Client](ctx, firmId, "group_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("group has clients")
	}

	db := config.GetDB()
	group, err := utils.FetchModel[Group](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if err = db.WithContext(ctx).Delete(&group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

func GetGroup(ctx context.Context, id int) (*Group, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Group](ctx, firmId, id, "Clients")
}

func ListGroups(ctx context.Context) ([]*Group, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Group](ctx, firmId)
}
