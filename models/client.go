package models

import (
	"context"
	"errors"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/utils"
)

type Client struct {
	ID     int    `gorm:"primary_key" json:"id"`
	FirmId string `gorm:"index;not null" json:"firm_id"`
	Name   string `gorm:"size:100;not null" json:"name" binding:"required"`
	// CompanyNumber is the registrar number (ח.פ / ע.מ) printed on letters.
	CompanyNumber    string           `gorm:"size:20" json:"company_number"`
	Email            string           `gorm:"size:100" json:"email"`
	Phone            string           `gorm:"size:20" json:"phone"`
	InternalExternal ClientType       `gorm:"type:enum('internal','external');not null;default:'external'" json:"internal_external"`
	IsRetainer       *bool            `gorm:"not null;default:false" json:"is_retainer"`
	GroupId          *int             `gorm:"index" json:"group_id"`
	Group            *Group           `json:"group"`
	ContactPersons   []*ContactPerson `json:"contact_persons"`
	Notes            string           `gorm:"type:text" json:"notes"`
	IsActive         *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name             string              `json:"name" binding:"required"`
	CompanyNumber    string              `json:"company_number"`
	Email            string              `json:"email"`
	Phone            string              `json:"phone"`
	InternalExternal ClientType          `json:"internal_external" binding:"required"`
	IsRetainer       *bool               `json:"is_retainer"`
	GroupId          *int                `json:"group_id"`
	ContactPersons   []*NewContactPerson `json:"contact_persons"`
	Notes            string              `json:"notes"`
}

// DisplayName is the name printed on letters: the group name when the client
// belongs to a group (combined letters address the group), else the client name.
func (c *Client) DisplayName() string {
	if c.Group != nil && c.Group.Name != "" {
		return c.Group.Name
	}
	return c.Name
}

func (input *NewClient) validate(ctx context.Context, firmId string, id int) error {
	if !input.InternalExternal.Valid() {
		return errors.New("internal_external must be 'internal' or 'external'")
	}
	if err := utils.ValidateUnique[Client](ctx, firmId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	if input.GroupId != nil && *input.GroupId > 0 {
		if err := utils.ValidateResourceId[Group](ctx, firmId, *input.GroupId); err != nil {
			return errors.New("group not found")
		}
	}
	for _, contact := range input.ContactPersons {
		if err := contact.validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId, 0); err != nil {
		return nil, err
	}

	isRetainer := input.IsRetainer
	if isRetainer == nil {
		isRetainer = utils.NewFalse()
	}

	db := config.GetDB()
	client := Client{
		FirmId:           firmId,
		Name:             input.Name,
		CompanyNumber:    input.CompanyNumber,
		Email:            input.Email,
		Phone:            input.Phone,
		InternalExternal: input.InternalExternal,
		IsRetainer:       isRetainer,
		GroupId:          input.GroupId,
		Notes:            input.Notes,
		IsActive:         utils.NewTrue(),
	}
	for _, contact := range input.ContactPersons {
		client.ContactPersons = append(client.ContactPersons, contact.toModel(firmId, 0))
	}
	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func UpdateClient(ctx context.Context, id int, input *NewClient) (*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	client, err := utils.FetchModel[Client](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, firmId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	updates := map[string]interface{}{
		"Name":             input.Name,
		"CompanyNumber":    input.CompanyNumber,
		"Email":            input.Email,
		"Phone":            input.Phone,
		"InternalExternal": input.InternalExternal,
		"GroupId":          input.GroupId,
		"Notes":            input.Notes,
	}
	if input.IsRetainer != nil {
		updates["IsRetainer"] = input.IsRetainer
	}
	if err := db.WithContext(ctx).Model(&client).Updates(updates).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func DeleteClient(ctx context.Context, id int) (*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	// Fee history must stay reconstructable; block deletion instead of cascading.
	count, err := utils.ResourceCountWhere[FeeCalculation](ctx, firmId, "client_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("client has fee calculations")
	}

	db := config.GetDB()
	client, err := utils.FetchModel[Client](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Where("client_id = ?", id).Delete(&ContactPerson{}).Error; err != nil {
		return nil, err
	}
	if err = db.WithContext(ctx).Delete(&client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func ToggleActiveClient(ctx context.Context, id int, isActive bool) (*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	client, err := utils.FetchModel[Client](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&client).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func GetClient(ctx context.Context, id int) (*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[Client](ctx, firmId, id, "Group", "ContactPersons")
}

func ListClients(ctx context.Context) ([]*Client, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchAllModels[Client](ctx, firmId, "Group")
}
