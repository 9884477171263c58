package models

import (
	"context"
	"errors"
	"time"

	"github.com/shavivco/backoffice_backend/utils"
)

// ContactPerson belongs to a client. EmailEnabled controls whether the
// contact is included in letter recipient lists by default.
type ContactPerson struct {
	ID           int       `gorm:"primary_key" json:"id"`
	FirmId       string    `gorm:"index;not null" json:"firm_id"`
	ClientId     int       `gorm:"index;not null" json:"client_id"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        string    `gorm:"size:100" json:"email"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Mobile       string    `gorm:"size:20" json:"mobile"`
	EmailEnabled *bool     `gorm:"not null;default:true" json:"email_enabled"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewContactPerson struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Mobile       string `json:"mobile"`
	EmailEnabled *bool  `json:"email_enabled"`
}

func (input *NewContactPerson) validate(ctx context.Context) error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid contact email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	if input.Mobile != "" {
		if err := utils.ValidatePhoneNumber(input.Mobile, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func (input *NewContactPerson) toModel(firmId string, clientId int) *ContactPerson {
	enabled := input.EmailEnabled
	if enabled == nil {
		enabled = utils.NewTrue()
	}
	return &ContactPerson{
		FirmId:       firmId,
		ClientId:     clientId,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Mobile:       input.Mobile,
		EmailEnabled: enabled,
	}
}
