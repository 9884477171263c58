package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/utils"
	"gorm.io/gorm"
)

// Firm is the tenant: one accounting office. Every other record carries its
// firm_id and is scoped by the tenant guard plugin.
type Firm struct {
	ID       uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name     string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email    string    `gorm:"size:100" json:"email"`
	Phone    string    `gorm:"size:20" json:"phone"`
	Address  string    `gorm:"size:255" json:"address"`
	Timezone string    `gorm:"size:50;default:'Asia/Jerusalem'" json:"timezone"`
	// TaxYearStartMonth anchors the check schedule (the Nth check falls on the
	// 5th of the Nth month counted from this month). Israeli tax year: January.
	TaxYearStartMonth int       `gorm:"not null;default:1" json:"tax_year_start_month"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFirm struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (firm *Firm) BeforeCreate(tx *gorm.DB) error {
	if firm.ID == uuid.Nil {
		firm.ID = uuid.New()
	}
	return nil
}

func CreateFirm(ctx context.Context, input *NewFirm) (*Firm, error) {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	db := config.GetDB()
	firm := Firm{
		Name:              input.Name,
		Email:             input.Email,
		Phone:             input.Phone,
		TaxYearStartMonth: 1,
	}
	if err := db.WithContext(ctx).Create(&firm).Error; err != nil {
		return nil, err
	}
	return &firm, nil
}

func GetFirmById(ctx context.Context, firmId string) (*Firm, error) {
	var firm Firm
	exists, err := config.GetRedisObject("Firm:"+firmId, &firm)
	if err != nil {
		return nil, err
	}
	if exists {
		return &firm, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", firmId).Take(&firm).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := config.SetRedisObject("Firm:"+firmId, &firm, 0); err != nil {
		return nil, err
	}
	return &firm, nil
}

func GetFirm(ctx context.Context) (*Firm, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return GetFirmById(ctx, firmId)
}
