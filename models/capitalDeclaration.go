package models

import (
	"context"
	"errors"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/utils"
)

// CapitalDeclaration tracks a client's capital declaration request from the
// tax authority until submission.
type CapitalDeclaration struct {
	ID        int               `gorm:"primary_key" json:"id"`
	FirmId    string            `gorm:"index;not null" json:"firm_id"`
	ClientId  int               `gorm:"index;not null" json:"client_id" binding:"required"`
	Client    *Client           `json:"client"`
	TaxYear   int               `gorm:"not null" json:"tax_year" binding:"required"`
	DueDate   time.Time         `json:"due_date"`
	Status    DeclarationStatus `gorm:"type:enum('pending','requested','submitted');not null;default:'pending'" json:"status"`
	Notes     string            `gorm:"type:text" json:"notes"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCapitalDeclaration struct {
	ClientId int       `json:"client_id" binding:"required"`
	TaxYear  int       `json:"tax_year" binding:"required"`
	DueDate  time.Time `json:"due_date"`
	Notes    string    `json:"notes"`
}

func CreateCapitalDeclaration(ctx context.Context, input *NewCapitalDeclaration) (*CapitalDeclaration, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if err := utils.ValidateResourceId[Client](ctx, firmId, input.ClientId); err != nil {
		return nil, errors.New("client not found")
	}

	db := config.GetDB()
	decl := CapitalDeclaration{
		FirmId:   firmId,
		ClientId: input.ClientId,
		TaxYear:  input.TaxYear,
		DueDate:  input.DueDate,
		Status:   DeclarationStatusPending,
		Notes:    input.Notes,
	}
	if err := db.WithContext(ctx).Create(&decl).Error; err != nil {
		return nil, err
	}
	return &decl, nil
}

func UpdateDeclarationStatus(ctx context.Context, id int, status DeclarationStatus) (*CapitalDeclaration, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	decl, err := utils.FetchModel[CapitalDeclaration](ctx, firmId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&decl).Update("status", status).Error; err != nil {
		return nil, err
	}
	return decl, nil
}

func GetCapitalDeclaration(ctx context.Context, id int) (*CapitalDeclaration, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[CapitalDeclaration](ctx, firmId, id, "Client")
}

func ListCapitalDeclarations(ctx context.Context, taxYear int) ([]*CapitalDeclaration, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("firm_id = ?", firmId).Preload("Client")
	if taxYear > 0 {
		dbCtx = dbCtx.Where("tax_year = ?", taxYear)
	}
	var decls []*CapitalDeclaration
	if err := dbCtx.Order("due_date ASC").Find(&decls).Error; err != nil {
		return nil, err
	}
	return decls, nil
}
