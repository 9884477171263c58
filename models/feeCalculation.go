package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

// BookkeepingCalculation is the bookkeeping-track sub-record of a fee
// calculation. Stored as JSON text (same approach as other structured columns
// here: no MySQL JSON column requirement).
type BookkeepingCalculation struct {
	BaseAmount        decimal.Decimal `json:"base_amount"`
	FinalAmount       decimal.Decimal `json:"final_amount"`
	ApplyInflation    bool            `json:"apply_inflation"`
	HasRealAdjustment bool            `json:"has_real_adjustment"`
}

func (b BookkeepingCalculation) Value() (driver.Value, error) {
	data, err := json.Marshal(b)
	return string(data), err
}

func (b *BookkeepingCalculation) Scan(value interface{}) error {
	return scanJSONColumn(value, b)
}

type RetainerCalculation struct {
	BaseAmount        decimal.Decimal `json:"base_amount"`
	FinalAmount       decimal.Decimal `json:"final_amount"`
	ApplyInflation    bool            `json:"apply_inflation"`
	HasRealAdjustment bool            `json:"has_real_adjustment"`
}

func (r RetainerCalculation) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	return string(data), err
}

func (r *RetainerCalculation) Scan(value interface{}) error {
	return scanJSONColumn(value, r)
}

// RealAdjustments is a free-form fee adjustment with its reason, used for the
// "real change" letter basis.
type RealAdjustments struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (r RealAdjustments) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	return string(data), err
}

func (r *RealAdjustments) Scan(value interface{}) error {
	return scanJSONColumn(value, r)
}

func scanJSONColumn(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}

// FeeCalculation is one client's yearly fee. It is the read-only input of the
// letter engine; the letter workflow never mutates it.
type FeeCalculation struct {
	ID       int    `gorm:"primary_key" json:"id"`
	FirmId   string `gorm:"index;not null" json:"firm_id"`
	ClientId int    `gorm:"index;not null" json:"client_id" binding:"required"`
	Client   *Client `json:"client"`
	GroupId  *int   `gorm:"index" json:"group_id"`
	Year     int    `gorm:"not null;index" json:"year" binding:"required"`

	BaseAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_amount"`
	FinalAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_amount"`
	VatAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vat_amount"`
	InflationRate  decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"inflation_rate"`
	ApplyInflation *bool           `gorm:"not null;default:false" json:"apply_inflation"`

	BookkeepingCalculation *BookkeepingCalculation `gorm:"type:longtext" json:"bookkeeping_calculation"`
	RetainerCalculation    *RetainerCalculation    `gorm:"type:longtext" json:"retainer_calculation"`
	RealAdjustments        *RealAdjustments        `gorm:"type:longtext" json:"real_adjustments"`

	BankTransferOnly            *bool           `gorm:"not null;default:false" json:"bank_transfer_only"`
	BankTransferDiscountPercent decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"bank_transfer_discount_percent"`
	BankTransferBeforeVat       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bank_transfer_before_vat"`
	BankTransferWithVat         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"bank_transfer_with_vat"`

	CustomPaymentText string    `gorm:"type:text" json:"custom_payment_text"`
	Status            FeeStatus `gorm:"type:enum('draft','sent','paid','overdue');not null;default:'draft'" json:"status"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasRealAdjustment reports whether the audit track carries a real adjustment.
func (f *FeeCalculation) HasRealAdjustment() bool {
	return f.RealAdjustments != nil && !f.RealAdjustments.Amount.IsZero()
}

type NewFeeCalculation struct {
	ClientId int  `json:"client_id" binding:"required"`
	GroupId  *int `json:"group_id"`
	Year     int  `json:"year" binding:"required"`

	BaseAmount     decimal.Decimal `json:"base_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	VatAmount      decimal.Decimal `json:"vat_amount"`
	InflationRate  decimal.Decimal `json:"inflation_rate"`
	ApplyInflation *bool           `json:"apply_inflation"`

	BookkeepingCalculation *BookkeepingCalculation `json:"bookkeeping_calculation"`
	RetainerCalculation    *RetainerCalculation    `json:"retainer_calculation"`
	RealAdjustments        *RealAdjustments        `json:"real_adjustments"`

	BankTransferOnly            *bool           `json:"bank_transfer_only"`
	BankTransferDiscountPercent decimal.Decimal `json:"bank_transfer_discount_percent"`
	BankTransferBeforeVat       decimal.Decimal `json:"bank_transfer_before_vat"`
	BankTransferWithVat         decimal.Decimal `json:"bank_transfer_with_vat"`

	CustomPaymentText string `json:"custom_payment_text"`
}

func (input *NewFeeCalculation) validate(ctx context.Context, firmId string) error {
	if err := utils.ValidateResourceId[Client](ctx, firmId, input.ClientId); err != nil {
		return errors.New("client not found")
	}
	if input.GroupId != nil && *input.GroupId > 0 {
		if err := utils.ValidateResourceId[Group](ctx, firmId, *input.GroupId); err != nil {
			return errors.New("group not found")
		}
	}
	if input.Year < 2000 || input.Year > 2100 {
		return errors.New("invalid year")
	}
	if input.BaseAmount.IsNegative() || input.FinalAmount.IsNegative() {
		return errors.New("amount cannot be negative")
	}
	return nil
}

func CreateFeeCalculation(ctx context.Context, input *NewFeeCalculation) (*FeeCalculation, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	if err := input.validate(ctx, firmId); err != nil {
		return nil, err
	}

	// one calculation per client per year
	count, err := utils.ResourceCountWhere[FeeCalculation](ctx, firmId, "client_id = ? AND year = ?", input.ClientId, input.Year)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("fee calculation already exists for this client and year")
	}

	applyInflation := input.ApplyInflation
	if applyInflation == nil {
		applyInflation = utils.NewFalse()
	}
	bankTransferOnly := input.BankTransferOnly
	if bankTransferOnly == nil {
		bankTransferOnly = utils.NewFalse()
	}

	db := config.GetDB()
	fee := FeeCalculation{
		FirmId:                      firmId,
		ClientId:                    input.ClientId,
		GroupId:                     input.GroupId,
		Year:                        input.Year,
		BaseAmount:                  input.BaseAmount,
		FinalAmount:                 input.FinalAmount,
		VatAmount:                   input.VatAmount,
		InflationRate:               input.InflationRate,
		ApplyInflation:              applyInflation,
		BookkeepingCalculation:      input.BookkeepingCalculation,
		RetainerCalculation:         input.RetainerCalculation,
		RealAdjustments:             input.RealAdjustments,
		BankTransferOnly:            bankTransferOnly,
		BankTransferDiscountPercent: input.BankTransferDiscountPercent,
		BankTransferBeforeVat:       input.BankTransferBeforeVat,
		BankTransferWithVat:         input.BankTransferWithVat,
		CustomPaymentText:           input.CustomPaymentText,
		Status:                      FeeStatusDraft,
	}
	if err := db.WithContext(ctx).Create(&fee).Error; err != nil {
		return nil, err
	}
	return &fee, nil
}

func UpdateFeeCalculation(ctx context.Context, id int, input *NewFeeCalculation) (*FeeCalculation, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	fee, err := utils.FetchModel[FeeCalculation](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if fee.Status != FeeStatusDraft {
		return nil, errors.New("only draft fee calculations can be edited")
	}
	if err := input.validate(ctx, firmId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	updates := map[string]interface{}{
		"BaseAmount":                  input.BaseAmount,
		"FinalAmount":                 input.FinalAmount,
		"VatAmount":                   input.VatAmount,
		"InflationRate":               input.InflationRate,
		"BankTransferDiscountPercent": input.BankTransferDiscountPercent,
		"BankTransferBeforeVat":       input.BankTransferBeforeVat,
		"BankTransferWithVat":         input.BankTransferWithVat,
		"CustomPaymentText":           input.CustomPaymentText,
		"BookkeepingCalculation":      input.BookkeepingCalculation,
		"RetainerCalculation":         input.RetainerCalculation,
		"RealAdjustments":             input.RealAdjustments,
	}
	if input.ApplyInflation != nil {
		updates["ApplyInflation"] = input.ApplyInflation
	}
	if input.BankTransferOnly != nil {
		updates["BankTransferOnly"] = input.BankTransferOnly
	}
	if err := db.WithContext(ctx).Model(&fee).Updates(updates).Error; err != nil {
		return nil, err
	}
	return fee, nil
}

// UpdateFeeStatus moves a fee calculation along its workflow. Transitions are
// append-only: draft -> sent -> paid/overdue.
func UpdateFeeStatus(ctx context.Context, id int, next FeeStatus) (*FeeCalculation, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	fee, err := utils.FetchModel[FeeCalculation](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if !fee.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("cannot transition fee status from %s to %s", fee.Status, next)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&fee).Update("status", next).Error; err != nil {
		return nil, err
	}
	return fee, nil
}

func GetFeeCalculation(ctx context.Context, id int) (*FeeCalculation, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[FeeCalculation](ctx, firmId, id, "Client", "Client.Group")
}

func ListFeeCalculations(ctx context.Context, year int) ([]*FeeCalculation, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("firm_id = ?", firmId).Preload("Client")
	if year > 0 {
		dbCtx = dbCtx.Where("year = ?", year)
	}
	var fees []*FeeCalculation
	if err := dbCtx.Order("id DESC").Find(&fees).Error; err != nil {
		return nil, err
	}
	return fees, nil
}
