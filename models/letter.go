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
)

// StringList is stored as a JSON array in a text column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	return string(data), err
}

func (s *StringList) Scan(value interface{}) error {
	return scanJSONColumn(value, s)
}

// GeneratedLetter is the persisted snapshot of one rendered letter: the
// template used, the exact variable bag, the rendered HTML and the recipients.
// GeneratedContentHtml keeps unresolved cid: image tokens so downstream PDF
// generation can re-resolve them.
//
// Status transitions are append-only (draft -> sent_email); re-generation
// creates a new version and flips is_latest instead of editing sent rows.
type GeneratedLetter struct {
	ID                   int          `gorm:"primary_key" json:"id"`
	FirmId               string       `gorm:"index;not null" json:"firm_id"`
	ClientId             int          `gorm:"index;not null" json:"client_id"`
	FeeCalculationId     *int         `gorm:"index" json:"fee_calculation_id"`
	GroupCalculationId   *int         `gorm:"index" json:"group_calculation_id"`
	TemplateType         string       `gorm:"size:100;not null" json:"template_type"`
	Stage                string       `gorm:"size:20;not null;default:'primary'" json:"stage"`
	VariablesUsed        string       `gorm:"type:longtext" json:"variables_used"`
	GeneratedContentHtml string       `gorm:"type:longtext" json:"generated_content_html"`
	RecipientEmails      StringList   `gorm:"type:longtext" json:"recipient_emails"`
	Status               LetterStatus `gorm:"type:enum('draft','sent_email');not null;default:'draft'" json:"status"`
	IsLatest             *bool        `gorm:"not null;default:true" json:"is_latest"`
	VersionNumber        int          `gorm:"not null;default:1" json:"version_number"`
	PdfObjectKey         string       `gorm:"size:255" json:"pdf_object_key"`
	SentAt               *time.Time   `json:"sent_at"`
	CreatedAt            time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewGeneratedLetter struct {
	ClientId             int    `json:"client_id" binding:"required"`
	FeeCalculationId     *int   `json:"fee_calculation_id"`
	GroupCalculationId   *int   `json:"group_calculation_id"`
	TemplateType         string `json:"template_type" binding:"required"`
	Stage                string `json:"stage"`
	VariablesUsed        string `json:"variables_used"`
	GeneratedContentHtml string `json:"generated_content_html"`
}

func (input *NewGeneratedLetter) validate(ctx context.Context, firmId string) error {
	if err := utils.ValidateResourceId[Client](ctx, firmId, input.ClientId); err != nil {
		return errors.New("client not found")
	}
	if input.FeeCalculationId == nil && input.GroupCalculationId == nil {
		return errors.New("fee_calculation_id or group_calculation_id is required")
	}
	if input.FeeCalculationId != nil {
		if err := utils.ValidateResourceId[FeeCalculation](ctx, firmId, *input.FeeCalculationId); err != nil {
			return errors.New("fee calculation not found")
		}
	}
	return nil
}

// calculationKey identifies the draft slot: one live draft per calculation.
func (input *NewGeneratedLetter) calculationKey() string {
	if input.FeeCalculationId != nil {
		return fmt.Sprintf("fee:%d:%s", *input.FeeCalculationId, input.Stage)
	}
	return fmt.Sprintf("group:%d:%s", *input.GroupCalculationId, input.Stage)
}

// CreateOrReuseDraftLetter returns the existing latest draft for the
// calculation, or creates a new one. Returns (letter, reused, error).
//
// The check-then-act is guarded by a best-effort redis lock keyed by the
// calculation; when Redis is unavailable it proceeds unguarded (see DESIGN.md).
func CreateOrReuseDraftLetter(ctx context.Context, input *NewGeneratedLetter) (*GeneratedLetter, bool, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, false, errors.New("firm id is required")
	}
	if input.Stage == "" {
		input.Stage = "primary"
	}
	if err := input.validate(ctx, firmId); err != nil {
		return nil, false, err
	}

	unlock := acquireLetterDraftLock(ctx, firmId, input.calculationKey())
	defer unlock()

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("firm_id = ? AND status = ? AND is_latest = true AND stage = ?", firmId, LetterStatusDraft, input.Stage)
	if input.FeeCalculationId != nil {
		dbCtx = dbCtx.Where("fee_calculation_id = ?", *input.FeeCalculationId)
	} else {
		dbCtx = dbCtx.Where("group_calculation_id = ?", *input.GroupCalculationId)
	}

	var existing GeneratedLetter
	err := dbCtx.Take(&existing).Error
	if err == nil {
		// Reuse the draft slot but refresh its content: the operator may have
		// rebuilt the variables since the draft was first saved.
		if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"TemplateType":         input.TemplateType,
			"VariablesUsed":        input.VariablesUsed,
			"GeneratedContentHtml": input.GeneratedContentHtml,
		}).Error; err != nil {
			return nil, false, err
		}
		return &existing, true, nil
	}

	version, err := nextLetterVersion(ctx, firmId, input)
	if err != nil {
		return nil, false, err
	}
	if version > 1 {
		if err := demoteLatestLetters(ctx, firmId, input); err != nil {
			return nil, false, err
		}
	}

	letter := GeneratedLetter{
		FirmId:               firmId,
		ClientId:             input.ClientId,
		FeeCalculationId:     input.FeeCalculationId,
		GroupCalculationId:   input.GroupCalculationId,
		TemplateType:         input.TemplateType,
		Stage:                input.Stage,
		VariablesUsed:        input.VariablesUsed,
		GeneratedContentHtml: input.GeneratedContentHtml,
		Status:               LetterStatusDraft,
		IsLatest:             utils.NewTrue(),
		VersionNumber:        version,
	}
	if err := db.WithContext(ctx).Create(&letter).Error; err != nil {
		return nil, false, err
	}
	return &letter, false, nil
}

func acquireLetterDraftLock(ctx context.Context, firmId, key string) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, fmt.Sprintf("lock:letter-draft:%s:%s", firmId, key), 10*time.Second, nil)
	if err != nil {
		// Best-effort only; the unguarded path matches the legacy behavior.
		return func() {}
	}
	return func() { _ = lock.Release(ctx) }
}

func nextLetterVersion(ctx context.Context, firmId string, input *NewGeneratedLetter) (int, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&GeneratedLetter{}).
		Where("firm_id = ? AND stage = ?", firmId, input.Stage)
	if input.FeeCalculationId != nil {
		dbCtx = dbCtx.Where("fee_calculation_id = ?", *input.FeeCalculationId)
	} else {
		dbCtx = dbCtx.Where("group_calculation_id = ?", *input.GroupCalculationId)
	}
	var maxVersion int
	if err := dbCtx.Select("COALESCE(MAX(version_number), 0)").Scan(&maxVersion).Error; err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

func demoteLatestLetters(ctx context.Context, firmId string, input *NewGeneratedLetter) error {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&GeneratedLetter{}).
		Where("firm_id = ? AND stage = ? AND is_latest = true", firmId, input.Stage)
	if input.FeeCalculationId != nil {
		dbCtx = dbCtx.Where("fee_calculation_id = ?", *input.FeeCalculationId)
	} else {
		dbCtx = dbCtx.Where("group_calculation_id = ?", *input.GroupCalculationId)
	}
	return dbCtx.Update("is_latest", false).Error
}

// MarkLetterSent transitions draft -> sent_email and records the final
// recipient list. Letters are never deleted and never move back to draft.
func MarkLetterSent(ctx context.Context, id int, recipients []string) (*GeneratedLetter, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	letter, err := utils.FetchModel[GeneratedLetter](ctx, firmId, id)
	if err != nil {
		return nil, err
	}
	if letter.Status != LetterStatusDraft {
		return nil, errors.New("letter has already been sent")
	}

	now := time.Now().UTC()
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&letter).Updates(map[string]interface{}{
		"Status":          LetterStatusSentEmail,
		"RecipientEmails": StringList(recipients),
		"SentAt":          &now,
	}).Error; err != nil {
		return nil, err
	}
	return letter, nil
}

// SetLetterPdfObjectKey records where the filed PDF landed. Best-effort
// bookkeeping; callers ignore the error beyond logging.
func SetLetterPdfObjectKey(ctx context.Context, id int, objectKey string) error {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return errors.New("firm id is required")
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(&GeneratedLetter{}).
		Where("firm_id = ? AND id = ?", firmId, id).
		Update("pdf_object_key", objectKey).Error
}

func GetLetter(ctx context.Context, id int) (*GeneratedLetter, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	return utils.FetchModel[GeneratedLetter](ctx, firmId, id)
}

func ListLetters(ctx context.Context, feeCalculationId int, latestOnly bool) ([]*GeneratedLetter, error) {
	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("firm_id = ?", firmId)
	if feeCalculationId > 0 {
		dbCtx = dbCtx.Where("fee_calculation_id = ?", feeCalculationId)
	}
	if latestOnly {
		dbCtx = dbCtx.Where("is_latest = true")
	}
	var letters []*GeneratedLetter
	if err := dbCtx.Order("id DESC").Find(&letters).Error; err != nil {
		return nil, err
	}
	return letters, nil
}
