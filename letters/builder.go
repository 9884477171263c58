package letters

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shavivco/backoffice_backend/models"
	"github.com/shopspring/decimal"
)

// Stage names which of a client's letters is being produced.
type Stage string

const (
	StagePrimary   Stage = "primary"
	StageSecondary Stage = "secondary"
)

// ErrDataMissing aborts a build when a required record is absent. No partial
// variable bag is ever produced.
var ErrDataMissing = errors.New("letter data not found")

// Variables is the flat bag fed to the template parser. Every amount in it is
// a pre-formatted string; raw numbers never reach a template.
type Variables map[string]string

// BuildInput collects the records a letter is built from. Client and Fee are
// required; Firm supplies the tax-year start month for check scheduling.
type BuildInput struct {
	Client *models.Client
	Fee    *models.FeeCalculation
	Firm   *models.Firm
	Stage  Stage

	// TemplateOverride is the operator's manual choice, taking precedence
	// over the selector.
	TemplateOverride *TemplateType

	// Now is injectable for tests; zero means time.Now.
	Now time.Time
}

// BuildResult is a fully computed letter ready for rendering.
type BuildResult struct {
	TemplateType TemplateType
	Variables    Variables
	NumChecks    int

	// MissingFields lists required fields that came out empty. The builder
	// is permissive; the send workflow refuses to dispatch while this is
	// non-empty.
	MissingFields []string
}

// BuildVariables produces the variable bag for one letter stage.
func BuildVariables(input BuildInput) (*BuildResult, error) {
	if input.Client == nil || input.Fee == nil {
		return nil, ErrDataMissing
	}
	client := input.Client
	fee := input.Fee

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	selection := SelectTemplates(SelectionInputFromRecords(client, fee))

	templateType := selection.PrimaryTemplate
	numChecks := selection.PrimaryNumChecks
	if input.Stage == StageSecondary {
		if selection.SecondaryTemplate == nil {
			return nil, errors.New("client has no secondary letter")
		}
		templateType = *selection.SecondaryTemplate
		numChecks = *selection.SecondaryNumChecks
	}
	if input.TemplateOverride != nil && *input.TemplateOverride != "" {
		templateType = *input.TemplateOverride
	}

	amount := baseAmount(client, fee, input.Stage)
	amountWithVat := AddVat(amount)
	discounts := CalculateDiscounts(amountWithVat)

	vars := Variables{
		"client_name":    client.DisplayName(),
		"company_number": client.CompanyNumber,
		"date":           FormatDate(now),
		"תאריך":          FormatDate(now),
		"tax_year":       strconv.Itoa(fee.Year),

		"amount":          FormatCurrency(amount),
		"amount_with_vat": FormatCurrency(amountWithVat),
		"vat_amount":      FormatCurrency(amountWithVat.Sub(amount)),

		"after_bank_transfer": FormatCurrency(discounts.AfterBankTransfer),
		"after_single_charge": FormatCurrency(discounts.AfterSingleCharge),
		"after_installments":  FormatCurrency(discounts.AfterInstallments),

		"client_id": strconv.Itoa(client.ID),
	}

	if isMonthlyBilled(client, templateType) {
		monthly := roundAmount(amountWithVat.Div(decimal.NewFromInt(12)))
		vars["monthly_amount"] = FormatCurrency(monthly)
	}

	if numChecks > 0 {
		checkAmount := roundAmount(amountWithVat.Div(decimal.NewFromInt(int64(numChecks))))
		vars["num_checks"] = strconv.Itoa(numChecks)
		vars["check_amount"] = FormatCurrency(checkAmount)
		vars["check_dates_description"] = checkDatesDescription(fee.Year, taxYearStartMonth(input.Firm), numChecks)
	}

	if fee.BankTransferOnly != nil && *fee.BankTransferOnly {
		vars["bank_transfer_before_vat"] = FormatCurrency(fee.BankTransferBeforeVat)
		vars["bank_transfer_with_vat"] = FormatCurrency(fee.BankTransferWithVat)
		vars["bank_transfer_discount_percent"] = fee.BankTransferDiscountPercent.StringFixed(0)
	}

	if fee.CustomPaymentText != "" {
		vars["custom_payment_text"] = fee.CustomPaymentText
	}
	if fee.RealAdjustments != nil && fee.RealAdjustments.Reason != "" {
		vars["adjustment_reason"] = fee.RealAdjustments.Reason
	}

	return &BuildResult{
		TemplateType:  templateType,
		Variables:     vars,
		NumChecks:     numChecks,
		MissingFields: MissingRequiredFields(templateType, vars),
	}, nil
}

// baseAmount picks the amount source for a stage. A missing optional
// sub-calculation counts as zero; the send workflow blocks on the resulting
// empty required fields, not the builder.
func baseAmount(client *models.Client, fee *models.FeeCalculation, stage Stage) decimal.Decimal {
	isRetainer := client.IsRetainer != nil && *client.IsRetainer
	if isRetainer {
		if fee.RetainerCalculation != nil {
			return fee.RetainerCalculation.FinalAmount
		}
		return decimal.Zero
	}
	if stage == StageSecondary {
		if fee.BookkeepingCalculation != nil {
			return fee.BookkeepingCalculation.FinalAmount
		}
		return decimal.Zero
	}
	return fee.FinalAmount
}

func isMonthlyBilled(client *models.Client, templateType TemplateType) bool {
	if client.IsRetainer != nil && *client.IsRetainer {
		return true
	}
	switch templateType {
	case TemplateInternalBookkeepingIndex, TemplateInternalBookkeepingReal, TemplateInternalBookkeepingAgreed:
		return true
	}
	return false
}

func taxYearStartMonth(firm *models.Firm) int {
	if firm == nil || firm.TaxYearStartMonth < 1 || firm.TaxYearStartMonth > 12 {
		return 1
	}
	return firm.TaxYearStartMonth
}

// checkDatesDescription spans from the 5th of the tax year's first month
// through the 5th of the Nth month, e.g. "05/01/2025 - 05/08/2025".
func checkDatesDescription(year, startMonth, numChecks int) string {
	first := time.Date(year, time.Month(startMonth), 5, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, numChecks-1, 0)
	return fmt.Sprintf("%s - %s", FormatDate(first), FormatDate(last))
}

// requiredFields lists, per template family, the variables a letter cannot be
// sent without. Extending a family extends this table.
var requiredFields = map[TemplateType][]string{
	TemplateExternalIndexOnly:  {"client_name", "amount_with_vat", "check_dates_description"},
	TemplateExternalRealChange: {"client_name", "amount_with_vat", "adjustment_reason"},
	TemplateExternalAsAgreed:   {"client_name", "amount_with_vat"},

	TemplateInternalAuditIndex:  {"client_name", "company_number", "amount_with_vat", "check_dates_description"},
	TemplateInternalAuditReal:   {"client_name", "company_number", "amount_with_vat", "adjustment_reason"},
	TemplateInternalAuditAgreed: {"client_name", "company_number", "amount_with_vat"},

	TemplateRetainerIndex:  {"client_name", "amount_with_vat", "monthly_amount"},
	TemplateRetainerReal:   {"client_name", "amount_with_vat", "monthly_amount", "adjustment_reason"},
	TemplateRetainerAgreed: {"client_name", "amount_with_vat", "monthly_amount"},

	TemplateInternalBookkeepingIndex:  {"client_name", "amount_with_vat", "monthly_amount"},
	TemplateInternalBookkeepingReal:   {"client_name", "amount_with_vat", "monthly_amount"},
	TemplateInternalBookkeepingAgreed: {"client_name", "amount_with_vat", "monthly_amount"},
}

// MissingRequiredFields reports which of a template's required variables are
// absent or empty. The send workflow re-checks this against the stored bag.
func MissingRequiredFields(templateType TemplateType, vars Variables) []string {
	var missing []string
	for _, field := range requiredFields[templateType] {
		if v, ok := vars[field]; !ok || v == "" || v == "0" {
			missing = append(missing, field)
		}
	}
	return missing
}
