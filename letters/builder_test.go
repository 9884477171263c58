package letters

import (
	"errors"
	"testing"
	"time"

	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
	"github.com/shopspring/decimal"
)

func testClient(clientType models.ClientType, retainer bool) *models.Client {
	r := retainer
	return &models.Client{
		ID:               7,
		Name:             "Test Client Ltd",
		CompanyNumber:    "512345678",
		InternalExternal: clientType,
		IsRetainer:       &r,
	}
}

func testFee() *models.FeeCalculation {
	return &models.FeeCalculation{
		ID:             11,
		ClientId:       7,
		Year:           2025,
		FinalAmount:    decimal.NewFromInt(10000),
		ApplyInflation: utils.NewTrue(),
	}
}

var testNow = time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

func TestBuildVariablesInternalAuditIndex(t *testing.T) {
	result, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeInternal, false),
		Fee:    testFee(),
		Stage:  StagePrimary,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TemplateType != TemplateInternalAuditIndex {
		t.Fatalf("template = %s", result.TemplateType)
	}

	vars := result.Variables
	if vars["client_name"] != "Test Client Ltd" {
		t.Fatalf("client_name = %q", vars["client_name"])
	}
	if vars["company_number"] != "512345678" {
		t.Fatalf("company_number = %q", vars["company_number"])
	}
	// 10,000 + 18% VAT
	if vars["amount_with_vat"] != "11,800" {
		t.Fatalf("amount_with_vat = %q", vars["amount_with_vat"])
	}
	if vars["vat_amount"] != "1,800" {
		t.Fatalf("vat_amount = %q", vars["vat_amount"])
	}
	// 11,800 / 8 checks
	if vars["num_checks"] != "8" {
		t.Fatalf("num_checks = %q", vars["num_checks"])
	}
	if vars["check_amount"] != "1,475" {
		t.Fatalf("check_amount = %q", vars["check_amount"])
	}
	if vars["check_dates_description"] != "05/01/2025 - 05/08/2025" {
		t.Fatalf("check_dates_description = %q", vars["check_dates_description"])
	}
	if vars["date"] != "10/02/2025" || vars["תאריך"] != "10/02/2025" {
		t.Fatalf("date = %q / %q", vars["date"], vars["תאריך"])
	}
	if len(result.MissingFields) != 0 {
		t.Fatalf("unexpected missing fields: %v", result.MissingFields)
	}
}

func TestBuildVariablesSecondaryUsesBookkeepingAmount(t *testing.T) {
	fee := testFee()
	fee.BookkeepingCalculation = &models.BookkeepingCalculation{
		FinalAmount:    decimal.NewFromInt(6000),
		ApplyInflation: true,
	}

	result, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeInternal, false),
		Fee:    fee,
		Stage:  StageSecondary,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TemplateType != TemplateInternalBookkeepingIndex {
		t.Fatalf("template = %s", result.TemplateType)
	}
	// 6,000 + 18% VAT = 7,080
	if result.Variables["amount_with_vat"] != "7,080" {
		t.Fatalf("amount_with_vat = %q", result.Variables["amount_with_vat"])
	}
	// bookkeeping letters carry a monthly amount: 7,080 / 12 = 590
	if result.Variables["monthly_amount"] != "590" {
		t.Fatalf("monthly_amount = %q", result.Variables["monthly_amount"])
	}
}

func TestBuildVariablesMissingBookkeepingIsZero(t *testing.T) {
	result, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeInternal, false),
		Fee:    testFee(),
		Stage:  StageSecondary,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Variables["amount_with_vat"] != "0" {
		t.Fatalf("amount_with_vat = %q", result.Variables["amount_with_vat"])
	}
	if len(result.MissingFields) == 0 {
		t.Fatalf("zero amount must surface as a missing required field")
	}
}

func TestBuildVariablesRetainerMonthly(t *testing.T) {
	fee := testFee()
	fee.RetainerCalculation = &models.RetainerCalculation{
		FinalAmount:    decimal.NewFromInt(24000),
		ApplyInflation: true,
	}

	result, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeInternal, true),
		Fee:    fee,
		Stage:  StagePrimary,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TemplateType != TemplateRetainerIndex {
		t.Fatalf("template = %s", result.TemplateType)
	}
	// 24,000 + 18% VAT = 28,320; monthly 28,320 / 12 = 2,360
	if result.Variables["amount_with_vat"] != "28,320" {
		t.Fatalf("amount_with_vat = %q", result.Variables["amount_with_vat"])
	}
	if result.Variables["monthly_amount"] != "2,360" {
		t.Fatalf("monthly_amount = %q", result.Variables["monthly_amount"])
	}
}

func TestBuildVariablesOverrideWins(t *testing.T) {
	override := TemplateExternalAsAgreed
	result, err := BuildVariables(BuildInput{
		Client:           testClient(models.ClientTypeInternal, false),
		Fee:              testFee(),
		Stage:            StagePrimary,
		TemplateOverride: &override,
		Now:              testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TemplateType != TemplateExternalAsAgreed {
		t.Fatalf("template = %s", result.TemplateType)
	}
}

func TestBuildVariablesBankTransferFields(t *testing.T) {
	fee := testFee()
	fee.BankTransferOnly = utils.NewTrue()
	fee.BankTransferBeforeVat = decimal.NewFromInt(9000)
	fee.BankTransferWithVat = decimal.NewFromInt(10620)
	fee.BankTransferDiscountPercent = decimal.NewFromInt(10)

	result, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeExternal, false),
		Fee:    fee,
		Stage:  StagePrimary,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Variables["bank_transfer_before_vat"] != "9,000" {
		t.Fatalf("bank_transfer_before_vat = %q", result.Variables["bank_transfer_before_vat"])
	}
	if result.Variables["bank_transfer_with_vat"] != "10,620" {
		t.Fatalf("bank_transfer_with_vat = %q", result.Variables["bank_transfer_with_vat"])
	}
	if result.Variables["bank_transfer_discount_percent"] != "10" {
		t.Fatalf("bank_transfer_discount_percent = %q", result.Variables["bank_transfer_discount_percent"])
	}
}

func TestBuildVariablesNoBankTransferFieldsByDefault(t *testing.T) {
	result, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeExternal, false),
		Fee:    testFee(),
		Stage:  StagePrimary,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.Variables["bank_transfer_with_vat"]; ok {
		t.Fatalf("bank transfer fields must only appear when the flag is set")
	}
}

func TestBuildVariablesTaxYearStartMonth(t *testing.T) {
	firm := &models.Firm{TaxYearStartMonth: 4}
	result, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeInternal, false),
		Fee:    testFee(),
		Firm:   firm,
		Stage:  StagePrimary,
		Now:    testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Variables["check_dates_description"] != "05/04/2025 - 05/11/2025" {
		t.Fatalf("check_dates_description = %q", result.Variables["check_dates_description"])
	}
}

func TestBuildVariablesDataMissing(t *testing.T) {
	_, err := BuildVariables(BuildInput{Fee: testFee(), Stage: StagePrimary})
	if !errors.Is(err, ErrDataMissing) {
		t.Fatalf("expected ErrDataMissing, got %v", err)
	}
	_, err = BuildVariables(BuildInput{Client: testClient(models.ClientTypeExternal, false), Stage: StagePrimary})
	if !errors.Is(err, ErrDataMissing) {
		t.Fatalf("expected ErrDataMissing, got %v", err)
	}
}

func TestBuildVariablesSecondaryForExternalFails(t *testing.T) {
	_, err := BuildVariables(BuildInput{
		Client: testClient(models.ClientTypeExternal, false),
		Fee:    testFee(),
		Stage:  StageSecondary,
		Now:    testNow,
	})
	if err == nil {
		t.Fatalf("external client must not build a secondary letter")
	}
}
