package letters

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		amount   string
		expected string
	}{
		{"52000", "52,000"},
		{"52000.4", "52,000"},
		{"52000.5", "52,001"},
		{"1234567", "1,234,567"},
		{"999", "999"},
		{"0", "0"},
	}
	for _, c := range cases {
		d, err := decimal.NewFromString(c.amount)
		if err != nil {
			t.Fatal(err)
		}
		if got := FormatCurrency(d); got != c.expected {
			t.Fatalf("FormatCurrency(%s) = %q, expected %q", c.amount, got, c.expected)
		}
	}
}

func TestFormatCurrencyWithSymbol(t *testing.T) {
	got := FormatCurrencyWithSymbol(decimal.NewFromInt(52000))
	if got != "52,000 ₪" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "07/03/2025" {
		t.Fatalf("FormatDate = %q", got)
	}
	if got := FormatDateISO(d); got != "2025-03-07" {
		t.Fatalf("FormatDateISO = %q", got)
	}
}

func TestCalculateDiscountsDefaults(t *testing.T) {
	// 52,000 VAT-inclusive at the default 9/7/4 rates.
	d := CalculateDiscounts(decimal.NewFromInt(52000))

	if got := d.AfterBankTransfer.String(); got != "47320" {
		t.Fatalf("AfterBankTransfer = %s", got)
	}
	if got := d.AfterSingleCharge.String(); got != "48360" {
		t.Fatalf("AfterSingleCharge = %s", got)
	}
	if got := d.AfterInstallments.String(); got != "49920" {
		t.Fatalf("AfterInstallments = %s", got)
	}
}

func TestDiscountMonotonicity(t *testing.T) {
	amounts := []int64{100, 250, 999, 52000, 1234567}
	for _, a := range amounts {
		amount := decimal.NewFromInt(a)
		d := CalculateDiscounts(amount)
		if !d.AfterBankTransfer.LessThan(d.AfterSingleCharge) {
			t.Fatalf("amount %d: bank %s >= single %s", a, d.AfterBankTransfer, d.AfterSingleCharge)
		}
		if !d.AfterSingleCharge.LessThan(d.AfterInstallments) {
			t.Fatalf("amount %d: single %s >= installments %s", a, d.AfterSingleCharge, d.AfterInstallments)
		}
		if !d.AfterInstallments.LessThan(amount) {
			t.Fatalf("amount %d: installments %s >= amount", a, d.AfterInstallments)
		}
	}
}

func TestDiscountsRoundedIndependently(t *testing.T) {
	// 1001: 9% off = 910.91 -> 911, 7% off = 930.93 -> 931, 4% off = 960.96 -> 961.
	d := CalculateDiscounts(decimal.NewFromInt(1001))
	if got := d.AfterBankTransfer.String(); got != "911" {
		t.Fatalf("AfterBankTransfer = %s", got)
	}
	if got := d.AfterSingleCharge.String(); got != "931" {
		t.Fatalf("AfterSingleCharge = %s", got)
	}
	if got := d.AfterInstallments.String(); got != "961" {
		t.Fatalf("AfterInstallments = %s", got)
	}
}

func TestAddVat(t *testing.T) {
	if got := AddVat(decimal.NewFromInt(1000)).String(); got != "1180" {
		t.Fatalf("AddVat(1000) = %s", got)
	}
	if got := AddVat(decimal.NewFromInt(52000)).String(); got != "61360" {
		t.Fatalf("AddVat(52000) = %s", got)
	}
}
