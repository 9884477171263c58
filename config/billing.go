package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Billing constants for the letter engine. All of these are statutory or firm
// policy values that change over time, so they are env-tunable with fixed
// defaults rather than hard-coded at call sites.
//
// Env:
// - VAT_RATE_PERCENT (default 18)
// - DISCOUNT_BANK_TRANSFER_PERCENT (default 9)
// - DISCOUNT_SINGLE_CHARGE_PERCENT (default 7)
// - DISCOUNT_INSTALLMENTS_PERCENT (default 4)
// - LETTER_PRIMARY_NUM_CHECKS (default 8)
// - LETTER_BOOKKEEPING_NUM_CHECKS (default 8)
// - LETTER_REVIEWER_EMAILS (comma-separated, optional)

func VatRatePercent() decimal.Decimal {
	return decimalFromEnv("VAT_RATE_PERCENT", "18")
}

func BankTransferDiscountPercent() decimal.Decimal {
	return decimalFromEnv("DISCOUNT_BANK_TRANSFER_PERCENT", "9")
}

func SingleChargeDiscountPercent() decimal.Decimal {
	return decimalFromEnv("DISCOUNT_SINGLE_CHARGE_PERCENT", "7")
}

func InstallmentsDiscountPercent() decimal.Decimal {
	return decimalFromEnv("DISCOUNT_INSTALLMENTS_PERCENT", "4")
}

func PrimaryNumChecks() int {
	return intFromEnv("LETTER_PRIMARY_NUM_CHECKS", 8)
}

func BookkeepingNumChecks() int {
	return intFromEnv("LETTER_BOOKKEEPING_NUM_CHECKS", 8)
}

// ReviewerEmails returns the fixed reviewer addresses added to a letter's
// recipient list when the reviewer toggle is on.
func ReviewerEmails() []string {
	raw := strings.TrimSpace(os.Getenv("LETTER_REVIEWER_EMAILS"))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decimalFromEnv(key string, def string) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		d, _ = decimal.NewFromString(def)
	}
	return d
}
