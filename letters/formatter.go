package letters

import (
	"time"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amounts shown in letters are whole units with thousands grouping and no
// symbol. Finance staff reconcile letters against these strings, so the
// format is fixed and never locale-dependent on the host machine.
var amountPrinter = message.NewPrinter(language.English)

// roundAmount applies the one rounding rule used everywhere in the letter
// engine: round half away from zero to whole units.
func roundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// FormatCurrency renders an amount as a grouped whole-unit string, e.g.
// 52000 -> "52,000". No fractional digits, no currency symbol.
func FormatCurrency(amount decimal.Decimal) string {
	return amountPrinter.Sprintf("%d", roundAmount(amount).IntPart())
}

// FormatCurrencyWithSymbol is the display-only variant with the shekel sign.
func FormatCurrencyWithSymbol(amount decimal.Decimal) string {
	return FormatCurrency(amount) + " ₪"
}

// FormatDate renders the display form used inside letter bodies.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatDateISO renders the storage/sort form. Never shown in a letter.
func FormatDateISO(t time.Time) string {
	return t.Format("2006-01-02")
}

type DiscountAmounts struct {
	AfterBankTransfer decimal.Decimal
	AfterSingleCharge decimal.Decimal
	AfterInstallments decimal.Decimal
}

// CalculateDiscounts applies the three payment-method discounts to a
// VAT-inclusive amount. Each result is computed off the full amount and
// rounded independently, never derived from another discounted figure.
func CalculateDiscounts(amountWithVat decimal.Decimal) DiscountAmounts {
	return DiscountAmounts{
		AfterBankTransfer: discounted(amountWithVat, config.BankTransferDiscountPercent()),
		AfterSingleCharge: discounted(amountWithVat, config.SingleChargeDiscountPercent()),
		AfterInstallments: discounted(amountWithVat, config.InstallmentsDiscountPercent()),
	}
}

func discounted(amount, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(100).Sub(percent).Div(decimal.NewFromInt(100))
	return roundAmount(amount.Mul(factor))
}

// AddVat returns the VAT-inclusive amount at the configured statutory rate.
func AddVat(amount decimal.Decimal) decimal.Decimal {
	rate := config.VatRatePercent().Div(decimal.NewFromInt(100))
	return roundAmount(amount.Add(amount.Mul(rate)))
}
