package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/models"
	"github.com/shavivco/backoffice_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type FeeSummaryRow struct {
	ClientID       int             `json:"ClientId"`
	ClientName     string          `json:"ClientName"`
	CompanyNumber  string          `json:"CompanyNumber"`
	GroupName      *string         `json:"GroupName,omitempty"`
	Year           int             `json:"Year"`
	BaseAmount     decimal.Decimal `json:"BaseAmount"`
	FinalAmount    decimal.Decimal `json:"FinalAmount"`
	VatAmount      decimal.Decimal `json:"VatAmount"`
	Status         string          `json:"Status"`
	LettersSent    int             `json:"LettersSent"`
	LastLetterType *string         `json:"LastLetterType,omitempty"`
}

// GetFeeSummaryReport returns per-client fee totals for a tax year, with the
// count of letters already sent for each calculation.
func GetFeeSummaryReport(ctx context.Context, year int, groupId *int) ([]*FeeSummaryRow, error) {

	sqlT := `
SELECT
    fc.client_id,
    clients.name AS client_name,
    clients.company_number,
    groups.name AS group_name,
    fc.year,
    fc.base_amount,
    fc.final_amount,
    fc.vat_amount,
    fc.status,
    COALESCE(gl.letters_sent, 0) AS letters_sent,
    gl.last_letter_type
FROM
    fee_calculations AS fc
        LEFT JOIN clients ON clients.id = fc.client_id
        LEFT JOIN ` + "`groups`" + ` ON groups.id = clients.group_id
        LEFT JOIN
    (SELECT
        fee_calculation_id,
            COUNT(id) AS letters_sent,
            MAX(template_type) AS last_letter_type
    FROM
        generated_letters
    WHERE
        firm_id = @firmId AND status = 'sent_email'
    GROUP BY fee_calculation_id) AS gl ON gl.fee_calculation_id = fc.id
WHERE
    fc.firm_id = @firmId AND fc.year = @year
    {{- if .groupId }} AND clients.group_id = @groupId {{- end }}
ORDER BY clients.name;
`

	firmId, ok := utils.GetFirmIdFromContext(ctx)
	if !ok || firmId == "" {
		return nil, errors.New("firm id is required")
	}
	if year <= 0 {
		return nil, errors.New("year is required")
	}
	if groupId != nil && *groupId != 0 {
		if err := utils.ValidateResourceId[models.Group](ctx, firmId, *groupId); err != nil {
			return nil, errors.New("group not found")
		}
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"groupId": utils.DereferencePtr(groupId),
	})
	if err != nil {
		return nil, err
	}

	var records []*FeeSummaryRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql,
		map[string]interface{}{
			"firmId":  firmId,
			"year":    year,
			"groupId": utils.DereferencePtr(groupId),
		}).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ExportFeeSummaryExcel renders the fee summary as an xlsx workbook.
func ExportFeeSummaryExcel(ctx context.Context, year int, groupId *int) (*excelize.File, error) {

	data, err := GetFeeSummaryReport(ctx, year, groupId)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Sheet1"
	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, err
	}

	// Add headers
	f.SetCellValue(sheetName, "A1", "ClientName")
	f.SetCellValue(sheetName, "B1", "CompanyNumber")
	f.SetCellValue(sheetName, "C1", "GroupName")
	f.SetCellValue(sheetName, "D1", "Year")
	f.SetCellValue(sheetName, "E1", "BaseAmount")
	f.SetCellValue(sheetName, "F1", "FinalAmount")
	f.SetCellValue(sheetName, "G1", "VatAmount")
	f.SetCellValue(sheetName, "H1", "Status")
	f.SetCellValue(sheetName, "I1", "LettersSent")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.ClientName)
		f.SetCellValue(sheetName, "B"+row, d.CompanyNumber)
		f.SetCellValue(sheetName, "C"+row, utils.DereferencePtr(d.GroupName, ""))
		f.SetCellValue(sheetName, "D"+row, d.Year)
		f.SetCellValue(sheetName, "E"+row, d.BaseAmount.InexactFloat64())
		f.SetCellValue(sheetName, "F"+row, d.FinalAmount.InexactFloat64())
		f.SetCellValue(sheetName, "G"+row, d.VatAmount.InexactFloat64())
		f.SetCellValue(sheetName, "H"+row, d.Status)
		f.SetCellValue(sheetName, "I"+row, d.LettersSent)
	}

	return f, nil
}
