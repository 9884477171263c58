package letters

import (
	"testing"

	"github.com/shavivco/backoffice_backend/models"
)

func TestSelectorTotality(t *testing.T) {
	clientTypes := []models.ClientType{models.ClientTypeInternal, models.ClientTypeExternal}
	bools := []bool{false, true}

	for _, clientType := range clientTypes {
		for _, retainer := range bools {
			for _, inflation := range bools {
				for _, realAdj := range bools {
					result := SelectTemplates(SelectionInput{
						ClientType:        clientType,
						IsRetainer:        retainer,
						ApplyInflation:    inflation,
						HasRealAdjustment: realAdj,
					})
					if result.PrimaryTemplate == "" {
						t.Fatalf("no primary template for %s retainer=%v inflation=%v real=%v",
							clientType, retainer, inflation, realAdj)
					}
					wantSecondary := clientType == models.ClientTypeInternal && !retainer
					if (result.SecondaryTemplate != nil) != wantSecondary {
						t.Fatalf("secondary presence wrong for %s retainer=%v: %v",
							clientType, retainer, result.SecondaryTemplate)
					}
					if (result.SecondaryTemplate != nil) != (result.SecondaryNumChecks != nil) {
						t.Fatalf("secondary template and check count must be set together")
					}
				}
			}
		}
	}
}

func TestSelectorExternalIndexOnly(t *testing.T) {
	result := SelectTemplates(SelectionInput{
		ClientType:     models.ClientTypeExternal,
		ApplyInflation: true,
	})
	if result.PrimaryTemplate != TemplateExternalIndexOnly {
		t.Fatalf("primary = %s", result.PrimaryTemplate)
	}
	if result.SecondaryTemplate != nil {
		t.Fatalf("external client must not get a secondary letter")
	}
	if result.PrimaryNumChecks != 8 {
		t.Fatalf("primary num checks = %d", result.PrimaryNumChecks)
	}
}

func TestSelectorInternalAuditRealWithBookkeepingIndex(t *testing.T) {
	result := SelectTemplates(SelectionInput{
		ClientType:                models.ClientTypeInternal,
		HasRealAdjustment:         true,
		BookkeepingApplyInflation: true,
	})
	if result.PrimaryTemplate != TemplateInternalAuditReal {
		t.Fatalf("primary = %s", result.PrimaryTemplate)
	}
	if result.SecondaryTemplate == nil || *result.SecondaryTemplate != TemplateInternalBookkeepingIndex {
		t.Fatalf("secondary = %v", result.SecondaryTemplate)
	}
	if result.PrimaryNumChecks != 8 || result.SecondaryNumChecks == nil || *result.SecondaryNumChecks != 8 {
		t.Fatalf("check counts = %d / %v", result.PrimaryNumChecks, result.SecondaryNumChecks)
	}
}

func TestRealAdjustmentWinsOverInflation(t *testing.T) {
	if got := DeriveBasis(true, true); got != BasisReal {
		t.Fatalf("basis = %s", got)
	}
	if got := DeriveBasis(true, false); got != BasisIndex {
		t.Fatalf("basis = %s", got)
	}
	if got := DeriveBasis(false, false); got != BasisAgreed {
		t.Fatalf("basis = %s", got)
	}
}

func TestRetainerTemplates(t *testing.T) {
	cases := []struct {
		inflation bool
		realAdj   bool
		expected  TemplateType
	}{
		{true, false, TemplateRetainerIndex},
		{false, true, TemplateRetainerReal},
		{true, true, TemplateRetainerReal},
		{false, false, TemplateRetainerAgreed},
	}
	for _, c := range cases {
		result := SelectTemplates(SelectionInput{
			ClientType:        models.ClientTypeInternal,
			IsRetainer:        true,
			ApplyInflation:    c.inflation,
			HasRealAdjustment: c.realAdj,
		})
		if result.PrimaryTemplate != c.expected {
			t.Fatalf("inflation=%v real=%v: got %s, expected %s",
				c.inflation, c.realAdj, result.PrimaryTemplate, c.expected)
		}
		if result.SecondaryTemplate != nil {
			t.Fatalf("retainer client must not get a secondary letter")
		}
	}
}

func TestEveryTemplateHasAFile(t *testing.T) {
	all := []TemplateType{
		TemplateExternalIndexOnly, TemplateExternalRealChange, TemplateExternalAsAgreed,
		TemplateInternalAuditIndex, TemplateInternalAuditReal, TemplateInternalAuditAgreed,
		TemplateRetainerIndex, TemplateRetainerReal, TemplateRetainerAgreed,
		TemplateInternalBookkeepingIndex, TemplateInternalBookkeepingReal, TemplateInternalBookkeepingAgreed,
	}
	for _, tt := range all {
		if _, err := TemplateFileName(tt); err != nil {
			t.Fatalf("template %s has no file: %v", tt, err)
		}
	}
}
