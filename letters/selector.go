package letters

import (
	"github.com/shavivco/backoffice_backend/config"
	"github.com/shavivco/backoffice_backend/models"
)

// TemplateType identifies one letter family in the template library.
type TemplateType string

const (
	TemplateExternalIndexOnly  TemplateType = "external_index_only"
	TemplateExternalRealChange TemplateType = "external_real_change"
	TemplateExternalAsAgreed   TemplateType = "external_as_agreed"

	TemplateInternalAuditIndex  TemplateType = "internal_audit_index"
	TemplateInternalAuditReal   TemplateType = "internal_audit_real"
	TemplateInternalAuditAgreed TemplateType = "internal_audit_agreed"

	TemplateRetainerIndex  TemplateType = "retainer_index"
	TemplateRetainerReal   TemplateType = "retainer_real"
	TemplateRetainerAgreed TemplateType = "retainer_agreed"

	TemplateInternalBookkeepingIndex  TemplateType = "internal_bookkeeping_index"
	TemplateInternalBookkeepingReal   TemplateType = "internal_bookkeeping_real"
	TemplateInternalBookkeepingAgreed TemplateType = "internal_bookkeeping_agreed"
)

// Basis is the justification for this year's fee change.
type Basis string

const (
	BasisIndex  Basis = "index"
	BasisReal   Basis = "real"
	BasisAgreed Basis = "agreed"
)

// DeriveBasis collapses the two flags into a basis. A real adjustment wins
// over inflation (a real change implies inflation was already folded in);
// neither flag means the fee is as agreed.
func DeriveBasis(applyInflation, hasRealAdjustment bool) Basis {
	switch {
	case hasRealAdjustment:
		return BasisReal
	case applyInflation:
		return BasisIndex
	default:
		return BasisAgreed
	}
}

// SelectionInput is everything the selector looks at. Primary flags describe
// the audit/retainer track; bookkeeping flags describe the secondary track.
type SelectionInput struct {
	ClientType models.ClientType
	IsRetainer bool

	ApplyInflation    bool
	HasRealAdjustment bool

	BookkeepingApplyInflation    bool
	BookkeepingHasRealAdjustment bool
}

// LetterSelectionResult names the letter(s) to produce. SecondaryTemplate and
// SecondaryNumChecks are set together or not at all.
type LetterSelectionResult struct {
	PrimaryTemplate    TemplateType
	SecondaryTemplate  *TemplateType
	PrimaryNumChecks   int
	SecondaryNumChecks *int
}

type clientCategory struct {
	clientType models.ClientType
	isRetainer bool
}

// primaryTemplates is the selection table: client category x basis. New letter
// families are rows here, not new branches.
var primaryTemplates = map[clientCategory]map[Basis]TemplateType{
	{models.ClientTypeExternal, false}: {
		BasisIndex:  TemplateExternalIndexOnly,
		BasisReal:   TemplateExternalRealChange,
		BasisAgreed: TemplateExternalAsAgreed,
	},
	{models.ClientTypeExternal, true}: {
		BasisIndex:  TemplateExternalIndexOnly,
		BasisReal:   TemplateExternalRealChange,
		BasisAgreed: TemplateExternalAsAgreed,
	},
	{models.ClientTypeInternal, false}: {
		BasisIndex:  TemplateInternalAuditIndex,
		BasisReal:   TemplateInternalAuditReal,
		BasisAgreed: TemplateInternalAuditAgreed,
	},
	{models.ClientTypeInternal, true}: {
		BasisIndex:  TemplateRetainerIndex,
		BasisReal:   TemplateRetainerReal,
		BasisAgreed: TemplateRetainerAgreed,
	},
}

var bookkeepingTemplates = map[Basis]TemplateType{
	BasisIndex:  TemplateInternalBookkeepingIndex,
	BasisReal:   TemplateInternalBookkeepingReal,
	BasisAgreed: TemplateInternalBookkeepingAgreed,
}

// SelectTemplates picks the letter template(s) for a client. A secondary
// (bookkeeping) letter goes only to internal non-retainer clients; external
// and retainer clients always get exactly one letter.
func SelectTemplates(input SelectionInput) LetterSelectionResult {
	clientType := input.ClientType
	if clientType != models.ClientTypeInternal {
		clientType = models.ClientTypeExternal
	}

	basis := DeriveBasis(input.ApplyInflation, input.HasRealAdjustment)
	result := LetterSelectionResult{
		PrimaryTemplate:  primaryTemplates[clientCategory{clientType, input.IsRetainer}][basis],
		PrimaryNumChecks: config.PrimaryNumChecks(),
	}

	if clientType == models.ClientTypeInternal && !input.IsRetainer {
		secondaryBasis := DeriveBasis(input.BookkeepingApplyInflation, input.BookkeepingHasRealAdjustment)
		secondary := bookkeepingTemplates[secondaryBasis]
		numChecks := config.BookkeepingNumChecks()
		result.SecondaryTemplate = &secondary
		result.SecondaryNumChecks = &numChecks
	}

	return result
}

// SelectionInputFromRecords derives the selector input from the persisted
// client and fee-calculation records.
func SelectionInputFromRecords(client *models.Client, fee *models.FeeCalculation) SelectionInput {
	input := SelectionInput{
		ClientType:        client.InternalExternal,
		IsRetainer:        client.IsRetainer != nil && *client.IsRetainer,
		ApplyInflation:    fee.ApplyInflation != nil && *fee.ApplyInflation,
		HasRealAdjustment: fee.HasRealAdjustment(),
	}
	if bk := fee.BookkeepingCalculation; bk != nil {
		input.BookkeepingApplyInflation = bk.ApplyInflation
		input.BookkeepingHasRealAdjustment = bk.HasRealAdjustment
	}
	return input
}
