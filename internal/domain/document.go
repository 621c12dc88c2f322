package domain

import "time"

// Category identifies the document class assigned by the upstream classifier.
type Category string

const (
	CategorySettlementStatement Category = "SETTLEMENT_STATEMENT"
	CategoryPurchaseAgreement   Category = "PURCHASE_AGREEMENT"
	CategoryLoanApplication     Category = "LOAN_APPLICATION"
	CategoryTitleInsurance      Category = "TITLE_INSURANCE"
	CategoryDeed                Category = "DEED"
	CategoryLeaseAgreement      Category = "LEASE_AGREEMENT"
	CategoryListingAgreement    Category = "LISTING_AGREEMENT"
	CategoryInspectionReport    Category = "INSPECTION_REPORT"
	CategoryAppraisalReport     Category = "APPRAISAL_REPORT"
	CategoryDisclosureForm      Category = "DISCLOSURE_FORM"
	CategoryMortgageNote        Category = "MORTGAGE_NOTE"
	CategoryHOADocument         Category = "HOA_DOCUMENT"
	CategoryPowerOfAttorney     Category = "POWER_OF_ATTORNEY"
	CategoryTaxStatement        Category = "TAX_STATEMENT"
	CategoryOther               Category = "OTHER"
)

// Categories lists every supported category in declaration order.
func Categories() []Category {
	return []Category{
		CategorySettlementStatement,
		CategoryPurchaseAgreement,
		CategoryLoanApplication,
		CategoryTitleInsurance,
		CategoryDeed,
		CategoryLeaseAgreement,
		CategoryListingAgreement,
		CategoryInspectionReport,
		CategoryAppraisalReport,
		CategoryDisclosureForm,
		CategoryMortgageNote,
		CategoryHOADocument,
		CategoryPowerOfAttorney,
		CategoryTaxStatement,
		CategoryOther,
	}
}

func ValidCategory(value Category) bool {
	for _, category := range Categories() {
		if category == value {
			return true
		}
	}
	return false
}

// DocumentVersion is one immutable extracted snapshot of a document.
// Corrections never mutate a version; they produce the next one.
type DocumentVersion struct {
	ID                   string
	DocumentID           string
	Category             Category
	SequenceNumber       int
	RawText              string
	StructuredFields     map[string]string
	ExtractionConfidence float64
	EngineUsed           string
	Degraded             bool
	PageImageRef         string
	CreatedAt            time.Time
}

type RelationshipType string

const (
	RelationshipSupersedes RelationshipType = "supersedes"
	RelationshipAmends     RelationshipType = "amends"
	RelationshipReferences RelationshipType = "references"
	RelationshipDuplicates RelationshipType = "duplicates"
)

func ValidRelationshipType(value RelationshipType) bool {
	switch value {
	case RelationshipSupersedes, RelationshipAmends, RelationshipReferences, RelationshipDuplicates:
		return true
	}
	return false
}

// DocumentRelationship is a directed, typed edge between two versions.
type DocumentRelationship struct {
	ID            string
	FromVersionID string
	ToVersionID   string
	Type          RelationshipType
	CreatedAt     time.Time
}
