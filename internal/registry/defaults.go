package registry

import "github.com/realsuite/docintel-back/internal/domain"

func floatPtr(value float64) *float64 { return &value }

// Terms shared by every real-estate category. Individual profiles extend
// this base list.
var baseCriticalTerms = []string{
	"price", "amount", "date", "deadline", "payment",
	"signature", "contract", "agreement", "terms",
	"conditions", "buyer", "seller", "property",
	"loan", "closing", "earnest", "deposit",
}

func withTerms(extra ...string) []string {
	terms := make([]string, 0, len(baseCriticalTerms)+len(extra))
	terms = append(terms, baseCriticalTerms...)
	terms = append(terms, extra...)
	return terms
}

func defaultProfiles() map[domain.Category]CategoryProfile {
	profiles := map[domain.Category]CategoryProfile{
		domain.CategorySettlementStatement: {
			CriticalTerms:  withTerms("settlement", "disbursement", "escrow"),
			RequiredFields: []string{"buyer_name", "seller_name", "property_address", "sale_price", "closing_date", "loan_amount"},
			RuleSeeds: []RuleSeed{
				{FieldName: "buyer_name", Kind: "required", Severity: "critical"},
				{FieldName: "seller_name", Kind: "required", Severity: "critical"},
				{FieldName: "property_address", Kind: "required", Severity: "critical"},
				{FieldName: "sale_price", Kind: "required", Severity: "critical"},
				{FieldName: "closing_date", Kind: "required", Severity: "high"},
				{FieldName: "loan_amount", Kind: "required", Severity: "high"},
				{FieldName: "sale_price", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "monetary"}},
				{FieldName: "closing_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
				{FieldName: "closing_date", Kind: "cross-field", Severity: "high", Params: domain.RuleParams{OtherField: "contract_date", Check: "after"}},
				{FieldName: "loan_amount", Kind: "cross-field", Severity: "high", Params: domain.RuleParams{OtherField: "sale_price", Check: "not_exceeds"}},
			},
		},
		domain.CategoryPurchaseAgreement: {
			CriticalTerms:  withTerms("contingency", "inspection", "financing"),
			RequiredFields: []string{"buyer_name", "seller_name", "property_address", "purchase_price", "earnest_money", "closing_date", "inspection_period"},
			RuleSeeds: []RuleSeed{
				{FieldName: "buyer_name", Kind: "required", Severity: "critical"},
				{FieldName: "seller_name", Kind: "required", Severity: "critical"},
				{FieldName: "property_address", Kind: "required", Severity: "critical"},
				{FieldName: "purchase_price", Kind: "required", Severity: "critical"},
				{FieldName: "earnest_money", Kind: "required", Severity: "high"},
				{FieldName: "closing_date", Kind: "required", Severity: "high"},
				{FieldName: "purchase_price", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "monetary"}},
				{FieldName: "closing_date", Kind: "cross-field", Severity: "high", Params: domain.RuleParams{OtherField: "contract_date", Check: "after"}},
				{FieldName: "earnest_money", Kind: "cross-field", Severity: "medium", Params: domain.RuleParams{OtherField: "purchase_price", Check: "max_ratio", Ratio: floatPtr(0.10)}},
			},
		},
		domain.CategoryLoanApplication: {
			CriticalTerms:  withTerms("income", "employment", "ssn", "credit"),
			RequiredFields: []string{"applicant_name", "ssn", "loan_amount", "property_address", "income"},
			RuleSeeds: []RuleSeed{
				{FieldName: "applicant_name", Kind: "required", Severity: "critical"},
				{FieldName: "ssn", Kind: "required", Severity: "critical"},
				{FieldName: "loan_amount", Kind: "required", Severity: "critical"},
				{FieldName: "income", Kind: "required", Severity: "high"},
				{FieldName: "ssn", Kind: "format", Severity: "high", Params: domain.RuleParams{Format: "ssn_masked"}},
				{FieldName: "applicant_email", Kind: "format", Severity: "low", Params: domain.RuleParams{Format: "email"}},
				{FieldName: "applicant_phone", Kind: "format", Severity: "low", Params: domain.RuleParams{Format: "phone"}},
				{FieldName: "loan_amount", Kind: "range", Severity: "medium", Params: domain.RuleParams{Min: floatPtr(1), Max: floatPtr(50_000_000)}},
			},
		},
		domain.CategoryTitleInsurance: {
			CriticalTerms:  withTerms("policy", "coverage", "insurer", "lien"),
			RequiredFields: []string{"property_address", "owner_name", "policy_number", "coverage_amount", "effective_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "owner_name", Kind: "required", Severity: "critical"},
				{FieldName: "policy_number", Kind: "required", Severity: "critical"},
				{FieldName: "coverage_amount", Kind: "required", Severity: "high"},
				{FieldName: "effective_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
				{FieldName: "coverage_amount", Kind: "cross-field", Severity: "medium", Params: domain.RuleParams{OtherField: "property_value", Check: "min_ratio", Ratio: floatPtr(1.0)}},
			},
		},
		domain.CategoryDeed: {
			CriticalTerms:  withTerms("grantor", "grantee", "consideration", "notary", "legal description"),
			RequiredFields: []string{"grantor_name", "grantee_name", "property_description", "consideration_amount", "execution_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "grantor_name", Kind: "required", Severity: "critical"},
				{FieldName: "grantee_name", Kind: "required", Severity: "critical"},
				{FieldName: "property_description", Kind: "required", Severity: "high"},
				{FieldName: "execution_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
				{FieldName: "consideration_amount", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "monetary"}},
			},
		},
		domain.CategoryLeaseAgreement: {
			CriticalTerms:  withTerms("rent", "lease", "tenant", "landlord", "security deposit"),
			RequiredFields: []string{"tenant_name", "landlord_name", "property_address", "monthly_rent", "lease_start", "lease_end"},
			RuleSeeds: []RuleSeed{
				{FieldName: "tenant_name", Kind: "required", Severity: "critical"},
				{FieldName: "landlord_name", Kind: "required", Severity: "critical"},
				{FieldName: "monthly_rent", Kind: "required", Severity: "high"},
				{FieldName: "monthly_rent", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "monetary"}},
				{FieldName: "lease_end", Kind: "cross-field", Severity: "high", Params: domain.RuleParams{OtherField: "lease_start", Check: "after"}},
			},
		},
		domain.CategoryListingAgreement: {
			CriticalTerms:  withTerms("commission", "listing", "broker", "expiration"),
			RequiredFields: []string{"seller_name", "broker_name", "property_address", "listing_price", "commission_rate", "expiration_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "seller_name", Kind: "required", Severity: "critical"},
				{FieldName: "listing_price", Kind: "required", Severity: "high"},
				{FieldName: "commission_rate", Kind: "range", Severity: "medium", Params: domain.RuleParams{Min: floatPtr(0), Max: floatPtr(15)}},
				{FieldName: "expiration_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
			},
		},
		domain.CategoryInspectionReport: {
			CriticalTerms:  withTerms("defect", "repair", "inspection", "hazard"),
			RequiredFields: []string{"property_address", "inspector_name", "inspection_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "inspector_name", Kind: "required", Severity: "high"},
				{FieldName: "inspection_date", Kind: "required", Severity: "high"},
				{FieldName: "inspection_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
			},
		},
		domain.CategoryAppraisalReport: {
			CriticalTerms:  withTerms("appraisal", "valuation", "comparable", "market value"),
			RequiredFields: []string{"property_address", "appraiser_name", "appraised_value", "appraisal_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "appraised_value", Kind: "required", Severity: "critical"},
				{FieldName: "appraised_value", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "monetary"}},
				{FieldName: "appraisal_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
			},
		},
		domain.CategoryDisclosureForm: {
			CriticalTerms:  withTerms("disclosure", "defect", "hazard", "lead paint"),
			RequiredFields: []string{"seller_name", "property_address", "disclosure_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "seller_name", Kind: "required", Severity: "high"},
				{FieldName: "disclosure_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
			},
		},
		domain.CategoryMortgageNote: {
			CriticalTerms:  withTerms("principal", "interest rate", "maturity", "borrower", "lender"),
			RequiredFields: []string{"borrower_name", "lender_name", "principal_amount", "interest_rate", "maturity_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "borrower_name", Kind: "required", Severity: "critical"},
				{FieldName: "principal_amount", Kind: "required", Severity: "critical"},
				{FieldName: "interest_rate", Kind: "range", Severity: "high", Params: domain.RuleParams{Min: floatPtr(0), Max: floatPtr(30)}},
				{FieldName: "maturity_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
			},
		},
		domain.CategoryHOADocument: {
			CriticalTerms:  withTerms("assessment", "dues", "covenant", "association"),
			RequiredFields: []string{"association_name", "property_address"},
			RuleSeeds: []RuleSeed{
				{FieldName: "association_name", Kind: "required", Severity: "medium"},
			},
		},
		domain.CategoryPowerOfAttorney: {
			CriticalTerms:  withTerms("attorney", "principal", "agent", "notary", "revocation"),
			RequiredFields: []string{"principal_name", "agent_name", "execution_date"},
			RuleSeeds: []RuleSeed{
				{FieldName: "principal_name", Kind: "required", Severity: "critical"},
				{FieldName: "agent_name", Kind: "required", Severity: "critical"},
				{FieldName: "execution_date", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "date"}},
			},
		},
		domain.CategoryTaxStatement: {
			CriticalTerms:  withTerms("assessed value", "tax", "parcel", "exemption"),
			RequiredFields: []string{"property_address", "parcel_number", "tax_year", "tax_amount"},
			RuleSeeds: []RuleSeed{
				{FieldName: "parcel_number", Kind: "required", Severity: "high"},
				{FieldName: "tax_amount", Kind: "format", Severity: "medium", Params: domain.RuleParams{Format: "monetary"}},
			},
		},
		domain.CategoryOther: {
			CriticalTerms:  withTerms(),
			RequiredFields: nil,
			RuleSeeds:      nil,
		},
	}
	return profiles
}
