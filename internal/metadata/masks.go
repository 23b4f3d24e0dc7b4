package metadata

import "strings"

// Named masks referenced from property definitions.
var masks = map[string]string{
	"currency": "#.##0,00",
}

var companyDocumentMasks = map[string]string{
	"BR": "##.###.###/####-##",
	"US": "##-#######",
}

const defaultCompanyDocumentMask = "##############"

// CompanyDocumentMask returns the company registration number mask for a
// country code, or a plain digit mask for unknown countries.
func CompanyDocumentMask(country string) string {
	if m, ok := companyDocumentMasks[country]; ok {
		return m
	}
	return defaultCompanyDocumentMask
}

// ResolveMask expands a named mask into its pattern. "companyDocument"
// takes an optional country suffix ("companyDocument:US", BR by default).
// Anything else is a literal pattern and returned as-is.
func ResolveMask(mask string) string {
	if m, ok := masks[mask]; ok {
		return m
	}
	if name, country, _ := strings.Cut(mask, ":"); name == "companyDocument" {
		if country == "" {
			country = "BR"
		}
		return CompanyDocumentMask(country)
	}
	return mask
}
