package snapshot

import "strconv"

var importantMetrics = map[string]struct{}{
	"minor_violations":    {},
	"code_smells":         {},
	"reliability_rating":  {},
	"new_code_smells":     {},
	"new_vulnerabilities": {},
	"sqale_index":         {},
	"violations":          {},
	"security_rating":     {},
	"critical_violations": {},
	"vulnerabilities":     {},
	"new_violations":      {},
	"bugs":                {},
	"major_violations":    {},
	"new_bugs":            {},
}

// IsImportantMetric reports whether name is one of the severity-bearing
// metric identifiers that get visual emphasis. Matching is exact.
func IsImportantMetric(name string) bool {
	_, ok := importantMetrics[name]
	return ok
}

// FormatSeverity renders v with two decimals, or "0.00" when v is not a
// number.
func FormatSeverity(v Value) string {
	f, ok := v.Float()
	if !ok {
		return "0.00"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
