package domain

// Inventory risk levels, ordered from least to most urgent.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

var riskOrder = map[string]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// RiskRank returns a sortable rank for a risk level; unknown levels sort first.
func RiskRank(level string) int {
	return riskOrder[level]
}

// ValidRiskLevel reports whether level is one of the defined risk levels.
func ValidRiskLevel(level string) bool {
	_, ok := riskOrder[level]
	return ok
}
