package billing

import "github.com/laviebeauty/lavie-platform/internal/salon"

// Plan value thresholds in BRL. Asaas reports the paid value, not the plan
// name, so the webhook maps value back to entitlement. The shine band is
// bounded above so amounts between the two plan prices grant nothing.
const (
	shineMinValue   = 49.0
	shineMaxValue   = 80.0
	glamourMinValue = 89.0
)

// PlanForValue maps a paid amount to the subscription plan it buys. Amounts
// below the cheapest plan, or in the gap between the plan prices, grant
// nothing.
func PlanForValue(value float64) (string, bool) {
	switch {
	case value >= glamourMinValue:
		return salon.PlanPremium, true
	case value >= shineMinValue && value < shineMaxValue:
		return salon.PlanPro, true
	default:
		return "", false
	}
}
