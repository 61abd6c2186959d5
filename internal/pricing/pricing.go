// Package pricing computes cost-plus session prices. All amounts are whole
// rupiah; the arithmetic is integer-only so that price tags stay bit-exact.
package pricing

// UserCategory classifies a participant for margin selection.
type UserCategory string

const (
	CategoryTrial   UserCategory = "trial"
	CategoryStudent UserCategory = "student"
	CategoryMember  UserCategory = "member"
	CategoryNormal  UserCategory = "normal"
	CategoryDropIn  UserCategory = "drop_in"
)

// marginPercent maps each category to its cost-plus margin. Trial sessions are
// deliberately subsidised below cost.
var marginPercent = map[UserCategory]int64{
	CategoryTrial:   -14,
	CategoryStudent: 3,
	CategoryMember:  12,
	CategoryNormal:  20,
	CategoryDropIn:  29,
}

const (
	defaultCapacity = 12
	priceStep       = 5000
)

// SessionCosts are the cost inputs for one drilling session.
type SessionCosts struct {
	CourtCost       int64 `json:"court_cost"`
	ShuttlecockCost int64 `json:"shuttlecock_cost"`
	ToolCost        int64 `json:"tool_cost"`
	CoachFee        int64 `json:"coach_fee"`
	Capacity        int64 `json:"capacity"`
}

// Quote is the priced outcome for one category.
type Quote struct {
	HPP           int64        `json:"hpp"`
	MarginPercent int64        `json:"margin_percent"`
	RawPrice      int64        `json:"raw_price"`
	FinalPrice    int64        `json:"final_price"`
	Category      UserCategory `json:"category"`
}

// Categories lists every supported user category in tier order.
func Categories() []UserCategory {
	return []UserCategory{CategoryTrial, CategoryStudent, CategoryMember, CategoryNormal, CategoryDropIn}
}

// CalculateDrillingPrice computes the per-head cost and the rounded cost-plus
// price for one category. Unknown categories price at the normal margin.
func CalculateDrillingPrice(costs SessionCosts, category UserCategory) Quote {
	margin, ok := marginPercent[category]
	if !ok {
		category = CategoryNormal
		margin = marginPercent[CategoryNormal]
	}

	capacity := costs.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	total := clampZero(costs.CourtCost) + clampZero(costs.ShuttlecockCost) + clampZero(costs.ToolCost) + clampZero(costs.CoachFee)

	hpp := ceilDiv(total, capacity)
	rawPrice := ceilDiv(hpp*(100+margin), 100)
	finalPrice := ceilDiv(rawPrice, priceStep) * priceStep

	return Quote{
		HPP:           hpp,
		MarginPercent: margin,
		RawPrice:      rawPrice,
		FinalPrice:    finalPrice,
		Category:      category,
	}
}

// GeneratePriceTiers prices every category in one pass, used to freeze a
// session's price table before category resolution can drift.
func GeneratePriceTiers(costs SessionCosts) map[UserCategory]int64 {
	tiers := make(map[UserCategory]int64, len(marginPercent))
	for _, category := range Categories() {
		tiers[category] = CalculateDrillingPrice(costs, category).FinalPrice
	}
	return tiers
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func clampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
