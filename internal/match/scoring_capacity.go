package match

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
)

// revenueBandMidpoints maps a company-profile revenue-range label to its
// representative dollar value, for comparison against opportunity size.
var revenueBandMidpoints = map[string]float64{
	"under_1m":  500_000,
	"1m_5m":     3_000_000,
	"5m_10m":    7_500_000,
	"10m_50m":   30_000_000,
	"50m_100m":  75_000_000,
	"over_100m": 150_000_000,
}

// employeeBandMidpoints maps a company-profile headcount label to a
// representative headcount.
var employeeBandMidpoints = map[string]float64{
	"1_10":     5,
	"11_50":    30,
	"51_200":   125,
	"201_500":  350,
	"501_1000": 750,
	"1000_plus": 2000,
}

// defaultAgencyNormAward is the fallback opportunity-size indicator used
// when the opportunity carries no award amount: a typical small-business
// set-aside award.
const defaultAgencyNormAward = 750_000.0

var numericPattern = regexp.MustCompile(`[\d.]+`)

// scoreCapacity implements the C9 capacity fit component: 1 minus the
// normalized deviation of the company's revenue band from the opportunity's
// award amount (defaultAgencyNormAward when no award is set). The headcount
// band is reported in the evidence only; it does not affect the score.
func scoreCapacity(o opportunity.Opportunity, c profile.CompanyProfile) ComponentResult {
	start := nowFn()
	revenue, revOK := bandValue(c.RevenueRange, revenueBandMidpoints)
	if !revOK {
		return ComponentResult{Name: "capacity", Status: ComponentNoData, ProcessingTimeMS: elapsedMS(start)}
	}

	target := o.Award.Amount
	if target <= 0 {
		target = defaultAgencyNormAward
	}

	deviation := normalizedLogDeviation(revenue, target)
	score := clamp01(1 - deviation)

	return ComponentResult{
		Name:   "capacity",
		Score:  score,
		Status: ComponentOK,
		Evidence: map[string]any{
			"companyRevenue":    revenue,
			"opportunitySize":   target,
			"employeeCountBand": c.EmployeeCount,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}

func bandValue(label string, table map[string]float64) (float64, bool) {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, "$", "")
	if v, ok := table[norm]; ok {
		return v, true
	}
	nums := numericPattern.FindAllString(label, -1)
	if len(nums) == 0 {
		return 0, false
	}
	var sum float64
	for _, n := range nums {
		v, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		sum += v
	}
	return sum / float64(len(nums)), true
}

// normalizedLogDeviation measures how far apart two dollar figures are on a
// log scale, normalized to [0,1]: each order of magnitude apart adds 0.5,
// so a gap of two orders of magnitude or more saturates at 1.
func normalizedLogDeviation(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 1
	}
	ratio := math.Abs(math.Log10(a) - math.Log10(b))
	return clamp01(ratio / 2)
}
