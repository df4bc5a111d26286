package match

import (
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
)

// naicsPrefixLen is the digit count two NAICS codes must share to count as
// "family" overlap for the quick filter.
const naicsPrefixLen = 2

// QuickFilter runs the four cheap boolean checks that gate full scoring:
// archive status, NAICS-family overlap, set-aside eligibility, and
// geography. Target latency is sub-10ms; every check is in-memory.
func QuickFilter(o opportunity.Opportunity, c profile.CompanyProfile) QuickFilterResult {
	details := map[string]any{}

	notArchived := o.Status != opportunity.LifecycleArchived
	details["notArchived"] = notArchived

	naicsOverlap := naicsFamilyOverlap(o.NAICSCode, c.NAICSCodes)
	details["naicsOverlap"] = naicsOverlap

	setAsideOK := setAsideEligible(o.SetAsideCode, c.Certifications)
	details["setAsideEligible"] = setAsideOK

	geoOK := geographyOverlaps(o, c)
	details["geographyOverlap"] = geoOK

	return QuickFilterResult{
		IsPotentialMatch: notArchived && naicsOverlap && setAsideOK && geoOK,
		FilterDetails:    details,
	}
}

func naicsFamilyOverlap(oppNAICS string, companyNAICS []string) bool {
	if oppNAICS == "" || len(oppNAICS) < naicsPrefixLen {
		return true
	}
	prefix := oppNAICS[:naicsPrefixLen]
	for _, code := range companyNAICS {
		if len(code) >= naicsPrefixLen && code[:naicsPrefixLen] == prefix {
			return true
		}
	}
	return len(companyNAICS) == 0
}

func setAsideEligible(setAsideCode string, certifications []string) bool {
	required, ok := setAsideCertifications[setAsideCode]
	if !ok || len(required) == 0 {
		return true // open competition or unrecognized code: do not filter out
	}
	for _, cert := range certifications {
		for _, req := range required {
			if cert == req {
				return true
			}
		}
	}
	return false
}

func geographyOverlaps(o opportunity.Opportunity, c profile.CompanyProfile) bool {
	state := o.PlaceOfPerformance.State
	if state == "" {
		return true // no location constraint
	}
	for _, loc := range c.Locations {
		if loc.State == state {
			return true
		}
	}
	return len(c.Locations) == 0
}

// quickFilterBudget documents the target latency; the implementation is
// pure in-memory comparisons so it comfortably stays under this.
const quickFilterBudget = 10 * time.Millisecond
