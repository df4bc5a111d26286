package match

// setAsideCertifications maps an opportunity set-aside code to the
// certification(s) that satisfy it. An opportunity whose code isn't in this
// map (including the empty/open code) has no certification requirement.
var setAsideCertifications = map[string][]string{
	"8A":     {"8(a)"},
	"8AN":    {"8(a)"},
	"HZC":    {"HUBZone"},
	"SBA":    {"WOSB", "EDWOSB"},
	"SDVOSBC": {"SDVOSB"},
	"VSA":    {"VOSB", "SDVOSB"},
	"SDVOSBS": {"SDVOSB"},
	"WOSB":   {"WOSB"},
	"EDWOSB": {"EDWOSB"},
}

// scoreCertification implements the C9 certification bonus component: the
// fraction of the set-aside's required certifications the company holds,
// 1.0 if fully satisfied, with a small bonus for holding extra relevant
// certifications beyond what's required.
func scoreCertification(setAsideCode string, companyCerts []string) ComponentResult {
	start := nowFn()
	required, ok := setAsideCertifications[setAsideCode]
	if !ok || len(required) == 0 {
		return ComponentResult{
			Name:   "certification",
			Score:  1.0,
			Status: ComponentOK,
			Evidence: map[string]any{"setAsideCode": setAsideCode, "requirement": "none"},
			ProcessingTimeMS: elapsedMS(start),
		}
	}

	held := toSet(companyCerts)
	var matched int
	for _, req := range required {
		if held[req] {
			matched++
		}
	}
	fraction := float64(matched) / float64(len(required))

	extra := len(companyCerts) - matched
	bonus := 0.0
	if fraction >= 1.0 && extra > 0 {
		bonus = 0.05
		if extra > 2 {
			bonus = 0.1
		}
	}

	return ComponentResult{
		Name:   "certification",
		Score:  clamp01(fraction + bonus),
		Status: ComponentOK,
		Evidence: map[string]any{
			"required": required,
			"matched":  matched,
			"bonus":    bonus,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}
