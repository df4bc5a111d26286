package match

// naicsPrefixScores maps shared-prefix length to its alignment score.
var naicsPrefixScores = map[int]float64{
	6: 1.0, 5: 0.8, 4: 0.6, 3: 0.4, 2: 0.2,
}

// scoreNAICS implements the C9 NAICS alignment component: the maximum
// alignment score over the company's full NAICS set against the
// opportunity's code, scored by shared-digit-prefix length.
func scoreNAICS(oppNAICS string, companyNAICS []string) ComponentResult {
	start := nowFn()
	if oppNAICS == "" || len(companyNAICS) == 0 {
		return ComponentResult{Name: "naics", Status: ComponentNoData, ProcessingTimeMS: elapsedMS(start)}
	}

	var best float64
	var bestCode string
	for _, code := range companyNAICS {
		s := naicsPairScore(oppNAICS, code)
		if s > best {
			best = s
			bestCode = code
		}
	}

	return ComponentResult{
		Name:   "naics",
		Score:  best,
		Status: ComponentOK,
		Evidence: map[string]any{
			"opportunityNaics": oppNAICS,
			"bestCompanyNaics": bestCode,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}

func naicsPairScore(a, b string) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	shared := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			break
		}
		shared++
	}
	for prefixLen := 6; prefixLen >= 2; prefixLen-- {
		if shared >= prefixLen {
			return naicsPrefixScores[prefixLen]
		}
	}
	return 0
}
