package match

import (
	"math"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]+\b`)

// acronymExpansions maps government-contracting acronyms to their expanded
// form, so "GSA" in one text matches "general services administration" in
// the other.
var acronymExpansions = map[string]string{
	"gsa":  "general services administration",
	"dod":  "department of defense",
	"sow":  "statement of work",
	"rfp":  "request for proposal",
	"rfq":  "request for quote",
	"idiq": "indefinite delivery indefinite quantity",
	"sbir": "small business innovation research",
	"far":  "federal acquisition regulation",
	"pws":  "performance work statement",
	"cor":  "contracting officer representative",
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "for": true, "on": true, "with": true, "by": true,
	"is": true, "are": true, "be": true, "this": true, "that": true, "will": true,
	"shall": true, "may": true, "as": true, "at": true, "from": true, "it": true,
	"its": true, "their": true, "all": true, "any": true, "which": true,
	"contract": true, "contractor": true, "government": true, "agency": true,
	"services": true, "service": true, "requirements": true, "requirement": true,
}

// britishToAmerican normalizes a small set of common British spellings and
// trivial plurals that would otherwise split an otherwise-identical term.
var britishToAmerican = map[string]string{
	"organisation": "organization", "organisations": "organizations",
	"programme": "program", "programmes": "programs",
	"centre": "center", "centres": "centers",
	"labour": "labor", "colour": "color",
	"analyse": "analyze", "analysed": "analyzed",
}

// highValueKeywords get a 1.5x weight boost in the TF-IDF blend: terms that
// distinguish a serious capability match from generic contracting language.
var highValueKeywords = map[string]bool{
	"cybersecurity": true, "cloud": true, "devops": true, "devsecops": true,
	"artificial intelligence": true, "machine learning": true, "data analytics": true,
	"cloud migration": true, "zero trust": true, "software development": true,
	"systems integration": true, "logistics": true, "engineering": true,
}

func tokenizeForKeyword(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if expanded, ok := acronymExpansions[w]; ok {
			out = append(out, strings.Fields(expanded)...)
			continue
		}
		if norm, ok := britishToAmerican[w]; ok {
			w = norm
		}
		if len(w) <= 2 || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func termFrequency(tokens []string) map[string]float64 {
	tf := map[string]float64{}
	for _, t := range tokens {
		tf[t]++
	}
	total := float64(len(tokens))
	if total == 0 {
		return tf
	}
	for t, count := range tf {
		tf[t] = count / total
	}
	return tf
}

// idfProxy approximates inverse document frequency without a corpus: terms
// with higher term frequency in this pair get a lower weight, terms that
// appear rarely get boosted.
func idfProxy(tf float64) float64 {
	return math.Log(1 + 1/(tf+0.01))
}

func tfidfVector(tokens []string) map[string]float64 {
	tf := termFrequency(tokens)
	vec := make(map[string]float64, len(tf))
	for term, freq := range tf {
		weight := freq * idfProxy(freq)
		if highValueKeywords[term] {
			weight *= 1.5
		}
		vec[term] = weight
	}
	return vec
}

func cosineTFIDF(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, va := range a {
		normA += va * va
		if vb, ok := b[term]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func setOverlap(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	var hits int
	for t := range setA {
		if setB[t] {
			hits++
		}
	}
	denom := len(setA)
	if len(setB) < denom {
		denom = len(setB)
	}
	return float64(hits) / float64(denom)
}

func toSet(tokens []string) map[string]bool {
	out := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		out[t] = true
	}
	return out
}

func highValueMatch(a, b []string) float64 {
	setA, setB := toSet(a), toSet(b)
	var hits, total int
	for term := range highValueKeywords {
		inA := containsPhrase(setA, term)
		inB := containsPhrase(setB, term)
		if inA || inB {
			total++
			if inA && inB {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func containsPhrase(set map[string]bool, phrase string) bool {
	words := strings.Fields(phrase)
	for _, w := range words {
		if !set[w] {
			return false
		}
	}
	return true
}

func acronymMatch(oppText, companyText string) float64 {
	oppLower, compLower := strings.ToLower(oppText), strings.ToLower(companyText)
	var total, hits int
	for acro := range acronymExpansions {
		inOpp := strings.Contains(oppLower, acro)
		inComp := strings.Contains(compLower, acro)
		if inOpp || inComp {
			total++
			if inOpp && inComp {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// phraseMatch checks for shared bigrams as a weak proxy for meaningful
// multi-word phrase overlap.
func phraseMatch(a, b []string) float64 {
	bigrams := func(tokens []string) map[string]bool {
		out := map[string]bool{}
		for i := 0; i+1 < len(tokens); i++ {
			out[tokens[i]+" "+tokens[i+1]] = true
		}
		return out
	}
	setA, setB := bigrams(a), bigrams(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	var hits int
	for p := range setA {
		if setB[p] {
			hits++
		}
	}
	denom := len(setA)
	if len(setB) < denom {
		denom = len(setB)
	}
	return float64(hits) / float64(denom)
}

const (
	weightCosineTFIDF     = 0.35
	weightExactOverlap    = 0.25
	weightHighValueMatch  = 0.20
	weightAcronymMatch    = 0.10
	weightPhraseMatch     = 0.10
)

// scoreKeyword implements the C9 keyword/TF-IDF component: a weighted blend
// of cosine-TFIDF similarity, exact-token overlap, high-value-term match,
// acronym match, and phrase overlap.
func scoreKeyword(oppText, companyText string) ComponentResult {
	start := nowFn()
	oppTokens := tokenizeForKeyword(oppText)
	compTokens := tokenizeForKeyword(companyText)

	if len(oppTokens) == 0 || len(compTokens) == 0 {
		return ComponentResult{Name: "keyword", Status: ComponentNoData, ProcessingTimeMS: elapsedMS(start)}
	}

	cosine := cosineTFIDF(tfidfVector(oppTokens), tfidfVector(compTokens))
	overlap := setOverlap(oppTokens, compTokens)
	hv := highValueMatch(oppTokens, compTokens)
	acro := acronymMatch(oppText, companyText)
	phrase := phraseMatch(oppTokens, compTokens)

	score := weightCosineTFIDF*cosine + weightExactOverlap*overlap +
		weightHighValueMatch*hv + weightAcronymMatch*acro + weightPhraseMatch*phrase

	return ComponentResult{
		Name:   "keyword",
		Score:  clamp01(score),
		Status: ComponentOK,
		Evidence: map[string]any{
			"cosineTfidf":     cosine,
			"exactOverlap":    overlap,
			"highValueMatch":  hv,
			"acronymMatch":    acro,
			"phraseMatch":     phrase,
		},
		ProcessingTimeMS: elapsedMS(start),
	}
}
