package opportunity

import "strings"

// Segment identifies one of the composed text segments embedded per
// opportunity.
type Segment string

const (
	SegmentMain           Segment = "main"
	SegmentTitle          Segment = "title"
	SegmentDescription    Segment = "description"
	SegmentAgency         Segment = "agency"
	SegmentLocation       Segment = "location"
	SegmentClassification Segment = "classification"
)

// minSegmentLen is the floor below which a segment is skipped entirely
// rather than embedded.
const minSegmentLen = 10

// Segments composes the named text segments for o. Segments is the single
// source of truth for segment text and is shared by the processor (which
// embeds them) and anything inspecting a segment outside that pipeline.
func Segments(o Opportunity) map[Segment]string {
	out := map[Segment]string{
		SegmentTitle:          o.Title,
		SegmentDescription:    o.Description,
		SegmentAgency:         agencySegment(o),
		SegmentLocation:       locationSegment(o),
		SegmentClassification: classificationSegment(o),
	}
	out[SegmentMain] = mainSegment(o, out)

	for k, v := range out {
		if len(strings.TrimSpace(v)) < minSegmentLen {
			delete(out, k)
		}
	}
	return out
}

func agencySegment(o Opportunity) string {
	return join(" - ", o.Department, o.Office)
}

func locationSegment(o Opportunity) string {
	return join(", ", o.PlaceOfPerformance.City, o.PlaceOfPerformance.State)
}

func classificationSegment(o Opportunity) string {
	if o.NAICSCode == "" && o.SetAsideLabel == "" {
		return ""
	}
	return "NAICS: " + o.NAICSCode + " - " + o.SetAsideLabel
}

func mainSegment(o Opportunity, parts map[Segment]string) string {
	lines := []string{
		o.Title,
		o.Description,
		o.Department,
		o.Office,
		o.NAICSCode,
		o.SetAsideLabel,
		parts[SegmentLocation],
	}
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func join(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
