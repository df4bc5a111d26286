package opportunity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegments_ComposesExpectedSegments(t *testing.T) {
	o := Opportunity{
		Title:       "Cloud Migration Support Services",
		Description: "Provide cloud migration and modernization services for the agency's data center.",
		Department:  "Department of Defense",
		Office:      "Defense Information Systems Agency",
		NAICSCode:   "541512",
		SetAsideLabel: "Total Small Business",
		PlaceOfPerformance: PlaceOfPerformance{City: "Fort Meade", State: "MD"},
	}
	segs := Segments(o)

	require.Equal(t, o.Title, segs[SegmentTitle])
	require.Equal(t, o.Description, segs[SegmentDescription])
	require.Equal(t, "Department of Defense - Defense Information Systems Agency", segs[SegmentAgency])
	require.Equal(t, "Fort Meade, MD", segs[SegmentLocation])
	require.Equal(t, "NAICS: 541512 - Total Small Business", segs[SegmentClassification])
	require.Contains(t, segs[SegmentMain], o.Title)
	require.Contains(t, segs[SegmentMain], "Fort Meade, MD")
}

func TestSegments_DropsShortSegments(t *testing.T) {
	o := Opportunity{Title: "X", Description: "short"}
	segs := Segments(o)
	_, hasTitle := segs[SegmentTitle]
	require.False(t, hasTitle)
}
