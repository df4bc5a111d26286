package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
)

func TestClassify_FilenameAndKeywordSignalsPickResume(t *testing.T) {
	text := `SUMMARY
Experienced engineer with 2018-2022 employment history.

SKILLS
Go, Python

EDUCATION
BS Computer Science

EXPERIENCE
Senior Engineer, Acme Corp`
	c, err := Classify(context.Background(), nil, "jane_doe_resume.pdf", text)
	require.NoError(t, err)
	require.Equal(t, CategoryResume, c.Category)
}

func TestClassify_CapabilityMarkersWin(t *testing.T) {
	text := `EXECUTIVE SUMMARY
Acme Corp is a leading provider.

CORE CAPABILITIES
Cloud migration, DevSecOps

Past Performance: DUNS 123456789, CAGE 1AB23, NAICS 541512`
	c, err := Classify(context.Background(), nil, "capability_statement.docx", text)
	require.NoError(t, err)
	require.Equal(t, CategoryCapability, c.Category)
}

func TestExtractResume_ParsesContactAndSections(t *testing.T) {
	text := `Jane Doe
jane.doe@example.com
(555) 123-4567
linkedin.com/in/janedoe

SUMMARY
Results-driven engineer.

SKILLS
Go
Python

EXPERIENCE
2018-2022 Senior Engineer at Acme`
	rec, err := ExtractResume(context.Background(), nil, text)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", rec.Name)
	require.Equal(t, "jane.doe@example.com", rec.Email)
	require.Contains(t, rec.Skills, "Go")
	require.Equal(t, float64(4), rec.YearsExperience)
}

func TestClassifyAndExtractResume_JohnDoeUpload(t *testing.T) {
	origYear := currentYear
	currentYear = func() int { return 2026 }
	defer func() { currentYear = origYear }()

	text := `John Doe
john.doe@example.com
(555) 987-6543

EXPERIENCE
Senior Software Engineer, Tech Corp, 2020-Present

EDUCATION
Bachelor of Science in Computer Science, University of Virginia, 2016`

	class, err := Classify(context.Background(), nil, "john_doe_resume.pdf", text)
	require.NoError(t, err)
	require.Equal(t, CategoryResume, class.Category)
	require.NotEqual(t, ConfidenceLow, class.Band)

	rec, err := ExtractResume(context.Background(), nil, text)
	require.NoError(t, err)
	require.Equal(t, "John Doe", rec.Name)
	require.Equal(t, "john.doe@example.com", rec.Email)
	require.Len(t, rec.Experience, 1)
	require.Contains(t, rec.Experience[0], "Tech Corp")
	require.Len(t, rec.Education, 1)
	require.Contains(t, rec.Education[0], "2016")
	require.Equal(t, float64(6), rec.YearsExperience)
}

func TestExtractCapability_ParsesIdentifiers(t *testing.T) {
	text := `Acme Corp Capability Statement
DUNS: 123456789
CAGE Code: 1AB23
Founded in 2005

Mission Statement:
We deliver secure cloud solutions to federal agencies.

Core Capabilities:
Cloud migration
DevSecOps
Data analytics

Certified 8(a) and HUBZone.`
	rec, err := ExtractCapability(context.Background(), nil, text)
	require.NoError(t, err)
	require.Equal(t, "123456789", rec.DUNS)
	require.Equal(t, "1AB23", rec.CAGE)
	require.Equal(t, 2005, rec.FoundedYear)
	require.Contains(t, rec.CoreCapabilities, "Cloud migration")
	require.Contains(t, rec.Certifications, "8(a)")
}

func TestIngestor_RequestUpload_RejectsUnknownExtension(t *testing.T) {
	ig := &Ingestor{Objects: objectstore.NewMemoryStore(), Now: func() time.Time { return time.Now() }}
	_, err := ig.RequestUpload(context.Background(), "co-1", UploadIntent{Filename: "malware.exe", Size: 10})
	require.ErrorIs(t, err, ErrUnknownExtension)
}

func TestIngestor_RequestUpload_RejectsOversizedFile(t *testing.T) {
	ig := &Ingestor{Objects: objectstore.NewMemoryStore()}
	_, err := ig.RequestUpload(context.Background(), "co-1", UploadIntent{Filename: "resume.pdf", Size: maxUploadBytes + 1})
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestIngestor_RequestUpload_IssuesScopedKey(t *testing.T) {
	ig := &Ingestor{Objects: objectstore.NewMemoryStore(), Now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }}
	tok, err := ig.RequestUpload(context.Background(), "co-1", UploadIntent{Filename: "resume.pdf", Size: 10})
	require.NoError(t, err)
	require.Contains(t, tok.S3Key, "tenants/co-1/raw/")
	require.Equal(t, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), tok.ExpiresAt)
}
