// Package profile implements the Company Profile data model and the
// Profile Ingestor (document classification, resume/capability-statement
// extraction, and website scraping).
package profile

import "time"

// DocumentStatus mirrors a document's lifecycle from upload to processing.
type DocumentStatus string

const (
	DocStatusUploading DocumentStatus = "uploading"
	DocStatusUploaded  DocumentStatus = "uploaded"
	DocStatusProcessed DocumentStatus = "processed"
	DocStatusFailed    DocumentStatus = "failed"
)

// Category is the document classification produced by Classify.
type Category string

const (
	CategoryResume     Category = "resume"
	CategoryCapability Category = "capability_statement"
	CategoryOther      Category = "other"
)

// ConfidenceBand buckets a classifier score for display/routing purposes.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "HIGH"
	ConfidenceMedium ConfidenceBand = "MEDIUM"
	ConfidenceLow    ConfidenceBand = "LOW"
)

// Band maps a [0,1] confidence score to its named band: HIGH at 0.8 or
// above, MEDIUM at 0.6 or above, LOW for anything lower. Classify also
// assigns CategoryOther when the winning score is below 0.4; such a result
// still carries the LOW band.
func Band(score float64) ConfidenceBand {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

type PastPerformance struct {
	Client      string  `json:"client,omitempty"`
	Description string  `json:"description,omitempty"`
	Value       float64 `json:"value,omitempty"`
	Period      string  `json:"period,omitempty"`
}

type Document struct {
	DocumentID        string            `json:"documentId"`
	Filename          string            `json:"filename"`
	Category          Category          `json:"category"`
	S3Key             string            `json:"s3Key"`
	Status            DocumentStatus    `json:"status"`
	Size              int64             `json:"size"`
	MIME              string            `json:"mime"`
	Tags              []string          `json:"tags,omitempty"`
	Version           int               `json:"version"`
	UploadedAt        time.Time         `json:"uploadedAt"`
	EmbeddingMetadata EmbeddingMetadata `json:"embeddingMetadata,omitempty"`
}

// EmbeddingMetadata mirrors opportunity.EmbeddingMetadata's shape for a
// company's own profile-level embeddings.
type EmbeddingMetadata struct {
	SummaryKey  string   `json:"summaryKey,omitempty"`
	SectionKeys []string `json:"sectionKeys,omitempty"`
	ChunkKeys   []string `json:"chunkKeys,omitempty"`
}

// CompanyProfile is the normalized company record matched against
// opportunities.
type CompanyProfile struct {
	CompanyID            string            `json:"companyId"`
	TenantID              string            `json:"tenantId"`
	LegalName            string            `json:"legalName"`
	PrimaryContact       Contact           `json:"primaryContact"`
	WebsiteURL           string            `json:"websiteUrl,omitempty"`
	NAICSCodes           []string          `json:"naicsCodes,omitempty"`
	Certifications       []string          `json:"certifications,omitempty"`
	RevenueRange         string            `json:"revenueRange,omitempty"`
	EmployeeCount        string            `json:"employeeCount,omitempty"`
	Locations            []Location        `json:"locations,omitempty"`
	CapabilityStatement  string            `json:"capabilityStatement,omitempty"`
	PastPerformance      []PastPerformance `json:"pastPerformance,omitempty"`
	Documents            []Document        `json:"documents,omitempty"`
	EmbeddingMetadata    EmbeddingMetadata `json:"embeddingMetadata"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// ResumeRecord is the structured output of the resume extractor.
type ResumeRecord struct {
	Name             string   `json:"name,omitempty"`
	Email            string   `json:"email,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	LinkedIn         string   `json:"linkedIn,omitempty"`
	Address          string   `json:"address,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Skills           []string `json:"skills,omitempty"`
	Education        []string `json:"education,omitempty"`
	Experience       []string `json:"experience,omitempty"`
	Certifications   []string `json:"certifications,omitempty"`
	YearsExperience  float64  `json:"yearsExperience"`
	Confidence       float64  `json:"confidence"`
}

// CapabilityRecord is the structured output of the capability-statement
// extractor.
type CapabilityRecord struct {
	CompanyName      string            `json:"companyName,omitempty"`
	DUNS             string            `json:"duns,omitempty"`
	CAGE             string            `json:"cage,omitempty"`
	FoundedYear      int               `json:"foundedYear,omitempty"`
	Mission          string            `json:"mission,omitempty"`
	CoreCapabilities []string          `json:"coreCapabilities,omitempty"`
	PastPerformance  []PastPerformance `json:"pastPerformance,omitempty"`
	Certifications   []string          `json:"certifications,omitempty"`
	Contact          Contact           `json:"contact"`
	Confidence       float64           `json:"confidence"`
}
