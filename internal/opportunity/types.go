// Package opportunity implements the Opportunity data model and the
// Opportunity Processor pipeline: normalizing one raw opportunity row,
// deriving its lifecycle status, extracting and embedding its text and
// attachments, and upserting the result into the KV store and vector index.
package opportunity

import "time"

// ProcessingStatus mirrors the opportunity lifecycle states.
type ProcessingStatus string

const (
	StatusPending       ProcessingStatus = "pending"
	StatusCompleted     ProcessingStatus = "completed"
	StatusError          ProcessingStatus = "error"
	StatusAlreadyExists ProcessingStatus = "already_exists"
)

// LifecycleStatus is the date-derived display status, distinct from
// ProcessingStatus (which tracks ingestion, not date arithmetic).
type LifecycleStatus string

const (
	LifecycleActive   LifecycleStatus = "active"
	LifecycleArchived LifecycleStatus = "archived"
	LifecycleExpired  LifecycleStatus = "expired"
)

type PlaceOfPerformance struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

type AwardInfo struct {
	Number  string  `json:"number,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Awardee string  `json:"awardee,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Attachment struct {
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	URL          string `json:"url,omitempty"`
	S3Key        string `json:"s3Key,omitempty"`
}

type EmbeddingMetadata struct {
	SummaryKey  string   `json:"summaryKey,omitempty"`
	SectionKeys []string `json:"sectionKeys,omitempty"`
	ChunkKeys   []string `json:"chunkKeys,omitempty"`
}

// Opportunity is the normalized government-contracting opportunity record.
type Opportunity struct {
	NoticeID          string             `json:"noticeId"`
	Title             string             `json:"title"`
	SolicitationNum   string             `json:"solicitationNumber,omitempty"`
	Department        string             `json:"department,omitempty"`
	Office            string             `json:"office,omitempty"`
	Agency            string             `json:"agency,omitempty"`
	PostedDate        time.Time          `json:"postedDate"`
	ResponseDeadline  *time.Time         `json:"responseDeadline,omitempty"`
	ArchiveDate       *time.Time         `json:"archiveDate,omitempty"`
	NoticeType        string             `json:"noticeType,omitempty"`
	NAICSCode         string             `json:"naicsCode,omitempty"`
	SetAsideCode      string             `json:"setAsideCode,omitempty"`
	SetAsideLabel     string             `json:"setAsideLabel,omitempty"`
	PlaceOfPerformance PlaceOfPerformance `json:"placeOfPerformance"`
	Award             AwardInfo          `json:"award"`
	PrimaryContact    Contact            `json:"primaryContact"`
	SecondaryContact  Contact            `json:"secondaryContact"`
	Description       string             `json:"description,omitempty"`
	Active            bool               `json:"active"`
	Status            LifecycleStatus    `json:"status"`
	Attachments       []Attachment       `json:"attachments,omitempty"`
	EmbeddingMetadata EmbeddingMetadata  `json:"embeddingMetadata"`
	ProcessingStatus  ProcessingStatus   `json:"processingStatus"`
	ErrorMessage      string             `json:"errorMessage,omitempty"`
	RetryCount        int                `json:"retryCount,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}
