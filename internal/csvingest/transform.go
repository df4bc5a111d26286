package csvingest

import (
	"regexp"
	"strings"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
)

// column names as they appear in the SAM.gov contract opportunities export.
const (
	colNoticeID      = "NoticeId"
	colTitle         = "Title"
	colAgency        = "Department/Ind.Agency"
	colOffice        = "Office"
	colPostedDate    = "PostedDate"
	colArchiveDate   = "ArchiveDate"
	colDeadline      = "ResponseDeadLine"
	colType          = "Type"
	colSetAside      = "SetASide"
	colNAICS         = "NaicsCode"
	colDescription   = "Description"
	colContactName   = "PrimaryContactFullname"
	colContactEmail  = "PrimaryContactEmail"
	colContactPhone  = "PrimaryContactPhone"
	colAward         = "Award$"
	colSolicitation  = "SolicitationNumber"
	colActive        = "Active"
)

// phonePatterns matches a phone number embedded in a name field, most
// specific first, mirroring the reference downloader's separation logic.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}(?:\s*x\d+)?`),
	regexp.MustCompile(`\d{10}`),
}

// SplitNameAndPhone separates a contact name field that may have a phone
// number embedded in it (e.g. "Alex Bonner 717-604-4237") from an
// independently-populated phone field. If phoneField is already set it
// wins; otherwise the embedded number (if any) is promoted into it.
func SplitNameAndPhone(nameField, phoneField string) (name, phone string) {
	nameField = strings.TrimSpace(nameField)
	phoneField = strings.TrimSpace(phoneField)
	if nameField == "" {
		return "", phoneField
	}

	for _, pattern := range phonePatterns {
		loc := pattern.FindStringIndex(nameField)
		if loc == nil {
			continue
		}
		extracted := nameField[loc[0]:loc[1]]
		cleanName := strings.TrimSpace(nameField[:loc[0]])
		if cleanName == "" {
			cleanName = strings.TrimSpace(nameField[loc[1]:])
		}
		if phoneField == "" {
			phoneField = extracted
		}
		return cleanName, phoneField
	}
	return nameField, phoneField
}

// Transform converts one raw CSV row into an opportunity.Opportunity.
// Rows with no NoticeId are dropped (return ok=false) since notice_id is
// the primary key downstream.
func Transform(row Row) (opportunity.Opportunity, bool) {
	noticeID := strings.TrimSpace(row[colNoticeID])
	if noticeID == "" {
		return opportunity.Opportunity{}, false
	}

	posted, _ := opportunity.ParseDate(row[colPostedDate])
	var archive, deadline *time.Time
	if t, ok := opportunity.ParseDate(row[colArchiveDate]); ok {
		archive = &t
	}
	if t, ok := opportunity.ParseDate(row[colDeadline]); ok {
		deadline = &t
	}

	contactName, contactPhone := SplitNameAndPhone(row[colContactName], row[colContactPhone])

	agency := strings.TrimSpace(row[colAgency])
	department, office := splitAgencyOffice(agency, row[colOffice])

	o := opportunity.Opportunity{
		NoticeID:         noticeID,
		Title:            strings.TrimSpace(row[colTitle]),
		SolicitationNum:  strings.TrimSpace(row[colSolicitation]),
		Department:       department,
		Office:           office,
		Agency:           agency,
		PostedDate:       posted,
		ArchiveDate:      archive,
		ResponseDeadline: deadline,
		NoticeType:       strings.TrimSpace(row[colType]),
		NAICSCode:        firstNAICS(row[colNAICS]),
		SetAsideCode:     strings.TrimSpace(row[colSetAside]),
		SetAsideLabel:    strings.TrimSpace(row[colSetAside]),
		Description:      strings.TrimSpace(row[colDescription]),
		PrimaryContact: opportunity.Contact{
			Name:  contactName,
			Email: strings.TrimSpace(row[colContactEmail]),
			Phone: contactPhone,
		},
		Award: opportunity.AwardInfo{
			Amount: opportunity.ParseCurrency(row[colAward]),
		},
	}
	return o, true
}

// firstNAICS returns the first semicolon-separated NAICS code; the
// multi-code case is handled upstream by whichever component fans a row
// out per-code, matching the reference export's "541511;541512" format.
func firstNAICS(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, ";")
	return strings.TrimSpace(parts[0])
}

// splitAgencyOffice has no independent Department/Office columns in the
// export (they're pre-joined as "Department/Ind.Agency"); Department is
// the whole agency string and Office is carried from its own column when
// present.
func splitAgencyOffice(agency, office string) (department, officeName string) {
	return agency, strings.TrimSpace(office)
}
