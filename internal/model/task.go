package model

import "time"

// Priority codes are stored as integers; the API only ever exposes the
// display labels.
const (
	PriorityLow = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

var priorityLabels = map[int]string{
	PriorityLow:    "low",
	PriorityNormal: "normal",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

// PriorityLabel maps a stored priority code to its display label.
// Unknown codes fall back to "normal".
func PriorityLabel(code int) string {
	if label, ok := priorityLabels[code]; ok {
		return label
	}
	return "normal"
}

// PriorityCode is the inverse of PriorityLabel. The second return value
// reports whether the label is one of the known set.
func PriorityCode(label string) (int, bool) {
	for code, l := range priorityLabels {
		if l == label {
			return code, true
		}
	}
	return PriorityNormal, false
}

type Task struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	IsFieldService    bool       `json:"is_field_service"`
	Priority          int        `json:"priority"`
	ProjectID         *int64     `json:"project_id"`
	PartnerID         *int64     `json:"partner_id"`
	StageID           *int64     `json:"stage_id"`
	PlannedDateBegin  *time.Time `json:"planned_date_begin"`
	DateDeadline      *time.Time `json:"date_deadline"`
	SignatureFilename string     `json:"signature_filename"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Joined for reads; empty on bare fetches.
	StageName string   `json:"stage_name"`
	Partner   *Partner `json:"partner,omitempty"`
}

type Stage struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
