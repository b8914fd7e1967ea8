package model

// Insight is a single article in the firm's "Insights" section.
// This is a pure domain model with no persistence-specific dependencies or tags
// beyond the JSON names of the document at rest, which are fixed: the backing
// file is versioned externally and must stay human-diffable.
type Insight struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Body      string `json:"body"`
	Image     string `json:"image"`
	Slug      string `json:"slug"`
	Date      string `json:"date"`
	Featured  bool   `json:"featured"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	URL       string `json:"url"`
}

// Insight status values. There are no other states.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// IsPublished reports whether the insight is visible on public surfaces.
func (i Insight) IsPublished() bool {
	return i.Status == StatusPublished
}

// InsightInput is the candidate/patch DTO accepted by the admin API.
// Pointer fields distinguish "absent" from "set to zero value" so that edits
// preserve fields the caller did not touch.
type InsightInput struct {
	Title    *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Excerpt  *string `json:"excerpt,omitempty"`
	Body     *string `json:"body,omitempty"`
	Image    *string `json:"image,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Date     *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Featured *bool   `json:"featured,omitempty"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
}

// EditorSession is the admin editing context for one request: the record
// being worked on and its position in the collection. It replaces ambient
// current-selection state so handlers and tests can construct it directly.
type EditorSession struct {
	Insight Insight
	Index   int
}
