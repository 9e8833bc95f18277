package models

const (
	BlockHeading   = "heading"
	BlockParagraph = "paragraph"
	BlockListItem  = "list_item"
	BlockCode      = "code"
)

// FeedbackBlock is one typed unit of judge feedback. The evaluator parses
// the raw markdown-ish text exactly once; consumers render blocks and never
// re-parse the string.
type FeedbackBlock struct {
	Type  string `json:"type"`
	Level int    `json:"level,omitempty"`
	Text  string `json:"text"`
}
