package feedback

import (
	"reflect"
	"testing"

	"minicode/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []models.FeedbackBlock
	}{
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "single paragraph joins lines",
			raw:  "Good solution.\nClean structure.",
			want: []models.FeedbackBlock{
				{Type: models.BlockParagraph, Text: "Good solution. Clean structure."},
			},
		},
		{
			name: "blank line splits paragraphs",
			raw:  "First thought.\n\nSecond thought.",
			want: []models.FeedbackBlock{
				{Type: models.BlockParagraph, Text: "First thought."},
				{Type: models.BlockParagraph, Text: "Second thought."},
			},
		},
		{
			name: "heading levels",
			raw:  "# Review\n## Details",
			want: []models.FeedbackBlock{
				{Type: models.BlockHeading, Level: 1, Text: "Review"},
				{Type: models.BlockHeading, Level: 2, Text: "Details"},
			},
		},
		{
			name: "list items with both markers",
			raw:  "- handles empty input\n* misses negatives",
			want: []models.FeedbackBlock{
				{Type: models.BlockListItem, Text: "handles empty input"},
				{Type: models.BlockListItem, Text: "misses negatives"},
			},
		},
		{
			name: "fenced code keeps raw lines",
			raw:  "Look at this:\n```\nfor i in range(n):\n    total += i\n```",
			want: []models.FeedbackBlock{
				{Type: models.BlockParagraph, Text: "Look at this:"},
				{Type: models.BlockCode, Text: "for i in range(n):\n    total += i"},
			},
		},
		{
			name: "unterminated fence is kept",
			raw:  "```\nprint(x)",
			want: []models.FeedbackBlock{
				{Type: models.BlockCode, Text: "print(x)"},
			},
		},
		{
			name: "mixed document",
			raw:  "# Summary\nSolid work overall.\n\n- one edge case missed\n```python\nsolve()\n```",
			want: []models.FeedbackBlock{
				{Type: models.BlockHeading, Level: 1, Text: "Summary"},
				{Type: models.BlockParagraph, Text: "Solid work overall."},
				{Type: models.BlockListItem, Text: "one edge case missed"},
				{Type: models.BlockCode, Text: "solve()"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
