package feedback

import (
	"strings"

	"minicode/internal/models"
)

// Parse turns the grader's markdown-ish feedback into an ordered sequence
// of typed blocks. This is the only place the raw text is interpreted;
// everything downstream renders blocks.
func Parse(raw string) []models.FeedbackBlock {
	var blocks []models.FeedbackBlock
	var paragraph []string
	var code []string
	inCode := false

	flushParagraph := func() {
		if len(paragraph) > 0 {
			blocks = append(blocks, models.FeedbackBlock{
				Type: models.BlockParagraph,
				Text: strings.Join(paragraph, " "),
			})
			paragraph = nil
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				blocks = append(blocks, models.FeedbackBlock{
					Type: models.BlockCode,
					Text: strings.Join(code, "\n"),
				})
				code = nil
				inCode = false
			} else {
				flushParagraph()
				inCode = true
			}
			continue
		}

		if inCode {
			code = append(code, line)
			continue
		}

		switch {
		case trimmed == "":
			flushParagraph()
		case strings.HasPrefix(trimmed, "#"):
			flushParagraph()
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}
			blocks = append(blocks, models.FeedbackBlock{
				Type:  models.BlockHeading,
				Level: level,
				Text:  strings.TrimSpace(trimmed[level:]),
			})
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flushParagraph()
			blocks = append(blocks, models.FeedbackBlock{
				Type: models.BlockListItem,
				Text: strings.TrimSpace(trimmed[2:]),
			})
		default:
			paragraph = append(paragraph, trimmed)
		}
	}

	// Unterminated fence: keep the content rather than dropping it.
	if inCode && len(code) > 0 {
		blocks = append(blocks, models.FeedbackBlock{
			Type: models.BlockCode,
			Text: strings.Join(code, "\n"),
		})
	}
	flushParagraph()

	return blocks
}
