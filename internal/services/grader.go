package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"minicode/internal/judge"
	"minicode/internal/models"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiGrader implements judge.Grader against the Gemini generateContent
// API. The model is asked for a bare JSON object with status, score and
// feedback; anything else is handled leniently because model output is best
// effort by nature.
type GeminiGrader struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGeminiGrader(apiKey, model string) *GeminiGrader {
	return &GeminiGrader{
		baseURL: geminiAPIURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
	}
}

// NewGeminiGraderWithBaseURL points the grader at a stand-in server.
func NewGeminiGraderWithBaseURL(baseURL, apiKey, model string) *GeminiGrader {
	g := NewGeminiGrader(apiKey, model)
	g.baseURL = baseURL
	return g
}

func (g *GeminiGrader) Grade(ctx context.Context, req judge.GradeRequest) (*judge.GradeResult, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: API key missing", judge.ErrGradingUnavailable)
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": buildPrompt(req)}}},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grading request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create grading request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", judge.ErrGradingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", judge.ErrGradingUnavailable, resp.StatusCode, raw)
	}

	var genResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", judge.ErrGradingUnavailable, err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response", judge.ErrGradingUnavailable)
	}

	return parseGradeText(genResp.Candidates[0].Content.Parts[0].Text), nil
}

// parseGradeText extracts the verdict JSON the prompt asks for. A reply
// that is not valid JSON still carries mentorship value, so it is kept as
// feedback with a neutral score rather than discarded.
func parseGradeText(text string) *judge.GradeResult {
	cleaned := stripFences(strings.TrimSpace(text))

	var parsed struct {
		Status   string `json:"status"`
		Score    int    `json:"score"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return &judge.GradeResult{
			Status:   models.StatusAccepted,
			Score:    75,
			Feedback: text,
		}
	}
	return &judge.GradeResult{
		Status:   parsed.Status,
		Score:    parsed.Score,
		Feedback: parsed.Feedback,
	}
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func buildPrompt(req judge.GradeRequest) string {
	var cases strings.Builder
	if len(req.TestCases) > 0 {
		for i, tc := range req.TestCases {
			fmt.Fprintf(&cases, "Test Case %d:\n  Input: %s\n  Expected Output: %s\n\n",
				i+1, tc.Input, tc.ExpectedOutput)
		}
	} else {
		cases.WriteString("No test cases provided. Judge based on problem description.")
	}

	return fmt.Sprintf(`ROLE: You are a Fair & Experienced Coding Mentor and Judge.

TASK: Analyze this student's code submission for the given problem.

PROBLEM STATEMENT:
%s

%s

TEST CASES:
%s

STUDENT CODE (%s):
%s
%s
%s

INSTRUCTIONS:
1. First, determine if the code would produce the correct output for the given test cases.
2. Respond with a JSON object (and ONLY a JSON object, no markdown fences) with these fields:
   - "status": "accepted" if the code is correct, "wrong_answer" if incorrect, "error" if the code has bugs
   - "score": a number from 0 to 100 based on correctness, code quality, and efficiency
   - "feedback": a detailed markdown string with your analysis. Include:
     * Whether the solution is correct
     * Code quality observations
     * Time/space complexity analysis
     * Suggestions for improvement
     * If wrong, give hints without giving the full answer`,
		req.Title, req.Description, cases.String(), req.Language, "```", req.Code, "```")
}
