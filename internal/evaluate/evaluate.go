package evaluate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andywalner/pa-mmi-mock-interviewer/internal/llm"
	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

const defaultRubric = `You are an experienced Physician Assistant program admissions interviewer
evaluating a candidate's practice Multiple Mini Interview (MMI) responses.

For each station, assess:
- Ethical reasoning and ability to see multiple perspectives
- Communication clarity and structure
- Empathy and professionalism
- Self-awareness and genuine motivation

Then provide:
1. Per-station feedback: what worked, what to improve, and a score out of 10.
2. Overall strengths and the two most impactful areas to work on.
3. A brief closing note of encouragement.

Format the feedback in markdown. Be specific: quote short phrases from the
candidate's responses when pointing out strengths or weaknesses. Do not invent
content the candidate did not say.`

// Service formats a completed session into an evaluation request and computes
// cost metadata from token usage.
type Service struct {
	client            llm.Client
	rubric            string
	inputCostPerMTok  float64
	outputCostPerMTok float64
}

func NewService(client llm.Client, rubricPath string, inputCostPerMTok, outputCostPerMTok float64) (*Service, error) {
	rubric := defaultRubric
	if rubricPath != "" {
		data, err := os.ReadFile(rubricPath)
		if err != nil {
			return nil, fmt.Errorf("read rubric file: %w", err)
		}
		rubric = string(data)
	}

	return &Service{
		client:            client,
		rubric:            rubric,
		inputCostPerMTok:  inputCostPerMTok,
		outputCostPerMTok: outputCostPerMTok,
	}, nil
}

// Evaluate submits all station responses as a single atomic request. There
// are no partial results: either the whole evaluation succeeds or an error is
// returned.
func (s *Service) Evaluate(ctx context.Context, schoolName string, responses []model.StationResponse) (model.Evaluation, error) {
	if len(responses) == 0 {
		return model.Evaluation{}, fmt.Errorf("no responses to evaluate")
	}

	completion, err := s.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: s.rubric},
		{Role: "user", Content: formatResponses(schoolName, responses)},
	})
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("evaluate responses: %w", err)
	}

	return model.Evaluation{
		FeedbackText:     completion.Text,
		Model:            completion.Model,
		InputTokens:      completion.InputTokens,
		OutputTokens:     completion.OutputTokens,
		EstimatedCostUSD: s.estimatedCost(completion.InputTokens, completion.OutputTokens),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

func (s *Service) estimatedCost(inputTokens, outputTokens int) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * s.inputCostPerMTok
	outputCost := float64(outputTokens) / 1_000_000 * s.outputCostPerMTok
	return inputCost + outputCost
}

func formatResponses(schoolName string, responses []model.StationResponse) string {
	if schoolName == "" {
		schoolName = "PA Program"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I am applying to %s and have completed a practice MMI interview. Please evaluate my responses to all %d stations.\n",
		schoolName, len(responses))

	for i, r := range responses {
		fmt.Fprintf(&b, "\n---\nSTATION %d\n\nQuestion/Scenario:\n%s\n\nMy Response:\n%s\n\nTime Spent: %d minutes %d seconds\n---\n",
			i+1, r.Prompt, r.ResponseText, r.TimeSpentSeconds/60, r.TimeSpentSeconds%60)
	}

	b.WriteString("\nPlease provide comprehensive feedback following the evaluation rubric and format specified in your instructions.")
	return b.String()
}
