package quality

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/IFRCGo/extractor-operational-learnings/internal/core"
)

// Metric is one G-Eval criterion scored by the evaluator model.
type Metric struct {
	Name     string
	Criteria string
	Steps    string
	MaxScore int
}

// Metric names.
const (
	MetricRelevance   = "Relevance"
	MetricCoherence   = "Coherence"
	MetricConsistency = "Consistency"
	MetricFluency     = "Fluency"
)

// Metrics lists the criteria in scoring order.
var Metrics = []Metric{
	{
		Name:     MetricRelevance,
		Criteria: `Relevance(1-5) - selection of important content from the source. The summary should include only important information from the source document. Annotators were instructed to penalize summaries which contained redundancies and excess information.`,
		Steps: `1. Read the summary and the source document carefully.
2. Compare the summary to the source document and identify the main points of the article.
3. Assess how well the summary covers the main points of the article, and how much irrelevant or redundant information it contains.
4. Assign a relevance score from 1 to 5.`,
		MaxScore: 5,
	},
	{
		Name:     MetricCoherence,
		Criteria: `Coherence(1-5) - the collective quality of all sentences. We align this dimension with the DUC quality question of structure and coherence whereby "the summary should be well-structured and well-organized. The summary should not just be a heap of related information, but should build from sentence to a coherent body of information about a topic."`,
		Steps: `1. Read the article carefully and identify the main topic and key points.
2. Read the summary and compare it to the article. Check if the summary covers the main topic and key points of the article, and if it presents them in a clear and logical order.
3. Assign a score for coherence on a scale of 1 to 5, where 1 is the lowest and 5 is the highest based on the Evaluation Criteria.`,
		MaxScore: 5,
	},
	{
		Name:     MetricConsistency,
		Criteria: `Consistency(1-5) - the factual alignment between the summary and the summarized source. A factually consistent summary contains only statements that are entailed by the source document. Annotators were also asked to penalize summaries that contained hallucinated facts.`,
		Steps: `1. Read the article carefully and identify the main facts and details it presents.
2. Read the summary and compare it to the article. Check if the summary contains any factual errors that are not supported by the article.
3. Assign a score for consistency based on the Evaluation Criteria.`,
		MaxScore: 5,
	},
	{
		Name: MetricFluency,
		Criteria: `Fluency(1-3): the quality of the summary in terms of grammar, spelling, punctuation, word choice, and sentence structure.
1: Poor. The summary has many errors that make it hard to understand or sound unnatural.
2: Fair. The summary has some errors that affect the clarity or smoothness of the text, but the main points are still comprehensible.
3: Good. The summary has few or no errors and is easy to read and follow.`,
		Steps:    `Read the summary and evaluate its fluency based on the given criteria. Assign a fluency score from 1 to 3.`,
		MaxScore: 3,
	},
}

const evaluationTemplate = `You will be given one summary written for an article. Your task is to rate the summary on one metric.
Please make sure you read and understand these instructions very carefully.
Please keep this document open while reviewing, and refer to it as needed.

Evaluation Criteria:

%s

Evaluation Steps:

%s

Example:

Source Text:

%s

Summary:

%s

Evaluation Form (scores ONLY):

- %s
`

// EvaluationPrompt renders the scoring prompt of one metric.
func EvaluationPrompt(m Metric, document, summary string) string {
	return fmt.Sprintf(evaluationTemplate, m.Criteria, m.Steps, document, summary, m.Name)
}

var (
	scalePattern = regexp.MustCompile(`\(\s*\d+\s*-\s*\d+\s*\)`)
	scorePattern = regexp.MustCompile(`\d+`)
)

// ParseScore reads the first integer of an evaluator response, ignoring an
// echoed scale such as "(1-5)". Scores outside 1..maxScore are rejected.
func ParseScore(response string, maxScore int) (int, error) {
	match := scorePattern.FindString(scalePattern.ReplaceAllString(response, ""))
	if match == "" {
		return 0, fmt.Errorf("%w: no score in evaluator response %q", core.ErrParse, response)
	}
	score, err := strconv.Atoi(match)
	if err != nil || score < 1 || score > maxScore {
		return 0, fmt.Errorf("%w: score %s outside 1-%d", core.ErrParse, match, maxScore)
	}
	return score, nil
}
