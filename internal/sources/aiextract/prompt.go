package aiextract

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/custodia-labs/intel-ingest/internal/classifier"
)

const promptTemplate = `You extract structured facts from startup post-mortems.

Read the document below and return a single JSON object with exactly these fields:
  "company_name": the company the document is about (string, empty if unknown)
  "industry": one of Fintech, Healthcare, E-commerce, AI, Education, Media, Transportation, Food, Real Estate, SaaS, Technology
  "decision_type": one of hiring, funding, pricing, product, pivot, general
  "logic_used": the reasoning behind the decision that failed (string)
  "failure_reason": why the company failed (string)
  "mitigation_strategy": what could have prevented the failure (string)
  "tags": short lowercase keywords (array of strings)

Respond with JSON only. Do not add commentary or markdown.

Document:
`

// Prompt builds the extraction request for one document text.
func Prompt(text string) string {
	return promptTemplate + text
}

// Extraction is the seven-field result of one extraction request.
type Extraction struct {
	CompanyName        string   `json:"company_name"`
	Industry           string   `json:"industry"`
	DecisionType       string   `json:"decision_type"`
	LogicUsed          string   `json:"logic_used"`
	FailureReason      string   `json:"failure_reason"`
	MitigationStrategy string   `json:"mitigation_strategy"`
	Tags               []string `json:"tags"`
}

// errNoCompany marks an extraction without a company name.
var errNoCompany = errors.New("missing company_name")

// ParseExtraction reads a model response. It tolerates markdown fences and
// text around the object, and string-valued tags. Values are mapped into
// the controlled vocabularies.
func ParseExtraction(response string) (*Extraction, error) {
	body := strings.TrimSpace(response)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, err
	}

	e := &Extraction{
		CompanyName:        str(raw["company_name"]),
		Industry:           str(raw["industry"]),
		DecisionType:       str(raw["decision_type"]),
		LogicUsed:          str(raw["logic_used"]),
		FailureReason:      str(raw["failure_reason"]),
		MitigationStrategy: str(raw["mitigation_strategy"]),
		Tags:               tags(raw["tags"]),
	}
	if e.CompanyName == "" {
		return nil, errNoCompany
	}
	e.Industry = classifier.NormalizeIndustry(e.Industry, e.FailureReason, e.CompanyName)
	e.DecisionType = classifier.NormalizeDecisionType(e.DecisionType, e.FailureReason, e.LogicUsed)
	return e, nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func tags(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := str(item); s != "" {
				out = append(out, strings.ToLower(s))
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, strings.ToLower(s))
			}
		}
	}
	return out
}
