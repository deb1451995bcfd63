package classifier

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/mikey/placement-triage/internal/core"
)

// verdictSchema is the contract every model reply must satisfy
const verdictSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["category", "urgency", "action_required", "deadline", "eligibility", "companies", "reason"],
  "properties": {
    "category": {"enum": ["interview", "job_posting", "follow_up", "congrats", "other"]},
    "urgency": {"enum": ["super_urgent", "urgent", "mid", "low", "trash"]},
    "action_required": {"enum": ["none", "reply", "register", "fill_form", "confirm_attendance"]},
    "deadline": {"type": ["string", "null"]},
    "eligibility": {"type": ["string", "null"]},
    "companies": {"type": "array", "items": {"type": "string"}},
    "reason": {"type": ["string", "null"]}
  }
}`

var (
	// ErrNoJSONObject is returned when the reply contains no {...} span
	ErrNoJSONObject = errors.New("no JSON object in reply")

	compiledSchema = mustCompileSchema(verdictSchema)
)

// SchemaError lists the violations of a decoded reply
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "verdict schema violation: " + strings.Join(e.Violations, "; ")
}

func mustCompileSchema(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid verdict schema: %v", err))
	}
	return s
}

// extractJSONObject slices the reply from the first "{" to the last "}"
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// ParseVerdict extracts, validates and decodes a model reply. Any error
// means the reply is unusable; callers treat it as a parse failure.
func ParseVerdict(raw string) (*core.LLMVerdict, error) {
	object, ok := extractJSONObject(raw)
	if !ok {
		return nil, ErrNoJSONObject
	}

	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(object))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reply as JSON: %w", err)
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			violations = append(violations, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return nil, &SchemaError{Violations: violations}
	}

	var verdict core.LLMVerdict
	if err := json.Unmarshal([]byte(object), &verdict); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}
	if verdict.Companies == nil {
		verdict.Companies = []string{}
	}

	return &verdict, nil
}
