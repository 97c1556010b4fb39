package triage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// HandlerResult is the validated output of a severity handler call.
type HandlerResult struct {
	Response    string
	Specialists []string
}

// Specialist directory slugs the moderate handler may recommend.
// Unrecognized names are dropped, not failed; the model inventing a
// specialist should not kill the turn.
var allowedSpecialists = map[string]struct{}{
	"allergologue":               {},
	"cardiologue":                {},
	"dentiste":                   {},
	"dermatologue":               {},
	"masseur-kinesitherapeute":   {},
	"medecin-generaliste":        {},
	"ophtalmologue":              {},
	"opticien-lunetier":          {},
	"orl-oto-rhino-laryngologie": {},
	"orthodontiste":              {},
	"osteopathe":                 {},
	"pediatre":                   {},
	"pedicure-podologue":         {},
	"psychiatre":                 {},
	"psychologue":                {},
	"radiologue":                 {},
	"rhumatologue":               {},
	"sage-femme":                 {},
}

// forbiddenPatterns are substrings that must never leak into model
// output: the template's own section delimiters and a distinctive
// fragment of the security rules. This is a heuristic pattern match,
// not a security boundary.
var forbiddenPatterns = []string{
	tagUserInputOpen,
	tagUserInputClose,
	tagChatHistoryOpen,
	tagChatHistoryClose,
	"<ResponseFormat>",
	"untrusted data supplied by the patient",
}

// extractJSON pulls the JSON object out of raw model output, tolerating
// markdown fences and surrounding prose. Returns ErrSchemaViolation if
// no object is present.
func extractJSON(raw string) ([]byte, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrSchemaViolation)
	}
	return []byte(raw[start : end+1]), nil
}

// decodeStrict decodes one JSON object into v, rejecting unknown
// top-level fields. An extra field is treated as an attempted format
// override and fails the turn.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	// anything after the first object is also a format violation
	if dec.More() {
		return fmt.Errorf("%w: trailing content after JSON object", ErrSchemaViolation)
	}
	return nil
}

// scanForbidden rejects output that echoes template delimiters or
// security-rule text.
func scanForbidden(text string) error {
	for _, p := range forbiddenPatterns {
		if strings.Contains(text, p) {
			return fmt.Errorf("%w: output contains forbidden pattern %q", ErrSchemaViolation, p)
		}
	}
	return nil
}

// ParseVerdict validates classifier output against the verdict schema:
// exactly {Severity, Response} with Severity in the closed four-value
// set. Any other severity, including "Unknown", is a schema violation.
func ParseVerdict(raw string) (*Verdict, error) {
	data, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var v Verdict
	if err := decodeStrict(data, &v); err != nil {
		return nil, err
	}
	if !v.Severity.Valid() {
		return nil, fmt.Errorf("%w: severity %q not in {Mild, Moderate, Severe, Other}", ErrSchemaViolation, v.Severity)
	}
	if err := scanForbidden(v.Response); err != nil {
		return nil, err
	}
	return &v, nil
}

// handlerPayload is the wire schema shared by all handler paths. Only
// the moderate path may populate Recommended_Specialists; for the
// others it must be absent.
type handlerPayload struct {
	Response    string   `json:"Response"`
	Specialists []string `json:"Recommended_Specialists,omitempty"`
}

// ParseHandlerResult validates handler output for the given path. All
// paths require a non-empty Response; the moderate path additionally
// accepts a specialist list filtered to the known directory slugs.
func ParseHandlerResult(path PromptPath, raw string) (*HandlerResult, error) {
	data, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var p handlerPayload
	if err := decodeStrict(data, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Response) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrSchemaViolation)
	}
	if err := scanForbidden(p.Response); err != nil {
		return nil, err
	}
	if path != PathModerate && len(p.Specialists) > 0 {
		return nil, fmt.Errorf("%w: unexpected field Recommended_Specialists on %s path", ErrSchemaViolation, path)
	}

	out := &HandlerResult{Response: p.Response}
	for _, s := range p.Specialists {
		if _, ok := allowedSpecialists[strings.ToLower(strings.TrimSpace(s))]; ok {
			out.Specialists = append(out.Specialists, strings.ToLower(strings.TrimSpace(s)))
		}
	}
	return out, nil
}
