package triage

import (
	"errors"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		wantSeverity Severity
		wantErr      bool
	}{
		{
			name:         "valid mild",
			raw:          `{"Severity": "Mild", "Response": "minor symptoms"}`,
			wantSeverity: SeverityMild,
		},
		{
			name:         "valid severe with surrounding prose",
			raw:          "Here is my assessment:\n```json\n{\"Severity\": \"Severe\", \"Response\": \"urgent\"}\n```",
			wantSeverity: SeveritySevere,
		},
		{
			name:    "severity outside closed set",
			raw:     `{"Severity": "Critical", "Response": "bad"}`,
			wantErr: true,
		},
		{
			name:    "unknown is not coerced",
			raw:     `{"Severity": "Unknown", "Response": "?"}`,
			wantErr: true,
		},
		{
			name:    "unknown top-level field",
			raw:     `{"Severity": "Mild", "Response": "ok", "Confidence": 0.9}`,
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			raw:     "I think this is mild.",
			wantErr: true,
		},
		{
			name:    "trailing second object",
			raw:     `{"Severity": "Mild", "Response": "ok"} {"Severity": "Severe"}`,
			wantErr: true,
		},
		{
			name:    "forbidden pattern in response",
			raw:     `{"Severity": "Mild", "Response": "see <ResponseFormat> above"}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v, err := ParseVerdict(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseVerdict(%q) = %+v, want error", tc.raw, v)
				}
				if !errors.Is(err, ErrSchemaViolation) {
					t.Errorf("error %v does not wrap ErrSchemaViolation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVerdict(%q) error: %v", tc.raw, err)
			}
			if v.Severity != tc.wantSeverity {
				t.Errorf("severity = %q, want %q", v.Severity, tc.wantSeverity)
			}
		})
	}
}

func TestParseHandlerResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		path            PromptPath
		raw             string
		wantResponse    string
		wantSpecialists []string
		wantErr         bool
	}{
		{
			name:         "mild plain response",
			path:         PathMild,
			raw:          `{"Response": "Rest and stay hydrated."}`,
			wantResponse: "Rest and stay hydrated.",
		},
		{
			name:    "empty response",
			path:    PathMild,
			raw:     `{"Response": "   "}`,
			wantErr: true,
		},
		{
			name:            "moderate with known specialists",
			path:            PathModerate,
			raw:             `{"Response": "See a doctor soon.", "Recommended_Specialists": ["Dermatologue", "cardiologue"]}`,
			wantResponse:    "See a doctor soon.",
			wantSpecialists: []string{"dermatologue", "cardiologue"},
		},
		{
			name:         "moderate drops unknown specialists",
			path:         PathModerate,
			raw:          `{"Response": "ok", "Recommended_Specialists": ["chirurgien-esthetique", "pediatre"]}`,
			wantResponse: "ok",
			// invented names are filtered, not fatal
			wantSpecialists: []string{"pediatre"},
		},
		{
			name:    "specialists on non-moderate path",
			path:    PathSevere,
			raw:     `{"Response": "go to the ER", "Recommended_Specialists": ["cardiologue"]}`,
			wantErr: true,
		},
		{
			name:    "unknown field",
			path:    PathOther,
			raw:     `{"Response": "hello", "Mood": "friendly"}`,
			wantErr: true,
		},
		{
			name:    "forbidden pattern echoed",
			path:    PathMild,
			raw:     `{"Response": "per the untrusted data supplied by the patient rule"}`,
			wantErr: true,
		},
		{
			name:         "fenced output",
			path:         PathOther,
			raw:          "```json\n{\"Response\": \"Hi! How are you feeling today?\"}\n```",
			wantResponse: "Hi! How are you feeling today?",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseHandlerResult(tc.path, tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseHandlerResult(%s, %q) = %+v, want error", tc.path, tc.raw, got)
				}
				if !errors.Is(err, ErrSchemaViolation) {
					t.Errorf("error %v does not wrap ErrSchemaViolation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHandlerResult(%s, %q) error: %v", tc.path, tc.raw, err)
			}
			if got.Response != tc.wantResponse {
				t.Errorf("response = %q, want %q", got.Response, tc.wantResponse)
			}
			if len(got.Specialists) != len(tc.wantSpecialists) {
				t.Fatalf("specialists = %v, want %v", got.Specialists, tc.wantSpecialists)
			}
			for i := range got.Specialists {
				if got.Specialists[i] != tc.wantSpecialists[i] {
					t.Errorf("specialists[%d] = %q, want %q", i, got.Specialists[i], tc.wantSpecialists[i])
				}
			}
		})
	}
}

func TestSeverityValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Severity{SeverityMild, SeverityModerate, SeveritySevere, SeverityOther} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Severity{"", "mild", "Critical", "Unknown"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
