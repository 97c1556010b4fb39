package triage

import "time"

// Severity is the closed set of triage classifications. Anything the
// model emits outside this set is a schema violation, never coerced.
type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
	SeverityOther    Severity = "Other"
)

// Valid reports whether s is one of the four terminal classifications.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityOther:
		return true
	}
	return false
}

// NeedsEnrichment reports whether this severity routes through the
// facility enricher when coordinates are available.
func (s Severity) NeedsEnrichment() bool {
	return s == SeverityModerate || s == SeveritySevere
}

// Location is a coordinate pair supplied with a user turn.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Image references a temporary image payload spooled for one turn.
// The file is released when the turn completes, success or failure.
type Image struct {
	Path      string
	MediaType string
}

// UserTurn is one raw user input. Immutable once constructed.
type UserTurn struct {
	Text     string
	Image    *Image
	Location *Location
}

// SanitizedInput is a UserTurn with template delimiters neutralized and
// the chat history filtered to the retained window. Derived per turn,
// never persisted.
type SanitizedInput struct {
	Text     string
	History  []string
	Image    *Image
	Location *Location
}

// Verdict is the classifier's output for one turn.
type Verdict struct {
	Severity Severity `json:"Severity"`
	Response string   `json:"Response"`
}

// FacilityCategory ranks facility kinds for enrichment ordering.
type FacilityCategory string

const (
	CategoryHospital   FacilityCategory = "hospital"
	CategoryPharmacy   FacilityCategory = "pharmacy"
	CategorySpecialist FacilityCategory = "specialist"
)

// priority returns the ranking weight for a category; lower sorts first.
func (c FacilityCategory) priority() int {
	switch c {
	case CategoryHospital:
		return 0
	case CategoryPharmacy:
		return 1
	case CategorySpecialist:
		return 2
	}
	return 3
}

// Facility is one nearby care location produced by the enricher.
// Read-only downstream.
type Facility struct {
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	DisplayName string           `json:"display_name"`
	Category    FacilityCategory `json:"category"`
}

// FinalResponse is the terminal artifact of one turn, handed to the
// presentation layer.
type FinalResponse struct {
	ConversationID string     `json:"conversation_id"`
	TurnID         string     `json:"turn_id"`
	Text           string     `json:"text"`
	Severity       Severity   `json:"severity"`
	Facilities     []Facility `json:"facilities"`
	Specialists    []string   `json:"specialists,omitempty"`
	Emergency      bool       `json:"emergency"`
}

// TurnRecord is the persisted trace of one turn within a conversation.
// Failed turns are recorded so history does not silently lose them.
type TurnRecord struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Response  string    `json:"response,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the per-conversation state owned by the service.
// Mutated only at turn boundaries; turns within one conversation are
// strictly sequential.
type Conversation struct {
	ID           string       `json:"id"`
	Turns        []TurnRecord `json:"turns"`
	LastSeverity Severity     `json:"last_severity,omitempty"`
	LastLocation *Location    `json:"last_location,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
