package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config holds medtriage-specific configuration, alongside the common
// go-core Registerable and Validatable config structs wired in main.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ClaudeAPIKey          string
	ClaudeModel           string
	ClaudeTimeoutSeconds  int
	PlacesEndpoint        string
	PlacesAPIKey          string
	PlacesRadiusMeters    float64
	PlacesTimeoutSeconds  int
	FacilityLimit         int
	HistoryWindow         int
	DatabaseURL           string
	SlackWebhookURL       string
	SpoolDir              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.ClaudeTimeoutSeconds, "claude-timeout-seconds", 60, "per-call timeout for model gateway calls (1..300)")
	fs.StringVar(&c.PlacesEndpoint, "places-endpoint", "https://places.googleapis.com/v1", "Places API base URL")
	fs.StringVar(&c.PlacesAPIKey, "places-api-key", "", "Places API key (empty = facility enrichment disabled)")
	fs.Float64Var(&c.PlacesRadiusMeters, "places-radius-meters", 5000, "facility search radius in meters")
	fs.IntVar(&c.PlacesTimeoutSeconds, "places-timeout-seconds", 10, "timeout for the whole facility enrichment step (1..60)")
	fs.IntVar(&c.FacilityLimit, "facility-limit", 5, "maximum facilities attached to one response (1..20)")
	fs.IntVar(&c.HistoryWindow, "history-window", 20, "turns retained per conversation (1..100)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for emergency escalations")
	fs.StringVar(&c.SpoolDir, "spool-dir", "", "directory for turn-scoped image payloads (empty = system temp)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Claude API key and model are required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}
	if c.ClaudeTimeoutSeconds <= 0 || c.ClaudeTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid CLAUDE_TIMEOUT_SECONDS %d (must be 1..300)", c.ClaudeTimeoutSeconds))
	}

	// Places settings only matter when enrichment is enabled
	if c.PlacesAPIKey != "" && c.PlacesEndpoint == "" {
		errs = append(errs, errors.New("PLACES_ENDPOINT is required when PLACES_API_KEY is set"))
	}
	if c.PlacesRadiusMeters <= 0 {
		errs = append(errs, fmt.Errorf("invalid PLACES_RADIUS_METERS %v (must be positive)", c.PlacesRadiusMeters))
	}
	if c.PlacesTimeoutSeconds <= 0 || c.PlacesTimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("invalid PLACES_TIMEOUT_SECONDS %d (must be 1..60)", c.PlacesTimeoutSeconds))
	}
	if c.FacilityLimit <= 0 || c.FacilityLimit > 20 {
		errs = append(errs, fmt.Errorf("invalid FACILITY_LIMIT %d (must be 1..20)", c.FacilityLimit))
	}

	if c.HistoryWindow <= 0 || c.HistoryWindow > 100 {
		errs = append(errs, fmt.Errorf("invalid HISTORY_WINDOW %d (must be 1..100)", c.HistoryWindow))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
