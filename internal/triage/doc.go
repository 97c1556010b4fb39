// Package triage implements the symptom triage core: prompt
// sanitization, severity classification, severity-routed handlers,
// facility enrichment, and the per-turn state machine that sequences
// them. It defines the Service (conversation lifecycle), Engine (pure
// per-turn orchestration), Store interface (persistence), and domain
// models.
package triage
