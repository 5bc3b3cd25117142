// Package glitch provides error handling for dolly recording operations.
//
// The glitch package uses video-defect metaphors for recording errors - when a
// capture pass hits trouble, the take "glitches": a brief flicker, a visible
// artifact, or a full dropout that ends the recording.
package glitch

import (
	"fmt"
	"strings"
	"time"
)

// Glitch represents an error during a recording pass with rich context.
//
// Glitches categorize the different ways a capture can degrade, providing
// structured context for debugging without immediately aborting the take.
//
// Glitch kinds:
//   - "texture": Texture lookup, download, or decode failures
//   - "shader": Unsupported or malformed surface shader networks
//   - "geometry": Mesh extraction or triangulation issues
//   - "transform": Transform composition or decomposition issues
//   - "sink": Recording sink write or flush failures
//   - "stage": Scene description inconsistencies (dangling bindings, bad paths)
//
// Example usage:
//
//	g := NewFlicker("texture", "Asset not found on disk",
//	    Context{"asset": "textures/crate.png", "prim": "/World/Crate"})
//
//	if g.CanRecover() {
//	    // Keep logging the rest of the stage despite this flicker
//	}
type Glitch struct {
	Kind      string    // Failure category for systematic handling
	Message   string    // Human-readable description
	Context   Context   // Additional debugging information
	Timestamp time.Time // When the glitch occurred
	Attempt   int       // Which attempt/retry this was
	Severity  Severity  // How serious this glitch is
}

// Context provides structured debugging information for glitches.
//
// Context captures the state of the recording pass when something degrades,
// typically the prim path, asset identifier, and the underlying error text.
type Context map[string]interface{}

// Severity indicates how serious a glitch is and how it should be handled.
type Severity int

const (
	// Flicker indicates a minor defect that doesn't invalidate the take.
	// Examples: a texture fell back to its constant color, one prim skipped
	Flicker Severity = iota

	// Artifact indicates a visible defect that may affect what the take shows.
	// Examples: geometry logged without its material, a stale transform
	Artifact

	// Dropout indicates a serious failure that invalidates the take.
	// Examples: the sink stopped accepting rows, the stage vanished mid-pass
	Dropout
)

func (s Severity) String() string {
	switch s {
	case Flicker:
		return "flicker"
	case Artifact:
		return "artifact"
	case Dropout:
		return "dropout"
	default:
		return "unknown"
	}
}

// New creates a new glitch with the current timestamp.
func New(kind, message string, context Context) *Glitch {
	return &Glitch{
		Kind:      kind,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  Artifact, // Default severity
	}
}

// NewFlicker creates a new glitch with Flicker severity.
func NewFlicker(kind, message string, context Context) *Glitch {
	return &Glitch{
		Kind:      kind,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  Flicker,
	}
}

// NewDropout creates a new glitch with Dropout severity.
func NewDropout(kind, message string, context Context) *Glitch {
	return &Glitch{
		Kind:      kind,
		Message:   message,
		Context:   context,
		Timestamp: time.Now(),
		Severity:  Dropout,
	}
}

// WithAttempt sets the attempt number for this glitch.
func (g *Glitch) WithAttempt(attemptNumber int) *Glitch {
	g.Attempt = attemptNumber
	return g
}

// WithSeverity sets the severity level for this glitch.
func (g *Glitch) WithSeverity(severity Severity) *Glitch {
	g.Severity = severity
	return g
}

// Error implements the error interface.
func (g *Glitch) Error() string {
	return fmt.Sprintf("[%s:%s] %s", g.Kind, g.Severity, g.Message)
}

// CanRecover returns true if the recording pass can continue despite this glitch.
func (g *Glitch) CanRecover() bool {
	return g.Severity == Flicker
}

// IsDropout returns true if this glitch should immediately stop the recording.
func (g *Glitch) IsDropout() bool {
	return g.Severity == Dropout
}

// GetContext returns a specific context value if it exists.
func (g *Glitch) GetContext(key string) (interface{}, bool) {
	if g.Context == nil {
		return nil, false
	}
	val, exists := g.Context[key]
	return val, exists
}

// DetailedString returns a comprehensive glitch description with context.
func (g *Glitch) DetailedString() string {
	var details strings.Builder

	details.WriteString(fmt.Sprintf("[%s:%s] %s", g.Kind, g.Severity, g.Message))
	details.WriteString(fmt.Sprintf("\n  Time: %s", g.Timestamp.Format("15:04:05.000")))

	if g.Attempt > 0 {
		details.WriteString(fmt.Sprintf("\n  Attempt: %d", g.Attempt))
	}

	if len(g.Context) > 0 {
		details.WriteString("\n  Context:")
		for key, value := range g.Context {
			details.WriteString(fmt.Sprintf("\n    %s: %v", key, value))
		}
	}

	return details.String()
}

// Handler manages glitch collection and reporting during a recording.
//
// The handler provides component-specific glitch management so that different
// failure kinds degrade the take appropriately. Texture flickers don't stop a
// pass, while sink dropouts do.
type Handler struct {
	component string    // Component name (e.g., "stage-logger", "shade", "session")
	glitches  []*Glitch // Collected artifacts and dropouts in chronological order
	flickers  []*Glitch // Collected minor defects in chronological order
	policy    *Policy   // How to handle different glitch kinds
}

// Policy defines how different kinds and severities of glitches are handled.
type Policy struct {
	// StopOnDropout determines if recording should stop immediately on dropouts
	StopOnDropout bool

	// MaxFlickers sets a limit on accumulated flickers before the take is suspect
	MaxFlickers int

	// RecoverableKinds lists glitch kinds that are considered recoverable
	RecoverableKinds []string

	// RetryPolicy defines retry behavior for different glitch kinds
	RetryPolicy map[string]RetryConfig
}

// RetryConfig defines retry behavior for specific glitch kinds.
type RetryConfig struct {
	MaxRetries  int           // Maximum retry attempts
	Backoff     time.Duration // Delay between retries
	Exponential bool          // Whether to use exponential backoff
}

// DefaultPolicy returns a sensible default glitch handling policy.
func DefaultPolicy() *Policy {
	return &Policy{
		StopOnDropout:    true,
		MaxFlickers:      25,
		RecoverableKinds: []string{"texture", "shader", "geometry"},
		RetryPolicy: map[string]RetryConfig{
			"texture": {MaxRetries: 3, Backoff: 100 * time.Millisecond, Exponential: false},
			"sink":    {MaxRetries: 2, Backoff: 50 * time.Millisecond, Exponential: true},
			"stage":   {MaxRetries: 1, Backoff: 25 * time.Millisecond, Exponential: false},
		},
	}
}

// NewHandler creates a new glitch handler for a specific component.
func NewHandler(component string, policy *Policy) *Handler {
	if policy == nil {
		policy = DefaultPolicy()
	}

	return &Handler{
		component: component,
		glitches:  make([]*Glitch, 0),
		flickers:  make([]*Glitch, 0),
		policy:    policy,
	}
}

// Record adds a glitch to the handler's collection.
func (h *Handler) Record(g *Glitch) {
	if g.Severity == Flicker {
		h.flickers = append(h.flickers, g)
	} else {
		h.glitches = append(h.glitches, g)
	}
}

// ShouldContinue determines if recording should continue based on current glitches.
func (h *Handler) ShouldContinue() bool {
	// Stop on dropouts if policy requires it
	if h.policy.StopOnDropout {
		for _, g := range h.glitches {
			if g.IsDropout() {
				return false
			}
		}
	}

	// Stop if too many flickers have accumulated
	if h.policy.MaxFlickers > 0 && len(h.flickers) > h.policy.MaxFlickers {
		return false
	}

	return true
}

// HasGlitches returns true if any artifacts or dropouts have been recorded.
func (h *Handler) HasGlitches() bool {
	return len(h.glitches) > 0
}

// HasFlickers returns true if any flickers have been recorded.
func (h *Handler) HasFlickers() bool {
	return len(h.flickers) > 0
}

// GetGlitches returns all recorded artifacts and dropouts.
func (h *Handler) GetGlitches() []*Glitch {
	return h.glitches
}

// GetFlickers returns all recorded flickers.
func (h *Handler) GetFlickers() []*Glitch {
	return h.flickers
}

// GetRetryConfig returns the retry configuration for a specific glitch kind.
func (h *Handler) GetRetryConfig(kind string) (RetryConfig, bool) {
	config, exists := h.policy.RetryPolicy[kind]
	return config, exists
}

// CanRecover returns true if the given glitch kind is considered recoverable.
func (h *Handler) CanRecover(kind string) bool {
	for _, recoverable := range h.policy.RecoverableKinds {
		if recoverable == kind {
			return true
		}
	}
	return false
}

// Summary provides a concise overview of all glitches and flickers.
func (h *Handler) Summary() string {
	if len(h.glitches) == 0 && len(h.flickers) == 0 {
		return fmt.Sprintf("[%s] Clean take, no glitches", h.component)
	}

	return fmt.Sprintf("[%s] %d glitches, %d flickers",
		h.component, len(h.glitches), len(h.flickers))
}

// DetailedReport provides a comprehensive report of all recorded defects.
func (h *Handler) DetailedReport() string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("=== %s Component Report ===\n", h.component))
	report.WriteString(h.Summary() + "\n")

	if len(h.glitches) > 0 {
		report.WriteString("\nGlitches:\n")
		for i, g := range h.glitches {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, g.DetailedString()))
		}
	}

	if len(h.flickers) > 0 {
		report.WriteString("\nFlickers:\n")
		for i, g := range h.flickers {
			report.WriteString(fmt.Sprintf("%d. %s\n", i+1, g.DetailedString()))
		}
	}

	return report.String()
}
