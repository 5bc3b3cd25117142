package glitch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestGlitch_Core tests core Glitch functionality
func TestGlitch_Core(t *testing.T) {
	context := Context{
		"prim":  "/World/Crate",
		"asset": "textures/crate.png",
	}

	g := New("texture", "Failed to decode asset", context)

	// Basic properties
	assert.Equal(t, "texture", g.Kind)
	assert.Equal(t, "Failed to decode asset", g.Message)
	assert.Equal(t, context, g.Context)
	assert.Equal(t, Artifact, g.Severity)
	assert.WithinDuration(t, time.Now(), g.Timestamp, time.Second)

	// Error interface
	assert.Contains(t, g.Error(), "Failed to decode asset")
	assert.Contains(t, g.Error(), "texture")
	assert.Contains(t, g.Error(), "artifact")
}

// TestGlitch_Severities tests different severity levels
func TestGlitch_Severities(t *testing.T) {
	flicker := NewFlicker("shader", "Unsupported shader id", nil)
	artifact := New("geometry", "Mesh without indices", nil)
	dropout := NewDropout("sink", "Sink closed mid-pass", nil)

	// Severity values
	assert.Equal(t, Flicker, flicker.Severity)
	assert.Equal(t, Artifact, artifact.Severity)
	assert.Equal(t, Dropout, dropout.Severity)

	// Recovery capabilities
	assert.True(t, flicker.CanRecover())
	assert.False(t, artifact.CanRecover())
	assert.False(t, dropout.CanRecover())

	// Dropout detection
	assert.False(t, flicker.IsDropout())
	assert.False(t, artifact.IsDropout())
	assert.True(t, dropout.IsDropout())
}

// TestGlitch_Methods tests glitch methods
func TestGlitch_Methods(t *testing.T) {
	g := New("texture", "Download failed", Context{"url": "http://example.com/a.png"})

	// WithAttempt
	g.WithAttempt(3)
	assert.Equal(t, 3, g.Attempt)

	// WithSeverity
	g.WithSeverity(Dropout)
	assert.Equal(t, Dropout, g.Severity)

	// GetContext
	val, exists := g.GetContext("url")
	assert.True(t, exists)
	assert.Equal(t, "http://example.com/a.png", val)

	_, exists = g.GetContext("missing")
	assert.False(t, exists)

	// DetailedString
	detailed := g.DetailedString()
	assert.Contains(t, detailed, "Download failed")
	assert.Contains(t, detailed, "url: http://example.com/a.png")
}

// TestHandler_Basic tests basic Handler functionality
func TestHandler_Basic(t *testing.T) {
	handler := NewHandler("stage-logger", DefaultPolicy())

	// Should continue initially
	assert.True(t, handler.ShouldContinue())

	// Record flicker - should still continue
	flicker := NewFlicker("texture", "Fell back to display color", nil)
	handler.Record(flicker)
	assert.True(t, handler.ShouldContinue())

	// Record dropout - should stop
	dropout := NewDropout("sink", "Write failed", nil)
	handler.Record(dropout)
	assert.False(t, handler.ShouldContinue())
}

// TestHandler_FlickerBudget tests that accumulated flickers eventually stop a pass
func TestHandler_FlickerBudget(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxFlickers = 2
	handler := NewHandler("shade", policy)

	handler.Record(NewFlicker("texture", "miss", nil))
	handler.Record(NewFlicker("texture", "miss", nil))
	assert.True(t, handler.ShouldContinue())

	handler.Record(NewFlicker("texture", "miss", nil))
	assert.False(t, handler.ShouldContinue())
}

// TestPolicy_Default tests default policy
func TestPolicy_Default(t *testing.T) {
	policy := DefaultPolicy()

	assert.True(t, policy.StopOnDropout)
	assert.Equal(t, 25, policy.MaxFlickers)
	assert.Contains(t, policy.RecoverableKinds, "texture")
	assert.Contains(t, policy.RecoverableKinds, "shader")
	assert.Contains(t, policy.RecoverableKinds, "geometry")

	// Check retry policies exist
	assert.NotNil(t, policy.RetryPolicy["texture"])
	assert.NotNil(t, policy.RetryPolicy["sink"])
	assert.NotNil(t, policy.RetryPolicy["stage"])
}

// TestSeverity_String tests severity string representation
func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "flicker", Flicker.String())
	assert.Equal(t, "artifact", Artifact.String())
	assert.Equal(t, "dropout", Dropout.String())
}
