package answer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Mode classifies how a Result was produced.
type Mode string

const (
	// ModeGrounded is a web-search grounded answer from the primary path.
	ModeGrounded Mode = "grounded"
	// ModeDegraded is a non-grounded fallback answer from training data.
	ModeDegraded Mode = "degraded"
	// ModeFailed is the terminal state: both paths failed and Text holds
	// the fixed failure notice.
	ModeFailed Mode = "failed"
)

// User-visible notices. DegradedNotice is prepended to every fallback
// answer; FailureNotice is the entire text of a terminal failure.
const (
	DegradedNotice = "Live search unavailable. Using offline knowledge."
	FailureNotice  = "Sorry, I ran into a problem and could not generate an answer. Please try again."
)

// Result is the outcome of one Generate call. Sources is never nil and
// contains no two entries with the same URI.
type Result struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
	Mode    Mode     `json:"mode"`
}

// ChunkFunc receives each text increment synchronously, in emission order.
// A nil ChunkFunc is allowed; increments are then only accumulated.
type ChunkFunc func(text string)

// Config contains required parameters for Engine.
type Config struct {
	Provider Provider
	Registry *Registry
	Logger   *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Provider == nil {
		return errors.New("provider is required")
	}
	if cfg.Registry == nil {
		return errors.New("registry is required")
	}
	return nil
}

// Engine orchestrates grounded answer generation. See the package
// documentation for the full contract.
type Engine struct {
	provider Provider
	registry *Registry
	logger   *slog.Logger
}

// New creates an Engine from cfg.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{provider: cfg.Provider, registry: cfg.Registry, logger: logger}, nil
}

// Generate produces an answer for prompt within the session identified by
// sessionID. It never returns an error: any primary-path failure triggers
// the fallback path, and a fallback failure yields a Result carrying
// FailureNotice. Calls sharing a session ID are serialized.
func (e *Engine) Generate(ctx context.Context, sessionID, prompt string, onChunk ChunkFunc) *Result {
	if onChunk == nil {
		onChunk = func(string) {}
	}

	res, err := e.streamGrounded(ctx, sessionID, prompt, onChunk)
	if err != nil {
		e.logger.Warn("grounded generation failed, falling back",
			"session_id", sessionID, "error", err)
		return e.fallback(ctx, prompt, onChunk)
	}
	return res
}

// streamGrounded runs the primary path: session lookup, grounded streaming,
// source extraction. The session mutex is held for the whole stream so that
// concurrent calls on one session ID cannot interleave turns.
func (e *Engine) streamGrounded(ctx context.Context, sessionID, prompt string, onChunk ChunkFunc) (*Result, error) {
	sess, err := e.registry.getOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var text strings.Builder
	var sources []Source
	for chunk, err := range sess.conv.Stream(ctx, prompt) {
		if err != nil {
			return nil, err
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
			onChunk(chunk.Text)
		}
		if chunk.Grounding != nil {
			sources = append(sources, extractSources(chunk.Grounding)...)
		}
	}

	return &Result{
		Text:    text.String(),
		Sources: dedupeSources(sources),
		Mode:    ModeGrounded,
	}, nil
}

// fallback runs a single-turn, non-grounded completion. The degraded-mode
// disclosure is emitted before streaming begins. If the fallback itself
// fails, the fixed failure notice becomes the entire result; there is no
// third level.
func (e *Engine) fallback(ctx context.Context, prompt string, onChunk ChunkFunc) *Result {
	var text strings.Builder
	disclosure := DegradedNotice + "\n\n"
	text.WriteString(disclosure)
	onChunk(disclosure)

	for chunk, err := range e.provider.Complete(ctx, prompt) {
		if err != nil {
			e.logger.Error("fallback generation failed", "error", err)
			onChunk(FailureNotice)
			return &Result{Text: FailureNotice, Sources: []Source{}, Mode: ModeFailed}
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
			onChunk(chunk.Text)
		}
	}

	return &Result{Text: text.String(), Sources: []Source{}, Mode: ModeDegraded}
}
