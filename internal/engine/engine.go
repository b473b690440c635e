// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/nyl-tui/internal/api"
	"github.com/jeranaias/nyl-tui/internal/model"
)

// DefaultWindowSize caps how many prior turns ride along on a completion
// request. FIFO eviction of the oldest turns keeps payload size predictable
// while preserving recency, which matters most for conversational coherence.
const DefaultWindowSize = 12

// persistTimeout bounds each best-effort persistence call.
const persistTimeout = 10 * time.Second

// noSessionMessage is surfaced when the user submits without a bound
// session. This is the one validation failure that is user-visible.
const noSessionMessage = "no chat selected - create or pick a session first"

// =============================================================================
// STATE
// =============================================================================

// State is the engine's submission status.
type State int

const (
	// StateIdle means no stream is in flight.
	StateIdle State = iota
	// StateStreaming means a completion response is being received.
	StateStreaming
	// StateError means the last stream failed; cleared on the next
	// accepted submit.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Streamer opens a streaming completion and feeds content deltas to a
// callback. Implemented by *api.Client.
type Streamer interface {
	ChatStream(ctx context.Context, req api.ChatRequest, callback func(delta string)) error
}

// MessageStore appends one message to a session's persisted log.
// Implemented by the session lifecycle manager, which forwards to the server
// and applies local auto-naming. Persistence from the engine is best-effort:
// failures are logged and never roll back the UI turn.
type MessageStore interface {
	AppendMessage(ctx context.Context, sessionID string, role model.Role, content string) error
}

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine.
type Options struct {
	// WindowSize caps prior turns in the outbound window (0 selects
	// DefaultWindowSize).
	WindowSize int
	// FlushInterval is the accumulator coalescing window (0 selects
	// DefaultFlushInterval).
	FlushInterval time.Duration
	// Rag is passed through opaquely on every completion request.
	Rag *api.RagConfig
	// Notify is invoked (on arbitrary goroutines) after every externally
	// visible state change. The TUI binds this to program.Send.
	Notify func()
}

// Engine owns the current session's conversation view and the single
// in-flight completion stream.
type Engine struct {
	mu sync.Mutex

	streamer Streamer
	store    MessageStore

	windowSize    int
	flushInterval time.Duration
	rag           *api.RagConfig
	notifyFn      func()

	// Bound session parameters
	session      *model.ChatSession
	modelName    string
	systemPrompt string

	// Conversation state
	turns           []*model.Turn
	state           State
	lastError       string
	streamingTurnID string

	acc       *Accumulator
	cancelMgr cancelManager
}

// New creates an Engine.
func New(streamer Streamer, store MessageStore, opts Options) *Engine {
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultWindowSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	return &Engine{
		streamer:      streamer,
		store:         store,
		windowSize:    opts.WindowSize,
		flushInterval: opts.FlushInterval,
		rag:           opts.Rag,
		notifyFn:      opts.Notify,
	}
}

func (e *Engine) notify() {
	if e.notifyFn != nil {
		e.notifyFn()
	}
}

// =============================================================================
// BINDING & CONFIGURATION
// =============================================================================

// Bind points the engine at a session and its reconstructed turn list. Any
// in-flight stream is cancelled and its partial output dropped; the error
// state clears. Bind(nil, nil) detaches the engine entirely.
func (e *Engine) Bind(session *model.ChatSession, turns []*model.Turn) {
	e.mu.Lock()
	e.session = session
	if turns == nil {
		turns = []*model.Turn{}
	}
	e.turns = turns
	e.state = StateIdle
	e.lastError = ""
	e.streamingTurnID = ""
	if session != nil {
		if session.Model != "" {
			e.modelName = session.Model
		}
		e.systemPrompt = session.SystemPrompt
	}
	acc := e.acc
	e.acc = nil
	e.mu.Unlock()

	e.cancelMgr.cancel()
	if acc != nil {
		acc.Discard()
	}
	e.notify()
}

// SetModel selects the model for subsequent submissions.
func (e *Engine) SetModel(name string) {
	e.mu.Lock()
	e.modelName = name
	e.mu.Unlock()
	e.notify()
}

// SetSystemPrompt overrides the system prompt for subsequent submissions.
func (e *Engine) SetSystemPrompt(prompt string) {
	e.mu.Lock()
	e.systemPrompt = prompt
	e.mu.Unlock()
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit validates and launches a completion for the given input text.
// Returns true when the submission was accepted (the caller may clear its
// input field). Empty input, no selected model, or an already-streaming
// engine are silent no-ops; a missing session surfaces a validation message.
func (e *Engine) Submit(input string) bool {
	text := strings.TrimSpace(input)

	e.mu.Lock()
	if text == "" || e.modelName == "" || e.state == StateStreaming {
		e.mu.Unlock()
		return false
	}
	if e.session == nil {
		e.lastError = noSessionMessage
		e.mu.Unlock()
		e.notify()
		return false
	}

	e.lastError = ""
	turn := model.NewTurn(text)
	e.turns = append(e.turns, turn)
	e.streamingTurnID = turn.ID
	e.state = StateStreaming

	window := e.buildWindowLocked(turn)
	req := api.ChatRequest{
		Model:    e.modelName,
		Messages: window,
		Rag:      e.rag,
	}
	sessionID := e.session.ID

	turnID := turn.ID
	acc := NewAccumulator(e.flushInterval, func(full string) {
		e.applyAssistant(turnID, full)
	})
	e.acc = acc

	ctx, cancel := context.WithCancel(context.Background())
	// Signal any leftover controller before installing the new one.
	e.cancelMgr.set(cancel)
	e.mu.Unlock()
	e.notify()

	go e.runStream(ctx, turnID, sessionID, text, req, acc)
	return true
}

// buildWindowLocked assembles the outbound message window: system prompt,
// the most recent windowSize prior turns (oldest evicted first), then the
// new user message. Each prior turn expands to a user line and, when
// assistant content exists, an assistant line, in chronological order.
func (e *Engine) buildWindowLocked(current *model.Turn) []api.Message {
	prior := e.turns[:len(e.turns)-1]
	if len(prior) > e.windowSize {
		prior = prior[len(prior)-e.windowSize:]
	}

	messages := make([]api.Message, 0, 2*len(prior)+2)
	if e.systemPrompt != "" {
		messages = append(messages, api.Message{Role: model.RoleSystem, Content: e.systemPrompt})
	}
	for _, t := range prior {
		if t.User != "" {
			messages = append(messages, api.Message{Role: model.RoleUser, Content: t.User})
		}
		if t.Assistant != "" {
			messages = append(messages, api.Message{Role: model.RoleAssistant, Content: t.Assistant})
		}
	}
	return append(messages, api.Message{Role: model.RoleUser, Content: current.User})
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

// runStream drives one completion stream to its outcome. The user message is
// persisted first so the session log keeps user/assistant ordering.
func (e *Engine) runStream(ctx context.Context, turnID, sessionID, userText string, req api.ChatRequest, acc *Accumulator) {
	e.persistMessage(sessionID, model.RoleUser, userText)

	err := e.streamer.ChatStream(ctx, req, acc.Append)

	switch {
	case err == nil:
		e.completeStream(turnID, sessionID, acc)
	case errors.Is(err, context.Canceled):
		e.abortStream(turnID, acc)
	default:
		e.failStream(turnID, acc, err)
	}
}

// completeStream finalizes a successfully finished turn: flush the last
// coalesced update, stamp the assistant timestamp, persist the assistant
// message best-effort, and return to idle.
func (e *Engine) completeStream(turnID, sessionID string, acc *Accumulator) {
	// Flush outside the engine lock: the emit callback takes it.
	acc.FlushNow()

	e.mu.Lock()
	if e.streamingTurnID != turnID {
		// Superseded by a bind or abort while finishing; they own cleanup.
		e.mu.Unlock()
		return
	}
	turn := e.turnByIDLocked(turnID)
	var final string
	if turn != nil {
		if turn.AssistantAt == nil {
			now := time.Now()
			turn.AssistantAt = &now
		}
		final = turn.Assistant
	}
	e.state = StateIdle
	e.streamingTurnID = ""
	e.acc = nil
	e.mu.Unlock()

	e.cancelMgr.cancel()
	e.notify()

	go e.persistMessage(sessionID, model.RoleAssistant, final)
}

// abortStream handles caller-initiated cancellation: discard partial
// content, blank the open turn's assistant slot, and settle in idle with no
// error.
func (e *Engine) abortStream(turnID string, acc *Accumulator) {
	acc.Discard()

	e.mu.Lock()
	if e.streamingTurnID != turnID {
		e.mu.Unlock()
		return
	}
	if turn := e.turnByIDLocked(turnID); turn != nil {
		turn.Assistant = ""
	}
	e.state = StateIdle
	e.streamingTurnID = ""
	e.acc = nil
	e.mu.Unlock()

	e.notify()
}

// failStream handles transport failures: like an abort, but entering the
// error substate with a message for the user.
func (e *Engine) failStream(turnID string, acc *Accumulator, err error) {
	acc.Discard()

	e.mu.Lock()
	if e.streamingTurnID != turnID {
		e.mu.Unlock()
		return
	}
	if turn := e.turnByIDLocked(turnID); turn != nil {
		turn.Assistant = ""
	}
	e.state = StateError
	e.lastError = "response failed: " + err.Error()
	e.streamingTurnID = ""
	e.acc = nil
	e.mu.Unlock()

	e.cancelMgr.cancel()
	e.notify()
}

// Abort cancels the in-flight stream, if any. The partial response is
// discarded and the engine settles in idle without an error.
func (e *Engine) Abort() {
	e.mu.Lock()
	turnID := e.streamingTurnID
	acc := e.acc
	if turnID == "" {
		e.mu.Unlock()
		return
	}
	if turn := e.turnByIDLocked(turnID); turn != nil {
		turn.Assistant = ""
	}
	e.state = StateIdle
	e.lastError = ""
	e.streamingTurnID = ""
	e.acc = nil
	e.mu.Unlock()

	e.cancelMgr.cancel()
	if acc != nil {
		acc.Discard()
	}
	e.notify()
}

// applyAssistant is the accumulator's emit target: it writes the coalesced
// text into the streaming turn. The turn-ID guard keeps a stale timer from a
// superseded turn from mutating whatever turn is active now.
func (e *Engine) applyAssistant(turnID, text string) {
	e.mu.Lock()
	if e.streamingTurnID != turnID {
		e.mu.Unlock()
		return
	}
	if turn := e.turnByIDLocked(turnID); turn != nil {
		turn.Assistant = text
	}
	e.mu.Unlock()

	e.notify()
}

func (e *Engine) turnByIDLocked(id string) *model.Turn {
	for i := len(e.turns) - 1; i >= 0; i-- {
		if e.turns[i].ID == id {
			return e.turns[i]
		}
	}
	return nil
}

// persistMessage appends one message to the session log, best-effort.
// Failures are logged only; the in-memory turn is the source of truth for
// the current interaction and is never rolled back over a backend hiccup.
func (e *Engine) persistMessage(sessionID string, role model.Role, content string) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := e.store.AppendMessage(ctx, sessionID, role, content); err != nil {
		log.Printf("engine: %s message append failed (continuing): %v", role, err)
	}
}

// =============================================================================
// SNAPSHOT ACCESSORS
// =============================================================================

// Turns returns a copy of the current turn list.
func (e *Engine) Turns() []model.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	turns := make([]model.Turn, len(e.turns))
	for i, t := range e.turns {
		turns[i] = *t
	}
	return turns
}

// Status returns the current submission status.
func (e *Engine) Status() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// StreamingTurnID returns the id of the turn currently streaming, or "".
func (e *Engine) StreamingTurnID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streamingTurnID
}

// LastError returns the last surfaced error message, or "".
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// SessionID returns the bound session's id, or "".
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.ID
}

// Model returns the currently selected model.
func (e *Engine) Model() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelName
}
