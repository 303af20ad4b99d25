package chat

import (
	"go.uber.org/zap"

	"lumina-cli/internal/stream"
)

// State tracks an assistant message's lifecycle.
type State int

const (
	StateEmpty State = iota
	StateStreaming
	StateFinalized
)

// Speaker voices the final response when friendly mode is enabled.
// Injected so tests and headless runs can observe or skip the side
// effect.
type Speaker interface {
	Speak(text string)
}

// Reconciler owns one in-flight assistant message. Chunks arrive
// through a single ordered callback; each content delta runs through
// the incremental scanner so structured blocks land in side stores
// instead of the visible text. After Finalize the message is immutable
// and Content holds the full raw accumulated text — visible text alone
// would under-report what the backend actually sent, and the cache and
// previews key off the raw form.
type Reconciler struct {
	msg     *Message
	scanner *stream.Scanner
	state   State
	log     *zap.Logger

	agentSteps  []AgentStep
	toolSteps   []stream.ToolCallStep
	toolSeen    map[string]bool
	toolExecs   []stream.ToolExecution
	webSearches []stream.WebSearchPayload

	speaker Speaker
}

func NewReconciler(msg *Message, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		msg:      msg,
		scanner:  stream.NewScanner(),
		log:      logger,
		toolSeen: make(map[string]bool),
	}
}

// SetSpeaker arms the finalization hook. Callers set it only when
// friendly mode is on.
func (r *Reconciler) SetSpeaker(s Speaker) {
	r.speaker = s
}

func (r *Reconciler) State() State {
	return r.state
}

func (r *Reconciler) Message() *Message {
	return r.msg
}

// ApplyContent feeds one content delta. Only the display-safe residue
// is appended to the message; completed structured blocks go to the
// side stores.
func (r *Reconciler) ApplyContent(delta string) {
	if r.state == StateFinalized {
		// Late chunk for a finished stream; keyed state, nobody reads it.
		r.log.Warn("content delta after finalization dropped",
			zap.String("message_id", r.msg.ID))
		return
	}
	r.state = StateStreaming

	res := r.scanner.Push(delta)
	r.msg.Content += res.Visible
	r.absorb(res.Events)
}

// ApplyReasoning appends a reasoning_content delta. Reasoning bypasses
// the scanner entirely; it is never part of visible content.
func (r *Reconciler) ApplyReasoning(delta string) {
	if r.state == StateFinalized {
		return
	}
	r.state = StateStreaming
	r.msg.Reasoning += delta
}

// ApplyAgentStep records a workflow milestone. Agent steps bypass
// content entirely.
func (r *Reconciler) ApplyAgentStep(step AgentStep) {
	if r.state == StateFinalized {
		return
	}
	r.agentSteps = append(r.agentSteps, step)
}

// Finalize flushes withheld text, swaps the message content for the
// full raw accumulated stream, and fires the speaker hook. The message
// is immutable afterwards. The returned string is the visible tail
// released by the flush, for callers printing the stream live.
func (r *Reconciler) Finalize() string {
	if r.state == StateFinalized {
		return ""
	}

	res := r.scanner.Finalize()
	visible := r.msg.Content + res.Visible
	r.absorb(res.Events)

	r.msg.Content = r.scanner.Raw()
	r.state = StateFinalized

	if r.speaker != nil {
		spoken, _ := stream.ExtractThink(visible)
		r.speaker.Speak(spoken)
	}
	return res.Visible
}

func (r *Reconciler) absorb(events []stream.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case stream.KindToolCall:
			step := *ev.ToolCall
			if r.toolSeen[step.Key()] {
				continue
			}
			r.toolSeen[step.Key()] = true
			r.toolSteps = append(r.toolSteps, step)
		case stream.KindToolExecution:
			r.toolExecs = append(r.toolExecs, *ev.ToolExec)
		case stream.KindWebSearch:
			r.webSearches = append(r.webSearches, *ev.WebSearch)
		case stream.KindSkipped:
			r.log.Warn("unparseable structured block excised",
				zap.String("message_id", r.msg.ID),
				zap.String("raw", truncate(ev.Raw, 200)))
		}
	}
}

// AgentSteps returns the recorded workflow milestones.
func (r *Reconciler) AgentSteps() []AgentStep {
	return r.agentSteps
}

// ToolCallSteps returns the de-duplicated tool lifecycle events.
func (r *Reconciler) ToolCallSteps() []stream.ToolCallStep {
	return r.toolSteps
}

func (r *Reconciler) ToolExecutions() []stream.ToolExecution {
	return r.toolExecs
}

func (r *Reconciler) WebSearches() []stream.WebSearchPayload {
	return r.webSearches
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
