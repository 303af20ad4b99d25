package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolCallChunk = `data:{"type":"tool_call","stage":"start","message":"searching","tool":"webSearch","timestamp":1}`

type fakeSpeaker struct {
	spoken []string
}

func (f *fakeSpeaker) Speak(text string) {
	f.spoken = append(f.spoken, text)
}

func newAssistantMessage() *Message {
	return &Message{ID: "m1", Role: RoleAssistant, SessionID: "s1", CreateTime: time.Now()}
}

func TestReconcilerStreamingFlow(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	require.Equal(t, StateEmpty, r.State())

	r.ApplyContent("Hello ")
	require.Equal(t, StateStreaming, r.State())
	r.ApplyContent(toolCallChunk)
	r.ApplyContent("world")

	assert.Equal(t, "Hello world", msg.Content, "structured block must not reach visible content")

	steps := r.ToolCallSteps()
	require.Len(t, steps, 1)
	assert.Equal(t, "webSearch", steps[0].Tool)

	r.Finalize()
	require.Equal(t, StateFinalized, r.State())
	assert.Equal(t, "Hello "+toolCallChunk+"world", msg.Content,
		"finalized content is the full raw stream, not just the visible residue")
}

func TestReconcilerToolStepDedup(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	r.ApplyContent(toolCallChunk)
	r.ApplyContent(" ")
	r.ApplyContent(toolCallChunk)
	r.Finalize()

	assert.Len(t, r.ToolCallSteps(), 1, "identical (timestamp, stage, tool) triple collapses")
}

func TestReconcilerBlockSplitAcrossChunks(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	mid := len(toolCallChunk) / 2
	r.ApplyContent("A " + toolCallChunk[:mid])
	assert.Equal(t, "A ", msg.Content, "partial block withheld")
	r.ApplyContent(toolCallChunk[mid:] + " B")
	r.Finalize()

	require.Len(t, r.ToolCallSteps(), 1)
	assert.Equal(t, "A "+toolCallChunk+" B", msg.Content)
}

func TestReconcilerFinalizeFlushesWithheldTail(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	// A trailing "data" could still grow into a structured block, so it
	// stays withheld until the stream ends.
	r.ApplyContent("the raw data")
	assert.Equal(t, "the raw ", msg.Content)

	tail := r.Finalize()
	assert.Equal(t, "data", tail)
	assert.Equal(t, "the raw data", msg.Content)
}

func TestReconcilerAgentStepsBypassContent(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	r.ApplyAgentStep(AgentStep{Stage: "plan", Status: "running", Message: "thinking", Timestamp: 10})
	r.ApplyContent("answer")
	r.ApplyAgentStep(AgentStep{Stage: "plan", Status: "done", Timestamp: 11})
	r.Finalize()

	assert.Equal(t, "answer", msg.Content)
	require.Len(t, r.AgentSteps(), 2)
	assert.Equal(t, "done", r.AgentSteps()[1].Status)
}

func TestReconcilerReasoningSeparate(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	r.ApplyReasoning("step one. ")
	r.ApplyReasoning("step two.")
	r.ApplyContent("result")
	r.Finalize()

	assert.Equal(t, "step one. step two.", msg.Reasoning)
	assert.Equal(t, "result", msg.Content)
}

func TestReconcilerSpeakerHook(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)
	sp := &fakeSpeaker{}
	r.SetSpeaker(sp)

	r.ApplyContent("<think>hmm</think>Sure thing")
	r.Finalize()

	require.Len(t, sp.spoken, 1)
	assert.Equal(t, "Sure thing", sp.spoken[0], "think text is not spoken")
}

func TestReconcilerNoSpeakerNoHook(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)
	r.ApplyContent("hi")
	r.Finalize() // must not panic without a speaker
	assert.Equal(t, StateFinalized, r.State())
}

func TestReconcilerImmutableAfterFinalize(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	r.ApplyContent("final")
	r.Finalize()
	content := msg.Content

	r.ApplyContent("late chunk")
	r.ApplyReasoning("late reasoning")
	r.ApplyAgentStep(AgentStep{Stage: "late"})

	assert.Equal(t, content, msg.Content)
	assert.Empty(t, msg.Reasoning)
	assert.Empty(t, r.AgentSteps())
}

func TestReconcilerToolExecution(t *testing.T) {
	msg := newAssistantMessage()
	r := NewReconciler(msg, nil)

	r.ApplyContent(`calc: ToolExecution{request=ToolExecutionRequest{id="1",name="calc",arguments="2+2"} result=ToolExecutionResult{isError=false,result=4,resultText='4'}} done`)
	r.Finalize()

	execs := r.ToolExecutions()
	require.Len(t, execs, 1)
	assert.Equal(t, "1", execs[0].ID)
	assert.Equal(t, "calc", execs[0].Name)
	assert.False(t, execs[0].IsError)
	assert.Equal(t, "4", execs[0].ResultText)
}

func TestNewTurnIDs(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	userID, assistantID := NewTurnIDs(now)
	assert.Equal(t, "1700000000000", userID)
	assert.Equal(t, "1700000000001", assistantID)
}

func TestSessionActivityTime(t *testing.T) {
	created := time.UnixMilli(1000)
	last := time.UnixMilli(2000)

	s := Session{CreateTime: created}
	assert.Equal(t, created, s.ActivityTime())

	s.LastMessage = &Preview{Content: "hi", Time: last}
	assert.Equal(t, last, s.ActivityTime())
}
