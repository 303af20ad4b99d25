package tui

import (
	"testing"

	"lumina-cli/internal/api"
	"lumina-cli/internal/chat"
	"lumina-cli/internal/config"
	"lumina-cli/internal/view"

	"go.uber.org/zap"
)

// mockAPI implements api.LuminaAPI for testing.
type mockAPI struct {
	sessions []chat.Session
	messages []chat.Message
	models   []api.ModelInfo
	kbs      []api.KnowledgeBase
	servers  []api.MCPServer
	events   []api.StreamEvent

	err error // if set, all methods return this error
}

func (m *mockAPI) SendMessageStream(req api.ChatRequest, cb api.StreamCallback) error {
	if m.err != nil {
		return m.err
	}
	for _, ev := range m.events {
		cb(ev)
	}
	return nil
}

func (m *mockAPI) ListSessions() ([]chat.Session, error) {
	return m.sessions, m.err
}

func (m *mockAPI) CreateSession(firstPrompt string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "new-session-id", nil
}

func (m *mockAPI) DeleteSession(sessionID string) error {
	return m.err
}

func (m *mockAPI) ListMessages(sessionID string) ([]chat.Message, error) {
	return m.messages, m.err
}

func (m *mockAPI) ListModels() ([]api.ModelInfo, error) {
	return m.models, m.err
}

func (m *mockAPI) ListKnowledgeBases() ([]api.KnowledgeBase, error) {
	return m.kbs, m.err
}

func (m *mockAPI) CreateKnowledgeBase(name, description string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "new-kb-id", nil
}

func (m *mockAPI) DeleteKnowledgeBase(id string) error {
	return m.err
}

func (m *mockAPI) ListMCPServers() ([]api.MCPServer, error) {
	return m.servers, m.err
}

func (m *mockAPI) AddMCPServer(server api.MCPServer) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "new-mcp-id", nil
}

func (m *mockAPI) RemoveMCPServer(id string) error {
	return m.err
}

// Verify mockAPI satisfies the interface at compile time.
var _ api.LuminaAPI = (*mockAPI)(nil)

func newTestModel() model {
	m := initialModel("test", "", nil, zap.NewNop())
	m.cfg = &config.Config{
		Server: "http://localhost:8080",
		UserID: "u-1",
	}
	m.client = &mockAPI{}
	m.memo = view.NewMemo()
	m.ready = true
	m.width = 80
	m.height = 24
	return m
}

func TestMatchCommands(t *testing.T) {
	if got := matchCommands("/"); len(got) != len(slashCommands) {
		t.Errorf("matchCommands(\"/\") = %d entries, want %d", len(got), len(slashCommands))
	}

	got := matchCommands("/se")
	want := []string{"/session", "/sessions", "/set"}
	if len(got) != len(want) {
		t.Fatalf("matchCommands(\"/se\") = %v, want %v", got, want)
	}
	for i, c := range got {
		if c.name != want[i] {
			t.Errorf("matchCommands(\"/se\")[%d] = %q, want %q", i, c.name, want[i])
		}
	}

	if got := matchCommands("/zzz"); len(got) != 0 {
		t.Errorf("matchCommands(\"/zzz\") = %v, want none", got)
	}
}

func TestDispatchInput(t *testing.T) {
	t.Run("question mark shows help", func(t *testing.T) {
		m := newTestModel()
		result, _ := m.dispatchInput("?")
		rm := result.(model)
		if rm.mode != modeIdle {
			t.Errorf("mode = %d, want modeIdle", rm.mode)
		}
	})

	t.Run("slash dispatches command", func(t *testing.T) {
		m := newTestModel()
		result, _ := m.dispatchInput("/config")
		rm := result.(model)
		if rm.mode != modeIdle {
			t.Errorf("mode = %d, want modeIdle", rm.mode)
		}
	})

	t.Run("plain text starts a turn", func(t *testing.T) {
		m := newTestModel()
		result, _ := m.dispatchInput("hello there")
		rm := result.(model)
		if rm.mode != modeStreaming {
			t.Errorf("mode = %d, want modeStreaming", rm.mode)
		}
		if len(rm.messages) != 1 || rm.messages[0].Role != chat.RoleUser {
			t.Fatalf("messages = %+v, want one user message", rm.messages)
		}
		if rm.messages[0].Content != "hello there" {
			t.Errorf("user content = %q", rm.messages[0].Content)
		}
		if rm.rec == nil {
			t.Error("reconciler not set up")
		}
	})

	t.Run("chat without client shows error", func(t *testing.T) {
		m := newTestModel()
		m.client = nil
		result, cmd := m.dispatchInput("hello")
		rm := result.(model)
		if rm.mode != modeIdle {
			t.Errorf("mode = %d, want modeIdle", rm.mode)
		}
		if cmd == nil {
			t.Error("expected error message cmd, got nil")
		}
	})
}

func TestDispatchCommand(t *testing.T) {
	inputs := []string{"/help", "/config", "/clear", "/quit", "/unknown", "/new"}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			m := newTestModel()
			result, _ := m.dispatchCommand(input)
			rm := result.(model)
			if rm.mode != modeIdle {
				t.Errorf("mode = %d, want modeIdle", rm.mode)
			}
		})
	}
}

func TestHandleStreamChunkContent(t *testing.T) {
	m := newTestModel()
	m.startTurn("hi")

	m.handleStreamChunk(api.StreamEvent{Kind: api.EventContentDelta, Delta: "hello\nwor"})

	if m.lineBuffer != "wor" {
		t.Errorf("lineBuffer = %q, want %q", m.lineBuffer, "wor")
	}
	if m.rec.Message().Content != "hello\nwor" {
		t.Errorf("content = %q", m.rec.Message().Content)
	}

	m.handleStreamChunk(api.StreamEvent{Kind: api.EventContentDelta, Delta: "ld\n"})
	if m.lineBuffer != "" {
		t.Errorf("lineBuffer after newline = %q, want empty", m.lineBuffer)
	}
}

func TestHandleStreamChunkAgentStep(t *testing.T) {
	m := newTestModel()
	m.startTurn("hi")

	cmd := m.handleStreamChunk(api.StreamEvent{
		Kind:      api.EventAgentStep,
		AgentStep: chat.AgentStep{Stage: "plan", Message: "planning"},
	})
	if cmd == nil {
		t.Error("expected print cmd for agent step")
	}
	if m.agentStepNum != 1 {
		t.Errorf("agentStepNum = %d, want 1", m.agentStepNum)
	}
	if m.lastStatus != "planning" {
		t.Errorf("lastStatus = %q", m.lastStatus)
	}
	if m.rec.Message().Content != "" {
		t.Errorf("agent step leaked into content: %q", m.rec.Message().Content)
	}
}

func TestHandleStreamChunkReasoning(t *testing.T) {
	m := newTestModel()
	m.startTurn("hi")

	m.handleStreamChunk(api.StreamEvent{Kind: api.EventReasoningDelta, Delta: "thinking..."})
	if m.lastStatus != "Reasoning..." {
		t.Errorf("lastStatus = %q", m.lastStatus)
	}
	if m.rec.Message().Reasoning != "thinking..." {
		t.Errorf("reasoning = %q", m.rec.Message().Reasoning)
	}
	if m.printedLen != 0 {
		t.Error("reasoning must not count as visible content")
	}
}

func TestFinishStreamAppendsMessage(t *testing.T) {
	m := newTestModel()
	m.sessionID = "s-1"
	m.startTurn("hi")
	m.handleStreamChunk(api.StreamEvent{Kind: api.EventContentDelta, Delta: "All done."})

	result, cmd := m.finishStream(nil)
	rm := result.(model)

	if rm.mode != modeIdle {
		t.Errorf("mode = %d, want modeIdle", rm.mode)
	}
	if cmd == nil {
		t.Error("expected flush cmd")
	}
	if len(rm.messages) != 2 {
		t.Fatalf("messages = %d, want user + assistant", len(rm.messages))
	}
	final := rm.messages[1]
	if final.Role != chat.RoleAssistant || final.Content != "All done." {
		t.Errorf("final message = %+v", final)
	}
	if rm.rec != nil {
		t.Error("reconciler not cleared")
	}
}

func TestCancelStreamKeepsPartial(t *testing.T) {
	m := newTestModel()
	m.sessionID = "s-1"
	m.startTurn("hi")
	m.handleStreamChunk(api.StreamEvent{Kind: api.EventContentDelta, Delta: "partial answer"})

	result, _ := m.cancelStream()
	rm := result.(model)

	if rm.mode != modeIdle {
		t.Errorf("mode = %d, want modeIdle", rm.mode)
	}
	if len(rm.messages) != 2 {
		t.Fatalf("messages = %d, want partial kept", len(rm.messages))
	}
	if rm.messages[1].Content != "partial answer" {
		t.Errorf("partial content = %q", rm.messages[1].Content)
	}
}

func TestCancelStreamDropsEmpty(t *testing.T) {
	m := newTestModel()
	m.sessionID = "s-1"
	m.startTurn("hi")

	result, _ := m.cancelStream()
	rm := result.(model)

	if len(rm.messages) != 1 {
		t.Errorf("messages = %d, want only the user message", len(rm.messages))
	}
}

func TestResetStreamState(t *testing.T) {
	m := newTestModel()
	m.startTurn("hi")
	m.printedLen = 100
	m.lineBuffer = "partial"
	m.toolStepsShown = 2
	m.agentStepNum = 3
	m.lastStatus = "working..."

	m.resetStreamState()

	if m.rec != nil {
		t.Error("rec should be nil")
	}
	if m.printedLen != 0 {
		t.Errorf("printedLen = %d, want 0", m.printedLen)
	}
	if m.lineBuffer != "" {
		t.Errorf("lineBuffer = %q, want empty", m.lineBuffer)
	}
	if m.toolStepsShown != 0 || m.agentStepNum != 0 {
		t.Error("step counters not reset")
	}
	if m.lastStatus != "" {
		t.Errorf("lastStatus = %q, want empty", m.lastStatus)
	}
}

func TestFriendlyModeCapturesSpeech(t *testing.T) {
	m := newTestModel()
	m.cfg.FriendlyMode = true
	m.sessionID = "s-1"
	m.startTurn("hi")

	if m.speaker == nil {
		t.Fatal("speaker not attached in friendly mode")
	}
	m.handleStreamChunk(api.StreamEvent{Kind: api.EventContentDelta, Delta: "Sure thing."})
	m.finishStream(nil)

	if m.speaker.spoken != "Sure thing." {
		t.Errorf("spoken = %q, want %q", m.speaker.spoken, "Sure thing.")
	}
}

func TestEnableDisableMCP(t *testing.T) {
	m := newTestModel()
	m.mcpServers = []api.MCPServer{{ID: "1", Name: "search", URL: "http://mcp"}}

	result, _ := m.enableMCP("search")
	rm := result.(model)
	if len(rm.mcpEnabled) != 1 {
		t.Fatalf("mcpEnabled = %d, want 1", len(rm.mcpEnabled))
	}

	result, _ = rm.enableMCP("search")
	rm = result.(model)
	if len(rm.mcpEnabled) != 1 {
		t.Errorf("double enable duplicated: %d", len(rm.mcpEnabled))
	}

	result, _ = rm.disableMCP("search")
	rm = result.(model)
	if len(rm.mcpEnabled) != 0 {
		t.Errorf("mcpEnabled after disable = %d, want 0", len(rm.mcpEnabled))
	}

	if _, cmd := rm.enableMCP("missing"); cmd == nil {
		t.Error("expected error cmd for unknown server")
	}
}

func TestApplyConfigValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(c *config.Config) bool
	}{
		{"server", "http://x", false, func(c *config.Config) bool { return c.Server == "http://x" }},
		{"user", "u-9", false, func(c *config.Config) bool { return c.UserID == "u-9" }},
		{"model", "qwen-plus", false, func(c *config.Config) bool { return c.Model == "qwen-plus" }},
		{"friendly", "on", false, func(c *config.Config) bool { return c.FriendlyMode }},
		{"friendly", "off", false, func(c *config.Config) bool { return !c.FriendlyMode }},
		{"deepresearch", "true", false, func(c *config.Config) bool { return c.DeepResearch }},
		{"internet", "on", false, func(c *config.Config) bool { return c.InternetSearch }},
		{"bogus", "x", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := &config.Config{}
			err := applyConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyConfigValue(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("config not updated: %+v", cfg)
			}
		})
	}
}

func TestHandleSessionsLoaded(t *testing.T) {
	m := newTestModel()
	msg := sessionsLoadedMsg{sessions: []chat.Session{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
	}}
	result, cmd := m.handleSessionsLoaded(msg)
	rm := result.(model)
	if len(rm.sessions) != 2 {
		t.Errorf("sessions = %d, want 2", len(rm.sessions))
	}
	if cmd == nil {
		t.Error("expected render cmd")
	}
}

func TestHandleHistoryLoaded(t *testing.T) {
	m := newTestModel()
	msg := historyLoadedMsg{
		sessionID: "s-7",
		msgs: []chat.Message{
			{ID: "1", Role: chat.RoleUser, Content: "hi"},
			{ID: "2", Role: chat.RoleAssistant, Content: "hello"},
		},
		lastSeen: 1,
	}
	result, _ := m.handleHistoryLoaded(msg)
	rm := result.(model)
	if rm.sessionID != "s-7" {
		t.Errorf("sessionID = %q, want s-7", rm.sessionID)
	}
	if len(rm.messages) != 2 {
		t.Errorf("messages = %d, want 2", len(rm.messages))
	}
}

func TestHandleModelsLoadedResetsStale(t *testing.T) {
	m := newTestModel()
	m.modelName = "gone-model"
	result, _ := m.handleModelsLoaded(modelsLoadedMsg{models: []api.ModelInfo{{Name: "qwen-plus"}}})
	rm := result.(model)
	if rm.modelName != "" {
		t.Errorf("stale model kept: %q", rm.modelName)
	}
}

func TestHandleKBsLoadedResetsStale(t *testing.T) {
	m := newTestModel()
	m.kbID = "gone-kb"
	result, _ := m.handleKBsLoaded(kbsLoadedMsg{kbs: []api.KnowledgeBase{{ID: "kb-1", Name: "docs"}}})
	rm := result.(model)
	if rm.kbID != "" {
		t.Errorf("stale knowledge base kept: %q", rm.kbID)
	}
}
