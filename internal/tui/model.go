package tui

import (
	"fmt"
	"strings"
	"time"

	"lumina-cli/internal/api"
	"lumina-cli/internal/cache"
	"lumina-cli/internal/chat"
	"lumina-cli/internal/config"
	"lumina-cli/internal/service"
	"lumina-cli/internal/view"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeStreaming
)

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/clear", "Clear the screen"},
	{"/config", "Show current configuration"},
	{"/delete", "Delete a session"},
	{"/help", "Show all commands"},
	{"/history", "Show the current session's messages"},
	{"/kb", "List or select knowledge bases"},
	{"/mcp", "List or toggle MCP servers"},
	{"/model", "Select the model"},
	{"/models", "List available models"},
	{"/new", "Start a new session"},
	{"/quit", "Exit Lumina"},
	{"/session", "Switch to a session"},
	{"/sessions", "List recent sessions"},
	{"/set", "Set a config value"},
}

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	input   textinput.Model
	spinner spinner.Model

	// App state
	mode    appMode
	cfg     *config.Config
	client  api.LuminaAPI
	store   *cache.Store
	memo    *view.Memo
	log     *zap.Logger
	version string
	profile string

	// Conversation state
	sessionID  string
	sessions   []chat.Session
	messages   []chat.Message
	modelName  string
	kbID       string
	mcpServers []api.MCPServer
	mcpEnabled []api.MCPServer

	// Streaming state
	rec            *chat.Reconciler
	speaker        *captureSpeaker
	streamPrompt   string
	printedLen     int    // chars of visible content already emitted
	lineBuffer     string // partial line awaiting its newline
	toolStepsShown int
	agentStepNum   int
	lastStatus     string

	// UI state
	ready        bool
	cmdMenuIdx   int
	cmdMenuOpen  bool
	lastInputVal string

	// Input history
	inputHistory []string
	historyIdx   int
	historySaved string
}

// captureSpeaker records the finalization speech so the done handler
// can print it; the reconciler fires it synchronously.
type captureSpeaker struct {
	spoken string
}

func (s *captureSpeaker) Speak(text string) {
	s.spoken = text
}

func initialModel(version, profile string, store *cache.Store, logger *zap.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "Ask anything or type /help..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorViolet)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorViolet)

	cfg, _ := config.Load(profile)

	var client api.LuminaAPI
	if cfg != nil && cfg.Server != "" {
		client = api.NewClient(cfg)
	}

	m := model{
		input:        ti,
		spinner:      sp,
		version:      version,
		profile:      profile,
		cfg:          cfg,
		client:       client,
		store:        store,
		memo:         view.NewMemo(),
		log:          logger,
		mode:         modeIdle,
		inputHistory: make([]string, 0),
		historyIdx:   -1,
	}

	if cfg != nil && store != nil {
		if name, err := store.LoadModel(cfg.UserID); err == nil {
			m.modelName = name
		}
	}
	if m.modelName == "" && cfg != nil {
		m.modelName = cfg.Model
	}
	if cfg != nil {
		m.kbID = cfg.KnowledgeBaseID
	}

	return m
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6

		if !m.ready {
			m.ready = true
			welcome := renderWelcome(m.version, serverStr(m.cfg), m.modelName)
			cmds = append(cmds, tea.Println(welcome))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx--
						if m.cmdMenuIdx < 0 {
							m.cmdMenuIdx = len(matches) - 1
						}
						return m, nil
					}
				} else if len(m.inputHistory) > 0 {
					if m.historyIdx == -1 {
						m.historySaved = m.input.Value()
						m.historyIdx = len(m.inputHistory) - 1
					} else if m.historyIdx > 0 {
						m.historyIdx--
					}
					m.input.SetValue(m.inputHistory[m.historyIdx])
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyDown:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx++
						if m.cmdMenuIdx >= len(matches) {
							m.cmdMenuIdx = 0
						}
						return m, nil
					}
				} else if m.historyIdx != -1 {
					m.historyIdx++
					if m.historyIdx >= len(m.inputHistory) {
						m.historyIdx = -1
						m.input.SetValue(m.historySaved)
						m.historySaved = ""
					} else {
						m.input.SetValue(m.inputHistory[m.historyIdx])
					}
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				matches := matchCommands(m.input.Value())
				if len(matches) > 0 {
					idx := m.cmdMenuIdx
					if idx < 0 || idx >= len(matches) {
						idx = 0
					}
					m.input.SetValue(matches[idx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
				}
				return m, nil
			}

		case tea.KeyEnter:
			if m.mode == modeIdle && m.cmdMenuOpen && m.cmdMenuIdx >= 0 {
				matches := matchCommands(m.input.Value())
				if m.cmdMenuIdx < len(matches) {
					m.input.SetValue(matches[m.cmdMenuIdx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
					return m, nil
				}
			}

			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}

			if len(m.inputHistory) == 0 || m.inputHistory[len(m.inputHistory)-1] != value {
				m.inputHistory = append(m.inputHistory, value)
				if len(m.inputHistory) > 1000 {
					m.inputHistory = m.inputHistory[len(m.inputHistory)-1000:]
				}
			}
			m.historyIdx = -1
			m.historySaved = ""

			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0

			return m.dispatchInput(value)
		}

	// ── Stream messages ───────────────────────────────────────────────
	case sessionCreatedMsg:
		if msg.err != nil {
			m.mode = modeIdle
			m.resetStreamState()
			return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not create session: %v", msg.err)))
		}
		m.sessionID = msg.sessionID
		cmds = append(cmds,
			tea.Println(dimStyle.Render(fmt.Sprintf("  · session %s", m.sessionID))),
			beginStream(m.client, m.buildChatRequest(m.streamPrompt)),
		)
		return m, tea.Batch(cmds...)

	case streamChunkMsg:
		if m.mode != modeStreaming || activeStreamCh == nil {
			// Chunk from a cancelled stream.
			return m, nil
		}
		printCmd := m.handleStreamChunk(msg.event)
		if printCmd != nil {
			cmds = append(cmds, printCmd)
		}
		if activeStreamCh != nil {
			cmds = append(cmds, waitForStream(activeStreamCh))
		}
		return m, tea.Batch(cmds...)

	case streamDoneMsg:
		if m.mode != modeStreaming {
			return m, nil
		}
		return m.finishStream(nil)

	case streamErrMsg:
		if m.mode != modeStreaming {
			return m, nil
		}
		return m.finishStream(msg.err)

	// ── Async results ─────────────────────────────────────────────────
	case sessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case modelsLoadedMsg:
		return m.handleModelsLoaded(msg)

	case kbsLoadedMsg:
		return m.handleKBsLoaded(msg)

	case mcpLoadedMsg:
		return m.handleMCPLoaded(msg)

	case sessionDeletedMsg:
		return m.handleSessionDeleted(msg)
	}

	// Update sub-components
	var cmd tea.Cmd

	if m.mode != modeStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	newVal := m.input.Value()
	if newVal != m.lastInputVal {
		m.lastInputVal = newVal
		if m.historyIdx != -1 {
			if m.historyIdx < len(m.inputHistory) && m.inputHistory[m.historyIdx] != newVal {
				m.historyIdx = -1
				m.historySaved = ""
			}
		}
		if strings.HasPrefix(newVal, "/") {
			m.cmdMenuOpen = true
			m.cmdMenuIdx = 0
		} else {
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0
		}
	}

	return m, tea.Batch(cmds...)
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: View() only shows the input prompt + hints.
// All output is printed above via tea.Println.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	if m.mode == modeStreaming {
		status := "Thinking..."
		if m.lastStatus != "" {
			status = m.lastStatus
		}
		s.WriteString(m.spinner.View() + " " + statusStyle.Render(status))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	sepWidth := minInt(m.width, 80)
	if sepWidth < 20 {
		sepWidth = 20
	}
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	s.WriteString(m.renderHints())

	return s.String()
}

func (m model) renderHints() string {
	if m.mode == modeStreaming {
		return hintBarStyle.Render("  Esc cancel")
	}

	if m.cmdMenuOpen {
		matches := matchCommands(m.input.Value())
		if len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}

	return hintBarStyle.Render("  ? for help")
}

func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		if len(c.name) > maxLen {
			maxLen = len(c.name)
		}
	}

	var lines []string
	for i, c := range matches {
		padded := c.name
		for len(padded) < maxLen {
			padded += " "
		}

		var line string
		if i == m.cmdMenuIdx {
			line = "  " + cmdSelectedNameStyle.Render(padded) + "  " + cmdSelectedDescStyle.Render(c.desc)
		} else {
			line = "  " + cmdNameStyle.Render(padded) + "  " + cmdDescStyle.Render(c.desc)
		}
		lines = append(lines, line)
	}

	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))

	return strings.Join(lines, "\n")
}

// matchCommands returns all slash commands matching a prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(prefix)
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Streaming ──────────────────────────────────────────────────────────────

// startTurn sets up the reconciler pair for one exchange and returns
// the command that begins streaming (creating the session first when
// none is active).
func (m *model) startTurn(prompt string) tea.Cmd {
	now := time.Now()
	userID, assistantID := chat.NewTurnIDs(now)

	userMsg := chat.Message{
		ID:         userID,
		Role:       chat.RoleUser,
		SessionID:  m.sessionID,
		UserID:     m.cfg.UserID,
		Content:    prompt,
		CreateTime: now,
	}
	m.messages = append(m.messages, userMsg)

	assistantMsg := &chat.Message{
		ID:         assistantID,
		Role:       chat.RoleAssistant,
		SessionID:  m.sessionID,
		UserID:     m.cfg.UserID,
		ModelName:  m.modelName,
		CreateTime: now.Add(time.Millisecond),
	}
	m.rec = chat.NewReconciler(assistantMsg, m.log)
	if m.cfg.FriendlyMode {
		m.speaker = &captureSpeaker{}
		m.rec.SetSpeaker(m.speaker)
	}

	m.mode = modeStreaming
	m.streamPrompt = prompt
	m.printedLen = 0
	m.lineBuffer = ""
	m.toolStepsShown = 0
	m.agentStepNum = 0
	m.lastStatus = ""

	if m.sessionID == "" {
		return createSession(m.client, prompt)
	}
	return beginStream(m.client, m.buildChatRequest(prompt))
}

func (m *model) buildChatRequest(prompt string) api.ChatRequest {
	// History excludes the user message just appended; ContextMessages
	// adds the prompt itself.
	history := m.messages[:len(m.messages)-1]

	mcpConfig, err := service.BuildMCPConfig(m.mcpEnabled)
	if err != nil {
		m.log.Warn("mcp config skipped", zap.Error(err))
		mcpConfig = nil
	}

	return api.ChatRequest{
		Messages:        service.ContextMessages(history, prompt),
		SessionID:       m.sessionID,
		Model:           m.modelName,
		KnowledgeBaseID: m.kbID,
		MCPConfig:       mcpConfig,
		DeepResearch:    m.cfg.DeepResearch,
		InternetSearch:  m.cfg.InternetSearch,
		AgentID:         m.cfg.AgentID,
	}
}

// handleStreamChunk routes one decoded event through the reconciler
// and prints whatever newly became safe to show.
func (m *model) handleStreamChunk(ev api.StreamEvent) tea.Cmd {
	var printCmds []tea.Cmd

	switch ev.Kind {
	case api.EventContentDelta:
		m.rec.ApplyContent(ev.Delta)
		printCmds = append(printCmds, m.printNewVisible()...)

	case api.EventReasoningDelta:
		m.rec.ApplyReasoning(ev.Delta)
		m.lastStatus = "Reasoning..."

	case api.EventAgentStep:
		m.rec.ApplyAgentStep(ev.AgentStep)
		m.agentStepNum++
		m.lastStatus = ev.AgentStep.Message
		label := ev.AgentStep.Stage
		if ev.AgentStep.Message != "" {
			label += ": " + ev.AgentStep.Message
		}
		printCmds = append(printCmds, tea.Println(agentStepStyle.Render(
			fmt.Sprintf("  ◆ [%d] %s", m.agentStepNum, label))))

	case api.EventUnknown:
		m.log.Debug("unrecognized stream line", zap.String("raw", ev.Raw))
	}

	// Tool lifecycle events extracted from content land in the side
	// store; surface the new ones.
	steps := m.rec.ToolCallSteps()
	for _, step := range steps[m.toolStepsShown:] {
		m.lastStatus = step.Message
		printCmds = append(printCmds, tea.Println(toolStepStyle.Render(
			fmt.Sprintf("  ⚙ %s (%s)", step.Tool, step.Stage))))
	}
	m.toolStepsShown = len(steps)

	if len(printCmds) > 0 {
		return tea.Sequence(printCmds...)
	}
	return nil
}

// printNewVisible emits complete lines of newly approved visible text,
// keeping the trailing partial line buffered.
func (m *model) printNewVisible() []tea.Cmd {
	content := m.rec.Message().Content
	if len(content) <= m.printedLen {
		return nil
	}
	newText := content[m.printedLen:]
	m.printedLen = len(content)

	var cmds []tea.Cmd
	combined := m.lineBuffer + newText
	lines := strings.Split(combined, "\n")
	for i, line := range lines {
		if i < len(lines)-1 {
			cmds = append(cmds, tea.Println("  "+line))
		} else {
			m.lineBuffer = line
		}
	}
	return cmds
}

// finishStream finalizes the turn for both the clean end and the error
// path; partial content survives either way.
func (m model) finishStream(streamErr error) (tea.Model, tea.Cmd) {
	var flushCmds []tea.Cmd

	tail := m.rec.Finalize()
	if m.lineBuffer+tail != "" {
		flushCmds = append(flushCmds, tea.Println("  "+m.lineBuffer+tail))
		m.lineBuffer = ""
	}

	final := *m.rec.Message()
	m.messages = append(m.messages, final)

	proj := m.memo.Project(final)

	if streamErr != nil {
		flushCmds = append(flushCmds, tea.Println(errorMsgStyle.Render(
			fmt.Sprintf("  ✗ Stream interrupted: %v", streamErr))))
	} else {
		flushCmds = append(flushCmds, renderFinalExtras(proj)...)
		if m.speaker != nil && strings.TrimSpace(m.speaker.spoken) != "" {
			flushCmds = append(flushCmds, tea.Println(speakStyle.Render(
				"  🔈 "+service.TruncatePreview(m.speaker.spoken, 80))))
		}
	}
	flushCmds = append(flushCmds, tea.Println(""))

	m.persistTurn(proj)

	m.mode = modeIdle
	activeStreamCh = nil
	m.resetStreamState()
	return m, tea.Sequence(flushCmds...)
}

// persistTurn writes the finished exchange through to the cache and
// refreshes the session preview. Cache failures only log.
func (m *model) persistTurn(proj view.Projection) {
	if m.store == nil || m.sessionID == "" {
		return
	}
	userID := m.cfg.UserID

	if err := m.store.SaveMessages(userID, m.sessionID, m.messages); err != nil {
		m.log.Warn("message cache write failed", zap.Error(err))
	}
	if err := m.store.SaveScroll(userID, m.sessionID, len(m.messages)); err != nil {
		m.log.Warn("scroll cache write failed", zap.Error(err))
	}

	preview := service.TruncatePreview(proj.VisibleText, 120)
	m.sessions = service.UpdatePreview(m.sessions, m.sessionID, preview, time.Now())
	if err := m.store.SaveSessions(userID, m.sessions); err != nil {
		m.log.Warn("session cache write failed", zap.Error(err))
	}
}

func (m model) cancelStream() (tea.Model, tea.Cmd) {
	if activeStreamCh != nil {
		drainStream(activeStreamCh)
	}
	activeStreamCh = nil

	var flushCmds []tea.Cmd
	tail := m.rec.Finalize()
	if m.lineBuffer+tail != "" {
		flushCmds = append(flushCmds, tea.Println("  "+m.lineBuffer+tail))
		m.lineBuffer = ""
	}

	final := *m.rec.Message()
	if final.Content != "" {
		m.messages = append(m.messages, final)
		m.persistTurn(m.memo.Project(final))
	}

	m.mode = modeIdle
	m.resetStreamState()
	flushCmds = append(flushCmds, tea.Println(warnMsgStyle.Render("  ! Cancelled.")))
	return m, tea.Sequence(flushCmds...)
}

func (m *model) resetStreamState() {
	m.rec = nil
	m.speaker = nil
	m.streamPrompt = ""
	m.printedLen = 0
	m.lineBuffer = ""
	m.toolStepsShown = 0
	m.agentStepNum = 0
	m.lastStatus = ""
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func serverStr(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Server
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
