package tui

import (
	"errors"
	"fmt"
	"strings"

	"lumina-cli/internal/api"
	"lumina-cli/internal/chat"
	"lumina-cli/internal/config"
	"lumina-cli/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// ─── Input dispatcher ───────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	if input == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(input, "/") {
		return m.dispatchCommand(input)
	}
	return m.cmdChat(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/sessions":
		return m.cmdSessions()
	case "/session":
		return m.cmdSetSession(args)
	case "/new":
		return m.cmdNew()
	case "/history":
		return m.cmdHistory()
	case "/delete":
		return m.cmdDelete(args)
	case "/models":
		return m.cmdModels()
	case "/model":
		return m.cmdModel(args)
	case "/kb":
		return m.cmdKB(args)
	case "/mcp":
		return m.cmdMCP(args)
	case "/config":
		return m.cmdConfig()
	case "/set":
		return m.cmdSet(args)
	case "/clear":
		return m, tea.ClearScreen
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s — type /help", cmd)))
	}
}

// ─── /help ──────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	pad := func(s string, w int) string {
		for len(s) < w {
			s += " "
		}
		return s
	}

	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render("  Shortcuts:")),
		tea.Println(""),
		tea.Println("  " + pad(hintKeyStyle.Render("/sessions"), 30) + dimStyle.Render("List recent sessions")),
		tea.Println("  " + pad(hintKeyStyle.Render("/session <id>"), 30) + dimStyle.Render("Switch to a session")),
		tea.Println("  " + pad(hintKeyStyle.Render("/new"), 30) + dimStyle.Render("Start a new session")),
		tea.Println("  " + pad(hintKeyStyle.Render("/history"), 30) + dimStyle.Render("Show the current session")),
		tea.Println("  " + pad(hintKeyStyle.Render("/delete <id>"), 30) + dimStyle.Render("Delete a session")),
		tea.Println("  " + pad(hintKeyStyle.Render("/models"), 30) + dimStyle.Render("List available models")),
		tea.Println("  " + pad(hintKeyStyle.Render("/model <name>"), 30) + dimStyle.Render("Select the model")),
		tea.Println("  " + pad(hintKeyStyle.Render("/kb [use <id>|clear]"), 30) + dimStyle.Render("Knowledge bases")),
		tea.Println("  " + pad(hintKeyStyle.Render("/mcp [on|off <name>]"), 30) + dimStyle.Render("MCP servers")),
		tea.Println("  " + pad(hintKeyStyle.Render("/config"), 30) + dimStyle.Render("Show current configuration")),
		tea.Println("  " + pad(hintKeyStyle.Render("/set <key> <value>"), 30) + dimStyle.Render("Change a config value")),
		tea.Println("  " + pad(hintKeyStyle.Render("/clear"), 30) + dimStyle.Render("Clear the screen")),
		tea.Println("  " + pad(hintKeyStyle.Render("/quit"), 30) + dimStyle.Render("Exit Lumina")),
		tea.Println(""),
		tea.Println(dimStyle.Render("  Or just type a message to chat!")),
		tea.Println(""),
	}
	return m, tea.Sequence(lines...)
}

// ─── Chat ───────────────────────────────────────────────────────────────────

func (m model) cmdChat(prompt string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No server configured — run `lumina config` or /set server <url>"))
	}

	streamCmd := m.startTurn(prompt)
	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(userPromptStyle.Render("  ❯ ")+prompt),
		tea.Println(""),
		streamCmd,
	)
}

// ─── Sessions ───────────────────────────────────────────────────────────────

type sessionsLoadedMsg struct {
	sessions  []chat.Session
	fromCache bool
	err       error
}

func (m model) cmdSessions() (tea.Model, tea.Cmd) {
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No server configured"))
	}

	client, store, userID := m.client, m.store, m.cfg.UserID
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Loading sessions...")),
		func() tea.Msg {
			if store != nil {
				if cached, err := store.LoadSessions(userID); err == nil {
					return sessionsLoadedMsg{sessions: cached, fromCache: true}
				}
			}
			sessions, err := client.ListSessions()
			if err != nil {
				return sessionsLoadedMsg{err: err}
			}
			if store != nil {
				_ = store.SaveSessions(userID, sessions)
			}
			return sessionsLoadedMsg{sessions: sessions}
		},
	)
}

func (m model) handleSessionsLoaded(msg sessionsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not load sessions: %v", msg.err)))
	}

	m.sessions = service.OrderSessions(msg.sessions)

	lines := []tea.Cmd{tea.Println("")}
	if len(m.sessions) == 0 {
		lines = append(lines, tea.Println(dimStyle.Render("  No sessions yet — just type a message to start one.")))
	}
	for _, s := range m.sessions {
		row := service.FormatSessionRow(s)
		marker := "  "
		if s.ID == m.sessionID {
			marker = successMsgStyle.Render("▸ ")
		}
		line := fmt.Sprintf("%s%s  %s", marker, hintKeyStyle.Render(row.Title), dimStyle.Render(row.When))
		lines = append(lines, tea.Println("  "+line))
		if row.Preview != "" {
			lines = append(lines, tea.Println(dimStyle.Render("      "+row.Preview)))
		}
		lines = append(lines, tea.Println(dimStyle.Render("      id: "+row.ID)))
	}
	if msg.fromCache {
		lines = append(lines, tea.Println(dimStyle.Render("  (cached)")))
	}
	lines = append(lines, tea.Println(""))
	return m, tea.Sequence(lines...)
}

type historyLoadedMsg struct {
	sessionID string
	msgs      []chat.Message
	fromCache bool
	lastSeen  int
	err       error
}

func (m model) cmdSetSession(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Usage: /session <id>"))
	}
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No server configured"))
	}

	sessionID := args[0]
	client, store, userID := m.client, m.store, m.cfg.UserID
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Loading session...")),
		func() tea.Msg {
			lastSeen := -1
			if store != nil {
				if n, err := store.LoadScroll(userID, sessionID); err == nil {
					lastSeen = n
				}
				if cached, err := store.LoadMessages(userID, sessionID); err == nil {
					return historyLoadedMsg{sessionID: sessionID, msgs: cached, fromCache: true, lastSeen: lastSeen}
				}
			}
			msgs, err := client.ListMessages(sessionID)
			if err != nil {
				return historyLoadedMsg{sessionID: sessionID, err: err}
			}
			if store != nil {
				_ = store.SaveMessages(userID, sessionID, msgs)
			}
			return historyLoadedMsg{sessionID: sessionID, msgs: msgs, lastSeen: lastSeen}
		},
	)
}

func (m model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not load session: %v", msg.err)))
	}

	m.sessionID = msg.sessionID
	m.messages = msg.msgs

	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ Session %s (%d messages)", msg.sessionID, len(msg.msgs)))),
	}
	if msg.lastSeen >= 0 && len(msg.msgs) > msg.lastSeen {
		lines = append(lines, tea.Println(dimStyle.Render(
			fmt.Sprintf("    %d new since last visit", len(msg.msgs)-msg.lastSeen))))
	}
	if msg.fromCache {
		lines = append(lines, tea.Println(dimStyle.Render("    (cached)")))
	}
	lines = append(lines, m.renderHistoryLines(msg.msgs)...)
	lines = append(lines, tea.Println(""))

	if m.store != nil {
		_ = m.store.SaveScroll(m.cfg.UserID, msg.sessionID, len(msg.msgs))
	}
	return m, tea.Sequence(lines...)
}

func (m model) cmdNew() (tea.Model, tea.Cmd) {
	m.sessionID = ""
	m.messages = nil
	return m, tea.Println(successMsgStyle.Render("  ✓ New session — next message starts it."))
}

func (m model) cmdHistory() (tea.Model, tea.Cmd) {
	if m.sessionID == "" {
		return m, tea.Println(dimStyle.Render("  No active session."))
	}
	lines := append([]tea.Cmd{tea.Println("")}, m.renderHistoryLines(m.messages)...)
	lines = append(lines, tea.Println(""))
	return m, tea.Sequence(lines...)
}

type sessionDeletedMsg struct {
	sessionID string
	err       error
}

func (m model) cmdDelete(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Usage: /delete <id>"))
	}
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No server configured"))
	}

	sessionID := args[0]
	client, store, userID := m.client, m.store, m.cfg.UserID
	return m, func() tea.Msg {
		if err := client.DeleteSession(sessionID); err != nil {
			return sessionDeletedMsg{sessionID: sessionID, err: err}
		}
		if store != nil {
			_ = store.DeleteSession(userID, sessionID)
		}
		return sessionDeletedMsg{sessionID: sessionID}
	}
}

func (m model) handleSessionDeleted(msg sessionDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Delete failed: %v", msg.err)))
	}

	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.ID != msg.sessionID {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	if m.store != nil {
		_ = m.store.SaveSessions(m.cfg.UserID, m.sessions)
	}
	if m.sessionID == msg.sessionID {
		m.sessionID = ""
		m.messages = nil
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Session deleted"))
}

// ─── Models ─────────────────────────────────────────────────────────────────

type modelsLoadedMsg struct {
	models []api.ModelInfo
	err    error
}

func (m model) cmdModels() (tea.Model, tea.Cmd) {
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No server configured"))
	}
	client := m.client
	return m, func() tea.Msg {
		models, err := client.ListModels()
		return modelsLoadedMsg{models: models, err: err}
	}
}

func (m model) handleModelsLoaded(msg modelsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not load models: %v", msg.err)))
	}

	// A remembered model that the server no longer offers resets.
	if resolved := service.ResolveModel(m.modelName, msg.models); resolved != m.modelName {
		m.modelName = resolved
	}

	lines := []tea.Cmd{tea.Println("")}
	for _, mi := range msg.models {
		marker := "  "
		if mi.Name == m.modelName {
			marker = successMsgStyle.Render("▸ ")
		}
		label := mi.Name
		if mi.DisplayName != "" {
			label += dimStyle.Render("  " + mi.DisplayName)
		}
		lines = append(lines, tea.Println("  "+marker+label))
	}
	lines = append(lines, tea.Println(""))
	return m, tea.Sequence(lines...)
}

func (m model) cmdModel(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		if m.modelName == "" {
			return m, tea.Println(dimStyle.Render("  No model selected (server default)."))
		}
		return m, tea.Println(dimStyle.Render("  Model: " + m.modelName))
	}

	m.modelName = args[0]
	if m.store != nil {
		if err := m.store.SaveModel(m.cfg.UserID, m.modelName); err != nil {
			m.log.Warn("model cache write failed", zap.Error(err))
		}
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Model: " + m.modelName))
}

// ─── Knowledge bases ────────────────────────────────────────────────────────

type kbsLoadedMsg struct {
	kbs []api.KnowledgeBase
	err error
}

func (m model) cmdKB(args []string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No server configured"))
	}

	if len(args) > 0 {
		switch args[0] {
		case "use":
			if len(args) < 2 {
				return m, tea.Println(errorMsgStyle.Render("  ✗ Usage: /kb use <id>"))
			}
			m.kbID = args[1]
			return m, tea.Println(successMsgStyle.Render("  ✓ Knowledge base: " + m.kbID))
		case "clear":
			m.kbID = ""
			return m, tea.Println(successMsgStyle.Render("  ✓ Knowledge base cleared"))
		}
	}

	client := m.client
	return m, func() tea.Msg {
		kbs, err := client.ListKnowledgeBases()
		return kbsLoadedMsg{kbs: kbs, err: err}
	}
}

func (m model) handleKBsLoaded(msg kbsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not load knowledge bases: %v", msg.err)))
	}

	// Selection referencing a deleted base resets to none.
	if resolved := service.ResolveKnowledgeBase(m.kbID, msg.kbs); resolved != m.kbID {
		m.kbID = resolved
	}

	lines := []tea.Cmd{tea.Println("")}
	if len(msg.kbs) == 0 {
		lines = append(lines, tea.Println(dimStyle.Render("  No knowledge bases.")))
	}
	for _, kb := range msg.kbs {
		marker := "  "
		if kb.ID == m.kbID {
			marker = successMsgStyle.Render("▸ ")
		}
		lines = append(lines, tea.Println(fmt.Sprintf("  %s%s  %s",
			marker, hintKeyStyle.Render(kb.Name), dimStyle.Render(fmt.Sprintf("%d docs · id: %s", kb.DocCount, kb.ID)))))
	}
	lines = append(lines, tea.Println(""))
	return m, tea.Sequence(lines...)
}

// ─── MCP servers ────────────────────────────────────────────────────────────

type mcpLoadedMsg struct {
	servers []api.MCPServer
	err     error
}

func (m model) cmdMCP(args []string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No server configured"))
	}

	if len(args) >= 2 {
		switch args[0] {
		case "on":
			return m.enableMCP(args[1])
		case "off":
			return m.disableMCP(args[1])
		}
	}

	client := m.client
	return m, func() tea.Msg {
		servers, err := client.ListMCPServers()
		return mcpLoadedMsg{servers: servers, err: err}
	}
}

func (m model) enableMCP(name string) (tea.Model, tea.Cmd) {
	for _, s := range m.mcpEnabled {
		if s.Name == name {
			return m, tea.Println(dimStyle.Render("  Already enabled: " + name))
		}
	}
	for _, s := range m.mcpServers {
		if s.Name == name {
			m.mcpEnabled = append(m.mcpEnabled, s)
			return m, tea.Println(successMsgStyle.Render("  ✓ Enabled " + name))
		}
	}
	return m, tea.Println(errorMsgStyle.Render("  ✗ Unknown MCP server: " + name + " — run /mcp first"))
}

func (m model) disableMCP(name string) (tea.Model, tea.Cmd) {
	kept := m.mcpEnabled[:0]
	found := false
	for _, s := range m.mcpEnabled {
		if s.Name == name {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	m.mcpEnabled = kept
	if !found {
		return m, tea.Println(dimStyle.Render("  Not enabled: " + name))
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Disabled " + name))
}

func (m model) handleMCPLoaded(msg mcpLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not load MCP servers: %v", msg.err)))
	}

	m.mcpServers = msg.servers

	enabled := make(map[string]bool, len(m.mcpEnabled))
	for _, s := range m.mcpEnabled {
		enabled[s.Name] = true
	}

	lines := []tea.Cmd{tea.Println("")}
	if len(msg.servers) == 0 {
		lines = append(lines, tea.Println(dimStyle.Render("  No MCP servers registered.")))
	}
	for _, s := range msg.servers {
		marker := dimStyle.Render("○ ")
		if enabled[s.Name] {
			marker = successMsgStyle.Render("● ")
		}
		target := s.URL
		if target == "" {
			target = s.Command
		}
		lines = append(lines, tea.Println("  "+marker+hintKeyStyle.Render(s.Name)+"  "+dimStyle.Render(target)))
	}
	lines = append(lines,
		tea.Println(dimStyle.Render("  /mcp on|off <name> to toggle")),
		tea.Println(""))
	return m, tea.Sequence(lines...)
}

// ─── Config ─────────────────────────────────────────────────────────────────

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	if m.cfg == nil {
		return m, tea.Println(dimStyle.Render("  No configuration loaded."))
	}

	row := func(k, v string) tea.Cmd {
		if v == "" {
			v = dimStyle.Render("(not set)")
		}
		return tea.Println(fmt.Sprintf("  %-18s %s", dimStyle.Render(k), v))
	}
	return m, tea.Sequence(
		tea.Println(""),
		row("server", m.cfg.Server),
		row("user", m.cfg.UserID),
		row("model", m.modelName),
		row("knowledge base", m.kbID),
		row("agent", m.cfg.AgentID),
		row("friendly mode", fmt.Sprintf("%v", m.cfg.FriendlyMode)),
		row("deep research", fmt.Sprintf("%v", m.cfg.DeepResearch)),
		row("internet search", fmt.Sprintf("%v", m.cfg.InternetSearch)),
		row("profile", config.ProfileName(m.profile)),
		tea.Println(""),
	)
}

func (m model) cmdSet(args []string) (tea.Model, tea.Cmd) {
	if len(args) < 2 {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Usage: /set <key> <value>"))
	}
	if m.cfg == nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No configuration loaded"))
	}

	key, value := strings.ToLower(args[0]), strings.Join(args[1:], " ")
	if err := applyConfigValue(m.cfg, key, value); err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ " + err.Error()))
	}
	if err := m.cfg.Save(); err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not save config: %v", err)))
	}

	// Server or user changes need a fresh client.
	if key == "server" || key == "user" {
		m.client = api.NewClient(m.cfg)
	}
	return m, tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ %s = %s", key, value)))
}

func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "server":
		cfg.Server = value
	case "user":
		cfg.UserID = value
	case "model":
		cfg.Model = value
	case "agent":
		cfg.AgentID = value
	case "kb":
		cfg.KnowledgeBaseID = value
	case "friendly":
		cfg.FriendlyMode = value == "true" || value == "on"
	case "deepresearch":
		cfg.DeepResearch = value == "true" || value == "on"
	case "internet":
		cfg.InternetSearch = value == "true" || value == "on"
	default:
		return errors.New("unknown key: " + key + " (server, user, model, agent, kb, friendly, deepresearch, internet)")
	}
	return nil
}
