package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"lumina-cli/internal/api"
	"lumina-cli/internal/cache"
	"lumina-cli/internal/chat"
	"lumina-cli/internal/config"
	"lumina-cli/internal/display"
	"lumina-cli/internal/logging"
	"lumina-cli/internal/service"
	"lumina-cli/internal/tui"
	"lumina-cli/internal/view"
)

const version = "0.1.0"

var activeProfile string

func main() {
	args := os.Args[1:]

	// Parse global flags first (--profile)
	args = parseGlobalFlags(args)

	// No args → launch interactive mode (default)
	if len(args) == 0 {
		if err := runInteractive(); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	// Explicit -i flag also launches interactive mode
	if args[0] == "-i" || args[0] == "--interactive" || args[0] == "interactive" {
		if err := runInteractive(); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	var err error

	switch args[0] {
	case "set":
		err = cmdSet(args[1:])
	case "config":
		err = cmdConfig()
	case "chat", "ask":
		err = cmdChat(args[1:])
	case "sessions":
		err = cmdSessions()
	case "history":
		err = cmdHistory(args[1:])
	case "models":
		err = cmdModels()
	case "kb":
		err = cmdKB(args[1:])
	case "mcp":
		err = cmdMCP(args[1:])
	case "profiles":
		err = cmdProfiles()
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("lumina %s\n", version)
	default:
		display.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

// openState builds the shared logger and cache store under the state
// directory. A cache failure is not fatal: the CLI runs without one.
func openState() (*cache.Store, *zap.Logger) {
	dir, err := config.Dir()
	if err != nil {
		return nil, logging.Nop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, logging.Nop()
	}

	logger := logging.New(filepath.Join(dir, "lumina.log"))

	store, err := cache.Open(filepath.Join(dir, "cache.db"), logger)
	if err != nil {
		logger.Warn("cache unavailable", zap.Error(err))
		return nil, logger
	}
	return store, logger
}

func runInteractive() error {
	store, logger := openState()
	if store != nil {
		defer store.Close()
	}
	defer logger.Sync()
	return tui.Run(version, activeProfile, store, logger)
}

// ─── set ────────────────────────────────────────────────────────────────────

func cmdSet(args []string) error {
	if len(args) < 2 {
		fmt.Println("Usage: lumina set <key> <value>")
		fmt.Println()
		fmt.Println("Keys:")
		fmt.Println("  server    Lumina server URL  (e.g. http://server:8080)")
		fmt.Println("  user      User id sent with every request")
		fmt.Println("  model     Default model name")
		fmt.Println("  agent     Agent id for agent-routed chats")
		fmt.Println("  kb        Default knowledge base id")
		fmt.Println("  friendly       on|off  Spoken-summary mode")
		fmt.Println("  deepresearch   on|off  Deep research flag")
		fmt.Println("  internet       on|off  Internet search flag")
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	key, value := args[0], strings.Join(args[1:], " ")

	switch key {
	case "server":
		cfg.Server = strings.TrimRight(value, "/")
	case "user":
		cfg.UserID = value
	case "model":
		cfg.Model = value
	case "agent":
		cfg.AgentID = value
	case "kb":
		cfg.KnowledgeBaseID = value
	case "friendly":
		cfg.FriendlyMode = value == "on" || value == "true"
	case "deepresearch":
		cfg.DeepResearch = value == "on" || value == "true"
	case "internet":
		cfg.InternetSearch = value == "on" || value == "true"
	default:
		return fmt.Errorf("unknown config key: %s (valid: server, user, model, agent, kb, friendly, deepresearch, internet)", key)
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("%s set to %s", key, value))
	return nil
}

// ─── config ─────────────────────────────────────────────────────────────────

func cmdConfig() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	display.Header("Lumina CLI Configuration")

	display.Info("Profile:", config.ProfileName(activeProfile))

	display.Info("Server:", orNotSet(cfg.Server))
	display.Info("User:", orNotSet(cfg.UserID))
	display.Info("Model:", orNotSet(cfg.Model))
	display.Info("Agent:", orNotSet(cfg.AgentID))
	display.Info("Knowledge Base:", orNotSet(cfg.KnowledgeBaseID))
	display.Info("Friendly Mode:", onOff(cfg.FriendlyMode))
	display.Info("Deep Research:", onOff(cfg.DeepResearch))
	display.Info("Internet Search:", onOff(cfg.InternetSearch))
	fmt.Println()

	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return display.Dim + "(not set)" + display.Reset
	}
	return s
}

func onOff(b bool) string {
	if b {
		return display.Green + "on" + display.Reset
	}
	return display.Dim + "off" + display.Reset
}

// ─── chat ───────────────────────────────────────────────────────────────────

// cmdChat runs one prompt non-interactively: create or continue a
// session, stream the reply to stdout, and render the final projection.
func cmdChat(args []string) error {
	var sessionID string
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-s", "--session":
			if i+1 < len(args) {
				i++
				sessionID = args[i]
			} else {
				return fmt.Errorf("--session requires a value")
			}
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) == 0 {
		fmt.Println("Usage: lumina chat <prompt> [--session <id>]")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  lumina chat "Summarize the Q3 incident report"`)
		fmt.Println(`  lumina chat "And what were the action items?" -s <session-id>`)
		return nil
	}
	prompt := strings.Join(positional, " ")

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, logger := openState()
	if store != nil {
		defer store.Close()
	}
	defer logger.Sync()

	client := api.NewClient(cfg)

	var history []chat.Message
	if sessionID == "" {
		created, err := client.CreateSession(prompt)
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		sessionID = created
		display.Success(fmt.Sprintf("Session created: %s", sessionID))
	} else {
		history, err = client.ListMessages(sessionID)
		if err != nil {
			return fmt.Errorf("loading session history: %w", err)
		}
		display.Success(fmt.Sprintf("Continuing session: %s", sessionID))
	}

	fmt.Println()
	fmt.Printf("  %s❯%s %s\n\n", display.Cyan, display.Reset, prompt)

	_, assistantID := chat.NewTurnIDs(time.Now())
	msg := &chat.Message{
		ID:        assistantID,
		Role:      chat.RoleAssistant,
		SessionID: sessionID,
	}
	rec := chat.NewReconciler(msg, logger)

	req := api.ChatRequest{
		Messages:        service.ContextMessages(history, prompt),
		SessionID:       sessionID,
		Model:           cfg.Model,
		KnowledgeBaseID: cfg.KnowledgeBaseID,
		AgentID:         cfg.AgentID,
		DeepResearch:    cfg.DeepResearch,
		InternetSearch:  cfg.InternetSearch,
	}

	printed := 0
	streamErr := client.SendMessageStream(req, func(ev api.StreamEvent) {
		switch ev.Kind {
		case api.EventContentDelta:
			rec.ApplyContent(ev.Delta)
			if len(msg.Content) > printed {
				fmt.Print(msg.Content[printed:])
				printed = len(msg.Content)
			}
		case api.EventReasoningDelta:
			rec.ApplyReasoning(ev.Delta)
		case api.EventAgentStep:
			rec.ApplyAgentStep(ev.AgentStep)
			fmt.Printf("\n  %s◆ %s: %s%s\n", display.Magenta, ev.AgentStep.Stage, ev.AgentStep.Message, display.Reset)
		}
	})

	tail := rec.Finalize()
	if tail != "" {
		fmt.Print(tail)
	}
	fmt.Println()

	if streamErr != nil {
		return fmt.Errorf("stream error: %w", streamErr)
	}

	proj := view.Project(*msg)
	printExtras(proj)

	if store != nil {
		if msgs, err := client.ListMessages(sessionID); err == nil {
			if err := store.SaveMessages(cfg.UserID, sessionID, msgs); err != nil {
				logger.Warn("message cache write failed", zap.Error(err))
			}
		}
	}

	fmt.Println()
	display.Success("Done")
	fmt.Printf("\n  %sTip:%s Run %slumina history %s%s to review the session.\n\n",
		display.Dim, display.Reset, display.Cyan, sessionID, display.Reset)

	return nil
}

func printExtras(proj view.Projection) {
	if len(proj.ReferenceURLs) > 0 {
		fmt.Printf("\n  %s📎 References:%s\n", display.Blue, display.Reset)
		for _, n := range sortedKeys(proj.ReferenceURLs) {
			fmt.Printf("    [%d] %s\n", n, proj.ReferenceURLs[n])
		}
	}
	for _, url := range proj.ImageURLs {
		fmt.Printf("  %s🖼  %s%s\n", display.Dim, url, display.Reset)
	}
	for _, f := range proj.Files {
		label := f.Name
		if f.Size > 0 {
			label += fmt.Sprintf(" (%d bytes)", f.Size)
		}
		if f.URL != "" {
			label += "  " + f.URL
		}
		fmt.Printf("  %s📄 %s%s\n", display.Dim, label, display.Reset)
	}
}

// ─── sessions ───────────────────────────────────────────────────────────────

func cmdSessions() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, logger := openState()
	if store != nil {
		defer store.Close()
	}
	defer logger.Sync()

	client := api.NewClient(cfg)

	sessions, err := client.ListSessions()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if store != nil {
		if err := store.SaveSessions(cfg.UserID, sessions); err != nil {
			logger.Warn("session cache write failed", zap.Error(err))
		}
	}

	sessions = service.OrderSessions(sessions)

	display.Header(fmt.Sprintf("Sessions (%d)", len(sessions)))

	if len(sessions) == 0 {
		display.Warn("No sessions found.")
		return nil
	}

	for _, s := range sessions {
		row := service.FormatSessionRow(s)
		fmt.Printf("\n  💬 %s%s%s\n", display.Bold, row.Title, display.Reset)
		fmt.Printf("    %sID:%s      %s\n", display.Dim, display.Reset, row.ID)
		fmt.Printf("    %sWhen:%s    %s\n", display.Dim, display.Reset, row.When)
		if row.Preview != "" {
			fmt.Printf("    %sLast:%s    %s\n", display.Dim, display.Reset, row.Preview)
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("─", 80))
	fmt.Printf("  %sTip:%s Run %slumina history <session-id>%s to see the conversation.\n\n",
		display.Dim, display.Reset, display.Cyan, display.Reset)

	return nil
}

// ─── history ────────────────────────────────────────────────────────────────

func cmdHistory(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: lumina history <session-id>")
		return nil
	}
	sessionID := args[0]

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, logger := openState()
	if store != nil {
		defer store.Close()
	}
	defer logger.Sync()

	client := api.NewClient(cfg)

	// Cache first; fall back to the server.
	var msgs []chat.Message
	fromCache := false
	if store != nil {
		if cached, err := store.LoadMessages(cfg.UserID, sessionID); err == nil {
			msgs = cached
			fromCache = true
		}
	}
	if !fromCache {
		msgs, err = client.ListMessages(sessionID)
		if err != nil {
			return fmt.Errorf("loading messages: %w", err)
		}
		if store != nil {
			if err := store.SaveMessages(cfg.UserID, sessionID, msgs); err != nil {
				logger.Warn("message cache write failed", zap.Error(err))
			}
		}
	}

	title := fmt.Sprintf("Session %s (%d messages)", sessionID, len(msgs))
	if fromCache {
		title += " (cached)"
	}
	display.Header(title)

	if len(msgs) == 0 {
		display.Warn("No messages in this session.")
		return nil
	}

	memo := view.NewMemo()
	for _, msg := range msgs {
		fmt.Println()
		fmt.Printf("  %s  %s%s%s\n", display.RoleLabel(msg.Role), display.Dim, display.FormatTime(msg.CreateTime), display.Reset)

		if msg.Role == chat.RoleUser {
			fmt.Printf("    %s\n", strings.TrimSpace(msg.Content))
			continue
		}

		proj := memo.Project(msg)
		if proj.ThinkText != "" {
			fmt.Printf("    %s💭 %s%s\n", display.Gray, service.TruncatePreview(proj.ThinkText, 100), display.Reset)
		}
		for _, line := range strings.Split(display.Markdown(proj.VisibleText), "\n") {
			fmt.Printf("    %s\n", line)
		}
		printExtras(proj)
	}

	fmt.Println()
	return nil
}

// ─── models ─────────────────────────────────────────────────────────────────

func cmdModels() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	models, err := client.ListModels()
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	display.Header(fmt.Sprintf("Models (%d)", len(models)))

	if len(models) == 0 {
		display.Warn("No models available.")
		return nil
	}

	for _, m := range models {
		marker := " "
		if m.Name == cfg.Model {
			marker = display.Green + "●" + display.Reset
		}
		label := m.Name
		if m.DisplayName != "" && m.DisplayName != m.Name {
			label += "  " + display.Dim + m.DisplayName + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, label)
	}

	fmt.Printf("\n  %sTip:%s Run %slumina set model <name>%s to switch.\n\n",
		display.Dim, display.Reset, display.Cyan, display.Reset)

	return nil
}

// ─── kb ─────────────────────────────────────────────────────────────────────

func cmdKB(args []string) error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	if len(args) == 0 || args[0] == "list" {
		kbs, err := client.ListKnowledgeBases()
		if err != nil {
			return fmt.Errorf("listing knowledge bases: %w", err)
		}

		display.Header(fmt.Sprintf("Knowledge Bases (%d)", len(kbs)))

		if len(kbs) == 0 {
			display.Warn("No knowledge bases found.")
			return nil
		}

		for _, kb := range kbs {
			marker := " "
			if kb.ID == cfg.KnowledgeBaseID {
				marker = display.Green + "●" + display.Reset
			}
			fmt.Printf("  %s %s%s%s  %s%s · %d docs%s\n", marker,
				display.Bold, kb.Name, display.Reset,
				display.Dim, kb.ID, kb.DocCount, display.Reset)
		}
		fmt.Println()
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			fmt.Println("Usage: lumina kb add <name> [description]")
			return nil
		}
		description := ""
		if len(args) > 2 {
			description = strings.Join(args[2:], " ")
		}
		id, err := client.CreateKnowledgeBase(args[1], description)
		if err != nil {
			return fmt.Errorf("creating knowledge base: %w", err)
		}
		display.Success(fmt.Sprintf("Knowledge base created: %s", id))
		return nil
	case "rm", "remove":
		if len(args) < 2 {
			fmt.Println("Usage: lumina kb rm <id>")
			return nil
		}
		if err := client.DeleteKnowledgeBase(args[1]); err != nil {
			return fmt.Errorf("deleting knowledge base: %w", err)
		}
		display.Success("Knowledge base deleted")
		return nil
	default:
		return fmt.Errorf("unknown kb subcommand: %s (valid: list, add, rm)", args[0])
	}
}

// ─── mcp ────────────────────────────────────────────────────────────────────

func cmdMCP(args []string) error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	if len(args) == 0 || args[0] == "list" {
		servers, err := client.ListMCPServers()
		if err != nil {
			return fmt.Errorf("listing MCP servers: %w", err)
		}

		display.Header(fmt.Sprintf("MCP Servers (%d)", len(servers)))

		if len(servers) == 0 {
			display.Warn("No MCP servers registered.")
			return nil
		}

		for _, s := range servers {
			target := s.URL
			if target == "" {
				target = s.Command + " " + strings.Join(s.Args, " ")
			}
			fmt.Printf("  ⏺ %s%-20s%s %s%s%s  %s%s%s\n",
				display.Bold, s.Name, display.Reset,
				display.Dim, s.ID, display.Reset,
				display.Gray, strings.TrimSpace(target), display.Reset)
		}
		fmt.Println()
		return nil
	}

	switch args[0] {
	case "add":
		if len(args) < 3 {
			fmt.Println("Usage: lumina mcp add <name> <url>")
			return nil
		}
		id, err := client.AddMCPServer(api.MCPServer{Name: args[1], URL: args[2]})
		if err != nil {
			return fmt.Errorf("adding MCP server: %w", err)
		}
		display.Success(fmt.Sprintf("MCP server registered: %s", id))
		return nil
	case "rm", "remove":
		if len(args) < 2 {
			fmt.Println("Usage: lumina mcp rm <id>")
			return nil
		}
		if err := client.RemoveMCPServer(args[1]); err != nil {
			return fmt.Errorf("removing MCP server: %w", err)
		}
		display.Success("MCP server removed")
		return nil
	default:
		return fmt.Errorf("unknown mcp subcommand: %s (valid: list, add, rm)", args[0])
	}
}

// ─── profiles ───────────────────────────────────────────────────────────────

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── helpers ────────────────────────────────────────────────────────────────

func parseGlobalFlags(args []string) []string {
	var remaining []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--profile" {
			if i+1 < len(args) {
				i++
				activeProfile = args[i]
			}
			continue
		}
		remaining = append(remaining, args[i])
	}
	return remaining
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ─── usage ──────────────────────────────────────────────────────────────────

func printUsage() {
	fmt.Printf(`%sLumina CLI%s — terminal client for the Lumina chat platform (v%s)

%sUsage:%s
  lumina                                            Launch interactive mode (default)
  lumina [--profile <name>] <command> [arguments]   Run a specific command

%sGetting Started:%s
  set server <url>          Point at your Lumina backend
  set user <id>             Set the user id sent with every request
  config                    Show current configuration

%sSettings:%s
  set model <name>          Default model for new chats
  set agent <id>            Route chats through an agent
  set kb <id>               Default knowledge base
  set friendly on|off       Spoken-summary mode
  set deepresearch on|off   Deep research flag
  set internet on|off       Internet search flag

%sChat:%s
  chat|ask "<prompt>"       Send one prompt and stream the reply
    -s, --session <id>      Continue an existing session

%sSessions:%s
  sessions                  List your sessions, most recent first
  history <session-id>      Print a session's conversation

%sResources:%s
  models                    List available models
  kb [list|add|rm]          Manage knowledge bases
  mcp [list|add|rm]         Manage MCP server registrations

%sProfiles:%s
  profiles                    List all config profiles
  --profile <name>            Use a named config profile (default: unnamed)

%sExamples:%s
  lumina                                            # Start interactive mode
  lumina set server http://localhost:8080
  lumina set user alice
  lumina chat "Summarize the Q3 incident report"
  lumina chat "And the action items?" -s <session-id>
  lumina sessions
  lumina history <session-id>
  lumina --profile work chat "Draft the standup notes"

`, display.Bold, display.Reset, version,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset)
}
