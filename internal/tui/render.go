package tui

import (
	"fmt"
	"sort"
	"strings"

	"lumina-cli/internal/chat"
	"lumina-cli/internal/display"
	"lumina-cli/internal/service"
	"lumina-cli/internal/view"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Welcome ────────────────────────────────────────────────────────────────

func renderWelcome(version, server, modelName string) string {
	titleLine := logoTitleStyle.Render("Lumina") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if server == "" {
		infoLine = welcomeHintStyle.Render("Type /set server <url> to get started")
	} else {
		serverDisplay := server
		if len(serverDisplay) > 40 {
			serverDisplay = serverDisplay[:37] + "..."
		}
		modelDisplay := dimStyle.Render("default model")
		if modelName != "" {
			modelDisplay = modelName
		}
		infoLine = welcomeInfoLabel.Render(fmt.Sprintf("%s · %s", serverDisplay, modelDisplay))
	}

	return fmt.Sprintf("\n%s\n%s\n", titleLine, infoLine)
}

// ─── History ────────────────────────────────────────────────────────────────

// renderHistoryLines projects each message and emits its display form.
// Assistant content renders as markdown; raw protocol blocks never
// reach the terminal because the projection strips them.
func (m model) renderHistoryLines(msgs []chat.Message) []tea.Cmd {
	var lines []tea.Cmd
	for _, msg := range msgs {
		lines = append(lines, tea.Println(""))

		if msg.Role == chat.RoleUser {
			lines = append(lines, tea.Println(userPromptStyle.Render("  ❯ ")+strings.TrimSpace(msg.Content)))
			continue
		}

		proj := m.memo.Project(msg)
		if proj.ThinkText != "" {
			lines = append(lines, tea.Println(thinkStyle.Render(
				"  💭 "+service.TruncatePreview(proj.ThinkText, 100))))
		}
		rendered := display.Markdown(proj.VisibleText)
		for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
			lines = append(lines, tea.Println("  "+line))
		}
		lines = append(lines, renderFinalExtras(proj)...)
	}
	return lines
}

// renderFinalExtras prints the non-text parts of a projection:
// references, images, and files.
func renderFinalExtras(proj view.Projection) []tea.Cmd {
	var lines []tea.Cmd

	if len(proj.ReferenceURLs) > 0 {
		nums := make([]int, 0, len(proj.ReferenceURLs))
		for n := range proj.ReferenceURLs {
			nums = append(nums, n)
		}
		sort.Ints(nums)
		lines = append(lines, tea.Println(refStyle.Render("  📎 References:")))
		for _, n := range nums {
			lines = append(lines, tea.Println(refStyle.Render(fmt.Sprintf("     [%d] %s", n, proj.ReferenceURLs[n]))))
		}
	}

	for _, url := range proj.ImageURLs {
		lines = append(lines, tea.Println(dimStyle.Render("  🖼  "+url)))
	}

	for _, f := range proj.Files {
		label := f.Name
		if f.Size > 0 {
			label += fmt.Sprintf(" (%d bytes)", f.Size)
		}
		if f.URL != "" {
			label += "  " + f.URL
		}
		lines = append(lines, tea.Println(dimStyle.Render("  📄 "+label)))
	}

	return lines
}
