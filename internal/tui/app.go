package tui

import (
	"fmt"

	"lumina-cli/internal/cache"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Run launches the interactive TUI (inline mode).
func Run(version, profile string, store *cache.Store, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := initialModel(version, profile, store, logger)

	p := tea.NewProgram(m)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
