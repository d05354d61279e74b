// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/datachat-tui/internal/commands"
	"github.com/jeranaias/datachat-tui/internal/config"
	"github.com/jeranaias/datachat-tui/internal/ui/chat"
	"github.com/jeranaias/datachat-tui/internal/ui/styles"
)

// runTUI runs the full-screen chat until the user quits.
func runTUI(ctx context.Context, a *app) error {
	newSession, err := a.sessionFactory(a.cfg.Chat.AutoExecute)
	if err != nil {
		return err
	}

	reloads := make(chan chat.ConfigReloadMsg, 1)
	if w := a.watchConfig(reloads); w != nil {
		defer w.Close()
	}

	m := chat.New(styles.NewTheme(a.cfg.UI.Theme), newSession(), commands.NewSlashSet(a.registry), chat.Options{
		Backend:     a.cfg.Backend.URL,
		ShowSidebar: a.cfg.UI.ShowSidebar,
		Markdown:    a.cfg.UI.Markdown,
		NewSession:  newSession,
		Reloads:     reloads,
		Logger:      a.logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("chat view failed: %w", err)
	}
	if fm, ok := final.(chat.Model); ok {
		a.logger.Info("chat view closed", zap.String("session", fm.Controller().ID()))
	}
	return nil
}

// watchConfig forwards config file changes to reloads. A missing config
// directory only disables reloading.
func (a *app) watchConfig(reloads chan<- chat.ConfigReloadMsg) *config.Watcher {
	if a.configPath == "" {
		return nil
	}
	w, err := config.NewWatcher(a.configPath, func(cfg *config.Config, err error) {
		msg := chat.ConfigReloadMsg{Config: cfg, Err: err}
		select {
		case reloads <- msg:
		default:
			a.logger.Debug("config reload dropped, previous one still pending")
		}
	})
	if err != nil {
		a.logger.Warn("config reload disabled", zap.Error(err))
		return nil
	}
	w.Start()
	return w
}
