// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme_Modes(t *testing.T) {
	tests := []struct {
		mode         string
		wantMode     string
		wantDark     bool
		wantMarkdown string
		wantCode     string
	}{
		{"dark", ModeDark, true, "dark", "monokai"},
		{"LIGHT", ModeLight, false, "light", "github"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			theme := NewTheme(tt.mode)
			assert.Equal(t, tt.wantMode, theme.Mode)
			assert.Equal(t, tt.wantDark, theme.IsDark)
			assert.Equal(t, tt.wantMarkdown, theme.MarkdownStyle)
			assert.Equal(t, tt.wantCode, theme.CodeStyle)
		})
	}
}

func TestNewTheme_UnknownModeIsAuto(t *testing.T) {
	assert.Equal(t, ModeAuto, NewTheme("neon").Mode)
}

func TestNewTheme_StylesRender(t *testing.T) {
	theme := NewTheme("dark")
	assert.Contains(t, theme.CardTitle.Render("Search Dataset"), "Search Dataset")
	assert.Contains(t, theme.SidebarSection.Render("Datasets"), "Datasets")
}
