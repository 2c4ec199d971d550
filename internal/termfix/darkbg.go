// ABOUTME: Fixes lipgloss to a dark background before Bubble Tea initialises
// ABOUTME: Import with _ ahead of any bubbletea importer so no OSC colour query is sent

package termfix

import "github.com/charmbracelet/lipgloss"

// The monitor's half-block preview owns the whole screen; a late OSC 10/11
// reply would land in the input stream as stray key presses. Setting the
// background explicitly skips the query bubbletea's init would otherwise make.
// This package must not import bubbletea, directly or transitively.
func init() {
	lipgloss.SetHasDarkBackground(true)
}
