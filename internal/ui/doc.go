// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders a single now-playing view: track title, artists, elapsed
// time, the album-art color palette as terminal swatches, and the playback
// device. It refreshes on a timer through the same snapshot path the poll
// loop uses, so what the terminal shows matches what the LEDs receive.
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Fetches run as [tea.Cmd] functions off the UI goroutine; r forces a
// refresh and q quits, with contextual help via charmbracelet/bubbles/help.
package ui
