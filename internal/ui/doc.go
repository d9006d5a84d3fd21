// Package ui implements the terminal browser for project outlines.
//
// The browser is read-only: it lists the user's projects and renders the
// selected project's outline with indentation and completion markers.
// Mutations go through the collaboration surface, not the TUI.
package ui
