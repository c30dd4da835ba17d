package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/trust"
)

// Theme defines the dashboard's color palette, trimmed to the surfaces
// this view actually renders: state colors, trust-score bands, and
// chrome.
type Theme struct {
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	FaintText        lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color

	StateSynced    lipgloss.Color
	StateDegraded  lipgloss.Color
	StateLocked    lipgloss.Color
	StatePaused    lipgloss.Color
	StateSuspended lipgloss.Color

	TrustHigh lipgloss.Color
	TrustMid  lipgloss.Color
	TrustLow  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	HeaderForeground: lipgloss.Color("15"),
	BorderColor:      lipgloss.Color("240"),
	FaintText:        lipgloss.Color("244"),
	HelpText:         lipgloss.Color("244"),
	ErrorText:        lipgloss.Color("203"),

	StateSynced:    lipgloss.Color("42"),
	StateDegraded:  lipgloss.Color("214"),
	StateLocked:    lipgloss.Color("208"),
	StatePaused:    lipgloss.Color("203"),
	StateSuspended: lipgloss.Color("196"),

	TrustHigh: lipgloss.Color("42"),
	TrustMid:  lipgloss.Color("214"),
	TrustLow:  lipgloss.Color("203"),

	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("15"),
}

// stateColor picks the color for a subscription state.
func (t Theme) stateColor(state domain.SubscriptionState) lipgloss.Color {
	switch state {
	case domain.StateSynced:
		return t.StateSynced
	case domain.StateDegradedGap:
		return t.StateDegraded
	case domain.StateLockedNoFunds:
		return t.StateLocked
	case domain.StatePausedToxic:
		return t.StatePaused
	case domain.StateSuspendedAdmin:
		return t.StateSuspended
	default:
		return t.FaintText
	}
}

// trustColor bands a trust score into high/mid/low coloring. Below the
// Trust Loop's own auto-pause threshold is low; within 20 points above
// it is a mid warning band; anything further clear is high.
func (t Theme) trustColor(score int) lipgloss.Color {
	switch {
	case score < trust.AutoPauseThreshold:
		return t.TrustLow
	case score < trust.AutoPauseThreshold+20:
		return t.TrustMid
	default:
		return t.TrustHigh
	}
}
