// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/storage"
	"github.com/jeranaias/repochat/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all messages for the assistant.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// Form results
	case buildResultMsg:
		var cmd tea.Cmd
		m.repoForm, cmd = m.repoForm.Update(msg)
		return m, cmd

	case queryResultMsg:
		var cmd tea.Cmd
		m.queryForm, cmd = m.queryForm.Update(msg)
		return m, cmd

	case RepoIndexedMsg:
		return m.handleRepoIndexed(msg)

	case AnswerMsg:
		return m.handleAnswer(msg)

	// Answer display
	case components.TypewriterTickMsg:
		var cmd tea.Cmd
		m.answer, cmd = m.answer.Update(msg)
		return m, cmd

	// Background
	case BackendStatusMsg:
		return m.handleBackendStatus(msg)

	case HistoryRecordedMsg:
		if msg.Err != nil {
			log.Printf("chat: history write failed: %v", msg.Err)
			return m, m.addToast(components.ToastKindWarning, "history write failed")
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)

	case components.ToastTickMsg:
		if m.toasts.Tick() {
			return m, components.ToastTickCmd()
		}
		m.toastTicking = false
		return m, nil

	case spinner.TickMsg:
		var cmd1, cmd2 tea.Cmd
		m.repoForm, cmd1 = m.repoForm.Update(msg)
		m.queryForm, cmd2 = m.queryForm.Update(msg)
		return m, tea.Batch(cmd1, cmd2)
	}

	// Cursor blinks and anything else go to both forms; each input ignores
	// messages addressed to another.
	var cmd1, cmd2 tea.Cmd
	m.repoForm, cmd1 = m.repoForm.Update(msg)
	m.queryForm, cmd2 = m.queryForm.Update(msg)
	return m, tea.Batch(cmd1, cmd2)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.answer.Stop()
		m.cancel()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextField):
		return m, m.cycleFocus(1)

	case key.Matches(msg, m.keys.PrevField):
		return m, m.cycleFocus(-1)

	case key.Matches(msg, m.keys.Skip):
		m.answer.Skip()
		return m, nil

	case key.Matches(msg, m.keys.NewRepo):
		return m, m.newRepo()

	case key.Matches(msg, m.keys.Submit):
		if m.focus == focusQuestion {
			return m, m.queryForm.Submit(m.repoURL)
		}
		return m, m.repoForm.Submit()
	}

	var cmd tea.Cmd
	if m.focus == focusQuestion {
		m.queryForm, cmd = m.queryForm.Update(msg)
	} else {
		m.repoForm, cmd = m.repoForm.Update(msg)
	}
	return m, cmd
}

// focusOrder lists the focusable inputs. The question only exists once a
// repository is indexed.
func (m Model) focusOrder() []focusArea {
	if m.repoURL == "" {
		return []focusArea{focusRepoURL, focusBranch}
	}
	return []focusArea{focusRepoURL, focusBranch, focusQuestion}
}

func (m *Model) cycleFocus(step int) tea.Cmd {
	order := m.focusOrder()
	idx := 0
	for i, f := range order {
		if f == m.focus {
			idx = i
			break
		}
	}
	idx = (idx + step + len(order)) % len(order)
	return m.setFocus(order[idx])
}

func (m *Model) setFocus(area focusArea) tea.Cmd {
	if area == focusQuestion && m.repoURL == "" {
		area = focusRepoURL
	}
	m.focus = area

	switch area {
	case focusQuestion:
		m.repoForm.Blur()
		return m.queryForm.Focus()
	case focusBranch:
		m.queryForm.Blur()
		return m.repoForm.FocusBranch()
	default:
		m.queryForm.Blur()
		return m.repoForm.FocusURL()
	}
}

// newRepo forgets the active repository so another can be indexed.
func (m *Model) newRepo() tea.Cmd {
	m.repoURL = ""
	m.repoName = ""
	m.answer.Clear()
	m.queryForm.Reset()
	m.repoForm.Reset()
	m.header.SetRepo("")
	return m.setFocus(focusRepoURL)
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleRepoIndexed(msg RepoIndexedMsg) (tea.Model, tea.Cmd) {
	m.repoURL = msg.RepoURL
	m.repoName = msg.Repo
	m.answer.Clear()
	m.header.SetRepo(msg.Repo)
	return m, m.setFocus(focusQuestion)
}

func (m Model) handleAnswer(msg AnswerMsg) (tea.Model, tea.Cmd) {
	// A repository switch while the query was in flight makes it stale.
	if msg.RepoURL != m.repoURL {
		return m, nil
	}

	cmds := []tea.Cmd{m.answer.SetAnswer(msg)}

	if m.history != nil && msg.Err == nil && m.cfg.History.Enabled {
		entry := storage.Entry{
			RepoURL:    msg.RepoURL,
			Repo:       backend.RepoName(msg.RepoURL),
			Question:   msg.Question,
			Answer:     msg.Answer,
			Sources:    append([]string{}, msg.Sources...),
			K:          msg.K,
			DurationMs: msg.Elapsed.Milliseconds(),
			CreatedAt:  time.Now(),
		}
		cmds = append(cmds, recordHistoryCmd(m.ctx, m.history, entry))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleBackendStatus(msg BackendStatusMsg) (tea.Model, tea.Cmd) {
	url := msg.BaseURL
	if url == "" && m.client != nil {
		url = m.client.BaseURL()
	}
	if msg.Running {
		m.backendState = components.BackendOnline
		m.header.SetBackend(url, m.backendState)
		return m, nil
	}

	m.backendState = components.BackendOffline
	m.header.SetBackend(url, m.backendState)
	log.Printf("chat: backend at %s not reachable: %v", url, msg.Err)

	text := "backend offline at " + url
	if msg.Err != nil && !backend.IsNotRunning(msg.Err) {
		text = "backend check failed: " + backend.Describe(msg.Err)
	}
	return m, m.addToast(components.ToastKindWarning, text)
}

func (m Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	next := WaitForConfigReload(m.reloads)

	if msg.Err != nil || msg.Config == nil {
		log.Printf("chat: config reload failed: %v", msg.Err)
		text := "config reload failed"
		if msg.Err != nil {
			text += ": " + msg.Err.Error()
		}
		return m, tea.Batch(next, m.addToast(components.ToastKindWarning, text))
	}

	oldURL := ""
	if m.client != nil {
		oldURL = m.client.BaseURL()
	}
	m.applyConfig(msg.Config)

	cmds := []tea.Cmd{next, m.addToast(components.ToastKindStatus, "config reloaded")}
	if setter, ok := m.client.(baseURLSetter); ok {
		setter.SetBaseURL(msg.Config.Backend.APIBaseURL)
		if m.client.BaseURL() != oldURL {
			m.backendState = components.BackendUnknown
			m.header.SetBackend(m.client.BaseURL(), m.backendState)
			cmds = append(cmds, CheckBackendCmd(m.ctx, m.client))
		}
	}
	return m, tea.Batch(cmds...)
}

// addToast shows a notice, starting the expiry ticker if it is idle.
func (m *Model) addToast(kind components.ToastKind, text string) tea.Cmd {
	m.toasts.Add(components.NewToast(kind, text))
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

func (m *Model) handleResize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.header.SetWidth(width)
	m.helpBar.SetWidth(width)
	m.repoForm.SetWidth(width)
	m.queryForm.SetWidth(width)
	m.answer.SetWidth(width)
}
