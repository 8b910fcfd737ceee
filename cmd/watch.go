// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/heatlink/heatlink/heatproto"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live terminal dashboard of the telemetry snapshot and participant registry",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	decoder, source, closeConn, err := openDecoder()
	if err != nil {
		return err
	}
	defer closeConn()

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	participantList := list.New([]list.Item{}, delegate, 30, 8)
	participantList.Title = "Participants"
	participantList.SetShowStatusBar(false)
	participantList.SetShowHelp(false)

	m := watchModel{
		decoder:         decoder,
		source:          source,
		protocol:        flagProtocol,
		eventLog:        make([]watchEvent, 0),
		maxLog:          100,
		participantList: participantList,
		width:           80,
		height:          24,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// participantItem adapts a heatproto.Participant to list.Item so the
// registry can be browsed the same way the teacher's control TUI browses
// its discovered-device list.
type participantItem struct {
	heatproto.Participant
}

func (p participantItem) Title() string {
	name := p.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("0x%04X  %s", p.Address, name)
}

func (p participantItem) Description() string {
	kind := "manual"
	if p.AutoDetected {
		kind = "auto"
	}
	return fmt.Sprintf("T:%d P:%d R:%d  %s", p.TempChannels, p.PumpChannels, p.RelayChannels, kind)
}

func (p participantItem) FilterValue() string { return p.Name }

type watchEvent struct {
	at      time.Time
	message string
	isError bool
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// watchModel is the Bubble Tea model driving `heatctl watch`: each tick
// both advances the decoder's state machine and refreshes the rendered
// snapshot, mirroring how the teacher's TUI drives its own stats model
// from a tickMsg loop.
type watchModel struct {
	decoder         *heatproto.Decoder
	source          *streamSource
	protocol        string
	eventLog        []watchEvent
	maxLog          int
	participantList list.Model
	width           int
	height          int
	quitting        bool
	lastErr         heatproto.ErrorKind
}

func (m watchModel) Init() tea.Cmd {
	return tickCmd()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height / 3
		if listHeight < 5 {
			listHeight = 5
		}
		m.participantList.SetSize(30, listHeight)
	case tickMsg:
		for i := 0; i < 20; i++ {
			m.decoder.Tick()
		}
		if kind := m.decoder.LastErrorKind(); kind != heatproto.ErrorNone && kind != m.lastErr {
			m.addEvent(fmt.Sprintf("decode error: %s", kind), true)
		}
		m.lastErr = m.decoder.LastErrorKind()
		if err := m.source.connErr(); err != nil {
			m.addEvent(fmt.Sprintf("connection: %v", err), true)
			return m, tea.Quit
		}
		m.refreshParticipants()
		return m, tickCmd()
	}

	var cmd tea.Cmd
	m.participantList, cmd = m.participantList.Update(msg)
	return m, cmd
}

func (m *watchModel) refreshParticipants() {
	items := make([]list.Item, m.decoder.ParticipantCount())
	for i := range items {
		p, ok := m.decoder.Participant(i)
		if !ok {
			continue
		}
		items[i] = participantItem{p}
	}
	m.participantList.SetItems(items)
}

func (m *watchModel) addEvent(message string, isError bool) {
	m.eventLog = append(m.eventLog, watchEvent{at: time.Now(), message: message, isError: isError})
	if len(m.eventLog) > m.maxLog {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLog:]
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Background(lipgloss.Color("235")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("HEATCTL - " + strings.ToUpper(m.protocol)))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("Press 'q' to quit"))
	s.WriteString("\n\n")

	if !m.decoder.IsReady() {
		s.WriteString(warnStyle.Render("waiting for a valid frame..."))
		s.WriteString("\n\n")
	} else {
		s.WriteString(valueStyle.Render(fmt.Sprintf("decoding %s, state=%s, bus_ok=%v", m.decoder.Protocol(), m.decoder.State(), m.decoder.BusOK())))
		s.WriteString("\n\n")
	}

	var body strings.Builder
	for i := uint8(0); i < m.decoder.TempNum(); i++ {
		body.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("T%d:", i)), valueStyle.Render(fmt.Sprintf("%.1f C", m.decoder.Temp(i)))))
	}
	for i := uint8(0); i < m.decoder.PumpNum(); i++ {
		body.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("Pump %d:", i)), valueStyle.Render(fmt.Sprintf("%d%%", m.decoder.Pump(i)))))
	}
	for i := uint8(0); i < m.decoder.RelayNum(); i++ {
		body.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("Relay %d:", i)), valueStyle.Render(fmt.Sprintf("%v", m.decoder.Relay(i)))))
	}
	if body.Len() == 0 {
		body.WriteString(headerStyle.Render("(no channels yet)"))
	}
	s.WriteString(boxStyle.Render(body.String()))
	s.WriteString("\n\n")

	s.WriteString(m.participantList.View())
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Recent events:"))
	s.WriteString("\n")
	logHeight := m.height - 24
	if logHeight < 3 {
		logHeight = 3
	}
	var log strings.Builder
	start := len(m.eventLog) - logHeight
	if start < 0 {
		start = 0
	}
	if len(m.eventLog) == 0 {
		log.WriteString(headerStyle.Render("(no events yet)"))
	} else {
		for i := start; i < len(m.eventLog); i++ {
			e := m.eventLog[i]
			ts := e.at.Format("15:04:05.000")
			if e.isError {
				log.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(ts), errorStyle.Render("x "+e.message)))
			} else {
				log.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(ts), warnStyle.Render("- "+e.message)))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(log.String()))

	return s.String()
}
