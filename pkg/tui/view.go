// Package tui provides view rendering for the TUI dashboard.
package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/salahayoub/distdash/pkg/dashboard"
)

// BorderStyle defines the characters used for panel borders.
type BorderStyle struct {
	TopLeft     string
	TopRight    string
	BottomLeft  string
	BottomRight string
	Horizontal  string
	Vertical    string
}

// NormalBorder is the default border style for unfocused panels.
// Uses single-line box drawing characters (┌─┐│└┘).
var NormalBorder = BorderStyle{
	TopLeft:     "┌",
	TopRight:    "┐",
	BottomLeft:  "└",
	BottomRight: "┘",
	Horizontal:  "─",
	Vertical:    "│",
}

// FocusedBorder is the border style for focused panels with distinct styling.
// Uses double-line box drawing characters (╔═╗║╚╝).
var FocusedBorder = BorderStyle{
	TopLeft:     "╔",
	TopRight:    "╗",
	BottomLeft:  "╚",
	BottomRight: "╝",
	Horizontal:  "═",
	Vertical:    "║",
}

// Display limits
const (
	logDisplayLimit   = 8
	resultsRowLimit   = 10
	defaultPanelWidth = 78
)

// StyledLine is one output row with its style.
type StyledLine struct {
	Text  string
	Style tcell.Style
}

// View handles rendering the model to the terminal.
type View struct {
	header       *HeaderBar
	footer       *FooterBar
	nodesPanel   *NodesPanel
	actionsPanel *ActionsPanel
	logPanel     *OperationLogPanel
	resultsPanel *ResultsPanel
}

// NewView creates a new View with all panel renderers initialized.
func NewView() *View {
	return &View{
		header:       NewHeaderBar(true),
		footer:       NewFooterBar(defaultPanelWidth + 2),
		nodesPanel:   NewNodesPanel(),
		actionsPanel: NewActionsPanel(),
		logPanel:     NewOperationLogPanel(),
		resultsPanel: NewResultsPanel(),
	}
}

// RenderPanelWithBorder wraps panel content with a border at least minWidth
// columns of content wide. The border style depends on whether the panel has
// focus.
func RenderPanelWithBorder(content string, title string, focused bool, minWidth int) []string {
	border := NormalBorder
	if focused {
		border = FocusedBorder
	}

	lines := strings.Split(content, "\n")

	maxWidth := textWidth(title) + 4
	if minWidth > maxWidth {
		maxWidth = minWidth
	}
	for _, line := range lines {
		if w := textWidth(line); w > maxWidth {
			maxWidth = w
		}
	}
	maxWidth += 2

	out := make([]string, 0, len(lines)+2)

	var top strings.Builder
	top.WriteString(border.TopLeft)
	titlePadding := 2
	top.WriteString(strings.Repeat(border.Horizontal, titlePadding))
	top.WriteString(" ")
	top.WriteString(title)
	top.WriteString(" ")
	top.WriteString(strings.Repeat(border.Horizontal, maxWidth-titlePadding-textWidth(title)-2))
	top.WriteString(border.TopRight)
	out = append(out, top.String())

	for _, line := range lines {
		var sb strings.Builder
		sb.WriteString(border.Vertical)
		sb.WriteString(" ")
		sb.WriteString(line)
		if padding := maxWidth - textWidth(line) - 1; padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}
		sb.WriteString(border.Vertical)
		out = append(out, sb.String())
	}

	out = append(out, border.BottomLeft+strings.Repeat(border.Horizontal, maxWidth)+border.BottomRight)
	return out
}

// panelContent returns the title and body for panelType.
func (v *View) panelContent(panelType PanelType, model *Model) (string, string) {
	switch panelType {
	case PanelNodes:
		return PanelNodes.String(), v.nodesPanel.Render(model.State.Nodes, model.Frame)
	case PanelActions:
		return PanelActions.String(), v.actionsPanel.Render(model.Actions, model.Selected, model.IsBusy)
	case PanelLog:
		return PanelLog.String(), v.logPanel.Render(model.State.Operations, model.Now, logDisplayLimit)
	case PanelResults:
		body := v.resultsPanel.Render(model.State.View, model.ResultsScroll, resultsRowLimit)
		if model.ErrorMessage != "" && model.State.View.LastError == nil {
			body = "Error: " + model.ErrorMessage + "\n" + body
		}
		return PanelResults.String(), body
	}
	return "Unknown", "Unknown panel type"
}

// visiblePanels lists the panels drawn for model. The log panel appears once
// the first operation has been recorded.
func visiblePanels(model *Model) []PanelType {
	panels := []PanelType{PanelNodes, PanelActions}
	if model.State.LogVisible {
		panels = append(panels, PanelLog)
	}
	return append(panels, PanelResults)
}

// Lines renders the model as styled rows for a terminal width columns wide.
func (v *View) Lines(model *Model, width int) []StyledLine {
	styles := CurrentStyles
	panelWidth := defaultPanelWidth
	if width > 4 && width-4 < panelWidth {
		panelWidth = width - 4
	}
	v.footer.SetWidth(width)

	out := []StyledLine{
		{Text: v.header.Render(model.State.Nodes, model.Frame), Style: styles.Header},
	}
	if model.StatusMessage != "" {
		out = append(out, StyledLine{Text: model.StatusMessage, Style: styles.Muted})
	}

	for _, panel := range visiblePanels(model) {
		title, content := v.panelContent(panel, model)
		focused := model.ActivePanel == panel
		rows := RenderPanelWithBorder(content, title, focused, panelWidth)

		borderStyle := styles.Border
		if focused {
			borderStyle = styles.BorderFocus
		}
		for i, row := range rows {
			style := styles.Normal
			switch {
			case i == 0 || i == len(rows)-1:
				style = borderStyle
			case panel == PanelNodes && i-1 < len(model.State.Nodes):
				style = styles.ForNode(model.State.Nodes[i-1].Status)
			case strings.Contains(row, "Error"):
				style = styles.Error
			case strings.Contains(row, SymbolSelected):
				style = styles.Highlight
			case strings.Contains(row, SymbolRunning):
				style = styles.Warning
			}
			out = append(out, StyledLine{Text: row, Style: style})
		}
	}

	out = append(out, StyledLine{
		Text:  v.footer.Render(countReplication(model.Actions), model.ActivePanel == PanelResults),
		Style: styles.Muted,
	})
	return out
}

// Render returns the plain-text form of Lines.
func (v *View) Render(model *Model, width int) string {
	lines := v.Lines(model, width)
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func countReplication(actions []dashboard.Action) int {
	n := 0
	for _, a := range actions {
		if a.Variant == dashboard.VariantReplication {
			n++
		}
	}
	return n
}
