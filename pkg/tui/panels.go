// Package tui provides panel renderers for the TUI dashboard.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rivo/uniseg"

	"github.com/salahayoub/distdash/pkg/dashboard"
	"github.com/salahayoub/distdash/pkg/nodes"
	"github.com/salahayoub/distdash/pkg/oplog"
	"github.com/salahayoub/distdash/pkg/types"
	"github.com/salahayoub/distdash/pkg/view"
)

// Status symbols
const (
	SymbolOnline    = "●"
	SymbolOffline   = "○"
	SymbolCompleted = "✓"
	SymbolRunning   = "⟳"
	SymbolSelected  = "▶"
)

// syncFrames animates a syncing node.
var syncFrames = []string{"◐", "◓", "◑", "◒"}

// maxCellWidth truncates long table cells.
const maxCellWidth = 28

// NodesPanel renders one status card line per node.
type NodesPanel struct{}

// NewNodesPanel creates a new NodesPanel.
func NewNodesPanel() *NodesPanel {
	return &NodesPanel{}
}

// NodeSymbol returns the status glyph for a node at the given animation frame.
func NodeSymbol(status nodes.Status, frame int) string {
	switch status {
	case nodes.StatusOnline:
		return SymbolOnline
	case nodes.StatusSyncing:
		if frame < 0 {
			frame = -frame
		}
		return syncFrames[frame%len(syncFrames)]
	default:
		return SymbolOffline
	}
}

// Render outputs the node status panel content.
func (p *NodesPanel) Render(list []nodes.Node, frame int) string {
	if len(list) == 0 {
		return "Sin nodos"
	}

	var sb strings.Builder
	for i, n := range list {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s %s  %s  %s  %d registros",
			NodeSymbol(n.Status, frame),
			padRight(n.Name, 10),
			padRight(n.DBMS, 14),
			padRight(string(n.Status), 8),
			n.Records))
	}
	return sb.String()
}

// ActionsPanel renders the selectable action list.
type ActionsPanel struct{}

// NewActionsPanel creates a new ActionsPanel.
func NewActionsPanel() *ActionsPanel {
	return &ActionsPanel{}
}

// Render outputs the action list with the cursor on selected. Replication
// actions are numbered to match their shortcut keys.
func (p *ActionsPanel) Render(actions []dashboard.Action, selected int, busy func(id string) bool) string {
	var sb strings.Builder
	replicationNum := 0
	lastVariant := dashboard.Variant("")

	for i, a := range actions {
		if a.Variant != lastVariant {
			if i > 0 {
				sb.WriteString("\n")
			}
			switch a.Variant {
			case dashboard.VariantFragmentation:
				sb.WriteString("Fragmentación de Datos\n")
			case dashboard.VariantReplication:
				sb.WriteString("Replicación de Datos\n")
			}
			lastVariant = a.Variant
		}

		cursor := "  "
		if i == selected {
			cursor = SymbolSelected + " "
		}

		key := ""
		switch {
		case a.ID == dashboard.ActionHorizontal:
			key = "h"
		case a.ID == dashboard.ActionVertical:
			key = "v"
		case a.Variant == dashboard.VariantReplication:
			replicationNum++
			key = strconv.Itoa(replicationNum)
		}

		sb.WriteString(fmt.Sprintf("%s[%s] %s", cursor, key, a.Title))
		if busy != nil && busy(a.ID) {
			sb.WriteString(" " + SymbolRunning)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// OperationLogPanel renders the operation log, most recent first.
type OperationLogPanel struct {
	progress *ProgressBar
}

// NewOperationLogPanel creates a new OperationLogPanel.
func NewOperationLogPanel() *OperationLogPanel {
	return &OperationLogPanel{progress: NewProgressBar(10)}
}

// Render outputs up to limit operations. Running operations show how far
// they are through the completion delay as of now.
func (p *OperationLogPanel) Render(ops []oplog.Operation, now time.Time, limit int) string {
	if len(ops) == 0 {
		return "Sin operaciones"
	}
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}

	var sb strings.Builder
	for i, op := range ops {
		if i > 0 {
			sb.WriteString("\n")
		}
		symbol := SymbolCompleted
		if op.Status != oplog.StatusCompleted {
			symbol = SymbolRunning
		}
		sb.WriteString(fmt.Sprintf("%s [%s] %s: %s", symbol, op.DisplayTime(), op.Category, op.Description))
		if op.Status == oplog.StatusRunning && !now.IsZero() {
			pct := CalculatePercentage(now.Sub(op.Timestamp), oplog.CompletionDelay)
			sb.WriteString("  " + p.progress.Render(pct))
		}
		if op.Detail != "" {
			for _, line := range strings.Split(op.Detail, "\n") {
				sb.WriteString("\n    " + line)
			}
		}
	}
	return sb.String()
}

// ResultsPanel renders the active dataset, or the last error.
type ResultsPanel struct{}

// NewResultsPanel creates a new ResultsPanel.
func NewResultsPanel() *ResultsPanel {
	return &ResultsPanel{}
}

// Render outputs the dataset selected in st. scroll skips leading data rows
// and maxRows caps the rows per table (0 means no cap).
func (p *ResultsPanel) Render(st view.State, scroll, maxRows int) string {
	var sb strings.Builder
	if st.LastError != nil {
		sb.WriteString(fmt.Sprintf("Error [%s %s]: %s\n",
			st.LastError.Kind, st.LastError.At.Format("15:04:05"), st.LastError.Message))
	}

	switch {
	case st.Renders(view.KindEmployees):
		sb.WriteString(fmt.Sprintf("Empleados (%d)\n", len(st.Employees)))
		sb.WriteString(renderTable(employeeHeaders, employeeRows(st.Employees), scroll, maxRows))
	case st.Renders(view.KindClients):
		sb.WriteString(fmt.Sprintf("Clientes (%d)\n", len(st.Clients)))
		sb.WriteString(renderTable(clientHeaders, clientRows(st.Clients), scroll, maxRows))
	case st.Renders(view.KindPromotions):
		sb.WriteString(fmt.Sprintf("%s (%d)\n", st.BeforeTitle, len(st.PromotionsBefore)))
		sb.WriteString(renderTable(promotionHeaders, promotionRows(st.PromotionsBefore), scroll, maxRows))
		sb.WriteString(fmt.Sprintf("\n%s (%d)\n", st.AfterTitle, len(st.PromotionsAfter)))
		sb.WriteString(renderTable(promotionHeaders, promotionRows(st.PromotionsAfter), scroll, maxRows))
	case st.Renders(view.KindMovies):
		sb.WriteString(fmt.Sprintf("%s (%d)\n", st.BeforeTitle, len(st.MoviesBefore)))
		sb.WriteString(renderTable(movieHeaders, movieRows(st.MoviesBefore), scroll, maxRows))
		sb.WriteString(fmt.Sprintf("\n%s (%d)\n", st.AfterTitle, len(st.MoviesAfter)))
		sb.WriteString(renderTable(movieHeaders, movieRows(st.MoviesAfter), scroll, maxRows))
	case st.Kind == view.KindEmployees || st.Kind == view.KindClients:
		sb.WriteString("La consulta no devolvió registros")
	default:
		sb.WriteString("Seleccione una acción para ver datos")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

var (
	employeeHeaders  = []string{"ID", "Nombre", "Apellido", "Cargo", "Ciudad", "Salario", "Contratación", "Contacto"}
	clientHeaders    = []string{"ID", "Nombre", "Apellido", "Email", "Teléfono", "Dirección", "Ciudad", "Creación"}
	promotionHeaders = []string{"ID", "Código", "Descripción", "Descuento", "Creación", "Ciudad"}
	movieHeaders     = []string{"ID", "Título", "Género", "Director", "Clasificación", "Creación"}
)

func employeeRows(in []types.Employee) [][]string {
	out := make([][]string, 0, len(in))
	for _, e := range in {
		out = append(out, []string{string(e.ID), e.FirstName, e.LastName, e.Role, e.StoreCity,
			strconv.FormatFloat(e.Salary, 'f', 2, 64), e.HireDate, e.EmergencyContact})
	}
	return out
}

func clientRows(in []types.Client) [][]string {
	out := make([][]string, 0, len(in))
	for _, c := range in {
		out = append(out, []string{string(c.ID), c.FirstName, c.LastName, c.Email, c.Phone,
			c.Address, c.RegistrationCity, c.CreatedAt})
	}
	return out
}

func promotionRows(in []types.Promotion) [][]string {
	out := make([][]string, 0, len(in))
	for _, pr := range in {
		out = append(out, []string{string(pr.ID), pr.Code, pr.Description,
			strconv.FormatFloat(pr.DiscountPercent, 'f', -1, 64) + "%", pr.CreatedAt, pr.City})
	}
	return out
}

func movieRows(in []types.Movie) [][]string {
	out := make([][]string, 0, len(in))
	for _, m := range in {
		out = append(out, []string{string(m.ID), m.Title, m.Genre, m.Director, m.Rating, m.CreatedAt})
	}
	return out
}

// renderTable lays rows out in aligned columns under headers.
func renderTable(headers []string, rows [][]string, scroll, maxRows int) string {
	if len(rows) == 0 {
		return "  (sin registros)\n"
	}
	if scroll >= len(rows) {
		scroll = len(rows) - 1
	}
	if scroll > 0 {
		rows = rows[scroll:]
	}
	hidden := 0
	if maxRows > 0 && len(rows) > maxRows {
		hidden = len(rows) - maxRows
		rows = rows[:maxRows]
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = textWidth(h)
	}
	for _, row := range rows {
		for i := range headers {
			if i < len(row) {
				if w := textWidth(truncate(row[i], maxCellWidth)); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = truncate(cells[i], maxCellWidth)
			}
			if i > 0 {
				sb.WriteString(" │ ")
			}
			sb.WriteString(padRight(cell, widths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("─┼─")
		}
		sb.WriteString(strings.Repeat("─", w))
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	if hidden > 0 || scroll > 0 {
		sb.WriteString(fmt.Sprintf("  … %d filas ocultas (↑/↓ en Resultados)\n", hidden+scroll))
	}
	return sb.String()
}

// textWidth counts terminal display columns; wide runes take two.
func textWidth(s string) int {
	return uniseg.StringWidth(s)
}

func padRight(s string, width int) string {
	if n := textWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func truncate(s string, max int) string {
	if textWidth(s) <= max {
		return s
	}
	var sb strings.Builder
	width := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if width+w > max-1 {
			break
		}
		sb.WriteString(g.Str())
		width += w
	}
	return sb.String() + "…"
}
