package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/apex-pos/api/internal/enum"
	"github.com/olekukonko/tablewriter"
)

var csvHeader = []string{
	"id", "data_fechamento", "mesa", "cliente", "responsavel", "valor_total", "pagamentos", "observacoes",
}

// WriteCSV writes one line per comanda of d. Payments are joined as
// "method:amount" pairs separated by ";".
func WriteCSV(w io.Writer, d *Daily) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range d.Comandas {
		if err := cw.Write([]string{
			c.ID.String(),
			c.DataFechamento.UTC().Format(time.RFC3339),
			mesaLabel(c.Mesa),
			c.CustomerName,
			c.ResponsavelName,
			c.ValorTotal.StringFixed(2),
			paymentsLabel(c.Payments),
			c.Observacoes,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderTables prints d as text tables: a summary followed by the per-method,
// per-staff and per-hour breakdowns.
func RenderTables(w io.Writer, d *Daily) error {
	summary := tablewriter.NewWriter(w)
	summary.Header("Data", "Comandas", "Total", "Ticket medio")
	if err := summary.Append([]string{
		d.Date,
		strconv.Itoa(d.TotalComandas),
		d.TotalGeral.StringFixed(2),
		d.TicketMedio.StringFixed(2),
	}); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}

	methods := tablewriter.NewWriter(w)
	methods.Header("Forma de pagamento", "Total", "%")
	for _, m := range d.PorPagamento {
		if err := methods.Append([]string{m.Method, m.Total.StringFixed(2), fmt.Sprintf("%.2f", m.Percentage)}); err != nil {
			return err
		}
	}
	if err := methods.Render(); err != nil {
		return err
	}

	staff := tablewriter.NewWriter(w)
	staff.Header("Responsavel", "Comandas", "Total", "Ticket medio")
	for _, s := range d.PorResponsavel {
		if err := staff.Append([]string{s.Name, strconv.Itoa(s.Count), s.Total.StringFixed(2), s.AverageTicket.StringFixed(2)}); err != nil {
			return err
		}
	}
	if err := staff.Render(); err != nil {
		return err
	}

	hours := tablewriter.NewWriter(w)
	hours.Header("Hora", "Comandas", "Total")
	for _, h := range d.PorHora {
		if err := hours.Append([]string{h.Hour, strconv.Itoa(h.Count), h.Total.StringFixed(2)}); err != nil {
			return err
		}
	}
	return hours.Render()
}

// RenderComandas prints a list of comandas as a table.
func RenderComandas(w io.Writer, comandas []Comanda) error {
	t := tablewriter.NewWriter(w)
	t.Header("Fechamento", "Mesa", "Responsavel", "Total", "Pagamentos")
	for _, c := range comandas {
		if err := t.Append([]string{
			c.DataFechamento.UTC().Format("2006-01-02 15:04"),
			mesaLabel(c.Mesa),
			c.ResponsavelName,
			c.ValorTotal.StringFixed(2),
			paymentsLabel(c.Payments),
		}); err != nil {
			return err
		}
	}
	return t.Render()
}

func mesaLabel(n int32) string {
	if n == 0 {
		return enum.CounterLabel
	}
	return strconv.Itoa(int(n))
}

func paymentsLabel(payments []Payment) string {
	parts := make([]string, len(payments))
	for i, p := range payments {
		parts[i] = p.Method + ":" + p.Amount.StringFixed(2)
	}
	return strings.Join(parts, ";")
}
