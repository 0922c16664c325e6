package evaluate

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Render formats the evaluation result as console tables: one summary row
// per threshold, then a confusion matrix per threshold.
func Render(result *Result) string {
	printer := message.NewPrinter(language.English)

	var b strings.Builder
	fmt.Fprintf(&b, "Scored %s validation samples\n\n", printer.Sprintf("%d", result.Samples))

	summary := table.NewWriter()
	summary.SetStyle(table.StyleRounded)
	summary.AppendHeader(table.Row{"Threshold", "Accuracy", "Precision", "Recall"})
	for _, r := range result.Reports {
		summary.AppendRow(table.Row{
			fmt.Sprintf("%.2f", r.Threshold),
			fmt.Sprintf("%.4f", r.Accuracy),
			fmt.Sprintf("%.4f", r.Precision),
			fmt.Sprintf("%.4f", r.Recall),
		})
	}
	summary.SetColumnConfigs(numericColumns(4))
	b.WriteString(summary.Render())
	b.WriteString("\n")

	for _, r := range result.Reports {
		fmt.Fprintf(&b, "\nConfusion matrix at threshold %.2f\n", r.Threshold)
		matrix := table.NewWriter()
		matrix.SetStyle(table.StyleRounded)
		matrix.AppendHeader(table.Row{"", "Predicted negative", "Predicted positive"})
		matrix.AppendRow(table.Row{
			"Actual negative",
			printer.Sprintf("%d", r.Confusion.TrueNegative),
			printer.Sprintf("%d", r.Confusion.FalsePositive),
		})
		matrix.AppendRow(table.Row{
			"Actual positive",
			printer.Sprintf("%d", r.Confusion.FalseNegative),
			printer.Sprintf("%d", r.Confusion.TruePositive),
		})
		matrix.SetColumnConfigs(numericColumns(3))
		b.WriteString(matrix.Render())
		b.WriteString("\n")
	}
	return b.String()
}

func numericColumns(count int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, count)
	for i := 2; i <= count; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	return configs
}
