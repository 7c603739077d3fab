package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// CSVFormatter writes each tabular section of the report as a CSV block;
// blocks are separated by an empty line.
type CSVFormatter struct{}

func (c CSVFormatter) Name() string { return "csv" }

func (c CSVFormatter) Format(report *Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	var blocks [][][]string
	if report.Tax != nil {
		blocks = append(blocks, taxRows(report))
	}
	if len(report.TaxScenarios) > 0 {
		rows := [][]string{{"Taxable Income", "Federal Tax", "Marginal Rate", "Effective Rate"}}
		for _, s := range report.TaxScenarios {
			rows = append(rows, []string{s.TaxableIncome.String(), s.Result.TotalTax.String(),
				s.Result.MarginalRate.String(), s.Result.EffectiveRate.StringFixed(4)})
		}
		blocks = append(blocks, rows)
	}
	if len(report.Limits) > 0 {
		rows := [][]string{{"Account", "Type", "Base Limit", "Catch-Up", "Total Limit", "Contributed", "Available Room", "Unlimited", "Limit Group"}}
		for _, id := range sortedKeys(report.Limits) {
			l := report.Limits[id]
			rows = append(rows, []string{id, string(l.AccountType), l.BaseLimit.String(), l.CatchUpLimit.String(),
				l.TotalLimit.String(), l.ContributedToDate.String(), l.AvailableRoom.String(),
				strconv.FormatBool(l.Unlimited), l.LimitGroup})
		}
		blocks = append(blocks, rows)
	}
	if a := report.Allocation; a != nil {
		rows := [][]string{{"Account", "Contribution", "Employer Match"}}
		for _, id := range sortedKeys(a.AllocationByAccount) {
			rows = append(rows, []string{id, a.AllocationByAccount[id].String(), a.EmployerMatchByAccount[id].String()})
		}
		rows = append(rows, []string{"TOTAL", a.TotalContribution.String(), a.EmployerMatchCaptured.String()})
		blocks = append(blocks, rows)
	}
	if len(report.Projection) > 0 {
		blocks = append(blocks, projectionRows(report))
	}
	if s := report.Roth; s != nil {
		rows := [][]string{{"Year", "Age", "Taxable Income Before", "Amount", "Tax Cost", "Marginal Rate After", "Remaining Balance"}}
		for _, step := range s.Ladder {
			rows = append(rows, []string{strconv.Itoa(step.Year), strconv.Itoa(step.Age), step.TaxableIncomeBefore.String(),
				step.Amount.String(), step.TaxCost.String(), step.MarginalRateAfter.String(), step.RemainingBalance.String()})
		}
		blocks = append(blocks, rows)
	}
	if l := report.Location; l != nil {
		rows := [][]string{{"Asset Class", "From", "To", "Amount", "Tax Drag Rate", "Estimated Tax Savings"}}
		for _, r := range l.Recommendations {
			rows = append(rows, []string{r.AssetClass, r.FromAccount, r.ToAccount, r.Amount.String(),
				r.TaxDragRate.String(), r.EstimatedTaxSavings.String()})
		}
		blocks = append(blocks, rows)
	}

	for i, rows := range blocks {
		if i > 0 {
			if err := w.Write([]string{}); err != nil {
				return nil, err
			}
		}
		if err := w.WriteAll(rows); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func taxRows(report *Report) [][]string {
	t := report.Tax
	rows := [][]string{{"Component", "Amount"},
		{"Gross Income", t.GrossIncome.String()},
		{"Standard Deduction", t.StandardDeduction.String()},
		{"Taxable Income", t.Federal.TaxableIncome.String()},
		{"Federal Tax", t.Federal.TotalTax.String()},
	}
	if t.State != nil {
		rows = append(rows, []string{"State Tax " + t.StateCode, t.State.TotalTax.String()})
	}
	return append(rows, []string{"Total Tax", t.TotalTax.String()})
}

func projectionRows(report *Report) [][]string {
	ids := accountIDs(report.Projection)
	header := []string{"Year", "Age", "Contributions", "Employer Match", "RMD", "Withdrawals", "Conversions",
		"Taxable Income", "Taxes Paid", "Net Worth", "After-Tax Value"}
	for _, id := range ids {
		header = append(header, "Balance "+id)
	}
	rows := [][]string{header}
	for _, r := range report.Projection {
		row := []string{strconv.Itoa(r.Year), strconv.Itoa(r.Age), r.TotalContributions.String(), r.EmployerMatch.String(),
			r.RMD.String(), r.TotalWithdrawals.String(), r.Conversions.String(), r.TaxableIncome.String(),
			r.TaxesPaid.String(), r.NetWorth.String(), r.AfterTaxValue.String()}
		for _, id := range ids {
			row = append(row, r.Balances[id].String())
		}
		rows = append(rows, row)
	}
	return rows
}
