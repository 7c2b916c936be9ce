package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"dompet/internal/core"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

type painter struct{ enabled bool }

func (p painter) paint(code, s string) string {
	if !p.enabled {
		return s
	}
	return code + s + ansiReset
}

// RenderLedger writes the balance header and one line per row.
func RenderLedger(w io.Writer, l core.Ledger, color bool) {
	p := painter{enabled: color}

	balanceColor := ansiBold
	if l.BalanceNegative {
		balanceColor = ansiBold + ansiRed
	}
	fmt.Fprintln(w, p.paint(balanceColor, l.Balance))
	fmt.Fprintln(w, strings.Repeat("─", 48))

	if len(l.Rows) == 0 {
		fmt.Fprintln(w, p.paint(ansiDim, "No transactions yet."))
		return
	}

	nameWidth := 0
	amountWidth := 0
	for _, r := range l.Rows {
		nameWidth = max(nameWidth, utf8.RuneCountInString(r.Name))
		amountWidth = max(amountWidth, utf8.RuneCountInString(r.Amount))
	}

	for _, r := range l.Rows {
		amountColor := ansiGreen
		if r.Expense {
			amountColor = ansiRed
		}
		fmt.Fprintf(w, "%s  %s  %s\n",
			pad(r.Name, nameWidth),
			p.paint(amountColor, padLeft(r.Amount, amountWidth)),
			p.paint(ansiDim, r.When))
		if r.Description != "" {
			fmt.Fprintf(w, "  %s\n", p.paint(ansiDim, r.Description))
		}
	}
}

func pad(s string, width int) string {
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}

func padLeft(s string, width int) string {
	return strings.Repeat(" ", width-utf8.RuneCountInString(s)) + s
}
