package runner

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mikey/placement-triage/internal/core"
)

// Printer writes a human-readable account of classified records
type Printer struct {
	out     io.Writer
	verbose bool
}

// NewPrinter creates a new printer
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose}
}

// PrintRecord prints one classified record
func (p *Printer) PrintRecord(record *core.ClassifiedRecord) {
	if p == nil {
		return
	}

	fmt.Fprintf(p.out, "------------------------------------------------------------\n")
	fmt.Fprintf(p.out, "Subject: %s\n", record.Subject)
	fmt.Fprintf(p.out, "From: %s\n", record.From)
	fmt.Fprintf(p.out, "Label: %s (score=%.2f)\n", record.Label, record.Score)

	reasons := "none"
	if len(record.Reasons) > 0 {
		reasons = strings.Join(record.Reasons, "; ")
	}
	fmt.Fprintf(p.out, "Reasons: %s\n", reasons)

	if p.verbose && record.LLM != nil {
		deadline := "none"
		if record.LLM.Deadline != nil {
			deadline = *record.LLM.Deadline
		}
		fmt.Fprintf(p.out, "LLM: category=%s urgency=%s action=%s deadline=%s\n",
			record.LLM.Category, record.LLM.Urgency, record.LLM.ActionRequired, deadline)
		if len(record.LLM.Companies) > 0 {
			fmt.Fprintf(p.out, "Companies: %s\n", strings.Join(record.LLM.Companies, ", "))
		}
	}

	fmt.Fprintf(p.out, "Message ID: %s\n", record.ID)
	fmt.Fprintf(p.out, "------------------------------------------------------------\n\n")
}

// PrintSummary prints the totals of a batch run
func (p *Printer) PrintSummary(summary *Summary) {
	if p == nil {
		return
	}

	if summary.Fetched == 0 {
		fmt.Fprintf(p.out, "No messages to process.\n")
		return
	}
	if summary.Classified == 0 {
		fmt.Fprintf(p.out, "No new messages were processed.\n")
	} else {
		fmt.Fprintf(p.out, "Processed and saved %d messages.\n", summary.Classified)
	}

	labels := make([]string, 0, len(summary.ByLabel))
	for label := range summary.ByLabel {
		labels = append(labels, string(label))
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(p.out, "  %-12s %d\n", label, summary.ByLabel[core.Label(label)])
	}

	if summary.Skipped > 0 {
		fmt.Fprintf(p.out, "Skipped (already processed): %d\n", summary.Skipped)
	}
	if summary.Failed > 0 {
		fmt.Fprintf(p.out, "Failed: %d\n", summary.Failed)
	}
}
