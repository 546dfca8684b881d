package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/cleanup"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/config"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/salesforce"
)

func WriteOrgTable(w io.Writer, orgs []config.Org) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INSTANCE\tPOLICY\tFLOWS\tPORT\tPROD_CHECK")
	for _, o := range orgs {
		flows := "-"
		if len(o.FlowNames) > 0 {
			flows = summarizeNames(o.FlowNames)
		}
		prodCheck := "on"
		if o.SkipProductionCheck {
			prodCheck = "off"
		} else if o.AutoConfirmProduction {
			prodCheck = "auto-confirm"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", o.Instance, o.Policy, flows, o.CallbackPort, prodCheck)
	}
	_ = tw.Flush()
}

func WriteVersionTable(w io.Writer, versions []salesforce.FlowVersion) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FLOW\tVERSION\tSTATUS")
	for _, v := range versions {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", v.APIName, v.VersionNumber, v.Status)
	}
	_ = tw.Flush()
}

func WriteVersionTableWide(w io.Writer, versions []salesforce.FlowVersion) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tFLOW\tLABEL\tVERSION\tSTATUS\tDEFINITION_ID")
	for _, v := range versions {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", v.ID, v.APIName, v.Label, v.VersionNumber, v.Status, v.DefinitionID)
	}
	_ = tw.Flush()
}

func WriteResultTable(w io.Writer, results []cleanup.RunResult) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INSTANCE\tSTATUS\tDELETED\tFAILED\tSKIPPED\tDETAIL")
	for _, r := range results {
		status := "ok"
		detail := "-"
		switch {
		case r.Failed():
			status = "error"
			detail = r.Error
		case r.Skipped:
			status = "skipped"
			detail = r.SkipReason
		}
		s := r.Summary()
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.Instance, status, s.Deleted, s.Failed, s.Skipped, detail)
	}
	_ = tw.Flush()
}

func WriteRecordTable(w io.Writer, records []cleanup.DeletionRecord) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FLOW\tVERSION\tOUTCOME\tREASON")
	for _, rec := range records {
		reason := rec.Reason
		if reason == "" {
			reason = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", rec.Flow.APIName, rec.Flow.VersionNumber, rec.Outcome, reason)
	}
	_ = tw.Flush()
}

func summarizeNames(names []string) string {
	if len(names) <= 2 {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, +%d more", names[0], len(names)-1)
}
