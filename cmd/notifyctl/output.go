package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/opensearch-project/notifications-sub002/internal/dispatch"
)

// printResponse renders a send response in the requested format.
func printResponse(w io.Writer, format string, resp *dispatch.SendResponse) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "table":
		return printTable(w, resp)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printTable(w io.Writer, resp *dispatch.SendResponse) error {
	fmt.Fprintf(w, "Event: %s (overall %d)\n", resp.EventID, resp.StatusCode)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tTYPE\tSTATUS\tDETAIL")
	for _, s := range resp.Statuses {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ConfigID, s.ConfigType, s.Status.StatusCode, truncate(s.Status.StatusText, 80))
		for _, r := range s.Recipients {
			fmt.Fprintf(tw, "  %s\t\t%d\t%s\n", r.Recipient, r.Status.StatusCode, truncate(r.Status.StatusText, 80))
		}
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
