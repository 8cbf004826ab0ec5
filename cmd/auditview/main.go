package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/governance-core/go-gateway/internal/audit"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the audit SQLite database")
	last := flag.Int("last", 20, "show N most recent records")
	eventType := flag.String("type", "", "filter to one event type")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: auditview --db path/to/governance_audit.db [--last N] [--type name] [--json]")
		os.Exit(2)
	}

	sink, err := audit.NewSQLiteSink(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	events, err := sink.List(*eventType, *last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(events); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printTable(events)
}

// #endregion main

// #region table

func printTable(events []audit.Event) {
	if len(events) == 0 {
		fmt.Println("no audit records")
		return
	}
	fmt.Printf("%-36s  %-20s  %-24s  %s\n", "RECORD", "TYPE", "CREATED", "DETAILS")
	for _, e := range events {
		fmt.Printf("%-36s  %-20s  %-24s  %s\n",
			e.ID, e.Type, e.CreatedAt.Format("2006-01-02 15:04:05.000"), summarize(e.Details))
	}
}

// summarize renders details as compact key=value pairs.
func summarize(details map[string]any) string {
	if len(details) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(details))
	for k, v := range details {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}

// #endregion table
