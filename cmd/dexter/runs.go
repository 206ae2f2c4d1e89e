package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/XavTo/dexter/internal/config"
	"github.com/XavTo/dexter/internal/domain"
	"github.com/XavTo/dexter/internal/service"
	"github.com/XavTo/dexter/internal/store"
)

var jsonFlag = &cli.BoolFlag{Name: "json", Usage: "print JSON instead of text"}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect recorded runs without a running server",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List runs, most recent first",
				Flags:  []cli.Flag{jsonFlag},
				Action: runsList,
			},
			{
				Name:      "show",
				Usage:     "Show a run and the tail of its trace",
				ArgsUsage: "<run_id>",
				Flags:     []cli.Flag{jsonFlag},
				Action:    runsShow,
			},
		},
	}
}

// offlineService reads the ledger files directly. It has no agent, so it
// can only answer queries.
func offlineService(c *cli.Context) (*service.Service, error) {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return nil, err
	}
	events := store.NewFileEventLog(cfg.EventLogPath(), nil)
	pad := store.NewDirScratchpad(cfg.ScratchpadDir(), nil)
	return service.New(events, pad, nil, cfg, nil, nil), nil
}

func runsList(c *cli.Context) error {
	svc, err := offlineService(c)
	if err != nil {
		return err
	}
	runs, err := svc.ListRuns(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, runs)
	}
	return writeRunTable(c.App.Writer, runs)
}

func runsShow(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: dexter runs show <run_id>", 2)
	}
	svc, err := offlineService(c)
	if err != nil {
		return err
	}
	detail, err := svc.GetRunDetail(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, detail)
	}
	return writeDetail(c.App.Writer, detail)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRunTable(w io.Writer, runs []domain.RunState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTATUS\tSTARTED\tQUERY")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.RunID, r.Status, formatTime(r.StartedAt), oneLine(r.Query, 60))
	}
	return tw.Flush()
}

func writeDetail(w io.Writer, d *domain.RunDetail) error {
	r := d.Run
	fmt.Fprintf(w, "Run:      %s\n", r.RunID)
	fmt.Fprintf(w, "Status:   %s\n", r.Status)
	fmt.Fprintf(w, "Query:    %s\n", r.Query)
	fmt.Fprintf(w, "Started:  %s\n", formatTime(r.StartedAt))
	fmt.Fprintf(w, "Finished: %s\n", formatTime(r.FinishedAt))
	if r.Answer != "" {
		fmt.Fprintf(w, "Answer:   %s\n", r.Answer)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}

	fmt.Fprintf(w, "\nTrace (%d entries)\n", len(d.Entries))
	for _, e := range d.Entries {
		line := e.Content
		if e.Type == domain.EntryTypeToolResult {
			line = fmt.Sprintf("%s -> %s", e.ToolName, string(e.Result))
		}
		if e.Truncated {
			line += " [truncated]"
		}
		fmt.Fprintf(w, "  %s  %-11s %s\n", e.Timestamp.Format(time.TimeOnly), e.Type, oneLine(line, 120))
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
