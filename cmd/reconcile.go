package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mbx/internal/formatter"
	"github.com/desertthunder/mbx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Reconcile fetches the artist catalog and its MusicBrainz releases and renders the reconciliation report.
func (r *Runner) Reconcile(ctx context.Context, cmd *cli.Command) error {
	output := cmd.String("output")
	format := formatter.FormatForPath(output)
	if f := cmd.String("format"); f != "" {
		parsed, err := formatter.ParseFormat(f)
		if err != nil {
			return err
		}
		format = parsed
	}

	req := tasks.ReconcileRequest{
		Provider: cmd.String("provider"),
		Input:    cmd.String("id"),
		MBID:     cmd.String("mbid"),
		Quick:    cmd.Bool("quick"),
		Full:     cmd.Bool("full") || cmd.Bool("tracks"),
		NoCache:  cmd.Bool("no-cache"),
	}
	r.logger.Debug("reconcile requested", "provider", req.Provider, "input", req.Input, "full", req.Full)

	progressCh, stop := r.watch()
	report, err := r.engine.Reconcile(ctx, progressCh, req)
	stop()
	if err != nil {
		return err
	}

	opts := formatter.Options{
		Color:  cmd.Bool("color") && output == "" && format == formatter.FormatText,
		Tracks: cmd.Bool("tracks"),
	}
	data, err := formatter.Report(report, format, opts)
	if err != nil {
		return err
	}

	if output == "" {
		return r.write(data)
	}
	if err := formatter.WriteFile(output, data); err != nil {
		return err
	}
	r.logger.Info("report written", "path", output, "format", format)
	return r.writePlain("%s\n", report.Result.Summary)
}

// DeepSearch looks for the MusicBrainz artist of a provider artist through its album barcodes.
func (r *Runner) DeepSearch(ctx context.Context, cmd *cli.Command) error {
	req := tasks.DeepSearchRequest{
		Provider: cmd.String("provider"),
		Input:    cmd.String("id"),
		Count:    int(cmd.Int("count")),
		NoCache:  cmd.Bool("no-cache"),
	}

	progressCh, stop := r.watch()
	result, err := r.engine.DeepSearch(ctx, progressCh, req)
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	data, err := formatter.DeepSearchToText(result, formatter.Options{})
	if err != nil {
		return fmt.Errorf("failed to render deep search: %w", err)
	}
	return r.write(data)
}
