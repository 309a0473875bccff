package analysis

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/ingest"
)

// DirectoryAnalysis runs one ingestion pass over the media directory and
// writes a per-file report to w.
func DirectoryAnalysis(ctx context.Context, settings *conf.Settings, w io.Writer) error {
	p, err := NewPipeline(ctx, settings)
	if err != nil {
		return err
	}
	defer p.Close()

	summary, err := p.Coordinator.RunPass(ctx)
	if err != nil {
		return err
	}
	return writeSummary(w, &summary)
}

func writeSummary(w io.Writer, s *ingest.PassSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tDURATION\tSTATUS\tPREDICTIONS\tP-VALUE\tREFERENCE")
	for i := range s.Results {
		r := &s.Results[i]
		pvalue := "-"
		if !r.Drift.Skipped() {
			pvalue = fmt.Sprintf("%.4g", r.Drift.PValue)
		}
		reference := r.Reference
		if reference == "" {
			reference = "-"
		}
		fmt.Fprintf(tw, "%s\t%ds\t%s\t%d\t%s\t%s\n", r.Name, r.Duration, r.Status, r.Predictions, pvalue, reference)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, s.String())
	return err
}
