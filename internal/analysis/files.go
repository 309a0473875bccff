package analysis

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/datastore"
)

// ListFiles writes every stored file and its live reference to w.
func ListFiles(ctx context.Context, settings *conf.Settings, w io.Writer) error {
	store, err := datastore.Open(&settings.Output)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := datastore.NewRepository(store).ListFiles(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tDURATION\tREFERENCE")
	for _, f := range files {
		ref := f.LiveReference()
		if ref == "" {
			ref = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%ds\t%s\n", f.ID, f.Name, f.Duration, ref)
	}
	return tw.Flush()
}

// ShowFile writes the live predictions of one file to w.
func ShowFile(ctx context.Context, settings *conf.Settings, id uint, w io.Writer) error {
	store, err := datastore.Open(&settings.Output)
	if err != nil {
		return err
	}
	defer store.Close()

	repo := datastore.NewRepository(store)
	file, err := repo.GetFile(ctx, id)
	if err != nil {
		return err
	}
	preds, err := repo.LivePredictions(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (%ds) reference %s\n", file.Name, file.Duration, file.LiveReference())
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKEYWORD\tMODEL\tCONFIDENCE")
	for _, p := range preds {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\t%.4f\n", p.Time, p.Utterance, p.ModelID, p.Confidence)
	}
	return tw.Flush()
}
