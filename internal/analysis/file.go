package analysis

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/detection"
	"github.com/tphakala/audiophile/internal/inference"
	"github.com/tphakala/audiophile/internal/myaudio"
)

// FileAnalysis detects keyword in one audio file and writes the windows
// above threshold to w. Nothing is stored.
func FileAnalysis(ctx context.Context, settings *conf.Settings, keyword, path string, w io.Writer) error {
	registry, err := inference.FromSettings(&settings.Detection)
	if err != nil {
		return err
	}
	engine, err := detection.NewEngine(
		myaudio.NewLoader(myaudio.ResampleMethod(settings.Audio.Resampler)),
		registry,
		detection.Config{
			SampleRate:   settings.Audio.SampleRate,
			WindowLength: settings.Audio.WindowLength,
			Stride:       settings.Audio.Stride,
			Threshold:    settings.Detection.Threshold,
		})
	if err != nil {
		return err
	}

	drafts, err := engine.Detect(ctx, keyword, path)
	if err != nil {
		return err
	}
	return writeDrafts(w, drafts)
}

func writeDrafts(w io.Writer, drafts []detection.Draft) error {
	if len(drafts) == 0 {
		_, err := fmt.Fprintln(w, "no detections above threshold")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tKEYWORD\tMODEL\tCONFIDENCE")
	for _, d := range drafts {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\t%.4f\n", d.Time, d.Utterance, d.ModelID, d.Confidence)
	}
	return tw.Flush()
}
