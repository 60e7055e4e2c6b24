package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go-stamppdf/internal/config"
	"go-stamppdf/internal/logger"
	"go-stamppdf/internal/signing"
	"go-stamppdf/internal/stamp"
)

type renderStampOptions struct {
	barcode    string
	company    string
	attachment string
	date       string
	width      int
	font       string
	out        string
}

func newRenderStampCmd() *cobra.Command {
	opts := &renderStampOptions{}
	cmd := &cobra.Command{
		Use:   "render-stamp",
		Short: "Render stamp artwork to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderStamp(cmd.Context(), opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.barcode, "barcode", "", "value encoded as Code 128")
	flags.StringVar(&opts.company, "company", "", "company line")
	flags.StringVar(&opts.attachment, "attachment", "", "attachment description line")
	flags.StringVar(&opts.date, "date", "", "date line (default: now, "+signing.DateLayout+")")
	flags.IntVar(&opts.width, "width", stamp.ReferenceWidth, "image width in pixels")
	flags.StringVar(&opts.font, "font", "", "font file (default: resolved from FONT_PATH and FONT_DIRS)")
	flags.StringVarP(&opts.out, "out", "o", "stamp.png", "output file")
	_ = cmd.MarkFlagRequired("barcode")
	return cmd
}

func renderStamp(ctx context.Context, opts *renderStampOptions) error {
	fontPath := opts.font
	if fontPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fontPath = cfg.ResolveFontPath()
	}
	renderer, err := stamp.NewRenderer(fontPath)
	if err != nil {
		return err
	}

	date := opts.date
	if date == "" {
		date = time.Now().Format(signing.DateLayout)
	}
	out, err := renderer.RenderContext(ctx, stamp.Artwork{
		Barcode:    opts.barcode,
		Company:    opts.company,
		Attachment: opts.attachment,
		Date:       date,
		Width:      opts.width,
	})
	if err != nil {
		return fmt.Errorf("render stamp: %w", err)
	}
	if err := os.WriteFile(opts.out, out.PNG, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	logger.Info(ctx, "stamp rendered", logger.Fields{
		"out":      opts.out,
		"width":    out.Width,
		"height":   out.Height,
		"fallback": renderer.Fallback(),
	})
	return nil
}
