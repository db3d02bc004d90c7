package main

import (
	"context"
	"errors"
	"flag"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"ckexporter/internal/config"
	"ckexporter/internal/documents"
)

// runCompile recursively walks the input directory for markdown source
// documents (design docs, ADRs) and concatenates them into the compiled
// project markdown spec calls "compiled markdown documentation".
func runCompile(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	in := fs.String("in", "", "input directory containing source markdown (required)")
	out := fs.String("out", cfg.OutDir, "compiled output directory")
	fs.Parse(args)

	if *in == "" {
		return errors.New("compile: -in is required")
	}

	docs, adrs, err := documents.CompileMarkdown(ctx, *in, "adr-")
	if err != nil {
		return err
	}
	if err := documents.WriteFileAtomic(filepath.Join(*out, "project", "docs_concat.md"), docs); err != nil {
		return err
	}
	if err := documents.WriteFileAtomic(filepath.Join(*out, "project", "adrs_concat.md"), adrs); err != nil {
		return err
	}

	log.Info().Str("out", *out).Msg("compile: done")
	return nil
}
