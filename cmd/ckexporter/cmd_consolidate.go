package main

import (
	"context"
	"errors"
	"flag"

	"github.com/rs/zerolog/log"

	"ckexporter/internal/config"
	"ckexporter/internal/consolidate"
)

// runConsolidate reduces every per-conversation atoms.jsonl under -atoms
// into one project-wide atom store plus a manifest.
func runConsolidate(_ context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("consolidate", flag.ExitOnError)
	atomsRoot := fs.String("atoms", cfg.AtomsRoot, "per-conversation atoms root (required)")
	out := fs.String("out", cfg.OutDir, "consolidated output directory")
	fs.Parse(args)

	if *atomsRoot == "" {
		return errors.New("consolidate: -atoms is required")
	}

	c := &consolidate.Consolidator{AtomsRoot: *atomsRoot, MaxEvidencePerItem: cfg.MaxEvidencePerItem}
	merged, result, err := c.Run()
	if err != nil {
		return err
	}
	if err := consolidate.WriteAtoms(*out, merged); err != nil {
		return err
	}
	if err := consolidate.WriteManifest(*out, result); err != nil {
		return err
	}

	log.Info().Int("input", result.InputCount).Int("output", result.OutputCount).Msg("consolidate: done")
	return nil
}
