package main

import (
	"context"
	"errors"
	"flag"

	"github.com/rs/zerolog/log"

	"ckexporter/internal/config"
	"ckexporter/internal/linearize"
	"ckexporter/internal/normalize"
)

// runLinearize walks every input conversation to its evidence markdown
// file. Per spec §4.2, a conversation missing an id or yielding zero
// survivable messages is a per-item skip, not a fatal error; only a
// malformed input source returns here.
func runLinearize(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("linearize", flag.ExitOnError)
	in := fs.String("in", "", "input directory of conversation exports (required)")
	evidence := fs.String("evidence", cfg.EvidenceRoot, "evidence output directory")
	fs.Parse(args)

	if *in == "" {
		return errors.New("linearize: -in is required")
	}

	convs, err := loadConversations(ctx, cfg, *in)
	if err != nil {
		return err
	}
	convs = normalize.ApplyLimit(convs, cfg.Limit)

	written := 0
	for _, conv := range convs {
		messages, err := linearize.Linearize(conv)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("linearize: skipping conversation")
			continue
		}
		if _, err := linearize.WriteEvidence(*evidence, conv, messages); err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("linearize: failed to write evidence")
			continue
		}
		written++
	}
	log.Info().Int("conversations", len(convs)).Int("written", written).Msg("linearize: done")
	return nil
}
