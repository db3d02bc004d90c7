// Command ckexporter runs the conversation-knowledge-export pipeline
// (spec §6.4): linearize, extract, compile, consolidate, discover-topics,
// assign-topics, and run-all, each a flag-parsed subcommand in the style
// of the teacher's cmd/migrateprojects-s3 (flag.String with an env-var
// fallback), dispatched by verb the way `go` or `git` dispatch theirs.
//
// Exit codes: 0 on success, 1 on a fatal input error (missing/invalid
// file). A single conversation failing never sets a nonzero exit code;
// those are logged and the run continues.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"ckexporter/internal/config"
	"ckexporter/internal/observability"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx := context.Background()
	verb := os.Args[1]
	args := os.Args[2:]

	var runErr error
	switch verb {
	case "linearize":
		runErr = runLinearize(ctx, cfg, args)
	case "extract":
		runErr = runExtract(ctx, cfg, args)
	case "compile":
		runErr = runCompile(ctx, cfg, args)
	case "consolidate":
		runErr = runConsolidate(ctx, cfg, args)
	case "discover-topics":
		runErr = runDiscoverTopics(ctx, cfg, args)
	case "assign-topics":
		runErr = runAssignTopics(ctx, cfg, args)
	case "run-all":
		runErr = runAll(ctx, cfg, args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", verb)
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		log.Error().Err(runErr).Str("command", verb).Msg("fatal input error")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `ckexporter <command> [flags]

Commands:
  linearize        -in <dir> -evidence <dir>
  extract           -in <dir> -atoms <dir>
  compile           -in <dir> -out <dir>
  consolidate       -atoms <dir> -out <dir>
  discover-topics   -in <dir> -atoms <file> -out <dir>
  assign-topics     -in <dir> -atoms <file> -registry <dir> -out <dir>
  run-all           -in <dir> -out <dir>`)
}
