package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robodeck/robodeck/schema"
	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("robodeck command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "robodeck",
		Short:         "Blueprint dashboard client for robot data-collection sessions",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newDashCmd())
	root.AddCommand(newBlueprintCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// parseSessionRef parses "kind/id" into a session reference.
func parseSessionRef(value string) (schema.SessionRef, error) {
	kind, id, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return schema.SessionRef{}, fmt.Errorf("session must be kind/id (e.g. recording/rec-42), got %q", value)
	}
	ref := schema.SessionRef{Kind: schema.SessionKind(kind), ID: schema.SessionID(id)}
	if err := schema.ValidateSessionRef(ref); err != nil {
		return schema.SessionRef{}, err
	}
	return ref, nil
}
