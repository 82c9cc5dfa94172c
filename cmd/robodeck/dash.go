package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robodeck/robodeck"
	"github.com/robodeck/robodeck/blueprint"
	"github.com/robodeck/robodeck/internal/appconfig"
	"github.com/robodeck/robodeck/internal/format"
	"github.com/robodeck/robodeck/internal/logx"
	"github.com/robodeck/robodeck/schema"
	"pkt.systems/pslog"
)

func newDashCmd() *cobra.Command {
	var cfgPath string
	var session string
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Show a session's dashboard and stream its telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSessionRef(session)
			if err != nil {
				return err
			}
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			app, err := robodeck.New(cfg, robodeck.AppDeps{}, robodeck.WithTelemetry())
			if err != nil {
				return err
			}
			ctx := logx.ContextWithSession(cmd.Context(), ref)
			log := logx.WithSession(ctx, ref)
			ctx = pslog.ContextWithLogger(ctx, log)

			if err := app.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = app.Stop(nil) }()

			resp, err := app.Service().Resolve(ctx, schema.ResolveRequest{Session: ref})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, resolved by %s)\n", resp.Document.Name, resp.Document.ID, resp.Reason)
			if resp.DraftApplied {
				fmt.Fprintln(out, "unsaved local edits applied")
			}
			fmt.Fprintln(out, format.Outline(resp.Root, app.Registry()))

			feed := app.Telemetry()
			if feed == nil {
				log.Info("telemetry disabled, dashboard is static")
				<-ctx.Done()
				return nil
			}

			topics := blueprint.Topics(resp.Root)
			if len(topics) == 0 {
				log.Info("blueprint references no telemetry topics")
				<-ctx.Done()
				return nil
			}
			frames := make(chan schema.TelemetryFrame, 64)
			for _, topic := range topics {
				ch, cancel := feed.Subscribe(topic)
				defer cancel()
				go func() {
					for frame := range ch {
						select {
						case frames <- frame:
						case <-ctx.Done():
							return
						}
					}
				}()
			}
			log.Info("dashboard streaming", "topics", len(topics))

			for {
				select {
				case <-ctx.Done():
					return nil
				case frame := <-frames:
					fmt.Fprintf(out, "%s %s %s\n", frame.Timestamp.Format("15:04:05.000"), frame.Topic, string(frame.Data))
				}
			}
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "config path (default ~/.robodeck/config.yaml)")
	cmd.Flags().StringVar(&session, "session", "", "session as kind/id (e.g. recording/rec-42)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
