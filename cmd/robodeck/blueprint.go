package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robodeck/robodeck"
	"github.com/robodeck/robodeck/internal/appconfig"
	"github.com/robodeck/robodeck/internal/format"
	"github.com/robodeck/robodeck/schema"
)

func newBlueprintCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "blueprint",
		Short: "Inspect and manage blueprint documents",
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config path (default ~/.robodeck/config.yaml)")

	cmd.AddCommand(newBlueprintListCmd(&cfgPath))
	cmd.AddCommand(newBlueprintShowCmd(&cfgPath))
	cmd.AddCommand(newBlueprintOpenCmd(&cfgPath))
	cmd.AddCommand(newBlueprintSaveCmd(&cfgPath))
	cmd.AddCommand(newBlueprintDuplicateCmd(&cfgPath))
	cmd.AddCommand(newBlueprintDeleteCmd(&cfgPath))
	cmd.AddCommand(newBlueprintResetCmd(&cfgPath))
	return cmd
}

func buildApp(cfgPath string) (robodeck.App, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return robodeck.New(cfg, robodeck.AppDeps{})
}

func newBlueprintListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved blueprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			resp, err := app.Service().ListDocuments(cmd.Context(), schema.ListDocumentsRequest{})
			if err != nil {
				return err
			}
			for _, doc := range resp.Documents {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", doc.ID, doc.Name, doc.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newBlueprintShowCmd(cfgPath *string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the blueprint a session resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSessionRef(session)
			if err != nil {
				return err
			}
			app, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			resp, err := app.Service().Resolve(cmd.Context(), schema.ResolveRequest{Session: ref})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, resolved by %s)\n", resp.Document.Name, resp.Document.ID, resp.Reason)
			if resp.DraftApplied {
				fmt.Fprintln(out, "unsaved local edits applied")
			}
			if resp.Reason == schema.ResolvedByDefaultCreated {
				fmt.Fprintln(out, "no blueprint existed; a default was created")
			}
			fmt.Fprintln(out, format.Outline(resp.Root, app.Registry()))
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session as kind/id (e.g. recording/rec-42)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newBlueprintOpenCmd(cfgPath *string) *cobra.Command {
	var session string
	var id string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Bind a session to a specific blueprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSessionRef(session)
			if err != nil {
				return err
			}
			app, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := app.Service().Resolve(cmd.Context(), schema.ResolveRequest{Session: ref}); err != nil {
				return err
			}
			resp, err := app.Service().Open(cmd.Context(), schema.OpenRequest{Session: ref, BlueprintID: schema.BlueprintID(id)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "opened %s (%s)\n", resp.Document.Name, resp.Document.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session as kind/id")
	cmd.Flags().StringVar(&id, "id", "", "blueprint document id")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newBlueprintSaveCmd(cfgPath *string) *cobra.Command {
	var session string
	var name string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the session's current tree under a name",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSessionRef(session)
			if err != nil {
				return err
			}
			app, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := app.Service().Resolve(cmd.Context(), schema.ResolveRequest{Session: ref}); err != nil {
				return err
			}
			resp, err := app.Service().Save(cmd.Context(), schema.SaveRequest{Session: ref, Name: schema.DocumentName(name)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", resp.Document.Name, resp.Document.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session as kind/id")
	cmd.Flags().StringVar(&name, "name", "", "document name")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBlueprintDuplicateCmd(cfgPath *string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "duplicate",
		Short: "Copy the session's blueprint and bind the copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSessionRef(session)
			if err != nil {
				return err
			}
			app, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := app.Service().Resolve(cmd.Context(), schema.ResolveRequest{Session: ref}); err != nil {
				return err
			}
			resp, err := app.Service().Duplicate(cmd.Context(), schema.DuplicateRequest{Session: ref})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "duplicated to %s (%s)\n", resp.Document.Name, resp.Document.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session as kind/id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newBlueprintDeleteCmd(cfgPath *string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the session's blueprint and re-resolve",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSessionRef(session)
			if err != nil {
				return err
			}
			app, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := app.Service().Resolve(cmd.Context(), schema.ResolveRequest{Session: ref}); err != nil {
				return err
			}
			resp, err := app.Service().Delete(cmd.Context(), schema.DeleteRequest{Session: ref})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if resp.ReboundSessions > 0 {
				fmt.Fprintf(out, "%d other session(s) were rebound\n", resp.ReboundSessions)
			}
			fmt.Fprintf(out, "now showing %s (%s, resolved by %s)\n", resp.Document.Name, resp.Document.ID, resp.Reason)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session as kind/id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newBlueprintResetCmd(cfgPath *string) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard local edits and re-fetch the saved blueprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseSessionRef(session)
			if err != nil {
				return err
			}
			app, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			if _, err := app.Service().Resolve(cmd.Context(), schema.ResolveRequest{Session: ref}); err != nil {
				return err
			}
			resp, err := app.Service().Reset(cmd.Context(), schema.ResetRequest{Session: ref})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset to %s (%s)\n", resp.Document.Name, resp.Document.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session as kind/id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
