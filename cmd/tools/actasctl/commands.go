package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	config "github.com/voxcliente/backend/config/actas"
	"github.com/voxcliente/backend/gateways/actas"
	"github.com/voxcliente/backend/services/actas/entity"
	"github.com/voxcliente/backend/services/actas/storage"
)

type dependencies struct {
	Config *config.Config
	Log    *slog.Logger
}

func newRootCmd(deps *dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "actasctl",
		Short:         "Operate the VoxCliente actas pipeline",
		Long:          "Maintenance and local processing commands for the VoxCliente meeting minutes backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       deps.Config.AppVersion,
	}

	rootCmd.AddCommand(newMigrateCmd(deps))
	rootCmd.AddCommand(newProcessCmd(deps))
	rootCmd.AddCommand(newMeetingsCmd(deps))

	return rootCmd
}

func newMigrateCmd(deps *dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Config.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}

			db, err := storage.Open(cmd.Context(), deps.Config.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := storage.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newProcessCmd(deps *dependencies) *cobra.Command {
	var email, client string

	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "Run the full pipeline on a local audio file and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening audio: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("reading audio: %w", err)
			}

			d, err := actas.Build(cmd.Context(), deps.Config, deps.Log)
			if err != nil {
				return err
			}
			defer d.Close(cmd.Context())

			res, err := d.Usecase.Process(cmd.Context(), &entity.ProcessRequest{
				Audio:      f,
				Filename:   filepath.Base(args[0]),
				SizeBytes:  info.Size(),
				Email:      email,
				ClientName: client,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "recipient of the acta")
	cmd.Flags().StringVar(&client, "client", "", "client the meeting belongs to")
	cmd.MarkFlagRequired("email")

	return cmd
}

func newMeetingsCmd(deps *dependencies) *cobra.Command {
	var email string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "List the recorded meetings of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := actas.Build(cmd.Context(), deps.Config, deps.Log)
			if err != nil {
				return err
			}
			defer d.Close(cmd.Context())

			meetings, err := d.Usecase.Meetings(cmd.Context(), email)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), meetings)
			}
			return printMeetings(cmd.OutOrStdout(), meetings)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "user e-mail")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.MarkFlagRequired("email")

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printMeetings(w io.Writer, meetings []*entity.Meeting) error {
	if len(meetings) == 0 {
		_, err := fmt.Fprintln(w, "No meetings found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tFILENAME\tSTATUS\tMINUTES\tTOTAL USD")
	for _, m := range meetings {
		minutes := "-"
		if m.DurationMinutes != nil {
			minutes = fmt.Sprintf("%.1f", *m.DurationMinutes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\n",
			m.MeetingDate.Format("2006-01-02 15:04"), m.Filename, m.Status, minutes, m.TotalCost)
	}
	return tw.Flush()
}
