package commands

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trico-scraper/internal/concurrency"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Prints the semesters, campuses, departments and meeting slots the search form offers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := a.newScraper(1, concurrency.FailFast)
			if err != nil {
				return err
			}
			defer s.Close()

			md, err := s.FetchSiteMetadata(ctx)
			if err != nil {
				return err
			}
			zerolog.Ctx(ctx).Info().
				Int("semesters", len(md.Semesters)).
				Int("departments", len(md.Departments)).
				Msg("read search form")

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(md)
		},
	}
}
