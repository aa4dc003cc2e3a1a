package main

import (
	"fmt"
	"time"

	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/spf13/cobra"
)

func newStatsCmd(env *cliEnv) *cobra.Command {
	var (
		code string
		days int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show visits and the daily breakdown of a short link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 || days > 365 {
				return fmt.Errorf("--days must be between 1 and 365")
			}

			store, err := env.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer store.Close()

			link, err := repository.NewLinkRepository(store.DB).GetByCode(cmd.Context(), code)
			if err != nil {
				return err
			}
			since := time.Now().UTC().AddDate(0, 0, -days)
			daily, err := repository.NewClickEventRepository(store.DB).DailyCounts(cmd.Context(), model.TargetLink, link.Code, since)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Code: %s\n", link.Code)
			fmt.Fprintf(out, "Destination: %s\n", link.OriginalURL)
			fmt.Fprintf(out, "Visits: %d\n", link.Visits)
			for _, d := range daily {
				fmt.Fprintf(out, "  %s  %d\n", d.Day, d.Count)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&code, "code", "c", "", "short code (required)")
	cmd.Flags().IntVar(&days, "days", 30, "length of the daily breakdown")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
