package main

import (
	"fmt"
	"strings"

	"github.com/sifan077/LinkGate/internal/app/repository"
	"github.com/sifan077/LinkGate/internal/app/service"
	"github.com/sifan077/LinkGate/internal/auth"
	"github.com/spf13/cobra"
)

func newCreateCmd(env *cliEnv) *cobra.Command {
	var input service.ShortenInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Shorten a URL as an anonymous link",
		Example: `  linkgate create --url="https://example.com/docs"
  linkgate create --url=example.com --code=docs --title="Docs"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := env.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer store.Close()

			links := service.NewLinkService(service.LinkServiceDeps{
				Links:  repository.NewLinkRepository(store.DB),
				Events: repository.NewClickEventRepository(store.DB),
				Logger: env.log,
			})
			link, err := links.Shorten(cmd.Context(), auth.Anonymous, input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Code: %s\n", link.Code)
			fmt.Fprintf(out, "Short URL: %s/s/%s\n", strings.TrimRight(env.cfg.App.BaseURL, "/"), link.Code)
			fmt.Fprintf(out, "Destination: %s\n", link.OriginalURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input.URL, "url", "u", "", "destination URL (required)")
	cmd.Flags().StringVarP(&input.Code, "code", "c", "", "custom short code")
	cmd.Flags().StringVarP(&input.Title, "title", "t", "", "link title")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
