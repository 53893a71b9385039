package main

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/company-detail-cli/pkg/jina"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch-page <url>",
	Short: "Fetch a single page through the reader (debugging)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Jina.Key == "" {
			return eris.New("missing required API key: DETAIL_JINA_KEY")
		}

		reader := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		resp, err := reader.Read(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "fetch-page")
		}

		fmt.Println("URL:", resp.Data.URL)
		fmt.Println("Title:", resp.Data.Title)
		fmt.Println("Description:", resp.Data.Description)
		fmt.Println("Tokens:", resp.Tokens())
		fmt.Println("Content:")
		fmt.Println(resp.Data.Content)

		if len(resp.Data.Links) > 0 {
			fmt.Println("Links:")
			titles := make([]string, 0, len(resp.Data.Links))
			for title := range resp.Data.Links {
				titles = append(titles, title)
			}
			sort.Strings(titles)
			for _, title := range titles {
				fmt.Printf("  [%s] %s\n", title, resp.Data.Links[title])
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
