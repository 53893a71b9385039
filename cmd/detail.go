package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/company-detail-cli/internal/trace"
)

var (
	detailCompanyName string
	detailCompanyURL  string
	detailSessionID   string
)

var detailCmd = &cobra.Command{
	Use:   "company-detail",
	Short: "Run the company detail workflow for one company",
	Long: `Extracts business summary and office addresses from a company's website.

Example:
  company-detail-cli company-detail --company_name "株式会社Example" --company_url https://example.co.jp`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		wf, err := buildWorkflow()
		if err != nil {
			return err
		}

		sc := trace.NewTrace(trace.TraceInit{
			Name:      "company_detail_cli",
			SessionID: detailSessionID,
			Metadata: map[string]any{
				"company_name": detailCompanyName,
				"company_url":  detailCompanyURL,
			},
		})

		result, err := wf.Run(cmd.Context(), detailCompanyName, detailCompanyURL, sc)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	},
}

func init() {
	detailCmd.Flags().StringVar(&detailCompanyName, "company_name", "", "company name (required)")
	detailCmd.Flags().StringVar(&detailCompanyURL, "company_url", "", "company homepage URL (required)")
	detailCmd.Flags().StringVar(&detailSessionID, "session_id", "", "session ID for trace correlation")
	_ = detailCmd.MarkFlagRequired("company_name")
	_ = detailCmd.MarkFlagRequired("company_url")
	rootCmd.AddCommand(detailCmd)
}
