package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/internal/trace"
)

var (
	batchCSV         string
	batchOutput      string
	batchSessionID   string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "csvbatch",
	Short: "Run the company detail workflow for each row of a CSV",
	Long: `Reads a CSV with company_name and company_url columns and runs the
workflow per row, printing one JSON object per line. Rows missing either
column are skipped with a warning; a failed company is logged and does not
abort the batch.

Example:
  company-detail-cli csvbatch --csv companies.csv --output results.jsonl`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rows, err := readCompanyCSV(batchCSV)
		if err != nil {
			return eris.Wrap(err, "csvbatch: parse csv")
		}
		zap.L().Info("parsed csv", zap.Int("companies", len(rows)))

		wf, err := buildWorkflow()
		if err != nil {
			return err
		}

		sessionID := batchSessionID
		if sessionID == "" {
			sessionID = "company-detail-" + uuid.NewString()
		}

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrentCompanies
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var mu sync.Mutex
		results := make([]*model.CompanyDetailOutput, len(rows))
		var succeeded, failed atomic.Int64

		stdout := json.NewEncoder(os.Stdout)
		stdout.SetEscapeHTML(false)

		for i, row := range rows {
			g.Go(func() error {
				zap.L().Info("processing company",
					zap.String("company_name", row.Name),
					zap.String("company_url", row.URL),
				)

				sc := trace.NewTrace(trace.TraceInit{
					Name:      "company_detail_csv_batch",
					SessionID: sessionID,
					Metadata: map[string]any{
						"company_name": row.Name,
						"company_url":  row.URL,
					},
				})

				result, runErr := wf.Run(gCtx, row.Name, row.URL, sc)
				if runErr != nil {
					failed.Add(1)
					zap.L().Error("csvbatch: company failed",
						zap.String("company_name", row.Name),
						zap.Error(runErr),
					)
					return nil // don't abort batch on individual failure
				}

				succeeded.Add(1)
				mu.Lock()
				results[i] = result
				_ = stdout.Encode(result)
				mu.Unlock()
				return nil
			})
		}

		_ = g.Wait()

		zap.L().Info("csvbatch: batch complete",
			zap.Int("total", len(rows)),
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)

		if batchOutput != "" {
			if err := writeResultsJSONL(batchOutput, results); err != nil {
				return err
			}
			zap.L().Info("csvbatch: results written", zap.String("path", batchOutput))
		}

		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to CSV with company_name,company_url columns (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results to file (JSON Lines)")
	batchCmd.Flags().StringVar(&batchSessionID, "session_id", "", "session ID for trace correlation (default: generated)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max companies to process concurrently (default: from config)")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}

// companyRow is one CSV input row.
type companyRow struct {
	Name string
	URL  string
}

// readCompanyCSV reads rows from a CSV file with a header line containing
// company_name and company_url columns. Rows missing either value are
// skipped with a warning.
func readCompanyCSV(path string) ([]companyRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open csv")
	}
	defer f.Close() //nolint:errcheck

	return parseCompanyCSV(f)
}

// parseCompanyCSV parses CSV content from r.
func parseCompanyCSV(r io.Reader) ([]companyRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}

	nameIdx, urlIdx := -1, -1
	for i, col := range header {
		switch col {
		case "company_name":
			nameIdx = i
		case "company_url":
			urlIdx = i
		}
	}
	if nameIdx < 0 || urlIdx < 0 {
		return nil, eris.New("csv must have company_name and company_url columns")
	}

	var rows []companyRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read row")
		}

		var name, url string
		if nameIdx < len(record) {
			name = record[nameIdx]
		}
		if urlIdx < len(record) {
			url = record[urlIdx]
		}
		if name == "" || url == "" {
			zap.L().Warn("csvbatch: skipping row with missing company_name or company_url",
				zap.Strings("row", record),
			)
			continue
		}
		rows = append(rows, companyRow{Name: name, URL: url})
	}

	return rows, nil
}

// writeResultsJSONL writes one JSON object per line, preserving input order
// and skipping failed companies.
func writeResultsJSONL(path string, results []*model.CompanyDetailOutput) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "csvbatch: create output file")
	}
	defer f.Close() //nolint:errcheck

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, result := range results {
		if result == nil {
			continue
		}
		if err := enc.Encode(result); err != nil {
			return eris.Wrap(err, "csvbatch: write result")
		}
	}
	return nil
}
