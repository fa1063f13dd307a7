package directory

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/medagenda/or-assistant/pkg/logging"
)

// Row is one spreadsheet row keyed by its lowercased, trimmed header.
type Row map[string]string

// SheetClient fetches published Google Sheets as CSV.
type SheetClient struct {
	httpClient *http.Client
	logger     *logging.Logger
}

// NewSheetClient creates a client whose fetches are bounded by timeout.
func NewSheetClient(timeout time.Duration, logger *logging.Logger) *SheetClient {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &SheetClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ToCSVURL rewrites a sheet's pubhtml URL into its CSV export URL.
// URLs that already point elsewhere (e.g. test servers) pass through.
func ToCSVURL(pubhtmlURL string) string {
	if strings.Contains(pubhtmlURL, "/pubhtml?") {
		return strings.Replace(pubhtmlURL, "/pubhtml?", "/pub?", 1) + "&output=csv"
	}
	return pubhtmlURL
}

// Fetch retrieves and parses one sheet. The first record is treated as the
// header; rows shorter than the header are padded with empty values.
func (c *SheetClient) Fetch(ctx context.Context, url string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build sheet request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: fetch sheet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory: fetch sheet: HTTP %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("directory: parse sheet csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(record) {
				row[key] = strings.TrimSpace(record[i])
			} else {
				row[key] = ""
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
