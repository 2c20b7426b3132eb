package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"netspeedtray/internal/history"
)

// CSVHeader is the first record written by WriteCSV.
var CSVHeader = []string{"Timestamp", "Upload (Mbps)", "Download (Mbps)"}

// WriteCSV writes one record per point with average rates in Mbps.
func WriteCSV(w io.Writer, points []history.Point) error {
	if len(points) == 0 {
		return ErrNoData
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range points {
		rec := []string{
			p.Time.Format(time.RFC3339),
			strconv.FormatFloat(mbps(p.UploadAvg), 'f', 4, 64),
			strconv.FormatFloat(mbps(p.DownloadAvg), 'f', 4, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
