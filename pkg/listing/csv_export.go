package listing

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/angularhub/hub/pkg/event"
	log "github.com/sirupsen/logrus"
)

var csvHeader = []string{"Date", "Name", "Language", "Type", "Location", "URL", "Call for papers", "Free", "Remote"}

// RenderCSV writes one row per event, in the given order, below a header row.
// Dates are formatted as calendar days in loc.
func RenderCSV(events []event.Event, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}

	data := make([][]string, 0, len(events)+1)
	data = append(data, csvHeader)
	for _, e := range events {
		data = append(data, []string{
			e.Date.In(loc).Format(time.DateOnly),
			e.Name,
			e.Language,
			string(e.Type),
			e.Location,
			e.URL,
			e.CallForPapersURL,
			strconv.FormatBool(e.IsFree),
			strconv.FormatBool(e.IsRemote),
		})
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}
