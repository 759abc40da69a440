package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/convkeep/internal/core"
)

var csvHeader = []string{
	"id", "timestamp", "platform", "domain", "title",
	"question", "answer", "tags", "category", "notes", "favorite", "page_url",
}

func writeCSV(w io.Writer, records []core.ConversationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Timestamp.Format(time.RFC3339),
			rec.Platform,
			rec.Domain,
			rec.Title,
			rec.Question,
			rec.Answer,
			strings.Join(rec.Tags, ";"),
			rec.Category,
			rec.Notes,
			strconv.FormatBool(rec.Favorite),
			rec.PageURL,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
