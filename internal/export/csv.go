package export

import (
	"encoding/csv"
	"io"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
)

// Header is the union of the records' keys, leading columns first.
func Header(records []Record) []string {
	union := make(map[string]string)
	for _, r := range records {
		for k := range r.Fields {
			union[k] = ""
		}
	}
	return orderKeys(union)
}

// WriteCSV writes records under a shared header. Missing fields are empty.
func WriteCSV(w io.Writer, records []Record) error {
	header := Header(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	row := make([]string, len(header))
	for _, r := range records {
		for i, k := range header {
			row[i] = r.Fields[k]
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write csv row for %s", r.EntityID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}
