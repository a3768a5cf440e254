package lib

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/docker/go-units"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormats lists the names Format accepts.
var OutputFormats = []string{"text", "long", "table", "json", "yaml"}

// Formatter writes records somewhere.
type Formatter func(records []Record, w io.Writer) error

// Format returns the formatter with the given name.
func Format(name string) (Formatter, bool) {
	switch name {
	case "text":
		return FormatText, true
	case "long":
		return FormatLong, true
	case "table":
		return FormatTable, true
	case "json":
		return FormatJSON, true
	case "yaml":
		return FormatYAML, true
	}
	return nil, false
}

// Streams reports whether the named format can be written one record at a
// time as the walk goes.
func Streams(name string) bool { return name == "text" || name == "long" }

// FormatText writes one path per line. Error records are left to the caller.
func FormatText(records []Record, w io.Writer) error {
	for i := range records {
		if records[i].Type == TypeError.String() {
			continue
		}
		if _, err := fmt.Fprintln(w, records[i].Path); err != nil {
			return err
		}
	}
	return nil
}

// typeLetter maps a record type back to its ls(1) letter.
func typeLetter(name string) byte {
	for t := TypeUnknown; t <= TypeError; t++ {
		if t.String() == name {
			if t == TypeReg {
				return '-'
			}
			return t.Letter()
		}
	}
	return '?'
}

func modeString(record *Record) string {
	perm := fs.FileMode(record.Mode & 0777).String()
	return string(typeLetter(record.Type)) + perm[1:]
}

func mtimeString(mtime time.Time) string {
	if mtime.IsZero() {
		return ""
	}
	return mtime.Format(time.RFC3339)
}

// FormatLong writes an ls -l like line per record: mode, size, mtime, path
// and, when present, the hash.
func FormatLong(records []Record, w io.Writer) error {
	for i := range records {
		record := &records[i]
		if record.Type == TypeError.String() {
			continue
		}
		line := fmt.Sprintf("%s %9s %-25s %s", modeString(record), units.HumanSize(float64(record.Size)), mtimeString(record.Mtime), record.Path)
		if record.Hash != "" {
			line += "  " + record.Hash
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes the records as an aligned table.
func FormatTable(records []Record, w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"path", "type", "depth", "phase", "size", "mtime", "hash"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for i := range records {
		record := &records[i]
		if record.Type == TypeError.String() {
			continue
		}
		table.Append([]string{
			record.Path,
			record.Type,
			strconv.Itoa(record.Depth),
			record.Phase,
			units.HumanSize(float64(record.Size)),
			mtimeString(record.Mtime),
			record.Hash,
		})
	}
	table.Render()
	return nil
}

// FormatJSON writes the records, errors included, as a JSON array.
func FormatJSON(records []Record, w io.Writer) error {
	if records == nil {
		records = []Record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

// FormatYAML writes the records, errors included, as a YAML sequence.
func FormatYAML(records []Record, w io.Writer) error {
	if records == nil {
		records = []Record{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return err
	}
	return encoder.Close()
}
