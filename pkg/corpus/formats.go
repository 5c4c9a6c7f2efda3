package corpus

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// FileFormat represents the on-disk layouts a corpus can be read from.
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatCSV                // one method per row, tokens as fields
	FormatJSONL              // one JSON string array per line
)

// FormatInfo contains metadata about a corpus file format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatCSV: {
		Format:      FormatCSV,
		Description: "Tokenized methods, CSV rows",
		Extensions:  []string{".csv"},
	},
	FormatJSONL: {
		Format:      FormatJSONL,
		Description: "Tokenized methods, JSON lines",
		Extensions:  []string{".jsonl", ".ndjson"},
	},
}

// DetectFormat maps a file name to its corpus format by extension.
func DetectFormat(filename string) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for format, info := range supportedFormats {
		for _, e := range info.Extensions {
			if ext == e {
				return format, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ReadFile loads a corpus from path. skipColumns applies to CSV only and drops leading
// fields such as a method name column.
func ReadFile(path string, skipColumns int) (Corpus, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer file.Close()

	var c Corpus
	switch format {
	case FormatCSV:
		c, err = ReadCSV(file, skipColumns)
	case FormatJSONL:
		c, err = ReadJSONL(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}

	log.Debugf("Read %d methods (%d tokens) from %s", len(c), c.Tokens(), path)
	return c, nil
}

// WriteFile stores c at path in the format implied by its extension.
func WriteFile(path string, c Corpus) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	if format == FormatCSV {
		if err := checkCSV(c); err != nil {
			return fmt.Errorf("failed to write corpus %s: %w", path, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create corpus %s: %w", path, err)
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(file, c)
	case FormatJSONL:
		err = WriteJSONL(file, c)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write corpus %s: %w", path, err)
	}
	return nil
}

// emptyRecord is the CSV line for a zero-length method. A bare newline would be
// dropped by csv.Reader as a blank line.
const emptyRecord = "\"\"\n"

// ReadCSV reads one method per record. Records may have differing field counts.
// A record whose fields are all empty after skipColumns becomes an empty Method.
func ReadCSV(r io.Reader, skipColumns int) (Corpus, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	c := Corpus{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := record[min(max(skipColumns, 0), len(record)):]
		if blank(fields) {
			c = append(c, Method{})
			continue
		}
		c = append(c, Method(fields))
	}
	return c, nil
}

// WriteCSV writes one record per method. Empty methods are written as a single quoted
// empty field. A non-empty method made only of empty tokens would read back as an
// empty method and is rejected with ErrUnrepresentable.
func WriteCSV(w io.Writer, c Corpus) error {
	if err := checkCSV(c); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	for _, m := range c {
		if len(m) == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, emptyRecord); err != nil {
				return err
			}
			continue
		}
		if err := writer.Write(m); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// checkCSV reports the first method that would not survive a CSV round trip.
func checkCSV(c Corpus) error {
	for i, m := range c {
		if len(m) > 0 && blank(m) {
			return fmt.Errorf("%w: method %d has only empty tokens", ErrUnrepresentable, i)
		}
	}
	return nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

// ReadJSONL reads one JSON string array per line. Malformed lines are skipped.
func ReadJSONL(r io.Reader) (Corpus, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	c := Corpus{}
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var m Method
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			log.Warnf("Skipping malformed JSONL line %d: %v", line, err)
			continue
		}
		if m == nil {
			m = Method{}
		}
		c = append(c, m)
	}
	return c, scanner.Err()
}

// WriteJSONL writes one JSON array per method.
func WriteJSONL(w io.Writer, c Corpus) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, m := range c {
		if m == nil {
			m = Method{}
		}
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return bw.Flush()
}
