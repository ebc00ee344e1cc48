package tableio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(path string, opts ReadOptions) (*table.Table, error) {
	if err := checkSingleSheet(path, opts); err != nil {
		return nil, err
	}
	sheet := singleSheetName(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, errs.NewImportError(path, sheet, err)
	}
	defer file.Close()

	br := bufio.NewReader(file)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	firstLine, _ := br.Peek(4096)
	if i := bytes.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.Comma = sniffDelimiter(firstLine)
	parse := table.ParseCell
	if reader.Comma == ';' {
		parse = parseDecimalComma
	}

	var rows [][]table.Value
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.NewImportError(path, sheet, err)
		}
		row := make([]table.Value, len(record))
		for i, field := range record {
			row[i] = parse(field)
		}
		rows = append(rows, row)
	}
	return fromGrid(rows, opts, sheet)
}

// sniffDelimiter picks semicolons when the first line has more of them than
// commas. Semicolon files are the usual export of locales that write
// decimals with a comma.
func sniffDelimiter(line []byte) rune {
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

var decimalComma = regexp.MustCompile(`^[+-]?(\d{1,3}(\.\d{3})+|\d+),\d+$`)

// parseDecimalComma types a cell of a semicolon file. Numbers written with
// a decimal comma and optional dot thousands separators, like "1.234,5",
// become numbers; everything else is typed by table.ParseCell.
func parseDecimalComma(s string) table.Value {
	trimmed := strings.TrimSpace(s)
	if decimalComma.MatchString(trimmed) {
		normalized := strings.ReplaceAll(strings.ReplaceAll(trimmed, ".", ""), ",", ".")
		if f, err := strconv.ParseFloat(normalized, 64); err == nil {
			return table.Number(f)
		}
	}
	return table.ParseCell(s)
}

func writeCSV(t *table.Table, path string, includeIndex bool) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := t.Names()
	if includeIndex {
		header = append([]string{""}, header...)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for r := 0; r < t.NumRows(); r++ {
		k := 0
		if includeIndex {
			record[0] = strconv.Itoa(r)
			k = 1
		}
		for j, v := range t.Row(r) {
			record[j+k] = csvText(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// csvText renders a cell; NaN and missing become empty fields.
func csvText(v table.Value) string {
	if n, ok := v.AsFloat(); ok && n != n {
		return ""
	}
	return v.String()
}
