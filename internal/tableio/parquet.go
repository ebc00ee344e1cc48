package tableio

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/iwvelando/controller-toolbox/pkg/errs"
	"github.com/iwvelando/controller-toolbox/pkg/table"
)

func readParquet(path string, opts ReadOptions) (*table.Table, error) {
	if err := checkSingleSheet(path, opts); err != nil {
		return nil, err
	}
	sheet := singleSheetName(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewImportError(path, sheet, err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, errs.NewImportError(path, sheet, fmt.Errorf("failed to create parquet reader: %w", err))
	}
	defer pf.Close()

	mem := memory.NewGoAllocator()
	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errs.NewImportError(path, sheet, fmt.Errorf("failed to create arrow reader: %w", err))
	}
	tbl, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, errs.NewImportError(path, sheet, fmt.Errorf("failed to read parquet data: %w", err))
	}
	defer tbl.Release()

	schema := tbl.Schema()
	names := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		names[i] = field.Name
	}
	selected, err := selectColumns(names, opts.Columns, sheet)
	if err != nil {
		return nil, err
	}

	rows := int(tbl.NumRows())
	skip := min(opts.SkipRows, rows)
	columns := make([]table.Column, 0, len(selected))
	for _, i := range selected {
		values := make([]table.Value, 0, rows)
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for k := 0; k < chunk.Len(); k++ {
				v, err := arrowValue(chunk, k)
				if err != nil {
					return nil, errs.NewImportError(path, sheet, fmt.Errorf("column %q: %w", names[i], err))
				}
				values = append(values, v)
			}
		}
		columns = append(columns, table.Column{Name: names[i], Values: values[skip:]})
	}
	return table.New(columns...)
}

// arrowValue converts one element of an arrow array.
func arrowValue(arr arrow.Array, i int) (table.Value, error) {
	if arr.IsNull(i) {
		return table.Missing(), nil
	}
	switch a := arr.(type) {
	case *array.Float64:
		return table.Number(a.Value(i)), nil
	case *array.Float32:
		return table.Number(float64(a.Value(i))), nil
	case *array.Int64:
		return table.Number(float64(a.Value(i))), nil
	case *array.Int32:
		return table.Number(float64(a.Value(i))), nil
	case *array.Int16:
		return table.Number(float64(a.Value(i))), nil
	case *array.Int8:
		return table.Number(float64(a.Value(i))), nil
	case *array.Uint64:
		return table.Number(float64(a.Value(i))), nil
	case *array.Uint32:
		return table.Number(float64(a.Value(i))), nil
	case *array.Uint16:
		return table.Number(float64(a.Value(i))), nil
	case *array.Uint8:
		return table.Number(float64(a.Value(i))), nil
	case *array.String:
		return table.Text(a.Value(i)), nil
	case *array.LargeString:
		return table.Text(a.Value(i)), nil
	case *array.Boolean:
		if a.Value(i) {
			return table.Text("TRUE"), nil
		}
		return table.Text("FALSE"), nil
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return table.Time(a.Value(i).ToTime(unit)), nil
	case *array.Date32:
		return table.Time(a.Value(i).ToTime()), nil
	case *array.Date64:
		return table.Time(a.Value(i).ToTime()), nil
	default:
		return table.Value{}, fmt.Errorf("unsupported type %s", arr.DataType())
	}
}

// writeParquet stores numeric columns as float64, columns holding only
// times as millisecond timestamps and everything else as strings. Missing
// cells are nulls.
func writeParquet(t *table.Table, path string, includeIndex bool) error {
	mem := memory.NewGoAllocator()

	var fields []arrow.Field
	var arrays []arrow.Array
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	if includeIndex {
		b := array.NewInt64Builder(mem)
		for r := 0; r < t.NumRows(); r++ {
			b.Append(int64(r))
		}
		fields = append(fields, arrow.Field{Name: IndexColumnName, Type: arrow.PrimitiveTypes.Int64})
		arrays = append(arrays, b.NewArray())
		b.Release()
	}

	for j, name := range t.Names() {
		values := t.ColumnAt(j)
		var arr arrow.Array
		var dt arrow.DataType
		switch {
		case t.IsNumeric(j):
			dt = arrow.PrimitiveTypes.Float64
			b := array.NewFloat64Builder(mem)
			for _, v := range values {
				if n, ok := v.AsFloat(); ok {
					b.Append(n)
				} else {
					b.AppendNull()
				}
			}
			arr = b.NewArray()
			b.Release()
		case onlyTimes(values):
			dt = arrow.FixedWidthTypes.Timestamp_ms
			b := array.NewTimestampBuilder(mem, dt.(*arrow.TimestampType))
			for _, v := range values {
				if ts, ok := v.AsTime(); ok {
					b.Append(arrow.Timestamp(ts.UnixMilli()))
				} else {
					b.AppendNull()
				}
			}
			arr = b.NewArray()
			b.Release()
		default:
			dt = arrow.BinaryTypes.String
			b := array.NewStringBuilder(mem)
			for _, v := range values {
				if v.IsMissing() {
					b.AppendNull()
				} else {
					b.Append(v.String())
				}
			}
			arr = b.NewArray()
			b.Release()
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
		arrays = append(arrays, arr)
	}

	schema := arrow.NewSchema(fields, nil)
	columns := make([]arrow.Column, len(arrays))
	for i, a := range arrays {
		chunked := arrow.NewChunked(a.DataType(), []arrow.Array{a})
		columns[i] = *arrow.NewColumn(fields[i], chunked)
		chunked.Release()
	}
	tbl := array.NewTable(schema, columns, int64(t.NumRows()))
	defer tbl.Release()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	writer, err := pqarrow.NewFileWriter(schema, out, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.WriteTable(tbl, max(tbl.NumRows(), 1)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	return writer.Close()
}

func onlyTimes(values []table.Value) bool {
	seen := false
	for _, v := range values {
		switch v.Kind() {
		case table.KindTime:
			seen = true
		case table.KindMissing:
		default:
			return false
		}
	}
	return seen
}
