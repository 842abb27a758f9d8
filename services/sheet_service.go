package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"sp-export/models"
)

const (
	// SheetName names the single worksheet in the exported workbook.
	SheetName = "Stored procedure Dummy_sp data"
	// NullMarker replaces SQL NULL in rendered cells.
	NullMarker = "NULL"
)

// Document is the in-memory grid written to the workbook. Row 0 is the
// header; every row has exactly len(Header) cells.
type Document struct {
	SheetName string
	Header    []string
	Data      [][]any
}

// BuildDocument turns a result set into a Document, replacing nil values
// with NullMarker. Rows are padded or cut to the header width.
func BuildDocument(rs models.ResultSet) Document {
	header := make([]string, len(rs.Columns))
	copy(header, rs.Columns)

	data := make([][]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		out := make([]any, len(header))
		for i := range out {
			if i >= len(row) || row[i] == nil {
				out[i] = NullMarker
				continue
			}
			out[i] = row[i]
		}
		data = append(data, out)
	}

	return Document{
		SheetName: SheetName,
		Header:    header,
		Data:      data,
	}
}

// Rows returns the header followed by the data rows.
func (d Document) Rows() [][]any {
	out := make([][]any, 0, len(d.Data)+1)
	header := make([]any, len(d.Header))
	for i, h := range d.Header {
		header[i] = h
	}
	out = append(out, header)
	return append(out, d.Data...)
}

// Len counts rows including the header.
func (d Document) Len() int {
	return len(d.Data) + 1
}

func (d Document) Width() int {
	return len(d.Header)
}

// RenderXLSX serializes the document as an xlsx workbook held in memory.
func RenderXLSX(doc Document) (buf *bytes.Buffer, err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			buf, err = nil, closeErr
		}
	}()

	name := doc.SheetName
	if name == "" {
		name = SheetName
	}
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, row := range doc.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return f.WriteToBuffer()
}
