package table

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strconv"

	"github.com/xuri/excelize/v2"
)

func cellName(col int, row int) (name string) {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return
	}
	name, err = excelize.JoinCellName(columnName, row)
	if err != nil {
		return
	}
	return
}

// WriteXlsx writes the table to a single-sheet workbook, column names in bold across the first row
func (t *Table) WriteXlsx(path string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheetName := t.Name
	if sheetName == "" {
		sheetName = "Sheet1"
	} else if len(sheetName) > 31 { // excel limit
		sheetName = sheetName[:31]
	}
	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return err
		}
	}
	fieldNameStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
	})
	row := 1
	for col, field := range t.Fields {
		_ = f.SetCellValue(sheetName, cellName(col+1, row), field.Name)
		_ = f.SetCellStyle(sheetName, cellName(col+1, row), cellName(col+1, row), fieldNameStyle)
	}
	row++
	for tableRow := range t.NumRows() {
		for col, field := range t.Fields {
			_ = f.SetCellValue(sheetName, cellName(col+1, row), getValueForCell(field.Values[tableRow]))
		}
		row++
	}
	return f.SaveAs(path)
}

func getValueForCell(value string) (val any) {
	intValue, err := strconv.Atoi(value)
	if err == nil {
		val = intValue
		return
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err == nil {
		val = floatValue
		return
	}
	val = value
	return
}
