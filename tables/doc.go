// Package tables turns detected table regions into populated tables.
//
// # Structure
//
// A table-structure detector predicts, inside each table, boxes labelled as
// rows, columns, header bands and spanning cells. [StructureConverter]
// crosses rows with columns into a row-major cell grid:
//
//	conv := tables.NewStructureConverter()
//	conv.Convert(table, boxes)
//
// Overlapping duplicate rows or columns are reduced to the best scored one.
// A spanning cell is stored once per grid position it covers; the copies
// share a [model.SpanningCellID].
//
// # Grid inference
//
// When no structure was predicted, [BuildCells] infers the grid from the
// free space between the words of the table.
//
// # Population
//
// [Populator] moves the OCR words lying in each table out of the OCR layout
// and replaces the table with a [model.TableContent]:
//
//	p := tables.NewPopulator()
//	p.Populate(ocr, structure)
//
// A row ends when a cell that is not a copy of its predecessor does not end
// further right.
package tables
