// Package detect maps the predictions of layout and table detectors onto
// folio elements.
//
// Model inference runs outside folio. Records loads the predictions such
// runs write to disk, as JSON or YAML, for the YOLO and Detectron2 layout
// detectors, the TATR table-structure detector and plain OCR word lists:
//
//	extractor: yolov10
//	pages:
//	  - page: 0
//	    predictions:
//	      - {label: "plain text", score: 0.93, bbox: [0.1, 0.12, 0.9, 0.3]}
//	      - {label: table, score: 0.88, bbox: [0.1, 0.4, 0.9, 0.7]}
//
// Boxes are normalized to the page unless the page record gives its pixel
// width and height. TATR records list tables with their row, column, header
// and spanning cell boxes; they are turned into cell grids by
// tables.StructureConverter.
//
// DocumentAI runs a Google Document AI OCR processor over a batch and
// yields both its paragraphs and tables (as a Detector) and its tokens (as
// an ocr.Extractor).
package detect
