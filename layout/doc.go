// Package layout builds a document from OCR words and the regions predicted
// by layout detectors.
//
// Coordinates are normalized to the page: (0, 0) is the top-left corner and
// (1, 1) the bottom-right one.
//
// # Document Building
//
// The [Analyzer] runs every stage in sequence:
//
//	analyzer := layout.NewAnalyzer()
//	result := analyzer.Analyze(ocr, structure)
//	fmt.Println(result.Layout)
//
// When several detectors ran on the same pages, their layouts are merged
// first, most trusted first:
//
//	structure := analyzer.Aggregate(yolo, detectron2)
//
// # Stages
//
//   - [Aggregator] drops regions contained in larger ones and keeps the
//     best table of each overlapping group
//   - [ColumnDetector] finds the vertical gutters of free space on a page
//   - [ReadingOrderDetector] walks the regions of a page along the gutters
//     and fixes titles and running heads afterwards
//   - [LineBuilder] groups OCR words into lines that never cross a gutter
//   - [Populator] assigns each word to a region, creating inferred text
//     paragraphs for the words no region holds
//
// Tables are populated by the tables package before paragraphs so that
// their words are not claimed twice.
//
// # Text Helpers
//
// [ListConfig] classifies the opening of each line of a paragraph (bullet
// marks, item numbers, upper case words) and tells list-like text apart.
// [HeadingLevelForDepth] and [AnchorID] help exporters render titles.
// [AnchorExtrasToEdges] and [PromoteHeadersFooters] move running heads to the
// start or end of their page and retype them.
//
// # Configuration
//
// Each stage can be configured independently:
//
//	config := layout.DefaultAnalyzerConfig()
//	config.UseColumns = false
//	config.LineConfig.Method = layout.LineMethodOCROrder
//	config.ParagraphConfig.WordInParagraph = 0.5
//	analyzer := layout.NewAnalyzerWithConfig(config)
package layout
