// Package pipeline runs the whole document reconstruction over a PDF.
//
// The document is cut into batches of a few pages (see [PlanBatches]) that
// are processed concurrently. Each batch goes through the same states:
//
//	pending → extracted → aggregated → lines built → populated →
//	columns detected → ordered → refined
//
// Extraction reads the words of the batch with the primary extractor,
// usually the PDF text layer, and switches to the fallback extractor when
// the words fail the quality checks or do not line up with the layout the
// detectors predicted. A batch that fails at any state is run again from
// the start, up to Config.MaxRetries times, and is otherwise reported in
// Result.Failed without stopping the other batches.
//
// Refined batches are merged by page, enriched, their images transcribed,
// and the document exported:
//
//	src, err := pipeline.OpenPDF("report.pdf")
//	if err != nil {
//	    return err
//	}
//	p := pipeline.New(pdftext.New()).WithFallback(tesseract)
//	result, err := p.Run(ctx, src)
//	if err != nil {
//	    return err
//	}
//	return p.Export(os.Stdout, result, rag.FormatMarkdown)
package pipeline
