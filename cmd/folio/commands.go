package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsawler/folio"
	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/pipeline"
	"github.com/tsawler/folio/rag"
)

// runFlags are the flags shared by the commands running the pipeline
type runFlags struct {
	pages     string
	batchSize int
	primary   string
	fallback  string
	records   []string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.pages, "pages", "p", "", `pages to process, e.g. "1-3,7" (default: all)`)
	cmd.Flags().IntVar(&f.batchSize, "batch-size", -1, "pages per batch, 0 for one batch (default: from configuration)")
	cmd.Flags().StringVar(&f.primary, "primary", "", "primary word extractor: pdftext, tesseract, vision, documentai or records")
	cmd.Flags().StringVar(&f.fallback, "fallback", "", "fallback word extractor: tesseract, vision, documentai, records or none")
	cmd.Flags().StringSliceVar(&f.records, "records", nil, "prediction files of external layout detectors, most trusted first")
}

// document applies the flags over the loaded configuration
func (f *runFlags) document(a *app, path string) (*folio.Document, error) {
	cfg := a.config
	if f.batchSize >= 0 {
		cfg.Pipeline.BatchSize = f.batchSize
	}
	if f.primary != "" {
		cfg.Extraction.Primary = f.primary
	}
	if f.fallback != "" {
		cfg.Extraction.Fallback = f.fallback
	}
	doc := folio.Open(path).WithConfig(cfg)
	if len(f.records) > 0 {
		doc = doc.Records(f.records...)
	}
	if f.pages != "" {
		pages, err := parsePages(f.pages)
		if err != nil {
			return nil, err
		}
		doc = doc.Pages(pages...)
	}
	return doc, nil
}

// parsePages parses a list of 1-indexed pages and inclusive ranges
func parsePages(s string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		first, last, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(last)); err != nil {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
		}
		if start < 1 || end < start {
			return nil, fmt.Errorf("invalid page range %q", part)
		}
		for p := start; p <= end; p++ {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page in %q", s)
	}
	return pages, nil
}

func newParseCmd(a *app) *cobra.Command {
	var flags runFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <pdf-file>",
		Short: "Process a document and report how every batch went",
		Example: `  # Report on a whole document
  folio parse report.pdf

  # Machine readable report for the first ten pages
  folio parse report.pdf --pages 1-10 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := flags.document(a, args[0])
			if err != nil {
				return err
			}
			result, err := doc.Parse(cmd.Context())
			if result == nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(newReport(args[0], result)); encErr != nil {
					return encErr
				}
			} else {
				printReport(cmd.OutOrStdout(), args[0], result)
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var flags runFlags
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <pdf-file>...",
		Short: "Export documents as Markdown, XML, JSON or text",
		Example: `  # Markdown on stdout
  folio export report.pdf

  # XML files written next to each other in out/
  folio export a.pdf b.pdf --format xml --output out/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.WithComponent("cli")
			if format == "" {
				format = a.config.Output.Format
			}
			f, err := rag.ParseFormat(format)
			if err != nil {
				return err
			}
			if output == "" {
				output = a.config.Output.Dir
			}
			if output != "" && len(args) > 1 {
				if err := os.MkdirAll(output, 0o755); err != nil {
					return err
				}
			}

			for _, path := range args {
				doc, err := flags.document(a, path)
				if err != nil {
					return err
				}
				w, closeOut, err := openOutput(cmd.OutOrStdout(), output, path, f, len(args) > 1)
				if err != nil {
					return err
				}
				warnings, err := doc.Export(cmd.Context(), w, f)
				if cerr := closeOut(); err == nil {
					err = cerr
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, msg := range warnings {
					log.Warn().Str("document", path).Msg(msg)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "", "export format: json, xml, md or str (default: from configuration)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or directory when several documents are given (default: stdout)")
	return cmd
}

func newChunksCmd(a *app) *cobra.Command {
	var flags runFlags
	var output string
	cmd := &cobra.Command{
		Use:   "chunks <pdf-file>",
		Short: "Split a document into retrieval chunks, written as JSON Lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := flags.document(a, args[0])
			if err != nil {
				return err
			}
			result, _, err := doc.Chunks(cmd.Context())
			if err != nil {
				return err
			}
			w, closeOut, err := openOutput(cmd.OutOrStdout(), output, args[0], rag.FormatJSON, false)
			if err != nil {
				return err
			}
			err = rag.NewExporterWithConfig(a.config.Enrich).ExportChunks(w, result.Chunks)
			if cerr := closeOut(); err == nil {
				err = cerr
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// openOutput returns where to write the export of path: stdout, the output
// file, or a file named after path inside the output directory
func openOutput(stdout io.Writer, output, path string, format rag.Format, dir bool) (io.Writer, func() error, error) {
	if output == "" {
		return stdout, func() error { return nil }, nil
	}
	if info, err := os.Stat(output); dir || (err == nil && info.IsDir()) {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		output = filepath.Join(output, base+format.FileExtension())
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// report is the JSON form of a run
type report struct {
	Document    string          `json:"document"`
	State       string          `json:"state"`
	Elements    int             `json:"elements"`
	Pages       int             `json:"pages"`
	Transcribed int             `json:"transcribed"`
	Batches     []batchReport   `json:"batches"`
	Failed      []string        `json:"failed,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Enrichment  rag.ModifyStats `json:"enrichment"`
}

type batchReport struct {
	Index     int    `json:"index"`
	Pages     []int  `json:"pages"`
	Extractor string `json:"extractor"`
	Fallback  bool   `json:"fallback"`
	Attempts  int    `json:"attempts"`
	State     string `json:"state"`
	Elements  int    `json:"elements"`
	Tables    int    `json:"tables"`
	Unordered int    `json:"unordered"`
	Duration  string `json:"duration"`
}

func newReport(path string, result *pipeline.Result) report {
	r := report{
		Document:    path,
		State:       result.State.String(),
		Transcribed: result.Transcribed,
		Warnings:    result.Warnings,
		Enrichment:  result.Enrichment,
	}
	if result.Layout != nil {
		r.Elements = result.Layout.Len()
		r.Pages = result.Layout.PageCount()
	}
	for _, b := range result.Batches {
		pages := make([]int, len(b.Pages))
		for i, p := range b.Pages {
			pages[i] = p + 1
		}
		r.Batches = append(r.Batches, batchReport{
			Index:     b.Index,
			Pages:     pages,
			Extractor: b.Extractor.String(),
			Fallback:  b.Fallback,
			Attempts:  b.Attempts,
			State:     b.State.String(),
			Elements:  b.Stats.ElementCount,
			Tables:    b.Stats.TableCount,
			Unordered: b.Unordered,
			Duration:  b.Duration.String(),
		})
	}
	for _, f := range result.Failed {
		r.Failed = append(r.Failed, f.Error())
	}
	return r
}

func printReport(w io.Writer, path string, result *pipeline.Result) {
	r := newReport(path, result)
	fmt.Fprintf(w, "%s: %s, %d elements on %d pages\n", r.Document, r.State, r.Elements, r.Pages)
	for _, b := range r.Batches {
		fallback := ""
		if b.Fallback {
			fallback = " (fallback)"
		}
		fmt.Fprintf(w, "  batch %d pages %v: %s by %s%s, %d elements, %d tables, %d attempts, %s\n",
			b.Index, b.Pages, b.State, b.Extractor, fallback, b.Elements, b.Tables, b.Attempts, b.Duration)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  failed: %s\n", f)
	}
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
}
