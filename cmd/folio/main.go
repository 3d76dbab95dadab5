// Command folio converts PDF documents into structured Markdown, XML, JSON
// or plain text, and into retrieval chunks.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
