// Package contentstream splits page content streams into operations.
//
// Each operation is an operator with the operands pushed before it:
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    if op.Operator == "Tj" {
//	        text := op.Operands[0].(core.String)
//	    }
//	}
//
// Operands are core objects. Inline images come back as a single BI
// operation carrying the image dictionary; the image bytes are skipped.
package contentstream
