package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/folio/core"
)

// Operation is one operator with the operands that preceded it
type Operation struct {
	Operator string
	Operands []core.Object
}

// Parser reads a content stream into operations
type Parser struct {
	p        *core.Parser
	ops      []Operation
	operands []core.Object
}

// NewParser returns a parser over data
func NewParser(data []byte) *Parser {
	return &Parser{p: core.NewParser(data)}
}

// Parse returns every operation in stream order. On a syntax error the
// operations read so far are returned with the error.
func (p *Parser) Parse() ([]Operation, error) {
	for {
		obj, err := p.p.Next()
		if errors.Is(err, io.EOF) {
			return p.ops, nil
		}
		if err != nil {
			return p.ops, fmt.Errorf("contentstream: %w", err)
		}

		kw, ok := obj.(core.Keyword)
		if !ok {
			p.operands = append(p.operands, obj)
			continue
		}
		if kw == "BI" {
			if err := p.inlineImage(); err != nil {
				return p.ops, fmt.Errorf("contentstream: %w", err)
			}
			continue
		}
		p.emit(string(kw))
	}
}

func (p *Parser) emit(operator string) {
	p.ops = append(p.ops, Operation{Operator: operator, Operands: p.operands})
	p.operands = nil
}

// inlineImage reads the parameters between BI and ID and skips the image
// data up to EI. It emits a BI operation whose operand is the parameter
// dictionary.
func (p *Parser) inlineImage() error {
	params := core.Dict{}
	for {
		key, err := p.p.Next()
		if err != nil {
			return fmt.Errorf("inline image: %w", unexpectedEOF(err))
		}
		if kw, ok := key.(core.Keyword); ok && kw == "ID" {
			break
		}
		name, ok := key.(core.Name)
		if !ok {
			return fmt.Errorf("inline image: key %v is not a name", key)
		}
		value, err := p.p.Next()
		if err != nil {
			return fmt.Errorf("inline image: %w", unexpectedEOF(err))
		}
		if kw, ok := value.(core.Keyword); ok {
			// abbreviated values such as /CS G
			value = core.Name(kw)
		}
		params[string(name)] = value
	}

	sc := p.p.Scanner()
	data := sc.Data()
	start := sc.Pos()
	if start < len(data) && isSpace(data[start]) {
		start++
	}
	end := findEI(data, start)
	if end < 0 {
		return fmt.Errorf("inline image at %d: missing EI", start)
	}
	sc.Seek(end + 2)
	p.operands = []core.Object{params}
	p.emit("BI")
	return nil
}

// findEI returns the offset of the first EI at or after from that stands
// alone between whitespace, or -1
func findEI(data []byte, from int) int {
	for i := from; i+2 <= len(data); {
		j := bytes.Index(data[i:], []byte("EI"))
		if j < 0 {
			return -1
		}
		at := i + j
		before := at == from || isSpace(data[at-1])
		after := at+2 == len(data) || isSpace(data[at+2])
		if before && after {
			return at
		}
		i = at + 1
	}
	return -1
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}
