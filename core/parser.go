package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver loads indirect objects. The parser needs one to read
// streams whose /Length is an indirect reference.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds objects from the tokens of a Scanner
type Parser struct {
	sc       *Scanner
	resolver ReferenceResolver
}

// NewParser returns a parser reading data from its start
func NewParser(data []byte) *Parser {
	return &Parser{sc: NewScanner(data)}
}

// SetReferenceResolver sets the resolver used for indirect stream lengths
func (p *Parser) SetReferenceResolver(r ReferenceResolver) {
	p.resolver = r
}

// Pos returns the offset of the next unread byte
func (p *Parser) Pos() int { return p.sc.Pos() }

// Scanner returns the underlying scanner, for callers that need raw
// access between objects
func (p *Parser) Scanner() *Scanner { return p.sc }

// Next reads the next value. Bare keywords other than true, false and null
// come back as Keyword, which lets content streams read their operators.
// At the end of input Next returns io.EOF.
func (p *Parser) Next() (Object, error) {
	tok, err := p.sc.Next()
	if err != nil {
		return nil, err
	}
	return p.value(tok)
}

// ParseObject reads one direct object. A keyword where an object is
// expected is an error.
func (p *Parser) ParseObject() (Object, error) {
	obj, err := p.Next()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	if kw, ok := obj.(Keyword); ok {
		return nil, p.sc.errorf(p.sc.Pos()-len(kw), fmt.Sprintf("unexpected keyword %q", kw))
	}
	return obj, nil
}

func (p *Parser) value(tok Token) (Object, error) {
	switch tok.Kind {
	case TokenInt:
		n, _ := strconv.ParseInt(string(tok.Text), 10, 64)
		if ref, ok := p.reference(n); ok {
			return ref, nil
		}
		return Int(n), nil
	case TokenReal:
		f, _ := strconv.ParseFloat(string(tok.Text), 64)
		return Real(f), nil
	case TokenString:
		return String(tok.Text), nil
	case TokenName:
		return Name(tok.Text), nil
	case TokenArrayStart:
		return p.array(tok.Pos)
	case TokenDictStart:
		return p.dict(tok.Pos)
	case TokenKeyword:
		switch string(tok.Text) {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		case "null":
			return Null{}, nil
		}
		return Keyword(tok.Text), nil
	}
	return nil, p.sc.errorf(tok.Pos, "unexpected "+tok.Kind.String())
}

// reference looks past an integer for "gen R". The scanner is rewound when
// the lookahead does not match.
func (p *Parser) reference(num int64) (IndirectRef, bool) {
	mark := p.sc.Pos()
	gen, err := p.sc.Next()
	if err == nil && gen.Kind == TokenInt {
		r, err := p.sc.Next()
		if err == nil && r.Kind == TokenKeyword && string(r.Text) == "R" {
			g, _ := strconv.Atoi(string(gen.Text))
			return IndirectRef{Number: int(num), Generation: g}, true
		}
	}
	p.sc.Seek(mark)
	return IndirectRef{}, false
}

func (p *Parser) array(start int) (Object, error) {
	arr := Array{}
	for {
		tok, err := p.sc.Next()
		if err != nil {
			return nil, p.unterminated(err, start, "array")
		}
		if tok.Kind == TokenArrayEnd {
			return arr, nil
		}
		obj, err := p.value(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) dict(start int) (Object, error) {
	d := Dict{}
	for {
		tok, err := p.sc.Next()
		if err != nil {
			return nil, p.unterminated(err, start, "dictionary")
		}
		if tok.Kind == TokenDictEnd {
			return d, nil
		}
		if tok.Kind != TokenName {
			return nil, p.sc.errorf(tok.Pos, "dictionary key is a "+tok.Kind.String())
		}
		vt, err := p.sc.Next()
		if err != nil {
			return nil, p.unterminated(err, start, "dictionary")
		}
		if vt.Kind == TokenDictEnd {
			// a key without value reads as null
			d[string(tok.Text)] = Null{}
			return d, nil
		}
		v, err := p.value(vt)
		if err != nil {
			return nil, err
		}
		d[string(tok.Text)] = v
	}
}

func (p *Parser) unterminated(err error, start int, what string) error {
	if errors.Is(err, io.EOF) {
		return p.sc.errorf(start, "unterminated "+what)
	}
	return err
}

// ParseIndirectObject reads "num gen obj value endobj", where value may be
// a dictionary followed by stream data
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	var head [3]Token
	for i := range head {
		tok, err := p.sc.Next()
		if err != nil {
			return nil, fmt.Errorf("object header: %w", err)
		}
		head[i] = tok
	}
	if head[0].Kind != TokenInt || head[1].Kind != TokenInt ||
		head[2].Kind != TokenKeyword || string(head[2].Text) != "obj" {
		return nil, p.sc.errorf(head[0].Pos, "expected \"num gen obj\"")
	}
	num, _ := strconv.Atoi(string(head[0].Text))
	gen, _ := strconv.Atoi(string(head[1].Text))
	ref := IndirectRef{Number: num, Generation: gen}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}

	tok, err := p.sc.Next()
	if err == nil && tok.Kind == TokenKeyword && string(tok.Text) == "stream" {
		d, ok := obj.(Dict)
		if !ok {
			return nil, p.sc.errorf(tok.Pos, "stream without dictionary")
		}
		if obj, err = p.stream(d); err != nil {
			return nil, fmt.Errorf("object %d: %w", num, err)
		}
		tok, err = p.sc.Next()
	}
	// a missing endobj is tolerated; many writers truncate it
	if err == nil && (tok.Kind != TokenKeyword || string(tok.Text) != "endobj") {
		p.sc.Seek(tok.Pos)
	}
	return &IndirectObject{Ref: ref, Object: obj}, nil
}

var endstream = []byte("endstream")

// stream reads the data after the stream keyword. When /Length is missing
// or does not land on endstream the data runs up to the next endstream.
func (p *Parser) stream(d Dict) (*Stream, error) {
	p.sc.SkipEOL()
	start := p.sc.Pos()

	if n, ok := p.streamLength(d); ok {
		if data, err := p.sc.Read(n); err == nil {
			p.sc.SkipSpace()
			if bytes.HasPrefix(p.sc.Data()[p.sc.Pos():], endstream) {
				p.sc.Seek(p.sc.Pos() + len(endstream))
				return &Stream{Dict: d, Data: data}, nil
			}
		}
		p.sc.Seek(start)
	}

	rest := p.sc.Data()[start:]
	end := bytes.Index(rest, endstream)
	if end < 0 {
		return nil, p.sc.errorf(start, "stream without endstream")
	}
	data := bytes.TrimSuffix(rest[:end], []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	p.sc.Seek(start + end + len(endstream))
	return &Stream{Dict: d, Data: data}, nil
}

func (p *Parser) streamLength(d Dict) (int, bool) {
	switch v := d.Get("Length").(type) {
	case Int:
		return int(v), v >= 0
	case IndirectRef:
		if p.resolver == nil {
			return 0, false
		}
		obj, err := p.resolver.ResolveReference(v)
		if n, ok := obj.(Int); err == nil && ok && n >= 0 {
			return int(n), true
		}
	}
	return 0, false
}
