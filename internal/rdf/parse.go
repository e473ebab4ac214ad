package rdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	krdf "github.com/knakk/rdf"
	"golang.org/x/text/unicode/norm"
)

// Format is an RDF serialization accepted by Parse.
type Format string

const (
	NTriples Format = "ntriples"
	Turtle   Format = "turtle"
	RDFXML   Format = "rdfxml"
)

// ParseFormat accepts format names, file extensions and media types.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "nt", "ntriples", "n-triples", "application/n-triples":
		return NTriples, nil
	case "ttl", "turtle", "text/turtle":
		return Turtle, nil
	case "rdf", "owl", "xml", "rdfxml", "rdf/xml", "application/rdf+xml":
		return RDFXML, nil
	}
	return "", fmt.Errorf("unsupported rdf format %q", s)
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

func (f Format) knakk() (krdf.Format, error) {
	switch f {
	case NTriples:
		return krdf.NTriples, nil
	case Turtle:
		return krdf.Turtle, nil
	case RDFXML:
		return krdf.RDFXML, nil
	}
	return 0, fmt.Errorf("unsupported rdf format %q", string(f))
}

// Parse decodes r into a graph. Blank node labels are prefixed with salt so
// graphs parsed with different salts never share blank nodes. Whitespace-only
// input yields an empty graph in every format.
func Parse(r io.Reader, format Format, salt string) (*Graph, error) {
	kf, err := format.knakk()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}
	g := NewGraph()
	if len(bytes.TrimSpace(data)) == 0 {
		return g, nil
	}

	dec := krdf.NewTripleDecoder(bytes.NewReader(data), kf)
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", format, err)
		}
		st, err := fromKnakk(t, salt)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", format, err)
		}
		g.Add(st)
	}
	return g, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte, format Format, salt string) (*Graph, error) {
	return Parse(bytes.NewReader(data), format, salt)
}

func fromKnakk(t krdf.Triple, salt string) (Statement, error) {
	s, err := termFromKnakk(t.Subj, salt)
	if err != nil {
		return Statement{}, err
	}
	p, err := termFromKnakk(t.Pred, salt)
	if err != nil {
		return Statement{}, err
	}
	o, err := termFromKnakk(t.Obj, salt)
	if err != nil {
		return Statement{}, err
	}
	st := Statement{Subject: s, Predicate: p, Object: o}
	if !st.Valid() {
		return Statement{}, fmt.Errorf("malformed statement %s", st)
	}
	return st, nil
}

func termFromKnakk(t krdf.Term, salt string) (Term, error) {
	switch v := t.(type) {
	case krdf.IRI:
		return IRI(v.String()), nil
	case krdf.Blank:
		label := strings.TrimPrefix(v.String(), "_:")
		if salt != "" {
			label = salt + "x" + label
		}
		return Blank(label), nil
	case krdf.Literal:
		lex := norm.NFC.String(v.String())
		if lang := v.Lang(); lang != "" {
			return LangLiteral(lex, lang), nil
		}
		return TypedLiteral(lex, v.DataType.String()), nil
	}
	return Term{}, fmt.Errorf("unsupported term %T", t)
}
