package rdf

import (
	"bufio"
	"bytes"
	"io"
)

// WriteNTriples writes g as canonical N-Triples: one statement per line in
// sorted order.
func WriteNTriples(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	for _, st := range g.Statements() {
		if _, err := bw.WriteString(st.String()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// CanonicalBytes returns the canonical N-Triples encoding of g.
func CanonicalBytes(g *Graph) []byte {
	var buf bytes.Buffer
	_ = WriteNTriples(&buf, g)
	return buf.Bytes()
}
