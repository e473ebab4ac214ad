// Package rdf provides the RDF term, statement and graph types used by every
// other package, together with parsing, canonical N-Triples serialization and
// content hashing.
//
// Terms are plain comparable values so statements can be used as map keys.
// Literal lexical forms are NFC normalized when parsed, plain literals carry no
// datatype and language-tagged literals carry no datatype; this makes the
// N-Triples form of a statement canonical and lets it double as its identity.
//
// Parsing of N-Triples, Turtle and RDF/XML is delegated to github.com/knakk/rdf.
package rdf
