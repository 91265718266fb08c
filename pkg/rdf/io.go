package rdf

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Decoder adapts one of this package's format-specific parsers (Turtle,
// TriG, N-Quads, JSON-LD, RDF/XML) to a single Quad-producing interface so
// callers — bulk load, the Graph Store Protocol's POST/PUT handlers, the
// CLI's load command — don't need a type switch per format.
type Decoder interface {
	// Parse reads everything available from r and returns every quad it
	// found. Formats with no native graph component (Turtle, N-Triples,
	// RDF/XML, JSON-LD) place every triple in the default graph.
	Parse(r io.Reader) ([]*Quad, error)

	// ContentType is the MIME type this Decoder was built for.
	ContentType() string
}

// RDFParser is kept as an alias of Decoder for callers written against the
// older name.
type RDFParser = Decoder

// NewParser selects a Decoder by MIME type, ignoring any `; charset=...`
// parameter suffix.
func NewParser(contentType string) (Decoder, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}

	switch ct {
	case "application/n-triples", "text/plain":
		return ntriplesDecoder{}, nil
	case "application/n-quads":
		return nquadsDecoder{}, nil
	case "text/turtle", "application/x-turtle":
		return turtleDecoder{}, nil
	case "application/trig", "application/x-trig":
		return trigDecoder{}, nil
	case "application/ld+json":
		return jsonldDecoder{}, nil
	case "application/rdf+xml":
		return rdfxmlDecoder{}, nil
	default:
		return nil, fmt.Errorf("rdf: unsupported content type %q", contentType)
	}
}

// ContentTypeFromExtension guesses a MIME type from a file path's
// extension, for callers (e.g. the CLI's load command) that accept a bare
// file path rather than an explicit format flag. Defaults to N-Triples
// when the extension is unrecognized, since that's the format every other
// syntax here degrades to in the worst case.
func ContentTypeFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		return "application/n-triples"
	case ".nq":
		return "application/n-quads"
	case ".ttl":
		return "text/turtle"
	case ".trig":
		return "application/trig"
	case ".jsonld":
		return "application/ld+json"
	case ".rdf", ".xrdf", ".owl":
		return "application/rdf+xml"
	default:
		return "application/n-triples"
	}
}

// SupportedContentTypes lists every MIME type NewParser accepts.
func SupportedContentTypes() []string {
	return []string{
		"application/n-triples",
		"text/plain",
		"application/n-quads",
		"text/turtle",
		"application/x-turtle",
		"application/trig",
		"application/x-trig",
		"application/ld+json",
		"application/rdf+xml",
	}
}

// GetSupportedContentTypes is kept for callers written against the older
// name; identical to SupportedContentTypes.
func GetSupportedContentTypes() []string { return SupportedContentTypes() }

func readAllOrWrap(r io.Reader, format string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("rdf: reading %s input: %w", format, err)
	}
	return string(data), nil
}

func triplesToDefaultGraphQuads(triples []*Triple) []*Quad {
	quads := make([]*Quad, len(triples))
	dg := NewDefaultGraph()
	for i, t := range triples {
		quads[i] = NewQuad(t.Subject, t.Predicate, t.Object, dg)
	}
	return quads
}

// ntriplesDecoder reads N-Triples, the triple-only subset of Turtle with
// no prefixes or named graphs.
type ntriplesDecoder struct{}

func (ntriplesDecoder) ContentType() string { return "application/n-triples" }

func (ntriplesDecoder) Parse(r io.Reader) ([]*Quad, error) {
	data, err := readAllOrWrap(r, "N-Triples")
	if err != nil {
		return nil, err
	}
	triples, err := NewTurtleParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("rdf: parsing N-Triples: %w", err)
	}
	return triplesToDefaultGraphQuads(triples), nil
}

// nquadsDecoder reads N-Quads: N-Triples plus an optional fourth graph term.
type nquadsDecoder struct{}

func (nquadsDecoder) ContentType() string { return "application/n-quads" }

func (nquadsDecoder) Parse(r io.Reader) ([]*Quad, error) {
	data, err := readAllOrWrap(r, "N-Quads")
	if err != nil {
		return nil, err
	}
	quads, err := NewNQuadsParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("rdf: parsing N-Quads: %w", err)
	}
	return quads, nil
}

// turtleDecoder reads Turtle: N-Triples plus prefixes, relative IRIs and
// collection/blank-node-property-list shorthand.
type turtleDecoder struct{}

func (turtleDecoder) ContentType() string { return "text/turtle" }

func (turtleDecoder) Parse(r io.Reader) ([]*Quad, error) {
	data, err := readAllOrWrap(r, "Turtle")
	if err != nil {
		return nil, err
	}
	triples, err := NewTurtleParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("rdf: parsing Turtle: %w", err)
	}
	return triplesToDefaultGraphQuads(triples), nil
}

// trigDecoder reads TriG: Turtle's syntax extended with `GRAPH <iri> { ... }`
// blocks, producing quads in named graphs alongside the default graph.
type trigDecoder struct{}

func (trigDecoder) ContentType() string { return "application/trig" }

func (trigDecoder) Parse(r io.Reader) ([]*Quad, error) {
	data, err := readAllOrWrap(r, "TriG")
	if err != nil {
		return nil, err
	}
	quads, err := NewTriGParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("rdf: parsing TriG: %w", err)
	}
	return quads, nil
}

// jsonldDecoder reads a useful subset of JSON-LD (see JSONLDParser), always
// into the default graph.
type jsonldDecoder struct{}

func (jsonldDecoder) ContentType() string { return "application/ld+json" }

func (jsonldDecoder) Parse(r io.Reader) ([]*Quad, error) {
	quads, err := NewJSONLDParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("rdf: parsing JSON-LD: %w", err)
	}
	return quads, nil
}

// rdfxmlDecoder reads RDF/XML, always into the default graph.
type rdfxmlDecoder struct{}

func (rdfxmlDecoder) ContentType() string { return "application/rdf+xml" }

func (rdfxmlDecoder) Parse(r io.Reader) ([]*Quad, error) {
	quads, err := NewRDFXMLParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("rdf: parsing RDF/XML: %w", err)
	}
	return quads, nil
}
