package algebra

import "github.com/aleksaelezovic/oxigo/pkg/rdf"

// UpdateOp distinguishes the ten SPARQL 1.1 Update operation kinds modelled
// here.
type UpdateOp int

const (
	OpInsertData UpdateOp = iota
	OpDeleteData
	OpDeleteInsert // covers DELETE WHERE, INSERT WHERE and full DELETE/INSERT WHERE
	OpLoad
	OpClear
	OpCreate
	OpDrop
	OpCopy
	OpMove
	OpAdd
)

// QuadData is one block of ground triples from an INSERT DATA/DELETE DATA
// request, scoped to a single graph (nil Graph means the default graph).
type QuadData struct {
	Graph   rdf.Term
	Triples []TriplePattern
}

// GraphTarget names a graph reference in CLEAR/DROP/COPY/MOVE/ADD/LOAD:
// DEFAULT, GRAPH <iri>, NAMED (all named graphs), or ALL.
type GraphTarget struct {
	Kind GraphTargetKind
	IRI  rdf.Term // set when Kind == TargetIRI
}

type GraphTargetKind int

const (
	TargetDefault GraphTargetKind = iota
	TargetIRI
	TargetNamed
	TargetAll
)

// UpdateOperation is one statement of a (possibly `;`-separated) SPARQL
// Update request.
type UpdateOperation struct {
	Op     UpdateOp
	Silent bool

	// INSERT DATA / DELETE DATA
	Data []QuadData

	// DELETE/INSERT WHERE (DeleteTemplate/InsertTemplate may each be nil
	// for the INSERT-only / DELETE-only shorthand forms)
	DeleteTemplate []TriplePattern
	InsertTemplate []TriplePattern
	Using          []rdf.Term // USING <iri> / USING NAMED <iri> default-graph dataset override
	Where          Node

	// LOAD
	LoadSource string
	LoadInto   *GraphTarget // nil = default graph

	// CLEAR / CREATE / DROP
	Target GraphTarget

	// COPY / MOVE / ADD
	From GraphTarget
	To   GraphTarget
}

// Update is a full SPARQL Update request: one or more operations executed
// in sequence, each in its own transaction.
type Update struct {
	Operations []UpdateOperation
	BaseURI    string
}
