package rdf

// Namespaces.
const (
	RDFNS     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNS    = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNS     = "http://www.w3.org/2002/07/owl#"
	XSDNS     = "http://www.w3.org/2001/XMLSchema#"
	OntoregNS = "https://w3id.org/ontoreg#"
)

// Well-known IRIs.
const (
	RDFType       = RDFNS + "type"
	RDFLangString = RDFNS + "langString"
	XSDString     = XSDNS + "string"

	RDFSLabel         = RDFSNS + "label"
	RDFSSubClassOf    = RDFSNS + "subClassOf"
	RDFSSubPropertyOf = RDFSNS + "subPropertyOf"
	RDFSDomain        = RDFSNS + "domain"
	RDFSRange         = RDFSNS + "range"
	RDFSClass         = RDFSNS + "Class"

	OWLOntology        = OWLNS + "Ontology"
	OWLImports         = OWLNS + "imports"
	OWLVersionIRI      = OWLNS + "versionIRI"
	OWLClass           = OWLNS + "Class"
	OWLThing           = OWLNS + "Thing"
	OWLNothing         = OWLNS + "Nothing"
	OWLDisjointWith    = OWLNS + "disjointWith"
	OWLEquivalentClass = OWLNS + "equivalentClass"
	OWLInverseOf       = OWLNS + "inverseOf"

	// CurrentVersion links a managed identity to its current version IRI.
	CurrentVersion = OntoregNS + "currentVersion"
	// CurrentInferredVersion links a managed identity to the inferred context
	// of its current version.
	CurrentInferredVersion = OntoregNS + "currentInferredVersion"
)

// Frequently used terms.
var (
	Type       = IRI(RDFType)
	Label      = IRI(RDFSLabel)
	Ontology   = IRI(OWLOntology)
	Imports    = IRI(OWLImports)
	VersionIRI = IRI(OWLVersionIRI)
)
