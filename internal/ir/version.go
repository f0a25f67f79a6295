package ir

// Binary format identifiers and versions.
const (
	// ValueDocumentMagic opens every persisted Value document.
	ValueDocumentMagic = "BVT\x00"

	// ValueDocumentVersion is the Value document format version.
	ValueDocumentVersion uint32 = 2

	// OperationGraphMagic opens every persisted operation graph.
	OperationGraphMagic = "BOG\x00"

	// OperationGraphVersion is the operation graph format version.
	OperationGraphVersion uint32 = 5

	// EngineVersion is the opgraph engine version.
	EngineVersion = "0.1.0"
)
