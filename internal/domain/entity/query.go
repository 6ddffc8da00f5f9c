package entity

// SemanticQuery asks the vector index for ranked ids of one domain.
type SemanticQuery struct {
	Domain Domain
	Text   string
	Role   string
	Limit  int
}

// KeywordQuery is a substring search over one domain of the relational store.
type KeywordQuery struct {
	Text  string
	Role  string
	City  string
	Limit int
}

// IndexDocument is a record with its embedding, ready for the vector index.
type IndexDocument struct {
	Record Record
	Vector []float32
}
