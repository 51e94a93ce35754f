package docstore

// Record is one embedded chunk of a document. Records are immutable once
// inserted; re-ingesting a document creates new records.
type Record struct {
	ID     uint32
	File   string
	Crc    uint32
	Page   int
	Text   string
	Vector []float32
}

// QueryResult is a ranked match for a single query. Never persisted.
type QueryResult struct {
	ID    uint32
	File  string
	Page  int
	Text  string
	Score float32
	Rank  int
}

// IngestedDoc identifies a document present in the store.
type IngestedDoc struct {
	File string
	Crc  uint32
}
