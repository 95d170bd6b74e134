package models

// SearchResult is a single chunk-level similarity hit. Ephemeral, never persisted.
type SearchResult struct {
	ChunkID     string  `json:"chunk_id"`
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title,omitempty"`
	Seq         int     `json:"seq"`
	Text        string  `json:"text"`
	PageNumber  int     `json:"page_number,omitempty"`
	SectionPath string  `json:"section_path,omitempty"`
	HeadingPath string  `json:"heading_path,omitempty"`
	ItemType    string  `json:"item_type,omitempty"`
	DocType     string  `json:"doc_type,omitempty"`
	Score       float64 `json:"score"`
}

// Passage is one retrieved chunk inside an answer-context group, with the
// citation label an answer composer should attach to claims drawn from it.
type Passage struct {
	ChunkID  string  `json:"chunk_id"`
	Seq      int     `json:"seq"`
	Text     string  `json:"text"`
	Location string  `json:"location,omitempty"` // "p.3", "Results > Ablations"
	Citation string  `json:"citation"`           // "[Title, p.3]"
	Score    float64 `json:"score"`
}

// SourceGroup is all retrieved passages from one document, ordered by Seq.
type SourceGroup struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title,omitempty"`
	ItemType   string    `json:"item_type,omitempty"`
	DocType    string    `json:"doc_type,omitempty"`
	BestScore  float64   `json:"best_score"`
	Passages   []Passage `json:"passages"`
}

// AnswerContext is retrieval shaped for downstream answer composition:
// groups ordered by best chunk score descending, passages within a group by Seq.
type AnswerContext struct {
	Query  string        `json:"query"`
	Groups []SourceGroup `json:"groups"`
}

// RankedSource is one document in a discovery ranking. Score is the maximum
// chunk score for the document; Evidence is the best-scoring chunk.
type RankedSource struct {
	DocumentID       string  `json:"document_id"`
	Title            string  `json:"title,omitempty"`
	ItemType         string  `json:"item_type,omitempty"`
	DocType          string  `json:"doc_type,omitempty"`
	Score            float64 `json:"score"`
	ChunkHits        int     `json:"chunk_hits"`
	Evidence         string  `json:"evidence"`
	EvidenceLocation string  `json:"evidence_location,omitempty"`
}

// Stats describes the current index contents.
type Stats struct {
	Documents int            `json:"documents"`
	Chunks    int            `json:"chunks"`
	PerModel  map[string]int `json:"per_model"` // model_id -> embedding count
}
