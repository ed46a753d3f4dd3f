package domain

import "time"

type FileType string

const (
	FileTypeText     FileType = "text"
	FileTypePDF      FileType = "pdf"
	FileTypeDOCX     FileType = "docx"
	FileTypeMarkdown FileType = "markdown"
)

// Document is an uploaded source file after loading. Text holds the
// normalized text stream that the splitter partitions.
type Document struct {
	ID         string
	Filename   string
	FileType   FileType
	Size       int64
	Checksum   string
	Pages      int
	Text       string
	IngestedAt time.Time
}

// Chunk is a contiguous slice of a document's normalized text. Start and End
// are rune offsets; the first Overlap runes repeat the tail of the previous chunk.
type Chunk struct {
	DocID    string
	Filename string
	Index    int
	Text     string
	Start    int
	End      int
	Overlap  int
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

type VectorRecord struct {
	ID          string    `json:"id"`
	Seq         uint64    `json:"seq"`
	DocID       string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Text        string    `json:"text"`
	Vector      []float32 `json:"vector"`
	CreatedAt   time.Time `json:"created_at"`
}

type ScoredRecord struct {
	Record VectorRecord
	Score  float64
}

type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricDot       Metric = "dot"
	MetricEuclidean Metric = "euclidean"
)

// CollectionInfo fingerprints the configuration a collection was built with.
type CollectionInfo struct {
	Name           string    `json:"name"`
	Provider       string    `json:"provider"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	Metric         Metric    `json:"metric"`
	SchemaVersion  int       `json:"schema_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentSummary is what the store remembers about an ingested document.
type DocumentSummary struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	FileType   FileType  `json:"file_type"`
	Chunks     int       `json:"chunks"`
	Checksum   string    `json:"checksum"`
	IngestedAt time.Time `json:"ingested_at"`
}

type Query struct {
	Question string
	TopK     int
}

type Citation struct {
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_id"`
	Preview    string `json:"content_preview"`
}

type AnswerStatus string

const (
	StatusAnswered            AnswerStatus = "answered"
	StatusInsufficientContext AnswerStatus = "insufficient_context"
	StatusNoRelevantContent   AnswerStatus = "no_relevant_content"
)

type Answer struct {
	Text       string
	Grounded   bool
	Status     AnswerStatus
	Citations  []Citation
	ChunksUsed int
}

// Upload is a raw file handed to ingestion.
type Upload struct {
	Filename string
	Data     []byte
}

type FileResult struct {
	Filename string `json:"filename"`
	DocID    string `json:"doc_id,omitempty"`
	Chunks   int    `json:"chunks"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type IngestResult struct {
	FilesProcessed int          `json:"files_processed"`
	ChunksCreated  int          `json:"chunks_created"`
	Files          []FileResult `json:"files"`
}
