package domain

import "time"

// SourceFile describes a document in the object store. The processed flag is
// the only field the pipeline writes back; files are never deleted here.
type SourceFile struct {
	Name         string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Metadata keys written back to the document store once a file is ingested.
const (
	MetaProcessed           = "processed"
	MetaDocumentID          = "document_id"
	MetaChunksCount         = "chunks_count"
	MetaEmbeddingsGenerated = "embeddings_generated"
	MetaProcessedTimestamp  = "processed_timestamp"
)

// Processed reports whether the file has already been ingested.
func (f *SourceFile) Processed() bool {
	return f.Metadata[MetaProcessed] == "true"
}
