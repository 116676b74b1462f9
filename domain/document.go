package domain

// Document is one normalized unit of ingested content before chunking.
type Document struct {
	Content  string
	Metadata Metadata
}

// Chunk is a bounded slice of a Document's content. It inherits the
// parent's metadata and records where in the parent it came from.
type Chunk struct {
	Content  string
	Metadata Metadata
	Origin   Origin
}

// Origin locates a chunk inside the documents of one ingestion.
type Origin struct {
	DocumentIndex int
	ChunkIndex    int
	StartIndex    int // byte offset into the parent document
	Page          int // 1-based, 0 when unknown
}

// Source returns the source identifier of the chunk, or "unknown".
func (c Chunk) Source() string {
	if c.Metadata == nil {
		return "unknown"
	}

	return c.Metadata.Source()
}

// Fields flattens the chunk metadata and origin into a string map, which
// is the payload shape stored next to each vector.
func (c Chunk) Fields() map[string]string {
	fields := make(map[string]string)
	if c.Metadata != nil {
		for k, v := range c.Metadata.Fields() {
			fields[k] = v
		}
	}

	fields[KeyDocumentIndex] = itoa(c.Origin.DocumentIndex)
	fields[KeyChunkIndex] = itoa(c.Origin.ChunkIndex)
	fields[KeyStartIndex] = itoa(c.Origin.StartIndex)

	if c.Origin.Page > 0 {
		fields[KeyPage] = itoa(c.Origin.Page)
	}

	return fields
}

// ChunkFromFields rebuilds a chunk from stored content and payload.
func ChunkFromFields(content string, fields map[string]string) Chunk {
	return Chunk{
		Content:  content,
		Metadata: ParseMetadata(fields),
		Origin: Origin{
			DocumentIndex: atoi(fields[KeyDocumentIndex]),
			ChunkIndex:    atoi(fields[KeyChunkIndex]),
			StartIndex:    atoi(fields[KeyStartIndex]),
			Page:          atoi(fields[KeyPage]),
		},
	}
}
