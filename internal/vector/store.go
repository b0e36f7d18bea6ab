package vector

import (
	"sort"
	"strings"
	"time"

	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

// NewMemoryStore builds an empty MemoryStore at the given dimension. A
// zero-value Config defaults the dimension to 1536.
func NewMemoryStore(cfg Config) (*MemoryStore, error) {
	dim := cfg.Dimension
	if dim == 0 {
		dim = DefaultConfig().Dimension
	}
	if dim < 0 {
		return nil, ragerr.VectorStoreError("dimension must be positive")
	}
	return &MemoryStore{
		documents:  make(map[string]*Document),
		chunks:     make(map[string]*Chunk),
		byDocument: make(map[string][]string),
		dimension:  dim,
	}, nil
}

// AddDocuments validates and inserts documents all-or-nothing per document,
// best-effort across documents (§4.D): a document whose chunks fail
// validation is rejected whole, but every other document in the same call
// is still attempted and inserted on its own merits.
func (s *MemoryStore) AddDocuments(docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failedIDs []string
	for _, doc := range docs {
		if err := validateChunkDimensions(doc, s.dimension); err != nil {
			failedIDs = append(failedIDs, doc.ID)
			continue
		}
		s.insertDocumentLocked(doc)
	}

	if len(failedIDs) > 0 {
		return ragerr.VectorStoreError("chunk embedding dimension mismatch").
			WithDetails(map[string]string{"document_ids": strings.Join(failedIDs, ",")})
	}
	return nil
}

func validateChunkDimensions(doc Document, dimension int) error {
	for _, c := range doc.Chunks {
		if len(c.Embedding) != dimension {
			return ragerr.VectorStoreError("chunk embedding dimension mismatch").
				WithDetails(map[string]string{"document_id": doc.ID, "chunk_id": c.ID})
		}
	}
	return nil
}

func (s *MemoryStore) insertDocumentLocked(doc Document) {
	// Replace-on-reinsert: drop any prior chunks for this document id first.
	s.removeDocumentLocked(doc.ID)

	d := doc
	chunkIDs := make([]string, 0, len(doc.Chunks))
	d.Chunks = make([]Chunk, len(doc.Chunks))
	for i, c := range doc.Chunks {
		cc := c
		cc.DocumentID = doc.ID
		d.Chunks[i] = cc
		s.chunks[cc.ID] = &d.Chunks[i]
		chunkIDs = append(chunkIDs, cc.ID)
	}
	s.documents[doc.ID] = &d
	s.byDocument[doc.ID] = chunkIDs
}

// RemoveDocuments deletes each document and all of its chunks atomically;
// unknown ids are ignored (idempotent).
func (s *MemoryStore) RemoveDocuments(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.removeDocumentLocked(id)
	}
	return nil
}

func (s *MemoryStore) removeDocumentLocked(id string) {
	for _, chunkID := range s.byDocument[id] {
		delete(s.chunks, chunkID)
	}
	delete(s.byDocument, id)
	delete(s.documents, id)
}

// Search implements the §4.D algorithm: filter candidates, score under the
// configured metric, threshold, sort by (score desc, chunk_id asc), and
// take the top_k.
func (s *MemoryStore) Search(q Query) (*RetrievalResult, error) {
	start := time.Now()

	if q.Embedding != nil && len(q.Embedding) != s.dimension {
		return nil, ragerr.RetrievalError("query embedding dimension does not match index dimension")
	}

	s.mu.RLock()
	candidates := s.filterLocked(q)
	s.mu.RUnlock()

	metric := q.Metric
	if metric == "" {
		metric = MetricCosine
	}

	type scored struct {
		chunk Chunk
		score float32
	}

	vecs := make([]Vector, len(candidates))
	for i, c := range candidates {
		vecs[i] = c.Embedding
	}
	scores := BatchSimilarity(metric, q.Embedding, vecs)

	results := make([]scored, 0, len(candidates))
	for i, c := range candidates {
		if scores[i] >= q.MinSimilarity {
			results = append(results, scored{chunk: c, score: scores[i]})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunk.ID < results[j].chunk.ID
	})

	topK := q.TopK
	if topK <= 0 || topK > len(results) {
		topK = len(results)
	}

	out := make([]RetrievedChunk, topK)
	for i := 0; i < topK; i++ {
		out[i] = RetrievedChunk{Chunk: results[i].chunk, Score: results[i].score, Rank: i}
	}

	return &RetrievalResult{
		Results:     out,
		TotalChunks: len(candidates),
		QueryTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// filterLocked applies the document-id, file-type, and metadata filters.
// Must be called with s.mu held (read or write).
func (s *MemoryStore) filterLocked(q Query) []Chunk {
	var docIDs map[string]bool
	if len(q.DocumentIDFilter) > 0 {
		docIDs = make(map[string]bool, len(q.DocumentIDFilter))
		for _, id := range q.DocumentIDFilter {
			docIDs[id] = true
		}
	}
	var fileTypes map[string]bool
	if len(q.FileTypeFilter) > 0 {
		fileTypes = make(map[string]bool, len(q.FileTypeFilter))
		for _, ft := range q.FileTypeFilter {
			fileTypes[ft] = true
		}
	}

	var out []Chunk
	if docIDs != nil {
		// Use the per-document index instead of scanning every chunk —
		// resolves the quadratic document-id filter noted in the source.
		for docID := range docIDs {
			for _, chunkID := range s.byDocument[docID] {
				c := s.chunks[chunkID]
				if c == nil {
					continue
				}
				if s.matchesFileTypeAndMetadata(c, fileTypes, q.MetadataFilter) {
					out = append(out, *c)
				}
			}
		}
		return out
	}

	for _, c := range s.chunks {
		if s.matchesFileTypeAndMetadata(c, fileTypes, q.MetadataFilter) {
			out = append(out, *c)
		}
	}
	return out
}

func (s *MemoryStore) matchesFileTypeAndMetadata(c *Chunk, fileTypes map[string]bool, metaFilter map[string]interface{}) bool {
	if fileTypes != nil && !fileTypes[c.Source.FileType] {
		return false
	}
	for k, v := range metaFilter {
		if c.Metadata == nil || c.Metadata[k] != v {
			return false
		}
	}
	return true
}

// GetDocument returns a copy of the document with id, or an error if absent.
func (s *MemoryStore) GetDocument(id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, ragerr.New(ragerr.KindInternal, ragerr.CodeNotFound, "document not found").WithDetails(map[string]string{"id": id})
	}
	cp := *d
	return &cp, nil
}

// GetAllDocuments returns a snapshot of every indexed document.
func (s *MemoryStore) GetAllDocuments() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.documents))
	for _, d := range s.documents {
		out = append(out, *d)
	}
	return out
}

// Clear empties the index.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[string]*Document)
	s.chunks = make(map[string]*Chunk)
	s.byDocument = make(map[string][]string)
	return nil
}

// Stats reports the index's current size.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		DocumentCount: len(s.documents),
		ChunkCount:    len(s.chunks),
		Dimension:     s.dimension,
	}
}

// Close releases no resources for the in-memory store; present to satisfy
// Store for symmetry with a future persistent implementation.
func (s *MemoryStore) Close() error { return nil }

// GetDimension returns the configured embedding dimension.
func (s *MemoryStore) GetDimension() int {
	return s.dimension
}
