package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
	"github.com/kirillkom/euact-compliance/internal/core/ports"
)

// corpusNamespace makes point ids a pure function of chunk text and position,
// so re-running the indexer over the same corpus rewrites points in place.
var corpusNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// IndexCorpusUseCase loads the reference corpus document, chunks it and
// upserts embedded chunks into the vector index.
type IndexCorpusUseCase struct {
	storage    ports.ObjectStorage
	extractor  ports.TextExtractor
	chunker    ports.Chunker
	embedder   ports.Embedder
	index      ports.VectorIndex
	collection string
	corpusKey  string
	batchSize  int
}

func NewIndexCorpusUseCase(
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	collection string,
	corpusKey string,
) *IndexCorpusUseCase {
	return &IndexCorpusUseCase{
		storage:    storage,
		extractor:  extractor,
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		collection: collection,
		corpusKey:  corpusKey,
		batchSize:  32,
	}
}

// IndexCorpus returns the number of chunks now present in the collection.
// Without force, an already populated collection is left untouched.
func (uc *IndexCorpusUseCase) IndexCorpus(ctx context.Context, force bool) (int, error) {
	existing, err := uc.index.Count(ctx, uc.collection)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", uc.collection, err)
	}
	if existing > 0 && !force {
		slog.Info("corpus_index_skipped", "collection", uc.collection, "existing_chunks", existing)
		return existing, nil
	}

	reader, err := uc.storage.Open(ctx, uc.corpusKey)
	if err != nil {
		return 0, fmt.Errorf("open corpus %s: %w", uc.corpusKey, err)
	}
	defer reader.Close()

	text, err := uc.extractor.Extract(ctx, uc.corpusKey, reader)
	if err != nil {
		return 0, err
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "index corpus", fmt.Errorf("corpus document yielded no chunks"))
	}

	if force && existing > 0 {
		if err := uc.index.Clear(ctx, uc.collection); err != nil {
			return 0, fmt.Errorf("clear collection %s: %w", uc.collection, err)
		}
	}

	indexed := 0
	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		vectors, err := uc.embedder.Embed(ctx, batch)
		if err != nil {
			return indexed, err
		}
		if len(vectors) != len(batch) {
			return indexed, domain.WrapError(domain.ErrEmbedding, "index corpus",
				fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(batch)))
		}

		points := make([]domain.IndexPoint, len(batch))
		for i, chunk := range batch {
			chunkIndex := start + i
			points[i] = domain.IndexPoint{
				ID:     uuid.NewSHA1(corpusNamespace, []byte(fmt.Sprintf("%d:%s", chunkIndex, chunk))).String(),
				Vector: vectors[i],
				Text:   chunk,
				Metadata: map[string]any{
					"chunk_index":  chunkIndex,
					"source":       uc.corpusKey,
					"total_chunks": len(chunks),
				},
			}
		}

		if err := uc.index.Upsert(ctx, uc.collection, points); err != nil {
			return indexed, fmt.Errorf("upsert batch: %w", err)
		}
		indexed += len(points)
	}

	slog.Info("corpus_indexed", "collection", uc.collection, "chunks", indexed, "force", force)
	return indexed, nil
}

func (uc *IndexCorpusUseCase) Stats(ctx context.Context) (domain.CorpusStats, error) {
	count, err := uc.index.Count(ctx, uc.collection)
	if err != nil {
		return domain.CorpusStats{}, fmt.Errorf("count collection %s: %w", uc.collection, err)
	}
	return domain.CorpusStats{
		Collection: uc.collection,
		Chunks:     count,
		Indexed:    count > 0,
	}, nil
}
