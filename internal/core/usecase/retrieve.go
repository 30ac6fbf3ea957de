package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
	"github.com/kirillkom/euact-compliance/internal/core/ports"
)

// queryAnchors steer the embedding toward regulation vocabulary regardless of
// how the source document phrases things.
var queryAnchors = []string{
	"AI system",
	"machine learning",
	"high risk AI",
	"prohibited AI practices",
	"artificial intelligence regulation",
}

const queryDocumentPrefix = 500

// RetrieveContextUseCase turns a document into a search query, embeds it and
// fetches the nearest reference passages from the corpus collection.
type RetrieveContextUseCase struct {
	embedder   ports.Embedder
	index      ports.VectorIndex
	collection string
	topK       int
}

func NewRetrieveContextUseCase(embedder ports.Embedder, index ports.VectorIndex, collection string, topK int) *RetrieveContextUseCase {
	if topK <= 0 {
		topK = 5
	}
	return &RetrieveContextUseCase{
		embedder:   embedder,
		index:      index,
		collection: collection,
		topK:       topK,
	}
}

func (uc *RetrieveContextUseCase) Retrieve(ctx context.Context, documentText string) ([]domain.ContextPassage, error) {
	query := reformulateQuery(documentText)

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	passages, err := uc.index.Query(ctx, uc.collection, vector, uc.topK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "query vector index", err)
	}
	return passages, nil
}

// reformulateQuery prefixes a bounded slice of the document with fixed anchor
// terms. The bound keeps the query stable for arbitrarily long documents.
func reformulateQuery(documentText string) string {
	head := strings.TrimSpace(documentText)
	if len(head) > queryDocumentPrefix {
		head = head[:queryDocumentPrefix]
	}
	return head + "\n\nKey compliance topics: " + strings.Join(queryAnchors, ", ")
}
