package service

import (
	"context"

	"study-assistant-be/internal/repository/unitofwork"
	"study-assistant-be/pkg/rag"
)

// PassageSearcher adapts the pgvector passage repository to the narrow
// search contract the retrieval stage expects.
type PassageSearcher struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewPassageSearcher(uowFactory unitofwork.RepositoryFactory) *PassageSearcher {
	return &PassageSearcher{uowFactory: uowFactory}
}

func (s *PassageSearcher) SearchSimilar(ctx context.Context, vector []float32, k int) ([]rag.Passage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	found, err := uow.PassageRepository().SearchSimilar(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	passages := make([]rag.Passage, len(found))
	for i, p := range found {
		passages[i] = rag.Passage{
			ID:       p.Id.String(),
			SourceID: p.DocumentId.String(),
			Text:     p.Text,
			Rank:     i,
		}
	}
	return passages, nil
}
