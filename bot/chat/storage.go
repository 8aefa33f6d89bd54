package chat

import "context"

// DialogStateRepository defines the database operations for dialog state.
type DialogStateRepository interface {
	SaveDialogState(ctx context.Context, state *DialogState) error
	LoadDialogState(ctx context.Context, userID string) (*DialogState, error)
	DeleteDialogState(ctx context.Context, userID string) error
}

// RepositoryStore adapts a database repository to the StateStore interface.
type RepositoryStore struct {
	repo DialogStateRepository
}

func NewRepositoryStore(repo DialogStateRepository) *RepositoryStore {
	return &RepositoryStore{repo: repo}
}

func (s *RepositoryStore) Save(ctx context.Context, state *DialogState) error {
	return s.repo.SaveDialogState(ctx, state)
}

func (s *RepositoryStore) Load(ctx context.Context, userID string) (*DialogState, error) {
	return s.repo.LoadDialogState(ctx, userID)
}

func (s *RepositoryStore) Delete(ctx context.Context, userID string) error {
	return s.repo.DeleteDialogState(ctx, userID)
}
