package auth

import "context"

// ProgressStore keeps the quests a user has completed
type ProgressStore interface {
	CompletedQuests(ctx context.Context, userID string) ([]string, error)
	CompleteQuest(ctx context.Context, userID, questID string) ([]string, error)
}
