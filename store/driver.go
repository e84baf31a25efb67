package store

import "context"

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() any
	Close() error
	Migrate(ctx context.Context) error

	// ContentItem model related methods.
	CreateContentItem(ctx context.Context, create *ContentItem) (*ContentItem, error)
	ListContentItems(ctx context.Context, find *FindContentItem) ([]*ContentItem, error)
	UpdateContentItem(ctx context.Context, update *UpdateContentItem) (*ContentItem, error)
	DeleteContentItem(ctx context.Context, id string) error
	FindContentItemsWithoutEmbedding(ctx context.Context, find *FindContentItemsWithoutEmbedding) ([]*ContentItem, error)

	// ContentEmbedding model related methods.
	UpsertContentEmbedding(ctx context.Context, embedding *ContentEmbedding) (*ContentEmbedding, error)
	GetContentEmbedding(ctx context.Context, contentID string, model string) (*ContentEmbedding, error)
	DeleteContentEmbedding(ctx context.Context, contentID string) error
	ContentVectorSearch(ctx context.Context, opts *ContentVectorSearchOptions) ([]*ContentMatch, error)

	// Question model related methods.
	CreateQuestion(ctx context.Context, create *Question) (*Question, error)
	GetQuestion(ctx context.Context, id string) (*Question, error)
	ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error)
	AnswerQuestion(ctx context.Context, answer *AnswerQuestion) (*Question, error)

	// Project model related methods.
	CreateProject(ctx context.Context, create *Project) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, find *FindProject) ([]*Project, error)
	UpdateProjectStatus(ctx context.Context, id string, status ProjectStatus) error

	// ProjectApplication model related methods.
	CreateProjectApplication(ctx context.Context, create *ProjectApplication) (*ProjectApplication, error)
	ListProjectApplications(ctx context.Context, projectID string) ([]*ProjectApplication, error)
}
