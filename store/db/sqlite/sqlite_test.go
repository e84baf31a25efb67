package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitview/orbitview/internal/profile"
	"github.com/orbitview/orbitview/store"
)

const testModel = "text-embedding-3-small"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	driver, err := NewDB(&profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "orbitview_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver, nil)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createTestItem(t *testing.T, st *store.Store, id, ownerID, title string, ts int64) *store.ContentItem {
	t.Helper()

	item, err := st.CreateContentItem(context.Background(), &store.ContentItem{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
		ContentType: store.ContentTypeExperience,
		Description: "description of " + title,
		CreatedTs:   ts,
		UpdatedTs:   ts,
	})
	require.NoError(t, err)
	return item
}

func upsertTestEmbedding(t *testing.T, st *store.Store, contentID, ownerID string, vec []float32, ts int64) *store.ContentEmbedding {
	t.Helper()

	embedding, err := st.UpsertContentEmbedding(context.Background(), &store.ContentEmbedding{
		ContentID: contentID,
		OwnerID:   ownerID,
		Model:     testModel,
		Embedding: vec,
		Metadata:  map[string]string{store.MetadataKeyContentType: string(store.ContentTypeExperience)},
		CreatedTs: ts,
		UpdatedTs: ts,
	})
	require.NoError(t, err)
	return embedding
}

func TestContentItemCRUD(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	createTestItem(t, st, "c1", "user-1", "Backend migration", 100)

	item, err := st.GetContentItem(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Backend migration", item.Title)
	assert.Equal(t, store.ContentTypeExperience, item.ContentType)

	newDesc := "rewrote the monolith as services"
	updated, err := st.UpdateContentItem(ctx, &store.UpdateContentItem{
		ID:          "c1",
		Description: &newDesc,
		UpdatedTs:   200,
	})
	require.NoError(t, err)
	assert.Equal(t, newDesc, updated.Description)
	assert.Equal(t, int64(200), updated.UpdatedTs)
	assert.Equal(t, "Backend migration", updated.Title)

	require.NoError(t, st.DeleteContentItem(ctx, "c1"))
	item, err = st.GetContentItem(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestListContentItemsByOwner(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	createTestItem(t, st, "c1", "user-1", "first", 100)
	createTestItem(t, st, "c2", "user-1", "second", 200)
	createTestItem(t, st, "c3", "user-2", "other owner", 300)

	ownerID := "user-1"
	list, err := st.ListContentItems(ctx, &store.FindContentItem{OwnerID: &ownerID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Most recent first.
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c1", list[1].ID)
}

func TestUpsertReplacesEmbedding(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	createTestItem(t, st, "c1", "user-1", "item", 100)
	upsertTestEmbedding(t, st, "c1", "user-1", []float32{1, 0, 0}, 100)
	upsertTestEmbedding(t, st, "c1", "user-1", []float32{0, 1, 0}, 200)

	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{0, 1, 0},
		Model:   testModel,
		Limit:   10,
	})
	require.NoError(t, err)
	// The replaced entry must appear exactly once, scored against the new
	// vector only.
	require.Len(t, matches, 1)
	assert.Equal(t, "c1", matches[0].ContentID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestVectorSearchOrdering(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	upsertTestEmbedding(t, st, "far", "user-1", []float32{0, 1, 0}, 100)
	upsertTestEmbedding(t, st, "near", "user-1", []float32{1, 0.1, 0}, 200)
	upsertTestEmbedding(t, st, "exact", "user-1", []float32{1, 0, 0}, 300)

	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{1, 0, 0},
		Model:   testModel,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "exact", matches[0].ContentID)
	assert.Equal(t, "near", matches[1].ContentID)
	assert.Equal(t, "far", matches[2].ContentID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestVectorSearchTieBreaksByRecency(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	// Identical vectors produce identical scores; the newer entry wins.
	upsertTestEmbedding(t, st, "older", "user-1", []float32{1, 0, 0}, 100)
	upsertTestEmbedding(t, st, "newer", "user-1", []float32{1, 0, 0}, 200)

	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{1, 0, 0},
		Model:   testModel,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "newer", matches[0].ContentID)
	assert.Equal(t, "older", matches[1].ContentID)
}

func TestVectorSearchLimit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	upsertTestEmbedding(t, st, "a", "user-1", []float32{1, 0, 0}, 100)
	upsertTestEmbedding(t, st, "b", "user-1", []float32{0.9, 0.1, 0}, 200)
	upsertTestEmbedding(t, st, "c", "user-1", []float32{0, 1, 0}, 300)

	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{1, 0, 0},
		Model:   testModel,
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ContentID)
	assert.Equal(t, "b", matches[1].ContentID)
}

func TestVectorSearchNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	upsertTestEmbedding(t, st, "theirs", "user-2", []float32{1, 0, 0}, 100)

	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{1, 0, 0},
		Model:   testModel,
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVectorSearchModelIsolation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
		ContentID: "c1",
		OwnerID:   "user-1",
		Model:     "BAAI/bge-m3",
		Embedding: []float32{1, 0, 0},
	})
	require.NoError(t, err)

	// Vectors from different models are not comparable and never mix.
	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{1, 0, 0},
		Model:   testModel,
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVectorSearchMetadataFilter(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
		ContentID: "exp",
		OwnerID:   "user-1",
		Model:     testModel,
		Embedding: []float32{1, 0, 0},
		Metadata:  map[string]string{store.MetadataKeyContentType: "experience"},
	})
	require.NoError(t, err)
	_, err = st.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
		ContentID: "doc",
		OwnerID:   "user-1",
		Model:     testModel,
		Embedding: []float32{1, 0, 0},
		Metadata:  map[string]string{store.MetadataKeyContentType: "document"},
	})
	require.NoError(t, err)

	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID:        "user-1",
		Vector:         []float32{1, 0, 0},
		Model:          testModel,
		Limit:          10,
		MetadataFilter: map[string]string{store.MetadataKeyContentType: "document"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc", matches[0].ContentID)
}

func TestVectorSearchValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{1, 0, 0},
		Model:   testModel,
		Limit:   0,
	})
	require.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		Vector: []float32{1, 0, 0},
		Model:  testModel,
		Limit:  10,
	})
	require.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestDeleteItemRemovesEmbedding(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	createTestItem(t, st, "c1", "user-1", "item", 100)
	upsertTestEmbedding(t, st, "c1", "user-1", []float32{1, 0, 0}, 100)

	require.NoError(t, st.DeleteContentItem(ctx, "c1"))

	matches, err := st.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: "user-1",
		Vector:  []float32{1, 0, 0},
		Model:   testModel,
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, matches)

	embedding, err := st.GetContentEmbedding(ctx, "c1", testModel)
	require.NoError(t, err)
	assert.Nil(t, embedding)
}

func TestDeleteEmbeddingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.DeleteContentEmbedding(ctx, "never-existed"))
}

func TestFindContentItemsWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	createTestItem(t, st, "unindexed", "user-1", "no embedding yet", 100)
	createTestItem(t, st, "indexed", "user-1", "has embedding", 200)
	createTestItem(t, st, "stale", "user-1", "embedding out of date", 300)

	upsertTestEmbedding(t, st, "indexed", "user-1", []float32{1, 0, 0}, 200)
	upsertTestEmbedding(t, st, "stale", "user-1", []float32{1, 0, 0}, 300)

	// Editing the item after its embedding was written marks it stale.
	newDesc := "changed"
	_, err := st.UpdateContentItem(ctx, &store.UpdateContentItem{
		ID:          "stale",
		Description: &newDesc,
		UpdatedTs:   400,
	})
	require.NoError(t, err)

	pending, err := st.FindContentItemsWithoutEmbedding(ctx, &store.FindContentItemsWithoutEmbedding{
		Model: testModel,
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "unindexed", pending[0].ID)
	assert.Equal(t, "stale", pending[1].ID)
}

func TestQuestionSnapshotSurvivesAnswer(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.CreateQuestion(ctx, &store.Question{
		ID:                 "q1",
		AskerID:            "asker",
		TargetUserID:       "target",
		Question:           "Tell me about your backend work",
		RelevantContentIDs: []string{"c1", "c2"},
		CreatedTs:          100,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, created.RelevantContentIDs)

	answered, err := st.AnswerQuestion(ctx, &store.AnswerQuestion{
		ID:         "q1",
		Answer:     "I led a migration to microservices.",
		AnsweredTs: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "I led a migration to microservices.", answered.Answer)
	assert.Equal(t, int64(200), answered.AnsweredTs)
	// The snapshot attached at creation never changes.
	assert.Equal(t, []string{"c1", "c2"}, answered.RelevantContentIDs)
}

func TestQuestionValidation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateQuestion(ctx, &store.Question{ID: "q1"})
	require.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = st.AnswerQuestion(ctx, &store.AnswerQuestion{ID: "q1"})
	require.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateProject(ctx, &store.Project{
		ID:             "p1",
		ClientID:       "client",
		Title:          "Build a REST API",
		Description:    "Django backend with PostgreSQL",
		RequiredSkills: []string{"python", "django"},
		BudgetRange:    "$5k-$10k",
		Duration:       "2 months",
		Status:         store.ProjectStatusOpen,
		CreatedTs:      100,
	})
	require.NoError(t, err)

	open, err := st.ListOpenProjects(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, []string{"python", "django"}, open[0].RequiredSkills)

	require.NoError(t, st.UpdateProjectStatus(ctx, "p1", store.ProjectStatusInProgress))

	open, err = st.ListOpenProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	project, err := st.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, store.ProjectStatusInProgress, project.Status)

	err = st.UpdateProjectStatus(ctx, "p1", "archived")
	require.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestProjectApplications(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateProject(ctx, &store.Project{
		ID:       "p1",
		ClientID: "client",
		Title:    "Build a REST API",
		Status:   store.ProjectStatusOpen,
	})
	require.NoError(t, err)

	_, err = st.CreateProjectApplication(ctx, &store.ProjectApplication{
		ID:          "a1",
		ProjectID:   "p1",
		ApplicantID: "user-1",
		Proposal:    "I have shipped three Django services.",
		MatchScore:  0.87,
		CreatedTs:   100,
	})
	require.NoError(t, err)

	apps, err := st.ListProjectApplications(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.InDelta(t, 0.87, apps[0].MatchScore, 1e-6)

	_, err = st.CreateProjectApplication(ctx, &store.ProjectApplication{ID: "a2"})
	require.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestBLOBRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.14159, 0}
	decoded, err := blobToFloat32Array(float32ArrayToBLOB(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = blobToFloat32Array([]byte{1, 2, 3})
	require.Error(t, err)
}
