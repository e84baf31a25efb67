// Package matching scores candidate skills against project requirements via
// embedding similarity and ranks open projects for a user.
package matching

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/orbitview/orbitview/ai"
	"github.com/orbitview/orbitview/ai/metrics"
	"github.com/orbitview/orbitview/ai/similarity"
	"github.com/orbitview/orbitview/store"
)

// DefaultMinScore is the calibrated cutoff for "meaningfully related".
// Always a parameter, never hard-wired into ranking.
const DefaultMinScore float32 = 0.7

// defaultConcurrency bounds parallel embedding calls during batch ranking.
const defaultConcurrency = 4

// EmbeddingService is the subset of the embedding client used here.
// Local interface to keep the matcher mockable in tests.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Matcher computes skill-match scores.
type Matcher struct {
	embedder    EmbeddingService
	concurrency int
}

// NewMatcher creates a skill matcher. Pass a caching embedder so repeated
// rankings reuse requirement vectors instead of re-embedding per comparison.
func NewMatcher(embedder EmbeddingService) *Matcher {
	return &Matcher{
		embedder:    embedder,
		concurrency: defaultConcurrency,
	}
}

// ProjectMatch pairs a project with its match score for one ranking call.
// Scores are request-scoped; only a final application persists one.
type ProjectMatch struct {
	Project *store.Project
	Score   float32
}

// ProjectFailure reports a project excluded from ranking because its score
// could not be computed.
type ProjectFailure struct {
	ProjectID string
	Err       error
}

// RankResult is the outcome of one RankProjects call: ranked matches plus the
// per-project failures that were isolated from the batch.
type RankResult struct {
	Matches  []ProjectMatch
	Failures []ProjectFailure
}

// Match returns the cosine similarity between the joined requirement set and
// the joined skill set, in [-1, 1]. Both sets are sorted lexicographically
// before joining so the score is independent of input order.
func (m *Matcher) Match(ctx context.Context, requirements, candidateSkills []string) (float32, error) {
	reqBlob := joinSkills(requirements)
	if reqBlob == "" {
		return 0, errors.Wrap(ai.ErrInvalidInput, "requirements cannot be empty")
	}
	skillBlob := joinSkills(candidateSkills)
	if skillBlob == "" {
		return 0, errors.Wrap(ai.ErrInvalidInput, "candidate skills cannot be empty")
	}

	reqVector, err := m.embedder.Embed(ctx, reqBlob)
	if err != nil {
		return 0, errors.Wrap(err, "failed to embed requirements")
	}
	skillVector, err := m.embedder.Embed(ctx, skillBlob)
	if err != nil {
		return 0, errors.Wrap(err, "failed to embed candidate skills")
	}

	score, err := similarity.Cosine(reqVector, skillVector)
	if err != nil {
		return 0, err
	}
	metrics.ObserveMatchScore(score)
	return score, nil
}

// RankProjects scores every project against userSkills, drops scores at or
// below minScore (exclusive), and sorts descending with ties keeping input
// project order. A single project's failure excludes that project and is
// reported in the result, never propagated as a batch failure. The user-skill
// embedding failing is fatal: without it no project has a score.
func (m *Matcher) RankProjects(ctx context.Context, projects []*store.Project, userSkills []string, minScore float32) (*RankResult, error) {
	skillBlob := joinSkills(userSkills)
	if skillBlob == "" {
		return nil, errors.Wrap(ai.ErrInvalidInput, "user skills cannot be empty")
	}
	skillVector, err := m.embedder.Embed(ctx, skillBlob)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed user skills")
	}

	type scored struct {
		match ProjectMatch
		ok    bool
	}
	results := make([]scored, len(projects))

	var mu sync.Mutex
	failures := []ProjectFailure{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, project := range projects {
		g.Go(func() error {
			score, err := m.matchAgainst(gctx, project.RequiredSkills, skillVector)
			if err != nil {
				mu.Lock()
				failures = append(failures, ProjectFailure{ProjectID: project.ID, Err: err})
				mu.Unlock()
				return nil
			}
			results[i] = scored{match: ProjectMatch{Project: project, Score: score}, ok: true}
			return nil
		})
	}
	// Goroutines never return errors; failures are collected per project.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Failures keep input order for deterministic diagnostics.
	sort.SliceStable(failures, func(i, j int) bool {
		return indexOf(projects, failures[i].ProjectID) < indexOf(projects, failures[j].ProjectID)
	})

	matches := make([]ProjectMatch, 0, len(projects))
	for _, r := range results {
		if r.ok && r.match.Score > minScore {
			matches = append(matches, r.match)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return &RankResult{Matches: matches, Failures: failures}, nil
}

// matchAgainst scores one requirement set against an already-embedded skill
// vector, so the skill blob is embedded once per ranking call.
func (m *Matcher) matchAgainst(ctx context.Context, requirements []string, skillVector []float32) (float32, error) {
	reqBlob := joinSkills(requirements)
	if reqBlob == "" {
		return 0, errors.Wrap(ai.ErrInvalidInput, "requirements cannot be empty")
	}

	reqVector, err := m.embedder.Embed(ctx, reqBlob)
	if err != nil {
		return 0, errors.Wrap(err, "failed to embed requirements")
	}

	score, err := similarity.Cosine(reqVector, skillVector)
	if err != nil {
		return 0, err
	}
	metrics.ObserveMatchScore(score)
	return score, nil
}

// joinSkills turns a skill set into a deterministic text blob: trimmed,
// deduplicated, sorted lexicographically, space-joined. Order-independent by
// construction.
func joinSkills(skills []string) string {
	cleaned := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		cleaned = append(cleaned, skill)
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, " ")
}

func indexOf(projects []*store.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return len(projects)
}
