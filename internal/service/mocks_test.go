package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritaslabs/veritas/internal/domain"
	"github.com/veritaslabs/veritas/internal/store"
)

// mockAuditStore implements domain.AuditStore and collects the records the
// argument and fact mocks emit on confidence mutations.
type mockAuditStore struct {
	records []domain.ConfidenceUpdate
}

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{}
}

func (m *mockAuditStore) append(rec domain.ConfidenceUpdate) {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	m.records = append(m.records, rec)
}

func (m *mockAuditStore) ListByArgument(ctx context.Context, argumentID uuid.UUID, limit int) ([]domain.ConfidenceUpdate, error) {
	var results []domain.ConfidenceUpdate
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if rec.ArgumentID == nil || *rec.ArgumentID != argumentID {
			continue
		}
		results = append(results, rec)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockAuditStore) ListByFact(ctx context.Context, factID uuid.UUID, limit int) ([]domain.ConfidenceUpdate, error) {
	var results []domain.ConfidenceUpdate
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if rec.FactID == nil || *rec.FactID != factID {
			continue
		}
		results = append(results, rec)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockAuditStore) byArgument(argumentID uuid.UUID) []domain.ConfidenceUpdate {
	var results []domain.ConfidenceUpdate
	for _, rec := range m.records {
		if rec.ArgumentID != nil && *rec.ArgumentID == argumentID {
			results = append(results, rec)
		}
	}
	return results
}

func (m *mockAuditStore) byFact(factID uuid.UUID) []domain.ConfidenceUpdate {
	var results []domain.ConfidenceUpdate
	for _, rec := range m.records {
		if rec.FactID != nil && *rec.FactID == factID {
			results = append(results, rec)
		}
	}
	return results
}

// mockArgumentStore implements domain.ArgumentStore for testing. Similarity
// results are preset per test via the similar slice.
type mockArgumentStore struct {
	arguments map[uuid.UUID]*domain.Argument
	similar   []domain.ArgumentWithScore
	audits    *mockAuditStore
}

func newMockArgumentStore(audits *mockAuditStore) *mockArgumentStore {
	return &mockArgumentStore{
		arguments: make(map[uuid.UUID]*domain.Argument),
		audits:    audits,
	}
}

func (m *mockArgumentStore) Create(ctx context.Context, a *domain.Argument) error {
	a.ID = uuid.New()
	a.EffectiveConfidence = a.Confidence
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.arguments[a.ID] = a

	id := a.ID
	m.audits.append(domain.ConfidenceUpdate{
		ArgumentID:    &id,
		OldConfidence: a.Confidence,
		NewConfidence: a.Confidence,
		Reason:        "initial",
	})
	return nil
}

func (m *mockArgumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	a, ok := m.arguments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockArgumentStore) FindSimilar(ctx context.Context, embedding []float32, opts domain.SimilarOpts) ([]domain.ArgumentWithScore, error) {
	results := []domain.ArgumentWithScore{}
	for _, s := range m.similar {
		if s.Similarity < opts.MinSimilarity {
			continue
		}
		if opts.ExcludeID != nil && s.ID == *opts.ExcludeID {
			continue
		}
		if current, ok := m.arguments[s.ID]; ok {
			s.Argument = *current
		}
		results = append(results, s)
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

func (m *mockArgumentStore) SetConfidence(ctx context.Context, id uuid.UUID, confidence float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	a, ok := m.arguments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := m.record(a, confidence, audit)
	a.Confidence = confidence
	return rec, nil
}

func (m *mockArgumentStore) NudgeConfidence(ctx context.Context, id uuid.UUID, delta, minChange float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	a, ok := m.arguments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := domain.Clamp(a.Confidence + delta)
	change := updated - a.Confidence
	if change < 0 {
		change = -change
	}
	if minChange > 0 && change <= minChange {
		return nil, nil
	}
	rec := m.record(a, updated, audit)
	a.Confidence = updated
	return rec, nil
}

func (m *mockArgumentStore) record(a *domain.Argument, newConfidence float64, audit domain.ConfidenceAudit) *domain.ConfidenceUpdate {
	id := a.ID
	rec := domain.ConfidenceUpdate{
		ArgumentID:       &id,
		InteractionID:    audit.InteractionID,
		OldConfidence:    a.Confidence,
		NewConfidence:    newConfidence,
		Reason:           audit.Reason,
		PropagatedFrom:   audit.PropagatedFrom,
		CosineSimilarity: audit.CosineSimilarity,
	}
	m.audits.append(rec)
	return &rec
}

func (m *mockArgumentStore) SetEffectiveConfidence(ctx context.Context, id uuid.UUID, effective float64) error {
	a, ok := m.arguments[id]
	if !ok {
		return store.ErrNotFound
	}
	a.EffectiveConfidence = effective
	return nil
}

func (m *mockArgumentStore) IncrementSupport(ctx context.Context, id uuid.UUID) (int, error) {
	a, ok := m.arguments[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	a.SupportCount++
	return a.SupportCount, nil
}

func (m *mockArgumentStore) IncrementRefute(ctx context.Context, id uuid.UUID) (int, error) {
	a, ok := m.arguments[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	a.RefuteCount++
	return a.RefuteCount, nil
}

func (m *mockArgumentStore) AssignCluster(ctx context.Context, id, clusterID uuid.UUID, head bool) error {
	a, ok := m.arguments[id]
	if !ok {
		return store.ErrNotFound
	}
	cid := clusterID
	a.ClusterID = &cid
	a.IsClusterHead = head
	return nil
}

func (m *mockArgumentStore) GetClusterMembers(ctx context.Context, clusterID uuid.UUID) ([]domain.Argument, error) {
	var results []domain.Argument
	for _, a := range m.arguments {
		if a.ClusterID != nil && *a.ClusterID == clusterID {
			results = append(results, *a)
		}
	}
	return results, nil
}

func (m *mockArgumentStore) ListTopByEffectiveConfidence(ctx context.Context, limit int) ([]domain.Argument, error) {
	var results []domain.Argument
	for _, a := range m.arguments {
		results = append(results, *a)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

// mockFactStore implements domain.FactStore for testing.
type mockFactStore struct {
	facts   map[uuid.UUID]*domain.Fact
	similar []domain.FactWithScore
	audits  *mockAuditStore
}

func newMockFactStore(audits *mockAuditStore) *mockFactStore {
	return &mockFactStore{
		facts:  make(map[uuid.UUID]*domain.Fact),
		audits: audits,
	}
}

func (m *mockFactStore) Create(ctx context.Context, f *domain.Fact) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	m.facts[f.ID] = f

	id := f.ID
	m.audits.append(domain.ConfidenceUpdate{
		FactID:        &id,
		OldConfidence: f.Confidence,
		NewConfidence: f.Confidence,
		Reason:        "initial",
	})
	return nil
}

func (m *mockFactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fact, error) {
	f, ok := m.facts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (m *mockFactStore) FindSimilar(ctx context.Context, embedding []float32, opts domain.SimilarOpts) ([]domain.FactWithScore, error) {
	results := []domain.FactWithScore{}
	for _, s := range m.similar {
		if s.Similarity < opts.MinSimilarity {
			continue
		}
		if opts.ExcludeID != nil && s.ID == *opts.ExcludeID {
			continue
		}
		results = append(results, s)
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

func (m *mockFactStore) SetConfidence(ctx context.Context, id uuid.UUID, confidence float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	f, ok := m.facts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := m.record(f, confidence, audit)
	f.Confidence = confidence
	return rec, nil
}

func (m *mockFactStore) NudgeConfidence(ctx context.Context, id uuid.UUID, delta, minChange float64, audit domain.ConfidenceAudit) (*domain.ConfidenceUpdate, error) {
	f, ok := m.facts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := domain.Clamp(f.Confidence + delta)
	change := updated - f.Confidence
	if change < 0 {
		change = -change
	}
	if minChange > 0 && change <= minChange {
		return nil, nil
	}
	rec := m.record(f, updated, audit)
	f.Confidence = updated
	return rec, nil
}

func (m *mockFactStore) record(f *domain.Fact, newConfidence float64, audit domain.ConfidenceAudit) *domain.ConfidenceUpdate {
	id := f.ID
	rec := domain.ConfidenceUpdate{
		FactID:           &id,
		InteractionID:    audit.InteractionID,
		OldConfidence:    f.Confidence,
		NewConfidence:    newConfidence,
		Reason:           audit.Reason,
		PropagatedFrom:   audit.PropagatedFrom,
		CosineSimilarity: audit.CosineSimilarity,
	}
	m.audits.append(rec)
	return &rec
}

func (m *mockFactStore) IncrementCitation(ctx context.Context, id uuid.UUID) (int, error) {
	f, ok := m.facts[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	f.CitationCount++
	return f.CitationCount, nil
}

func (m *mockFactStore) IncrementChallenge(ctx context.Context, id uuid.UUID) (int, error) {
	f, ok := m.facts[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	f.ChallengeCount++
	return f.ChallengeCount, nil
}

func (m *mockFactStore) ListLowConfidence(ctx context.Context, threshold float64, limit int) ([]domain.Fact, error) {
	var results []domain.Fact
	for _, f := range m.facts {
		if f.Confidence < threshold {
			results = append(results, *f)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

func (m *mockFactStore) ListEstablished(ctx context.Context, threshold float64, limit int) ([]domain.Fact, error) {
	var results []domain.Fact
	for _, f := range m.facts {
		if f.Confidence >= threshold {
			results = append(results, *f)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// mockLinkStore implements domain.LinkStore for testing. It joins fact
// confidence from the fact store the way the real query does.
type mockLinkStore struct {
	links     map[[2]uuid.UUID]*domain.ArgumentFactLink
	facts     *mockFactStore
	arguments *mockArgumentStore
}

func newMockLinkStore(arguments *mockArgumentStore, facts *mockFactStore) *mockLinkStore {
	return &mockLinkStore{
		links:     make(map[[2]uuid.UUID]*domain.ArgumentFactLink),
		facts:     facts,
		arguments: arguments,
	}
}

func (m *mockLinkStore) Upsert(ctx context.Context, link *domain.ArgumentFactLink) error {
	key := [2]uuid.UUID{link.ArgumentID, link.FactID}
	if existing, ok := m.links[key]; ok {
		existing.DependencyStrength = link.DependencyStrength
		existing.UpdatedAt = time.Now()
		link.CreatedAt = existing.CreatedAt
		link.UpdatedAt = existing.UpdatedAt
		return nil
	}
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	copied := *link
	m.links[key] = &copied
	return nil
}

func (m *mockLinkStore) ListByArgument(ctx context.Context, argumentID uuid.UUID) ([]domain.FactDependency, error) {
	var results []domain.FactDependency
	for _, l := range m.links {
		if l.ArgumentID != argumentID {
			continue
		}
		dep := domain.FactDependency{
			FactID:             l.FactID,
			DependencyStrength: l.DependencyStrength,
		}
		if f, ok := m.facts.facts[l.FactID]; ok {
			dep.Claim = f.Claim
			dep.FactConfidence = f.Confidence
		}
		results = append(results, dep)
	}
	return results, nil
}

func (m *mockLinkStore) ListArgumentIDsByFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error) {
	var results []uuid.UUID
	for _, l := range m.links {
		if l.FactID == factID {
			results = append(results, l.ArgumentID)
		}
	}
	return results, nil
}

func (m *mockLinkStore) ListDependentArguments(ctx context.Context, factID uuid.UUID) ([]domain.DependentArgument, error) {
	var results []domain.DependentArgument
	for _, l := range m.links {
		if l.FactID == factID {
			dep := domain.DependentArgument{DependencyStrength: l.DependencyStrength}
			if a, ok := m.arguments.arguments[l.ArgumentID]; ok {
				dep.Argument = *a
			}
			results = append(results, dep)
		}
	}
	return results, nil
}

// mockEmbeddingClient implements domain.EmbeddingClient for testing.
type mockEmbeddingClient struct{}

func (m *mockEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, 1536)
	emb[0] = 1
	return emb, nil
}

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// ledgerFixture wires both services over the shared mocks the way api.NewApp
// wires the real stores.
type ledgerFixture struct {
	arguments *mockArgumentStore
	facts     *mockFactStore
	links     *mockLinkStore
	audits    *mockAuditStore
	argSvc    *ArgumentService
	factSvc   *FactService
}

func setupLedgerTest() *ledgerFixture {
	audits := newMockAuditStore()
	arguments := newMockArgumentStore(audits)
	facts := newMockFactStore(audits)
	links := newMockLinkStore(arguments, facts)
	emb := &mockEmbeddingClient{}

	argSvc := NewArgumentService(arguments, facts, links, audits, emb, testLogger())
	factSvc := NewFactService(facts, links, audits, emb, testLogger())
	factSvc.SetRecalculator(argSvc)

	return &ledgerFixture{
		arguments: arguments,
		facts:     facts,
		links:     links,
		audits:    audits,
		argSvc:    argSvc,
		factSvc:   factSvc,
	}
}
