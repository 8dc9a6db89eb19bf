package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCache is safe for concurrent use so tests can race pipeline runs
// against the same entry.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	ttls    map[string]time.Duration
	deletes []string
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string]string),
		ttls:    make(map[string]time.Duration),
	}
}

func cacheKey(namespace, key string) string {
	return namespace + "/" + key
}

func (c *fakeCache) Get(_ context.Context, namespace, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[cacheKey(namespace, key)]
	return value, ok, nil
}

func (c *fakeCache) Set(_ context.Context, namespace, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[cacheKey(namespace, key)] = value
	c.ttls[cacheKey(namespace, key)] = ttl
	return nil
}

func (c *fakeCache) Delete(_ context.Context, namespace, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(namespace, key))
	c.deletes = append(c.deletes, cacheKey(namespace, key))
	return nil
}

type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (e *fakeExtractor) Extract(_ context.Context, path string) (string, error) {
	if err, ok := e.errs[path]; ok {
		return "", err
	}
	text, ok := e.texts[path]
	if !ok {
		return "", fmt.Errorf("unknown path %s", path)
	}
	return text, nil
}

type fakeVectorStore struct {
	collections map[string][]string
	queries     [][]string
	results     [][]string
	deleted     []string
	upserts     int
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: make(map[string][]string)}
}

func (v *fakeVectorStore) HasCollection(_ context.Context, name string) (bool, error) {
	_, ok := v.collections[name]
	return ok, nil
}

func (v *fakeVectorStore) EnsureCollection(_ context.Context, name string) error {
	if _, ok := v.collections[name]; !ok {
		v.collections[name] = nil
	}
	return nil
}

func (v *fakeVectorStore) UpsertTexts(_ context.Context, collection string, texts []string) error {
	v.collections[collection] = append(v.collections[collection], texts...)
	v.upserts++
	return nil
}

func (v *fakeVectorStore) QueryTexts(_ context.Context, _ string, queries []string, _ int) ([][]string, error) {
	v.queries = append(v.queries, queries)
	if v.results != nil {
		return v.results, nil
	}
	out := make([][]string, len(queries))
	return out, nil
}

func (v *fakeVectorStore) DeleteCollection(_ context.Context, name string) error {
	delete(v.collections, name)
	v.deleted = append(v.deleted, name)
	return nil
}

type fakeChunker struct {
	size int
}

func (c *fakeChunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var out []string
	for start := 0; start < len(runes); start += c.size {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

type fakePrompts struct {
	system     string
	editor     string
	translator string
	faq        []string
	contextDoc string
	systemErr  error
}

func (p *fakePrompts) SystemPrompt() (string, error) {
	if p.systemErr != nil {
		return "", p.systemErr
	}
	return p.system, nil
}

func (p *fakePrompts) EditorPrompt() (string, error)     { return p.editor, nil }
func (p *fakePrompts) TranslatorPrompt() (string, error) { return p.translator, nil }
func (p *fakePrompts) FAQQuestions() ([]string, error)   { return p.faq, nil }
func (p *fakePrompts) ContextDocuments() (string, error) { return p.contextDoc, nil }

type fakeFeedbackLog struct {
	entries []domain.FeedbackEntry
	cleared bool
}

func (l *fakeFeedbackLog) Append(_ context.Context, entry domain.FeedbackEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *fakeFeedbackLog) ListRecent(_ context.Context, limit int) ([]domain.FeedbackEntry, error) {
	if len(l.entries) <= limit {
		return l.entries, nil
	}
	return l.entries[len(l.entries)-limit:], nil
}

func (l *fakeFeedbackLog) Clear(_ context.Context) error {
	l.entries = nil
	l.cleared = true
	return nil
}

type fakeFeedbackIndex struct {
	indexed []domain.FeedbackEntry
	nearest []string
}

func (i *fakeFeedbackIndex) IndexFeedback(_ context.Context, entry domain.FeedbackEntry) error {
	i.indexed = append(i.indexed, entry)
	return nil
}

func (i *fakeFeedbackIndex) SearchFeedback(_ context.Context, _ string, _ int) ([]string, error) {
	return i.nearest, nil
}

type chatCall struct {
	messages []domain.Message
}

type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	calls     []chatCall
	chatErr   error

	structured    any
	structuredErr error
}

func (p *fakeProvider) Chat(_ context.Context, messages []domain.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, chatCall{messages: messages})
	if p.chatErr != nil {
		return "", p.chatErr
	}
	if len(p.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	response := p.responses[0]
	p.responses = p.responses[1:]
	return response, nil
}

func (p *fakeProvider) ChatStructured(_ context.Context, messages []domain.Message, _ json.RawMessage, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, chatCall{messages: messages})
	if p.structuredErr != nil {
		return p.structuredErr
	}
	verdict, ok := p.structured.(domain.EditVerdict)
	if !ok {
		return fmt.Errorf("no scripted verdict")
	}
	target, ok := out.(*domain.EditVerdict)
	if !ok {
		return fmt.Errorf("unexpected output type %T", out)
	}
	*target = verdict
	return nil
}

type fakeDetector struct {
	mu      sync.Mutex
	spanish bool
	samples []string
}

func (d *fakeDetector) IsSpanish(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samples = append(d.samples, text)
	return d.spanish
}

type fakeReviewStore struct {
	mu     sync.Mutex
	states map[string]domain.ReviewState
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{states: make(map[string]domain.ReviewState)}
}

func (s *fakeReviewStore) Get(_ context.Context, fingerprint string) (domain.ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[fingerprint]; ok {
		return state, nil
	}
	return domain.ReviewDrafted, nil
}

func (s *fakeReviewStore) Set(_ context.Context, fingerprint string, state domain.ReviewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[fingerprint] = state
	return nil
}

type fakeAuditLog struct {
	records []domain.AuditRecord
}

func (a *fakeAuditLog) Record(_ context.Context, record domain.AuditRecord) error {
	a.records = append(a.records, record)
	return nil
}

type fakeStageStore struct {
	records map[string][]domain.StageRecord
}

func newFakeStageStore() *fakeStageStore {
	return &fakeStageStore{records: make(map[string][]domain.StageRecord)}
}

func (s *fakeStageStore) Upsert(_ context.Context, record domain.StageRecord) error {
	s.records[record.Fingerprint] = append(s.records[record.Fingerprint], record)
	return nil
}

func (s *fakeStageStore) Get(_ context.Context, fingerprint string) (*domain.StageRecord, error) {
	history := s.records[fingerprint]
	if len(history) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "stage.get", fmt.Errorf("no stage for %s", fingerprint))
	}
	latest := history[len(history)-1]
	return &latest, nil
}

func (s *fakeStageStore) latest(fingerprint string) domain.StageRecord {
	history := s.records[fingerprint]
	if len(history) == 0 {
		return domain.StageRecord{}
	}
	return history[len(history)-1]
}

type fakeQueue struct {
	submitted []domain.TaskEnvelope
	submitErr error
}

func (q *fakeQueue) Submit(_ context.Context, envelope domain.TaskEnvelope) error {
	if q.submitErr != nil {
		return q.submitErr
	}
	q.submitted = append(q.submitted, envelope)
	return nil
}

func (q *fakeQueue) Subscribe(context.Context, func(context.Context, domain.TaskEnvelope) error) error {
	return nil
}
