package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

func TestSubmitRunsExtractionAndEnqueuesGeneration(t *testing.T) {
	extractor := &fakeExtractor{texts: map[string]string{"doc.txt": "texto completo de la sentencia"}}
	cache := newFakeCache()
	queue := &fakeQueue{}
	stages := newFakeStageStore()
	audit := &fakeAuditLog{}

	ingest := newIngest(extractor, cache, newFakeVectorStore(), 10000)
	assemble := newAssemble(&fakePrompts{system: "sistema"}, cache, &fakeFeedbackLog{}, &fakeFeedbackIndex{}, domain.FeedbackFlatLog)
	runner := newRunner(audit, stages, queue, 4)

	u := NewSubmitUseCase(ingest, assemble, runner)
	receipt, err := u.Submit(context.Background(), []string{"doc.txt"}, nil)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if receipt.Fingerprint == "" || receipt.Documents != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if _, ok := cache.entries[cacheKey(nsMessagesInput, receipt.Fingerprint)]; !ok {
		t.Fatal("message set must be cached under the returned fingerprint")
	}

	// Extraction is audited like any stage; generation rides the queue.
	if len(audit.records) != 1 || audit.records[0].Stage != string(domain.StageExtraction) {
		t.Fatalf("unexpected audit records: %+v", audit.records)
	}
	if len(queue.submitted) != 1 || queue.submitted[0].Task != domain.StageGeneration {
		t.Fatalf("unexpected queue submissions: %+v", queue.submitted)
	}
	if queue.submitted[0].Fingerprint != receipt.Fingerprint {
		t.Fatal("generation envelope must carry the receipt fingerprint")
	}
}

func TestSubmitFailedExtractionDoesNotEnqueue(t *testing.T) {
	extractor := &fakeExtractor{errs: map[string]error{"bad.pdf": context.DeadlineExceeded}}
	queue := &fakeQueue{}
	audit := &fakeAuditLog{}

	ingest := newIngest(extractor, newFakeCache(), newFakeVectorStore(), 10000)
	assemble := newAssemble(&fakePrompts{system: "sistema"}, newFakeCache(), &fakeFeedbackLog{}, &fakeFeedbackIndex{}, domain.FeedbackFlatLog)
	runner := newRunner(audit, newFakeStageStore(), queue, 4)

	u := NewSubmitUseCase(ingest, assemble, runner)
	_, err := u.Submit(context.Background(), []string{"bad.pdf"}, nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(queue.submitted) != 0 {
		t.Fatal("generation must only be enqueued from a successful extraction")
	}
	if audit.records[0].ExitStatus != 1 {
		t.Fatalf("failed extraction must audit exit 1, got %+v", audit.records[0])
	}
}

func TestFetchIsOneShot(t *testing.T) {
	cache := newFakeCache()
	cache.entries[cacheKey(nsSentenceBrief, "fp1")] = "resumen listo"

	u := NewBriefReadUseCase(cache, &fakeAuditLog{}, discardLogger())
	text, err := u.Fetch(context.Background(), "fp1")
	if err != nil || text != "resumen listo" {
		t.Fatalf("Fetch() = %q, %v", text, err)
	}

	_, err = u.Fetch(context.Background(), "fp1")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("second read must miss, got %v", err)
	}
}

func TestFetchWritesDeliveryAuditRecords(t *testing.T) {
	cache := newFakeCache()
	cache.entries[cacheKey(nsSentenceBrief, "fp1")] = "resumen listo"
	audit := &fakeAuditLog{}

	u := NewBriefReadUseCase(cache, audit, discardLogger())
	if _, err := u.Fetch(context.Background(), "fp1"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := u.Fetch(context.Background(), "fp1"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("second read must miss, got %v", err)
	}

	if len(audit.records) != 2 {
		t.Fatalf("audit records = %d, want hit and miss", len(audit.records))
	}
	hit, miss := audit.records[0], audit.records[1]
	if hit.Stage != deliveryStage || hit.StatusCode != 200 || hit.ExitStatus != 0 {
		t.Fatalf("delivery hit record = %+v", hit)
	}
	if miss.StatusCode != 404 || miss.ExitStatus != 1 || miss.Fingerprint != "fp1" {
		t.Fatalf("delivery miss record = %+v", miss)
	}
}

func TestRequestChangesValidatesAndEnqueues(t *testing.T) {
	queue := &fakeQueue{}
	audit := &fakeAuditLog{}
	runner := newRunner(&fakeAuditLog{}, newFakeStageStore(), queue, 4)
	u := NewChangeRequestUseCase(runner, audit, discardLogger())

	if err := u.RequestChanges(context.Background(), "fp1", "texto visto", "usa menos tecnicismos"); err != nil {
		t.Fatalf("RequestChanges() error = %v", err)
	}
	envelope := queue.submitted[0]
	if envelope.Task != domain.StageUpdate || envelope.Args["sentence"] != "texto visto" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}

	// Acceptance leaves a trace before the update stage ever runs.
	if len(audit.records) != 1 {
		t.Fatalf("audit records = %d, want one acceptance record", len(audit.records))
	}
	accepted := audit.records[0]
	if accepted.Stage != requestChangesStage || accepted.StatusCode != 200 || accepted.Fingerprint != "fp1" {
		t.Fatalf("acceptance record = %+v", accepted)
	}

	if err := u.RequestChanges(context.Background(), "fp1", "", ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("empty changes must be invalid, got %v", err)
	}
	if err := u.RequestChanges(context.Background(), "", "", "cambia"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("missing fingerprint must be invalid, got %v", err)
	}
	if len(audit.records) != 1 {
		t.Fatalf("rejected requests must not be audited as accepted: %+v", audit.records)
	}
}

func TestFeedbackRecordFlatLog(t *testing.T) {
	log := &fakeFeedbackLog{}
	queue := &fakeQueue{}
	runner := newRunner(&fakeAuditLog{}, newFakeStageStore(), queue, 4)

	u := NewFeedbackUseCase(log, runner, domain.FeedbackFlatLog)
	u.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }

	if err := u.Record(context.Background(), "  usa frases cortas  "); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(log.entries) != 1 || log.entries[0].Text != "usa frases cortas" {
		t.Fatalf("unexpected log entries: %+v", log.entries)
	}
	if len(queue.submitted) != 0 {
		t.Fatal("flat-log mode must not enqueue indexing tasks")
	}

	if err := u.Record(context.Background(), "   "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatal("empty feedback must be rejected")
	}
}

func TestFeedbackRecordVectorModeEnqueuesIndexing(t *testing.T) {
	log := &fakeFeedbackLog{}
	queue := &fakeQueue{}
	runner := newRunner(&fakeAuditLog{}, newFakeStageStore(), queue, 4)

	u := NewFeedbackUseCase(log, runner, domain.FeedbackVector)
	if err := u.Record(context.Background(), "explica los plazos"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(queue.submitted) != 1 || queue.submitted[0].Task != domain.StageFeedbackIndex {
		t.Fatalf("unexpected queue submissions: %+v", queue.submitted)
	}
	if queue.submitted[0].Args["text"] != "explica los plazos" {
		t.Fatalf("envelope args = %+v", queue.submitted[0].Args)
	}
}

func TestFeedbackClearAll(t *testing.T) {
	log := &fakeFeedbackLog{entries: []domain.FeedbackEntry{{ID: "1", Text: "x"}}}
	u := NewFeedbackUseCase(log, newRunner(&fakeAuditLog{}, newFakeStageStore(), &fakeQueue{}, 4), domain.FeedbackFlatLog)
	if err := u.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if !log.cleared || len(log.entries) != 0 {
		t.Fatal("log must be cleared")
	}
}
