package analyses

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	domain "github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memRepo is an in-memory Repository ordered like the SQL stores.
type memRepo struct {
	mu      sync.Mutex
	seq     int64
	rows    map[domain.ID]memRow
	failErr error
}

type memRow struct {
	seq int64
	rec domain.Record
}

func newMemRepo() *memRepo { return &memRepo{rows: map[domain.ID]memRow{}} }

func (m *memRepo) Create(ctx context.Context, r *domain.Record) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.seq++
	m.rows[r.ID] = memRow{seq: m.seq, rec: *r}
	out := *r
	return &out, nil
}

func (m *memRepo) ListRecentByOwner(_ context.Context, owner string, limit int) ([]*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []memRow
	for _, row := range m.rows {
		if row.rec.OwnerID == owner {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].rec.CreatedAt.Equal(rows[j].rec.CreatedAt) {
			return rows[i].rec.CreatedAt.After(rows[j].rec.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]*domain.Record, 0, len(rows))
	for _, row := range rows {
		rec := row.rec
		out = append(out, &rec)
	}
	return out, nil
}

func (m *memRepo) GetByIDAndOwner(_ context.Context, id domain.ID, owner string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.rec.OwnerID != owner {
		return nil, faults.NotFound("memRepo", "no row")
	}
	rec := row.rec
	return &rec, nil
}

func (m *memRepo) DeleteByIDAndOwner(_ context.Context, id domain.ID, owner string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.rec.OwnerID != owner {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeClassifier struct {
	calls  atomic.Int32
	result *domain.Analysis
	err    error
	texts  chan string
	done   func()
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*domain.Analysis, error) {
	f.calls.Add(1)
	if f.done != nil {
		defer f.done()
	}
	if f.texts != nil {
		f.texts <- text
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("classifier called without deadline")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeArchive struct {
	mu   sync.Mutex
	recs []*domain.Record
	err  error
}

func (a *fakeArchive) Put(_ context.Context, r *domain.Record, _ error) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.recs = append(a.recs, r)
	return "lost/" + r.OwnerID + "/" + string(r.ID) + ".json", nil
}

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type recorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recorder) ObserveSubmission(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func fakeResult() *domain.Analysis {
	return &domain.Analysis{Label: "FAKE", Confidence: 0.87, Probs: []float64{0.87, 0.13}}
}

func newTestService(repo *memRepo, cls *fakeClassifier) *Service {
	var n atomic.Int64
	return &Service{
		Repo:       repo,
		Classifier: cls,
		Clock:      &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Second},
		NewID:      func() string { return fmt.Sprintf("rec-%03d", n.Add(1)) },
		Timeout:    time.Second,
	}
}

func TestSubmit_StoresRecordAndAppearsFirstInHistory(t *testing.T) {
	repo := newMemRepo()
	cls := &fakeClassifier{result: fakeResult()}
	svc := newTestService(repo, cls)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "u1", SubmitCommand{Text: "older"})
	require.NoError(t, err)

	rec, err := svc.Submit(ctx, "u1", SubmitCommand{Text: "Breaking: ...", URL: "https://news.example/a", SourcePlatform: "web"})
	require.NoError(t, err)

	assert.Equal(t, "FAKE", rec.Output.Label)
	assert.InDelta(t, 0.87, rec.Output.Confidence, 1e-9)
	assert.Equal(t, []float64{0.87, 0.13}, rec.Output.Probs)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.Equal(t, domain.DefaultModel, rec.Model)
	assert.Equal(t, domain.Request{InputText: "Breaking: ...", SourceURL: "https://news.example/a", SourcePlatform: "web"}, rec.Request)

	list, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, rec.ID, list[0].ID)
}

func TestSubmit_CallerHangsUpAfterAnalysisRecordStillStored(t *testing.T) {
	repo := newMemRepo()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cls := &fakeClassifier{result: fakeResult(), done: cancel}
	svc := newTestService(repo, cls)

	rec, err := svc.Submit(ctx, "u1", SubmitCommand{Text: "hello"})
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, 1, repo.count())

	got, err := svc.Get(context.Background(), "u1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "FAKE", got.Output.Label)
}

func TestSubmit_SendsOnlyText(t *testing.T) {
	cls := &fakeClassifier{result: fakeResult(), texts: make(chan string, 1)}
	svc := newTestService(newMemRepo(), cls)

	_, err := svc.Submit(context.Background(), "u1", SubmitCommand{Text: "hello", URL: "https://x.example", SourcePlatform: "reddit"})
	require.NoError(t, err)
	assert.Equal(t, "hello", <-cls.texts)
}

func TestSubmit_ValidationBeforeInference(t *testing.T) {
	tests := []struct {
		name string
		cmd  SubmitCommand
		max  int
	}{
		{"empty text", SubmitCommand{Text: ""}, 0},
		{"whitespace text", SubmitCommand{Text: "   "}, 0},
		{"bad url", SubmitCommand{Text: "ok", URL: "javascript:alert(1)"}, 0},
		{"too long", SubmitCommand{Text: "0123456789"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			cls := &fakeClassifier{result: fakeResult()}
			rec := &recorder{}
			svc := newTestService(repo, cls)
			svc.MaxTextBytes = tt.max
			svc.Metrics = rec

			_, err := svc.Submit(context.Background(), "u1", tt.cmd)

			require.Error(t, err)
			assert.ErrorIs(t, err, faults.ErrValidation)
			assert.Equal(t, int32(0), cls.calls.Load())
			assert.Equal(t, 0, repo.count())
			assert.Equal(t, []string{"validation"}, rec.outcomes)
		})
	}
}

func TestSubmit_InferenceFailureStoresNothing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind faults.Kind
	}{
		{"unreachable", faults.ServiceUnavailable("test", errors.New("connection refused")), faults.KindServiceUnavailable},
		{"empty body", faults.InvalidUpstream("test", "empty response", nil), faults.KindInvalidUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := newTestService(repo, &fakeClassifier{result: fakeResult()})
			ctx := context.Background()

			_, err := svc.Submit(ctx, "u1", SubmitCommand{Text: "first"})
			require.NoError(t, err)
			before, err := svc.History(ctx, "u1")
			require.NoError(t, err)

			svc.Classifier = &fakeClassifier{err: tt.err}
			_, err = svc.Submit(ctx, "u1", SubmitCommand{Text: "second"})

			require.Error(t, err)
			assert.Equal(t, tt.kind, faults.KindOf(err))
			assert.Same(t, tt.err, err, "classifier error must be propagated unchanged")

			after, err := svc.History(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestSubmit_NilResultIsInvalidUpstream(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeClassifier{})

	_, err := svc.Submit(context.Background(), "u1", SubmitCommand{Text: "x"})

	assert.ErrorIs(t, err, faults.ErrInvalidUpstream)
	assert.Equal(t, 0, repo.count())
}

func TestSubmit_PersistenceFailureArchivesRecord(t *testing.T) {
	repo := newMemRepo()
	repo.failErr = errors.New("db down")
	cls := &fakeClassifier{result: fakeResult()}
	arch := &fakeArchive{}
	rec := &recorder{}
	svc := newTestService(repo, cls)
	svc.Archive = arch
	svc.Metrics = rec

	_, err := svc.Submit(context.Background(), "u1", SubmitCommand{Text: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrPersistence)
	assert.ErrorIs(t, err, repo.failErr)
	assert.Equal(t, int32(1), cls.calls.Load(), "inference must not be retried")
	require.Len(t, arch.recs, 1)
	assert.Equal(t, "u1", arch.recs[0].OwnerID)
	assert.Equal(t, "FAKE", arch.recs[0].Output.Label)
	assert.Equal(t, []string{"persistence"}, rec.outcomes)
}

func TestSubmit_PersistenceFailureWithBrokenArchiveStillPersistenceError(t *testing.T) {
	repo := newMemRepo()
	repo.failErr = errors.New("db down")
	svc := newTestService(repo, &fakeClassifier{result: fakeResult()})
	svc.Archive = &fakeArchive{err: errors.New("bucket gone")}

	_, err := svc.Submit(context.Background(), "u1", SubmitCommand{Text: "x"})

	assert.Equal(t, faults.KindPersistence, faults.KindOf(err))
}

func TestSubmit_UsesConfiguredModelIdentity(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeClassifier{result: fakeResult()})
	svc.Model = domain.ModelIdentity{Name: "roberta-news", Version: "v3"}

	rec, err := svc.Submit(context.Background(), "u1", SubmitCommand{Text: "x"})

	require.NoError(t, err)
	assert.Equal(t, domain.ModelIdentity{Name: "roberta-news", Version: "v3"}, rec.Model)
}

func TestOwnershipIsolation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeClassifier{result: fakeResult()})
	ctx := context.Background()

	rec, err := svc.Submit(ctx, "alice", SubmitCommand{Text: "mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "bob", rec.ID)
	assert.ErrorIs(t, err, faults.ErrNotFound)

	err = svc.Delete(ctx, "bob", rec.ID)
	assert.ErrorIs(t, err, faults.ErrNotFound)

	list, err := svc.History(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	// alice's record survived bob's attempts untouched
	got, err := svc.Get(ctx, "alice", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestGet_MissingAndForeignLookTheSame(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeClassifier{result: fakeResult()})
	ctx := context.Background()

	rec, err := svc.Submit(ctx, "alice", SubmitCommand{Text: "x"})
	require.NoError(t, err)

	_, foreign := svc.Get(ctx, "bob", rec.ID)
	_, missing := svc.Get(ctx, "bob", "does-not-exist")

	assert.Equal(t, faults.KindNotFound, faults.KindOf(foreign))
	assert.Equal(t, faults.KindNotFound, faults.KindOf(missing))
	assert.Equal(t, "record not found with id: "+string(rec.ID), faults.MessageOf(foreign))
	assert.Equal(t, "record not found with id: does-not-exist", faults.MessageOf(missing))
	assert.NotContains(t, foreign.Error(), "alice")
}

func TestDelete_TwiceSecondIsNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeClassifier{result: fakeResult()})
	ctx := context.Background()

	rec, err := svc.Submit(ctx, "u1", SubmitCommand{Text: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1", rec.ID))
	err = svc.Delete(ctx, "u1", rec.ID)
	assert.ErrorIs(t, err, faults.ErrNotFound)

	_, err = svc.Get(ctx, "u1", rec.ID)
	assert.ErrorIs(t, err, faults.ErrNotFound)
}

func TestHistory_CapsAtTwentyNewestFirst(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeClassifier{result: fakeResult()})
	ctx := context.Background()

	var ids []domain.ID
	for i := 0; i < 25; i++ {
		rec, err := svc.Submit(ctx, "u1", SubmitCommand{Text: fmt.Sprintf("item %d", i)})
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	list, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, domain.HistoryLimit)
	for i, rec := range list {
		assert.Equal(t, ids[len(ids)-1-i], rec.ID)
	}
}

func TestHistory_StoreFaultIsPersistenceError(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeClassifier{})
	svc.Repo = failingRepo{}

	_, err := svc.History(context.Background(), "u1")
	assert.ErrorIs(t, err, faults.ErrPersistence)

	_, err = svc.Get(context.Background(), "u1", "x")
	assert.ErrorIs(t, err, faults.ErrPersistence)

	err = svc.Delete(context.Background(), "u1", "x")
	assert.ErrorIs(t, err, faults.ErrPersistence)
}

func TestConcurrentSubmissionsSameCaller(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &fakeClassifier{result: fakeResult()})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(ctx, "u1", SubmitCommand{Text: fmt.Sprintf("t%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, repo.count())
}

type failingRepo struct{}

var errStore = errors.New("store unavailable")

func (failingRepo) Create(context.Context, *domain.Record) (*domain.Record, error) {
	return nil, errStore
}

func (failingRepo) ListRecentByOwner(context.Context, string, int) ([]*domain.Record, error) {
	return nil, errStore
}

func (failingRepo) GetByIDAndOwner(context.Context, domain.ID, string) (*domain.Record, error) {
	return nil, errStore
}

func (failingRepo) DeleteByIDAndOwner(context.Context, domain.ID, string) (int64, error) {
	return 0, errStore
}
