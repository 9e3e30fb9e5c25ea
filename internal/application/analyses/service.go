package analyses

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/newsgate/internal/application"
	domain "github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
	"github.com/bryanwahyu/newsgate/internal/domain/inference"
)

// DefaultInferenceTimeout bounds one analyzer call when Service.Timeout is zero.
const DefaultInferenceTimeout = 30 * time.Second

const (
	archiveTimeout = 10 * time.Second
	// an analysis that already finished is stored even if the caller hung up
	persistTimeout = 5 * time.Second
)

// Recorder receives one observation per Submit call. outcome is "ok" or the
// faults.Kind name of the failure; inference is zero when the analyzer was not called.
type Recorder interface {
	ObserveSubmission(outcome string, inference time.Duration)
}

// Service implements the submission and history use-cases.
// Every method takes the caller id explicitly and only ever touches that caller's
// records. Service holds no per-request state and is safe for concurrent use.
type Service struct {
	Repo       domain.Repository
	Classifier inference.Classifier
	Archive    domain.Archive // optional, receives records that could not be stored
	Clock      application.Clock
	NewID      func() string
	Model      domain.ModelIdentity
	Timeout    time.Duration
	// MaxTextBytes rejects oversized submissions; zero disables the check.
	MaxTextBytes int
	Log          *zap.Logger
	Metrics      Recorder
}

// Command untuk submit analysis
type SubmitCommand struct {
	Text           string
	URL            string
	SourcePlatform string
}

// Submit validates the request, runs one analysis and stores the resulting record.
// Nothing is stored unless both the analyzer call and the insert succeed.
func (s *Service) Submit(ctx context.Context, callerID string, cmd SubmitCommand) (*domain.Record, error) {
	const op = "analyses.Submit"

	req, err := domain.NewRequest(cmd.Text, cmd.URL, cmd.SourcePlatform)
	if err != nil {
		s.observe(err, 0)
		return nil, err
	}
	if s.MaxTextBytes > 0 && len(req.InputText) > s.MaxTextBytes {
		err := faults.Validation(op, "text is too long")
		s.observe(err, 0)
		return nil, err
	}

	// jalankan analyzer sekali, tanpa retry
	ictx, cancel := context.WithTimeout(ctx, s.timeout())
	began := time.Now()
	res, err := s.Classifier.Classify(ictx, req.InputText)
	elapsed := time.Since(began)
	cancel()
	if err == nil && res == nil {
		err = faults.InvalidUpstream(op, "analysis service returned no result", nil)
	}
	if err != nil {
		s.logger().Warn("analysis failed",
			zap.String("caller", callerID),
			zap.Stringer("kind", faults.KindOf(err)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		s.observe(err, elapsed)
		return nil, err
	}

	rec := domain.Assemble(domain.ID(s.newID()), callerID, s.now(), s.model(), req, *res)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	saved, err := s.Repo.Create(pctx, rec)
	cancel()
	if err != nil {
		perr := faults.Persistence(op, err)
		s.archive(ctx, rec, err)
		s.observe(perr, elapsed)
		return nil, perr
	}

	s.logger().Info("analysis stored",
		zap.String("caller", callerID),
		zap.String("id", string(saved.ID)),
		zap.String("label", saved.Output.Label),
		zap.Float64("confidence", saved.Output.Confidence),
		zap.Duration("elapsed", elapsed))
	s.observe(nil, elapsed)
	return saved, nil
}

// History returns the caller's most recent records, newest first.
func (s *Service) History(ctx context.Context, callerID string) ([]*domain.Record, error) {
	list, err := s.Repo.ListRecentByOwner(ctx, callerID, domain.HistoryLimit)
	if err != nil {
		return nil, faults.Persistence("analyses.History", err)
	}
	if list == nil {
		list = []*domain.Record{}
	}
	return list, nil
}

// Get returns one record owned by the caller. A record that does not exist and a
// record owned by someone else produce the same NotFound error.
func (s *Service) Get(ctx context.Context, callerID string, id domain.ID) (*domain.Record, error) {
	const op = "analyses.Get"
	rec, err := s.Repo.GetByIDAndOwner(ctx, id, callerID)
	if err != nil {
		if faults.KindOf(err) == faults.KindNotFound {
			return nil, notFound(op, id)
		}
		return nil, faults.Persistence(op, err)
	}
	if rec == nil {
		return nil, notFound(op, id)
	}
	return rec, nil
}

// Delete removes one record owned by the caller.
func (s *Service) Delete(ctx context.Context, callerID string, id domain.ID) error {
	const op = "analyses.Delete"
	n, err := s.Repo.DeleteByIDAndOwner(ctx, id, callerID)
	if err != nil {
		return faults.Persistence(op, err)
	}
	if n == 0 {
		return notFound(op, id)
	}
	s.logger().Info("analysis deleted", zap.String("caller", callerID), zap.String("id", string(id)))
	return nil
}

// archive hands a record that could not be stored to the lost-work archive. The
// submission still fails; this only keeps the analysis around for manual replay.
func (s *Service) archive(ctx context.Context, rec *domain.Record, cause error) {
	log := s.logger().With(
		zap.String("caller", rec.OwnerID),
		zap.String("id", string(rec.ID)),
		zap.NamedError("cause", cause))
	if s.Archive == nil {
		log.Error("analysis lost: record not persisted and no archive configured")
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	key, err := s.Archive.Put(actx, rec, cause)
	if err != nil {
		log.Error("analysis lost: archive failed", zap.Error(err))
		return
	}
	log.Error("record not persisted, archived for replay", zap.String("archive_key", key))
}

func (s *Service) observe(err error, inference time.Duration) {
	if s.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = faults.KindOf(err).String()
	}
	s.Metrics.ObserveSubmission(outcome, inference)
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultInferenceTimeout
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) model() domain.ModelIdentity {
	if s.Model == (domain.ModelIdentity{}) {
		return domain.DefaultModel
	}
	return s.Model
}

func (s *Service) newID() string {
	if s.NewID == nil {
		return application.NewID()
	}
	return s.NewID()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func notFound(op string, id domain.ID) error {
	return faults.NotFound(op, "record not found with id: "+string(id))
}
