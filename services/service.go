package services

import (
	"context"
	"time"

	"PracticeHub360/compliance"
	"PracticeHub360/diagnostics"
	"PracticeHub360/queue"
	"PracticeHub360/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDedupWindow   = 45 * time.Minute
	DefaultInvoiceAmount = 60.0
	DefaultReason        = "Consultation ostéopathique"
	DefaultTreatment     = "Traitement ostéopathique standard"
)

// Service holds the clinical-record consistency operations. Every
// collaborator is injected; nothing is reached through package state.
type Service struct {
	store         store.DocumentStore
	encryptor     compliance.Encryptor
	auditor       compliance.Auditor
	dispatcher    queue.Dispatcher
	recorder      diagnostics.Recorder
	logger        *zap.Logger
	detector      *Detector
	resolver      *Resolver
	window        time.Duration
	defaultAmount float64
	now           func() time.Time
	newCode       func() string
}

type Option func(*Service)

func WithEncryptor(e compliance.Encryptor) Option {
	return func(s *Service) { s.encryptor = e }
}

func WithAuditor(a compliance.Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithDispatcher routes post-update synchronization through a queue. Without
// one the synchronizer runs inline after the patient write.
func WithDispatcher(d queue.Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

func WithRecorder(r diagnostics.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithDetector(d *Detector) Option {
	return func(s *Service) { s.detector = d }
}

func WithDedupWindow(d time.Duration) Option {
	return func(s *Service) { s.window = d }
}

func WithDefaultInvoiceAmount(amount float64) Option {
	return func(s *Service) { s.defaultAmount = amount }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.DocumentStore, opts ...Option) *Service {
	s := &Service{
		store:         st,
		encryptor:     compliance.Plaintext{},
		recorder:      diagnostics.NewMemoryRecorder(),
		logger:        zap.NewNop(),
		detector:      NewDetector(),
		window:        DefaultDedupWindow,
		defaultAmount: DefaultInvoiceAmount,
		now:           time.Now,
		newCode:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auditor == nil {
		s.auditor = compliance.NewLogAuditor(s.logger)
	}
	s.resolver = NewResolver(s.detector.With(DecryptionMarkerSignature()))
	return s
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

func (s *Service) Detector() *Detector {
	return s.detector
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// record stores a diagnostics entry for a batch run. Failures are logged only.
func (s *Service) record(ctx context.Context, operation, owner string, started time.Time, report interface{}, runErr error) {
	run := diagnostics.Run{
		Operation: operation,
		Owner:     owner,
		StartedAt: started,
		Duration:  s.now().Sub(started),
		Report:    report,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := s.recorder.Record(ctx, run); err != nil {
		s.logger.Warn("diagnostics not recorded", zap.String("operation", operation), zap.Error(err))
	}
}

// Diagnostics returns the latest batch runs of the caller.
func (s *Service) Diagnostics(ctx context.Context, callerID string) ([]diagnostics.Run, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	runs, err := s.recorder.Latest(ctx, callerID)
	if err != nil {
		s.logger.Error("diagnostics read failed", zap.String("caller", callerID), zap.Error(err))
		return nil, storageError(err)
	}
	return runs, nil
}
