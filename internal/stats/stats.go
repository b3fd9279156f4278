package stats

import (
	"time"

	"codeberg.org/mutker/daviscap/internal/errors"
	"codeberg.org/mutker/daviscap/internal/logger"
	"codeberg.org/mutker/daviscap/internal/ratewindow"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopRecorder struct{}

func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Stats recording disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

// FromSummary builds the stored form of a closed window.
func FromSummary(s ratewindow.Summary, closedBy int32, at time.Time) *Window {
	return &Window{
		Start:           s.Start,
		ClosedBy:        closedBy,
		PolarityPackets: s.PolarityPackets,
		FrameEvents:     s.FrameEvents,
		RecordedAt:      at,
	}
}

func (s *service) Record(w *Window) error {
	errFactory := errors.New()

	if w == nil {
		return errFactory.New(ErrInvalidWindow)
	}

	if err := s.repo.Record(w); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*noopRecorder) Record(_ *Window) error {
	return nil
}

func (*noopRecorder) Close() error {
	return nil
}
