package moderation

import (
	"context"
	"log/slog"
	"time"

	"github.com/campuskart/campuskart/internal/metrics"
)

// Verdict is the outcome of screening one image.
type Verdict struct {
	Safe   bool
	Stage  Stage // stage that flagged the image; zero when Safe
	Reason string
	Flags  []Flag
}

// Err returns a *RejectionError for an unsafe verdict, or nil.
func (v Verdict) Err() error {
	if v.Safe {
		return nil
	}
	return &RejectionError{Stage: v.Stage, Reason: v.Reason, Flags: v.Flags}
}

// Gate runs the two-stage moderation pipeline.
type Gate struct {
	general    Classifier
	contraband Classifier
	rules      RuleSet
	logger     *slog.Logger
	metrics    metrics.Recorder
}

// NewGate creates a Gate. A nil recorder disables metrics.
func NewGate(general, contraband Classifier, rules RuleSet, logger *slog.Logger, recorder metrics.Recorder) *Gate {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Gate{
		general:    general,
		contraband: contraband,
		rules:      rules,
		logger:     logger.With("component", "moderation"),
		metrics:    recorder,
	}
}

// Moderate screens imageURL. Stages run in order and stop at the first flag.
// A classifier failure returns a *ServiceError and no verdict; calls are not retried.
func (g *Gate) Moderate(ctx context.Context, imageURL string) (Verdict, error) {
	stages := []struct {
		stage      Stage
		classifier Classifier
	}{
		{StageGeneral, g.general},
		{StageContraband, g.contraband},
	}

	for _, s := range stages {
		start := time.Now()
		signals, err := s.classifier.Classify(ctx, imageURL)
		g.metrics.ObserveModerationDuration(s.stage.String(), time.Since(start))
		if err != nil {
			g.metrics.IncModerationVerdict(s.stage.String(), "error")
			g.logger.Error("classifier failed",
				slog.String("stage", s.stage.String()),
				slog.String("error", err.Error()),
			)
			return Verdict{}, &ServiceError{Stage: s.stage, Err: err}
		}

		if flags := Evaluate(g.rules.ForStage(s.stage), signals); len(flags) > 0 {
			g.metrics.IncModerationVerdict(s.stage.String(), "flagged")
			v := Verdict{Stage: s.stage, Reason: FormatReason(flags), Flags: flags}
			g.logger.Info("image flagged",
				slog.String("stage", s.stage.String()),
				slog.String("reason", v.Reason),
			)
			return v, nil
		}
		g.metrics.IncModerationVerdict(s.stage.String(), "safe")
	}

	return Verdict{Safe: true}, nil
}
