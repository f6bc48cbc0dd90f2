package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/engine"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/reputation"
)

// CalculateReputation scores account from one view, appends the snapshot as
// REPUTATION_CALCULATED, and returns it. activity is the caller-supplied
// activity score, clamped to its range.
func (s *Service) CalculateReputation(ctx context.Context, account string, activity float64) (reputation.Snapshot, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return reputation.Snapshot{}, apperrors.Invalid("user_id", "user id is required")
	}
	var snap reputation.Snapshot
	_, _, err := s.publishWith(ctx, account, func() (event.Payload, error) {
		s.store.Read(func(v *engine.View) {
			snap = engine.ComputeReputation(ctx, v, account, activity, s.now())
		})
		return snap.ToEvent(), nil
	})
	if err != nil {
		return reputation.Snapshot{}, err
	}
	s.logger.Info("reputation calculated",
		zap.String("user_id", account),
		zap.Float64("overall_score", snap.OverallScore),
		zap.String("milestone", string(snap.Milestone.Level)),
		zap.Uint64("version", snap.Version),
	)
	return snap, nil
}
