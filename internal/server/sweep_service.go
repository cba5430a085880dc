package server

import (
	"context"
	"log/slog"
	"time"

	"sealdrop/internal/artifact"
	"sealdrop/internal/store"
)

// SweepResult summarizes one expiry sweep.
type SweepResult struct {
	RemovedRecords   int
	RemovedArtifacts int
	StuckRecords     []string
	Failures         int
}

// SweepService reclaims storage held by expired records. It also
// reports records that were claimed but never cleaned up, without
// touching them; those need an operator.
type SweepService struct {
	store     *store.Store
	artifacts artifact.Store
	ttl       time.Duration
	logger    *slog.Logger
}

func NewSweepService(st *store.Store, artifacts artifact.Store, ttl time.Duration, logger *slog.Logger) *SweepService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepService{store: st, artifacts: artifacts, ttl: ttl, logger: logger}
}

// Sweep deletes every expired record and its artifact. A failure on
// one record is logged and counted, and the sweep continues.
func (s *SweepService) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	result := &SweepResult{}

	expired, err := s.store.ListExpired(ctx, s.ttl, now, 0)
	if err != nil {
		return nil, err
	}
	for _, record := range expired {
		if err := s.artifacts.Delete(ctx, record.ArtifactKey); err != nil {
			s.logger.Error("sweep: delete artifact", "record_id", record.ID, "key", record.ArtifactKey, "error", err)
			result.Failures++
			continue
		}
		result.RemovedArtifacts++
		if err := s.store.DeleteFileRecord(ctx, record.ID); err != nil {
			s.logger.Error("sweep: delete record", "record_id", record.ID, "error", err)
			result.Failures++
			continue
		}
		result.RemovedRecords++
	}

	claimed, err := s.store.ListClaimed(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range claimed {
		result.StuckRecords = append(result.StuckRecords, record.ID)
	}
	if len(result.StuckRecords) > 0 {
		s.logger.Warn("sweep: claimed records awaiting manual cleanup", "count", len(result.StuckRecords))
	}

	s.logger.Info("sweep complete",
		"removed_records", result.RemovedRecords,
		"removed_artifacts", result.RemovedArtifacts,
		"stuck", len(result.StuckRecords),
		"failures", result.Failures)
	return result, nil
}
