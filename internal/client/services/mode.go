// Package services contains the client-side application services of the
// auth subsystem: the offline mode controller, the offline authentication
// service, and the session arbiter that unifies remote and local identity.
package services

import (
	"context"
	"fmt"

	"github.com/vposukhov/stockpilot/internal/client/repositories/metadata"
	"github.com/vposukhov/stockpilot/internal/common"
)

// ModeService owns the persisted, device-global offline mode flag. It is
// pure state: no validation, read-through default false.
type ModeService struct {
	meta metadata.Repository
}

func NewModeService(meta metadata.Repository) *ModeService {
	return &ModeService{meta: meta}
}

// SetOfflineMode persists the flag. Idempotent.
func (s *ModeService) SetOfflineMode(ctx context.Context, enabled bool) error {
	v := []byte("0")
	if enabled {
		v = []byte("1")
	}
	if err := s.meta.Set(ctx, common.MetaKeyOfflineMode, v); err != nil {
		return fmt.Errorf("failed to persist offline mode: %w", err)
	}
	return nil
}

// IsOfflineModeEnabled reads the persisted flag, defaulting to false when
// it was never written.
func (s *ModeService) IsOfflineModeEnabled(ctx context.Context) (bool, error) {
	v, err := s.meta.Get(ctx, common.MetaKeyOfflineMode)
	if err != nil {
		return false, fmt.Errorf("failed to read offline mode: %w", err)
	}
	return string(v) == "1", nil
}

// IsOfflineMode is an alias kept for callers using the shorter name.
func (s *ModeService) IsOfflineMode(ctx context.Context) (bool, error) {
	return s.IsOfflineModeEnabled(ctx)
}
