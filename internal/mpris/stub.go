//go:build !linux

package mpris

import (
	"context"

	"github.com/llehouerou/wavecord/internal/relay"
)

// Run is a no-op on non-Linux platforms; it blocks until ctx is cancelled.
func (s *Source) Run(ctx context.Context, _ func(relay.Snapshot)) error {
	s.log.Info("MPRIS is only available on Linux")
	<-ctx.Done()
	return nil
}
