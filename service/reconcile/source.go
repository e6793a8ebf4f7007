package reconcile

import (
	"context"

	"github.com/hihodl/sendcore/service/ledger"
)

// ViewSource adapts a ledger.View to the RecordSource contract. An empty
// ThreadID reconciles every thread's records.
type ViewSource struct {
	View     *ledger.View
	ThreadID string
}

// Records returns the merged record list for the configured thread.
func (s ViewSource) Records(ctx context.Context) ([]ledger.TransferRecord, error) {
	return s.View.Records(ctx, s.ThreadID)
}
