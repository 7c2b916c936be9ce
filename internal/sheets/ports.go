package sheets

import (
	"context"

	"dompet/internal/core"
)

// Ports for outbound adapters.
type (
	// EntryAppender mirrors a stored entry as one spreadsheet row and returns
	// a reference to the written range.
	EntryAppender interface {
		AppendEntry(ctx context.Context, e core.Entry) (rowRef string, err error)
	}
)
