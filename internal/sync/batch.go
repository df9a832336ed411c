package sync

import (
	"github.com/JohanCodinha/ghnotion/internal/logger"
	"golang.org/x/sync/errgroup"
)

// defaultBatchSize bounds the number of in-flight writes against the
// database API. Batches run strictly in sequence.
const defaultBatchSize = 10

// chunk splits items into groups of at most size, preserving order.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = defaultBatchSize
	}

	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// createRows writes new rows in batches. All writes within a batch run
// concurrently; the next batch starts only after the whole batch completes.
// The first write error fails the batch and aborts the run.
func (e *Engine) createRows(issues []Issue) error {
	for i, batch := range chunk(issues, e.batchSize) {
		logger.Debug("sync: create batch %d (%d rows)", i+1, len(batch))

		var g errgroup.Group
		for _, issue := range batch {
			issue := issue
			g.Go(func() error {
				if _, err := e.db.CreatePage(e.databaseID, rowProperties(issue)); err != nil {
					return err
				}
				logger.Debug("sync: created row for issue #%d", issue.Number)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// updateRows overwrites existing rows in batches, with the same concurrency
// shape as createRows.
func (e *Engine) updateRows(updates []RowUpdate) error {
	for i, batch := range chunk(updates, e.batchSize) {
		logger.Debug("sync: update batch %d (%d rows)", i+1, len(batch))

		var g errgroup.Group
		for _, update := range batch {
			update := update
			g.Go(func() error {
				if err := e.db.UpdatePage(update.PageID, rowProperties(update.Issue)); err != nil {
					return err
				}
				logger.Debug("sync: updated row %s for issue #%d", update.PageID, update.Issue.Number)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}
