package cleaner

import (
	"context"
	"sync"
)

// Clean processes every match of result, which must be the engine's latest
// scan. With dryRun set nothing on disk changes and every entry is marked
// StatusWouldDelete. Otherwise each match is removed by a bounded pool of
// workers; a failed deletion is recorded on its entry and does not stop the
// others.
//
// Cancelling ctx stops new deletions between paths. Deletions already in
// flight finish, and entries never attempted are left StatusSkipped.
func (e *Engine) Clean(ctx context.Context, result *ScanResult, dryRun bool) (*CleanReport, error) {
	return e.CleanUsing(ctx, result, dryRun, e.deleter)
}

// CleanUsing is Clean with a deleter chosen for this run only, such as a
// trash session created after the scan.
func (e *Engine) CleanUsing(ctx context.Context, result *ScanResult, dryRun bool, d Deleter) (*CleanReport, error) {
	if d == nil {
		d = e.deleter
	}
	if err := e.beginClean(result); err != nil {
		return nil, err
	}
	defer e.endClean()

	report := &CleanReport{
		scanID:  result.id,
		root:    result.root,
		dryRun:  dryRun,
		entries: make([]CleanEntry, len(result.matches)),
		started: e.now(),
	}
	for i, m := range result.matches {
		report.entries[i] = CleanEntry{Match: m, Status: StatusSkipped}
	}

	if dryRun {
		for i := range report.entries {
			report.entries[i].Status = StatusWouldDelete
			e.notify(report.entries[i])
		}
	} else {
		e.removeAll(ctx, d, report.entries)
	}

	report.finished = e.now()
	for _, entry := range report.entries {
		if entry.Status == StatusSkipped {
			report.canceled = true
			break
		}
	}

	e.logger.Infof("clean of scan %s: dry-run=%v freed=%d failed=%d skipped=%d",
		report.scanID, dryRun, report.BytesFreed(), len(report.Failed()), len(report.Skipped()))
	return report, nil
}

// removeAll feeds entry indexes to the worker pool. Each worker writes only
// the entry it was handed, so the slice needs no lock.
func (e *Engine) removeAll(ctx context.Context, d Deleter, entries []CleanEntry) {
	if len(entries) == 0 {
		return
	}

	workers := e.workers
	if workers > len(entries) {
		workers = len(entries)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				e.remove(d, &entries[i])
				e.notify(entries[i])
			}
		}()
	}

feed:
	for i := range entries {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}

func (e *Engine) remove(d Deleter, entry *CleanEntry) {
	if err := d.RemoveAll(entry.Path); err != nil {
		entry.Status = StatusFailed
		entry.Err = Classify(entry.Path, err)
		e.logger.Warnf("failed to remove %s: %v", entry.Path, entry.Err)
		return
	}
	entry.Status = StatusDeleted
	entry.Freed = entry.Size
	e.logger.Debugf("removed %s (%d bytes, rule %s)", entry.Path, entry.Size, entry.Rule)
}

func (e *Engine) notify(entry CleanEntry) {
	if e.onEntry != nil {
		e.onEntry(entry)
	}
}
