package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
)

// Run drains every unit through a pool of workers and returns the
// aggregate outcome. All units share one queue so a job with many units
// never starves the rest. events may be nil; sends to it never block.
//
// On context cancellation workers finish the unit in hand and stop
// pulling. Output writes are temp-file-plus-rename, so an interrupted
// run leaves no truncated files.
func Run(ctx context.Context, units []*WorkUnit, workers int, eng Engine, events chan<- ProgressEvent) Summary {
	queue := make(chan *WorkUnit)
	results := make(chan UnitResult)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, queue, results, eng, events)
		}()
	}

	go func() {
		defer close(queue)
		for _, unit := range units {
			if ctx != nil {
				select {
				case queue <- unit:
				case <-ctx.Done():
					return
				}
				continue
			}
			queue <- unit
		}
	}()

	summary := Summary{}
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		seen := make(map[int]int)
		for res := range results {
			job := res.Unit.Job
			if res.Err != nil {
				summary.UnitsFailed++
			} else {
				summary.UnitsOK++
			}
			seen[job.ID]++
			if seen[job.ID] == job.Units {
				summary.Images++
				if job.Failed() {
					summary.ImagesFailed++
					summary.Failures = append(summary.Failures, Failure{Path: job.Source, Err: job.FirstErr()})
				} else {
					summary.ImagesOK++
				}
			}
		}
	}()

	wg.Wait()
	close(results)
	<-collectorDone

	return summary
}

func worker(ctx context.Context, queue <-chan *WorkUnit, results chan<- UnitResult, eng Engine, events chan<- ProgressEvent) {
	for unit := range queue {
		if ctx != nil && ctx.Err() != nil {
			return
		}

		unit.Status = UnitRunning
		err := runUnit(unit, eng)

		job := unit.Job
		if err != nil {
			unit.Status = UnitFailed
			unit.Err = err
			job.noteFailure(err)
		} else {
			unit.Status = UnitDone
		}

		emit(events, ProgressEvent{JobID: job.ID, Completed: int(job.completed.Add(1))})

		if job.remaining.Add(-1) == 0 {
			job.release()
			ev := ProgressEvent{JobID: job.ID, Completed: job.Units, Terminal: true}
			if job.Failed() {
				ev.Failed = true
				ev.Reason = job.FirstErr().Error()
			}
			emit(events, ev)
		}

		results <- UnitResult{Unit: unit, Err: err}
	}
}

func runUnit(unit *WorkUnit, eng Engine) error {
	src, err := unit.Job.source(eng)
	if err != nil {
		return err
	}

	resized, err := eng.Resize(src, unit.Scale)
	if err != nil {
		return fmt.Errorf("resize %s: %w", unit.Job.Display, err)
	}

	return writeUnit(unit, resized, eng)
}

// writeUnit encodes into a temp file in the destination directory and
// renames it into place, so a partial encode never leaves a truncated
// output behind.
func writeUnit(unit *WorkUnit, img image.Image, eng Engine) error {
	destDir := filepath.Dir(unit.OutPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(destDir, "optimg-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := eng.Encode(tmpFile, img, unit.Format, unit.Job.Quality); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("encode %s: %w", unit.OutPath, err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), unit.OutPath)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

// emit is a best-effort send: a slow or absent display never blocks a
// worker.
func emit(events chan<- ProgressEvent, ev ProgressEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}
