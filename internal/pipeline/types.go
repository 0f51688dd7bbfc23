package pipeline

import (
	"image"
	"io"
	"sync"
	"sync/atomic"

	"optimg/internal/codec"
)

// Options carries the validated run configuration.
type Options struct {
	Formats   []codec.Format
	Scales    []int
	Quality   int
	OutputDir string
	Workers   int
}

// Engine is the codec collaborator driven by the workers.
type Engine interface {
	Decode(path string) (image.Image, error)
	Resize(img image.Image, scale int) (image.Image, error)
	Encode(w io.Writer, img image.Image, format codec.Format, quality int) error
}

// ImageJob is one source image and its full set of requested outputs.
// The public fields are immutable after BuildJobs; the private ones are
// the run-time accounting shared by the workers.
type ImageJob struct {
	ID        int
	Source    string
	Display   string
	OutputDir string
	Formats   []codec.Format
	Scales    []int
	Quality   int
	Units     int

	decodeOnce sync.Once
	decoded    image.Image
	decodeErr  error

	completed atomic.Int32
	remaining atomic.Int32
	failed    atomic.Int32
	errOnce   sync.Once
	firstErr  error
}

// source returns the decoded image for the job, decoding at most once no
// matter how many units ask. A decode failure is cached the same way and
// fails every unit of the job.
func (j *ImageJob) source(eng Engine) (image.Image, error) {
	j.decodeOnce.Do(func() {
		j.decoded, j.decodeErr = eng.Decode(j.Source)
	})
	return j.decoded, j.decodeErr
}

// release drops the cached decode. Called by whichever worker finishes
// the job's last unit.
func (j *ImageJob) release() {
	j.decoded = nil
}

func (j *ImageJob) noteFailure(err error) {
	j.failed.Add(1)
	j.errOnce.Do(func() {
		j.firstErr = err
	})
}

// Completed reports how many of the job's units are terminal.
func (j *ImageJob) Completed() int {
	return int(j.completed.Load())
}

// Failed reports whether any unit of the job failed.
func (j *ImageJob) Failed() bool {
	return j.failed.Load() > 0
}

// FirstErr returns the first unit error recorded for the job. Only
// meaningful once the run has finished.
func (j *ImageJob) FirstErr() error {
	return j.firstErr
}

type UnitStatus int

const (
	UnitPending UnitStatus = iota
	UnitRunning
	UnitDone
	UnitFailed
)

func (s UnitStatus) String() string {
	switch s {
	case UnitPending:
		return "pending"
	case UnitRunning:
		return "running"
	case UnitDone:
		return "done"
	case UnitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// WorkUnit is one concrete (format, scale) conversion task within a job.
// It is owned by at most one worker at a time and never re-entered once
// terminal.
type WorkUnit struct {
	Job     *ImageJob
	Format  codec.Format
	Scale   int
	OutPath string
	Status  UnitStatus
	Err     error
}

// UnitResult is what a worker reports to the collector for each unit.
type UnitResult struct {
	Unit *WorkUnit
	Err  error
}

// ProgressEvent is the message workers send to the progress display.
// Completed is the job's absolute terminal-unit count, so events may be
// dropped or arrive out of order without losing ground: the consumer
// applies a monotonic max.
type ProgressEvent struct {
	JobID     int
	Completed int
	Terminal  bool
	Failed    bool
	Reason    string
}

// Failure records one image that did not fully convert.
type Failure struct {
	Path string
	Err  error
}

// Summary is the aggregate outcome of a run.
type Summary struct {
	Images       int
	ImagesOK     int
	ImagesFailed int
	UnitsOK      int
	UnitsFailed  int
	Failures     []Failure
}
