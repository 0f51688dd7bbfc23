package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"optimg/internal/codec"
)

// BuildJobs creates one ImageJob per discovered file. Job IDs are dense
// indexes into the file list; the progress display uses them as row
// numbers.
func BuildJobs(files []string, opts Options) []*ImageJob {
	jobs := make([]*ImageJob, len(files))
	for i, file := range files {
		jobs[i] = &ImageJob{
			ID:        i,
			Source:    file,
			Display:   filepath.Base(file),
			OutputDir: opts.OutputDir,
			Formats:   opts.Formats,
			Scales:    opts.Scales,
			Quality:   opts.Quality,
		}
	}
	return jobs
}

// Expand produces the job's work units in a fixed order: scales outer,
// formats inner. The order is what the progress totals count against.
func Expand(job *ImageJob) []*WorkUnit {
	units := make([]*WorkUnit, 0, len(job.Scales)*len(job.Formats))
	for _, scale := range job.Scales {
		for _, format := range job.Formats {
			units = append(units, &WorkUnit{
				Job:     job,
				Format:  format,
				Scale:   scale,
				OutPath: outputPath(job, format, scale),
			})
		}
	}
	job.Units = len(units)
	job.remaining.Store(int32(len(units)))
	return units
}

// ExpandAll expands every job and verifies that no two units across the
// whole run would write the same output path. Collisions abort before
// any work starts.
func ExpandAll(jobs []*ImageJob) ([]*WorkUnit, error) {
	var units []*WorkUnit
	for _, job := range jobs {
		units = append(units, Expand(job)...)
	}
	if err := CheckCollisions(units); err != nil {
		return nil, err
	}
	return units, nil
}

// CheckCollisions reports every output path claimed by more than one
// unit, and every output path that lands on a source file of the run.
// Cross-job collisions happen when a shared output directory meets
// identical source filenames; source collisions happen when the plain
// scale-100 name matches a sibling job's input. Source files are never
// written, so both abort the run.
func CheckCollisions(units []*WorkUnit) error {
	sources := make(map[string]bool, len(units))
	for _, unit := range units {
		sources[filepath.Clean(unit.Job.Source)] = true
	}

	seen := make(map[string]string, len(units))
	var conflicts []string
	for _, unit := range units {
		key := filepath.Clean(unit.OutPath)
		if sources[key] {
			conflicts = append(conflicts, fmt.Sprintf("output path %s would overwrite a source file (from %s)", unit.OutPath, unit.Job.Source))
			continue
		}
		if prev, ok := seen[key]; ok {
			conflicts = append(conflicts, fmt.Sprintf("duplicate output path %s (from %s and %s)", unit.OutPath, prev, unit.Job.Source))
			continue
		}
		seen[key] = unit.Job.Source
	}
	if len(conflicts) > 0 {
		return &ConfigError{Problems: conflicts}
	}
	return nil
}

// outputPath derives the destination for one (format, scale) output:
// `{stem}_{scale}pct.{ext}` next to the source, or inside the job's
// output directory when one was given.
//
// The one exception is the single-combination convenience: scale 100,
// exactly one format and one scale, and no output directory keeps the
// plain `{stem}.{ext}` name, provided that name differs from the source
// filename. Source files are never overwritten.
func outputPath(job *ImageJob, format codec.Format, scale int) string {
	dir := job.OutputDir
	if dir == "" {
		dir = filepath.Dir(job.Source)
	}

	base := filepath.Base(job.Source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s_%dpct.%s", stem, scale, format.Ext())

	if scale == 100 && job.OutputDir == "" && len(job.Formats) == 1 && len(job.Scales) == 1 {
		plain := stem + "." + format.Ext()
		if !strings.EqualFold(plain, base) {
			name = plain
		}
	}

	return filepath.Join(dir, name)
}
