// internal/store/build.go
//
// Building response tables.
//
// Responsibilities:
//   - Backend: the pluggable all-pairs computation (reference or external).
//   - ReferenceBackend: in-process, parallel across guess rows.
//   - Build: allocate, fill with a backend, report progress, time the build.
//
// Backends share no mutable state beyond disjoint cell ranges, so rows can be
// filled concurrently without locking.

package store

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordleai/internal/judge"
	"github.com/robalobadob/wordleai/internal/metrics"
	"github.com/robalobadob/wordleai/internal/words"
)

// Progress receives pair counts as a build advances.
type Progress interface {
	Add(n int) error
}

type noProgress struct{}

func (noProgress) Add(int) error { return nil }

// Job is one all-pairs computation. Cells is row-major guess x answer and
// must be completely written by the backend.
type Job struct {
	Guesses  []string
	Answers  []string
	Cells    []uint16
	Progress Progress
}

// Set stores the code for (guess row g, answer column a).
func (j *Job) Set(g, a int, c judge.Code) { j.Cells[g*len(j.Answers)+a] = uint16(c) }

// Backend computes every (guess, answer) judgement of a Job.
type Backend interface {
	Name() string
	Fill(ctx context.Context, job *Job) error
}

// ReferenceBackend judges every pair in-process.
type ReferenceBackend struct {
	Workers int
}

func (ReferenceBackend) Name() string { return "reference" }

// Fill computes rows in parallel; each worker owns a Scorer.
func (b ReferenceBackend) Fill(ctx context.Context, job *Job) error {
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	answers := make([][]rune, len(job.Answers))
	for i, w := range job.Answers {
		answers[i] = []rune(w)
	}

	rows := make(chan int)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(rows)
		for g := range job.Guesses {
			select {
			case rows <- g:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			var sc judge.Scorer
			for g := range rows {
				gr := []rune(job.Guesses[g])
				for a, ar := range answers {
					job.Set(g, a, sc.Code(gr, ar))
				}
				_ = job.Progress.Add(len(answers))
			}
			return nil
		})
	}
	return eg.Wait()
}

// BuildOptions configures Build.
type BuildOptions struct {
	// Backend defaults to ReferenceBackend{Workers}.
	Backend Backend
	// Workers bounds evaluation (and reference build) parallelism.
	Workers int
	// Progress, when set, receives a percentage/ETA bar.
	Progress io.Writer
}

// Build materializes the full response table for v.
func Build(ctx context.Context, v *words.Vocabulary, opts BuildOptions) (*Table, error) {
	if v.Length() > MaxWordLength {
		return nil, ErrUnsupportedLength
	}
	backend := opts.Backend
	if backend == nil {
		backend = ReferenceBackend{Workers: opts.Workers}
	}

	job := &Job{
		Guesses:  v.Guesses(),
		Answers:  v.Answers(),
		Cells:    make([]uint16, v.Pairs()),
		Progress: noProgress{},
	}
	if opts.Progress != nil {
		job.Progress = newBar(opts.Progress, v.Pairs())
	}

	log.Info().
		Str("vocab", v.Name()).
		Str("backend", backend.Name()).
		Int("guesses", len(job.Guesses)).
		Int("answers", len(job.Answers)).
		Msg("building response table")

	start := time.Now()
	err := backend.Fill(ctx, job)
	metrics.ObserveBuild(backend.Name(), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", v.Name(), err)
	}
	log.Info().
		Str("vocab", v.Name()).
		Dur("elapsed", time.Since(start)).
		Msg("response table ready")

	return NewTable(v, job.Cells, opts.Workers)
}

func newBar(w io.Writer, total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("judging pairs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}
