// internal/store/exec.go
//
// External all-pairs builders.
//
// Protocol (stdin -> stdout, UTF-8, newline separated):
//
//	stdin:   "<guesses> <answers>"
//	         one guess word per line, then one answer word per line
//	stdout:  "guess,target,code" per pair, code is the canonical ternary value
//
// Pairs may arrive in any order; every pair must arrive exactly once.
// ServeAllPairs implements the executable side in Go, so this binary can act
// as its own builder (`wordleai allpairs`).

package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordleai/internal/judge"
)

var ErrProtocol = errors.New("store: malformed all-pairs output")

// progressBatch is how many pairs ExecBackend reads between progress updates.
const progressBatch = 4096

// ExecBackend runs an external builder speaking the all-pairs protocol.
type ExecBackend struct {
	Path string
	Args []string
}

func (b ExecBackend) Name() string { return "exec" }

// Fill streams the words to the child and decodes its output into job.
func (b ExecBackend) Fill(ctx context.Context, job *Job) error {
	cmd := exec.CommandContext(ctx, b.Path, b.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", b.Path, err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		defer stdin.Close()
		return writeWords(stdin, job.Guesses, job.Answers)
	})
	readErr := readPairs(stdout, job)
	// drain so the child never blocks on a full pipe after a read error
	_, _ = io.Copy(io.Discard, stdout)
	writeErr := eg.Wait()
	waitErr := cmd.Wait()

	switch {
	case readErr != nil:
		return readErr
	case waitErr != nil:
		return fmt.Errorf("%s: %w", b.Path, waitErr)
	}
	return writeErr
}

func writeWords(w io.Writer, guesses, answers []string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", len(guesses), len(answers))
	for _, g := range guesses {
		bw.WriteString(g)
		bw.WriteByte('\n')
	}
	for _, a := range answers {
		bw.WriteString(a)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func readPairs(r io.Reader, job *Job) error {
	gi := indexOf(job.Guesses)
	ai := indexOf(job.Answers)
	seen := make([]bool, len(job.Cells))
	space := judge.Code(judge.CodeSpace(lengthOf(job)))

	sc := bufio.NewScanner(r)
	var n, pending int
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return fmt.Errorf("%w: %q", ErrProtocol, line)
		}
		g, ok := gi[parts[0]]
		if !ok {
			return fmt.Errorf("%w: unknown guess %q", ErrProtocol, parts[0])
		}
		a, ok := ai[parts[1]]
		if !ok {
			return fmt.Errorf("%w: unknown target %q", ErrProtocol, parts[1])
		}
		v, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil || judge.Code(v) >= space {
			return fmt.Errorf("%w: bad code in %q", ErrProtocol, line)
		}
		cell := g*len(job.Answers) + a
		if seen[cell] {
			return fmt.Errorf("%w: duplicate pair %s,%s", ErrProtocol, parts[0], parts[1])
		}
		seen[cell] = true
		job.Set(g, a, judge.Code(v))
		n++
		if pending++; pending == progressBatch {
			_ = job.Progress.Add(pending)
			pending = 0
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	_ = job.Progress.Add(pending)
	if n != len(job.Cells) {
		return fmt.Errorf("%w: got %d pairs, want %d", ErrProtocol, n, len(job.Cells))
	}
	return nil
}

// ServeAllPairs reads the protocol input from r and writes every pair to w.
func ServeAllPairs(ctx context.Context, r io.Reader, w io.Writer, workers int) error {
	br := bufio.NewReader(r)
	var ng, na int
	if _, err := fmt.Fscanf(br, "%d %d\n", &ng, &na); err != nil {
		return fmt.Errorf("%w: header: %v", ErrProtocol, err)
	}
	list := make([]string, 0, ng+na)
	for len(list) < ng+na {
		line, err := br.ReadString('\n')
		if word := strings.TrimSpace(line); word != "" {
			list = append(list, word)
		}
		if err != nil {
			if err == io.EOF && len(list) == ng+na {
				break
			}
			return fmt.Errorf("%w: expected %d words, got %d", ErrProtocol, ng+na, len(list))
		}
	}

	job := &Job{
		Guesses:  list[:ng],
		Answers:  list[ng:],
		Cells:    make([]uint16, ng*na),
		Progress: noProgress{},
	}
	if err := (ReferenceBackend{Workers: workers}).Fill(ctx, job); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for g, gw := range job.Guesses {
		for a, aw := range job.Answers {
			bw.WriteString(gw)
			bw.WriteByte(',')
			bw.WriteString(aw)
			bw.WriteByte(',')
			bw.WriteString(strconv.Itoa(int(job.Cells[g*na+a])))
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// SelectBackend resolves a native builder command line ("path [args...]").
// An empty command or an unresolvable builder yields the reference backend.
func SelectBackend(command string, workers int) Backend {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ReferenceBackend{Workers: workers}
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		log.Warn().Err(err).Str("builder", command).
			Msg("native all-pairs builder unavailable, using reference algorithm")
		return ReferenceBackend{Workers: workers}
	}
	return ExecBackend{Path: path, Args: fields[1:]}
}

func indexOf(list []string) map[string]int {
	m := make(map[string]int, len(list))
	for i, w := range list {
		m[w] = i
	}
	return m
}

func lengthOf(job *Job) int {
	if len(job.Guesses) > 0 {
		return len([]rune(job.Guesses[0]))
	}
	if len(job.Answers) > 0 {
		return len([]rune(job.Answers[0]))
	}
	return 0
}
