// cmd_run.go
//
// Command implementations. Every command except allpairs opens the same
// runtime: persister, table cache (with the configured build backend) and
// session manager.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/wordleai/internal/candidates"
	"github.com/robalobadob/wordleai/internal/config"
	"github.com/robalobadob/wordleai/internal/game"
	"github.com/robalobadob/wordleai/internal/httpserver"
	"github.com/robalobadob/wordleai/internal/persist"
	"github.com/robalobadob/wordleai/internal/ranking"
	"github.com/robalobadob/wordleai/internal/session"
	"github.com/robalobadob/wordleai/internal/store"
	"github.com/robalobadob/wordleai/internal/words"
)

type runtime struct {
	persister store.Persister
	mgr       *session.Manager
}

// openRuntime wires the persister, cache and manager described by c.
// progress, when non-nil, receives table build progress.
func openRuntime(c config.Config, progress io.Writer) (*runtime, error) {
	p, err := persist.Open(c.Store.Driver, c.Store.Path)
	if err != nil {
		return nil, err
	}
	cache := store.NewCache(p, store.BuildOptions{
		Backend:  store.SelectBackend(c.Engine.NativeBuilder, c.Engine.Workers),
		Workers:  c.Engine.Workers,
		Progress: progress,
	})
	mgr, err := session.NewManager(p, cache, session.Config{
		Mode:           c.Engine.Mode,
		ExactPairLimit: c.Engine.ExactPairLimit,
		ApproxBudget:   c.Engine.ApproxPairBudget,
		Workers:        c.Engine.Workers,
		SeedSalt:       c.SeedSalt,
	})
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return &runtime{persister: p, mgr: mgr}, nil
}

func (rt *runtime) Close() {
	rt.mgr.Shutdown()
	if err := rt.persister.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := httpserver.New(rt.mgr, game.NewMemoryStore(), httpserver.Options{
		ClientOrigin: cfg.Server.ClientOrigin,
		TokenSecret:  cfg.Tokens.Secret,
		TokenTTL:     cfg.Tokens.TTL,
		SeedSalt:     cfg.SeedSalt,
	})
	if cfg.Tokens.Secret == config.DefaultDevSecret {
		log.Warn().Msg("JWT_SECRET not set, signing session tokens with the development secret")
	}
	log.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store.Driver).Str("mode", cfg.Engine.Mode).Msg("starting wordleai server")
	return srv.Start(cmd.Context(), cfg.Server.Addr)
}

func runSetup(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	// no words at all means "reuse the stored vocabulary"
	var entries []words.Entry
	switch {
	case vocabFile != "" && useDefault:
		return errors.New("setup: --vocabfile and --default are mutually exclusive")
	case vocabFile != "":
		if entries, err = words.ReadFile(vocabFile); err != nil {
			return err
		}
	case useDefault:
		def, err := words.Default(args[0])
		if err != nil {
			return err
		}
		entries = def.Entries()
	}
	opts := words.Options{}
	if answersFile != "" {
		if opts.Answers, err = words.ReadWordFile(answersFile); err != nil {
			return err
		}
	}
	if floorWeight {
		opts.Policy = words.FloorAtZero
	}

	v, err := rt.mgr.Setup(cmd.Context(), session.SetupRequest{
		Name:    args[0],
		Entries: entries,
		Options: opts,
		Resetup: resetup,
	})
	if err != nil {
		return err
	}
	engine, err := rt.mgr.EngineFor(v)
	if err != nil {
		return err
	}
	answers, all := v.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d guesses, %d answers, %d letters, engine %s\n",
		v.Name(), all, answers, v.Length(), engine)
	return nil
}

func runVocabs(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	names, err := rt.mgr.Vocabularies(cmd.Context())
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(cfg, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	st, err := rt.mgr.Status(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	v, err := rt.mgr.Vocabulary(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	engine, err := rt.mgr.EngineFor(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: table %s, engine %s, %d pairs\n", v.Name(), st, engine, v.Pairs())
	return nil
}

// openSession starts a CLI session, honoring --seed.
func openSession(ctx context.Context, rt *runtime, name string) (*session.Session, error) {
	req := session.OpenRequest{Vocabulary: name}
	if seed != 0 {
		req.Seed = &seed
	}
	return rt.mgr.Open(ctx, req)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	c, err := ranking.ParseCriterion(criterion)
	if err != nil {
		return err
	}
	if len(guesses) != len(feedbacks) {
		return fmt.Errorf("got %d --guess but %d --feedback values", len(guesses), len(feedbacks))
	}
	rt, err := openRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	sess, err := openSession(cmd.Context(), rt, args[0])
	if err != nil {
		return err
	}
	for i := range guesses {
		st, err := sess.Update(guesses[i], feedbacks[i])
		if err != nil {
			return err
		}
		if st == candidates.Empty {
			return fmt.Errorf("no word is consistent with the feedback given")
		}
	}
	evals, err := sess.Evaluate(cmd.Context(), topK, c)
	if err != nil {
		return err
	}
	printEvaluations(cmd.OutOrStdout(), evals)
	return nil
}

// printEvaluations writes the fixed-width guess table.
func printEvaluations(w io.Writer, evals []ranking.Evaluation) {
	fmt.Fprintf(w, "%12s  %12s  %12s  %12s  %12s\n", "input_word", "max_n", "mean_n", "mean_entropy", "is_candidate")
	for _, e := range evals {
		cand := 0
		if e.IsCandidate {
			cand = 1
		}
		fmt.Fprintf(w, "%12s  %12d  %12.1f  %12.3f  %12d\n", e.Word, e.MaxN, e.MeanN, e.MeanEntropy, cand)
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	c, err := ranking.ParseCriterion(criterion)
	if err != nil {
		return err
	}
	rt, err := openRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	sess, err := openSession(cmd.Context(), rt, args[0])
	if err != nil {
		return err
	}
	switch {
	case autoplay && challengeMode:
		return errors.New("play: --auto and --challenge are mutually exclusive")
	case autoplay:
		return autoplayGame(cmd.Context(), cmd.OutOrStdout(), sess, answer, c)
	case challengeMode:
		return challenge(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), sess, answer, c)
	}
	return interactive(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), sess, c)
}

// autoplayGame referees a game against answer (or a weighted pick) and lets
// the session play it.
func autoplayGame(ctx context.Context, out io.Writer, sess *session.Session, answer string, c ranking.Criterion) error {
	v := sess.Vocabulary()
	if answer == "" {
		var err error
		if answer, err = sess.ChooseAnswer(); err != nil {
			return err
		}
	}
	g, err := game.New(v, answer, 0, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return err
	}
	if err := game.Autoplay(ctx, sess, v, g, c, len(v.Guesses())); err != nil {
		return err
	}
	for i, r := range g.Rounds {
		fmt.Fprintf(out, "%2d  %s  %s\n", i+1, r.Guess, r.Feedback)
	}
	fmt.Fprintf(out, "%s in %d guesses (answer %s)\n", g.State(), len(g.Rounds), g.Answer)
	return nil
}

// interactive suggests a guess, reads the feedback digits, and repeats until
// solved. A line "guess feedback" overrides the suggestion; "s [criterion]"
// prints the suggestion table.
func interactive(ctx context.Context, in io.Reader, out io.Writer, sess *session.Session, c ranking.Criterion) error {
	sc := bufio.NewScanner(in)
	for {
		printRemaining(out, sess.Candidates())
		word, degraded, err := sess.PickWord(ctx, c)
		if err != nil {
			return err
		}
		if degraded {
			fmt.Fprintln(out, "feedback so far matches no word; guessing at random")
		}
		fmt.Fprintf(out, "guess: %s (%d candidates)\nfeedback> ", word, len(sess.Candidates()))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "q", "quit":
			return nil
		}
		fields := strings.Fields(line)
		if fields[0] == "s" {
			if err := suggest(ctx, out, sess, c, fields[1:]); err != nil {
				fmt.Fprintln(out, err)
			}
			continue
		}
		guess, feedback := word, fields[0]
		if len(fields) == 2 {
			guess, feedback = fields[0], fields[1]
		}
		st, err := sess.Update(guess, feedback)
		if err != nil {
			// bad input never reaches the candidate set; ask again
			fmt.Fprintln(out, err)
			continue
		}
		if st == candidates.Solved {
			fmt.Fprintf(out, "answer: %s\n", sess.Candidates()[0])
			return nil
		}
	}
}

// printRemaining lists up to maxListed candidates.
func printRemaining(out io.Writer, left []string) {
	const maxListed = 10
	if len(left) < 2 {
		return
	}
	shown := left
	if len(shown) > maxListed {
		shown = append(shown[:maxListed:maxListed], "...")
	}
	fmt.Fprintf(out, "%d remaining candidates: %s\n", len(left), strings.Join(shown, " "))
}

// suggest prints the top suggestions under c, or under the criterion named in args.
func suggest(ctx context.Context, out io.Writer, sess *session.Session, c ranking.Criterion, args []string) error {
	const suggestRows = 20
	if len(args) > 0 {
		var err error
		if c, err = ranking.ParseCriterion(args[0]); err != nil {
			return err
		}
	}
	evals, err := sess.Evaluate(ctx, suggestRows, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "top %d by %s\n", len(evals), c)
	printEvaluations(out, evals)
	return nil
}

// challenge races the player against the solver on one hidden answer. The
// solver's words stay masked until it finishes.
func challenge(ctx context.Context, in io.Reader, out io.Writer, sess *session.Session, answer string, c ranking.Criterion) error {
	v := sess.Vocabulary()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ai, err := game.New(v, answer, 0, rng)
	if err != nil {
		return err
	}
	human, err := game.New(v, ai.Answer, 0, rng)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	readGuess := func() (game.Round, bool, error) {
		for {
			fmt.Fprint(out, "your turn> ")
			if !sc.Scan() {
				return game.Round{}, true, sc.Err()
			}
			line := strings.TrimSpace(sc.Text())
			if line == "give up" {
				return game.Round{}, true, nil
			}
			r, _, err := human.ApplyGuess(v, line)
			if err == nil {
				return r, false, nil
			}
			fmt.Fprintln(out, err)
		}
	}

	blank := strings.Repeat(" ", v.Length())
	mask := strings.Repeat("*", v.Length())
	var rows, masked []string
	for round := 1; !human.Finished || !ai.Finished; round++ {
		fmt.Fprintf(out, "* round %d *\n", round)
		aiWord, aiFeedback, aiHidden := blank, blank, blank
		aiWon := false
		if !ai.Finished {
			w, _, err := sess.PickWord(ctx, c)
			if err != nil {
				return err
			}
			r, st, err := ai.ApplyGuess(v, w)
			if err != nil {
				return err
			}
			if _, err := sess.Update(r.Guess, r.Feedback); err != nil {
				return err
			}
			aiWord, aiFeedback, aiHidden = r.Guess, r.Feedback, mask
			aiWon = st == game.StateWon
			if !aiWon && len(ai.Rounds) >= len(v.Guesses()) {
				ai.Finished = true
			}
		}

		userWord, userFeedback := blank, blank
		userWon := false
		if !human.Finished {
			r, gaveUp, err := readGuess()
			if err != nil {
				return err
			}
			if gaveUp {
				fmt.Fprintln(out, "you lose.")
				break
			}
			userWord, userFeedback = r.Guess, r.Feedback
			userWon = human.Won
		}

		rows = append(rows, fmt.Sprintf("  %s  %s | %s  %s", userWord, userFeedback, aiWord, aiFeedback))
		masked = append(masked, fmt.Sprintf("  %s  %s | %s  %s", userWord, userFeedback, aiHidden, aiFeedback))
		if ai.Finished {
			fmt.Fprintln(out, strings.Join(rows, "\n"))
		} else {
			fmt.Fprintln(out, strings.Join(masked, "\n"))
		}

		switch {
		case userWon && aiWon:
			fmt.Fprintln(out, "draw.")
		case userWon && ai.Finished && !aiWon:
			fmt.Fprintln(out, "well done!")
		case userWon:
			fmt.Fprintln(out, "you win!")
		case aiWon && human.Finished:
			fmt.Fprintln(out, "thanks for waiting.")
		case aiWon:
			fmt.Fprintln(out, "you lose...")
		}
	}

	fmt.Fprintf(out, "answer: %s\n%s\n", ai.Answer, strings.Join(rows, "\n"))
	return nil
}

func runAllPairs(cmd *cobra.Command, args []string) error {
	return store.ServeAllPairs(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Engine.Workers)
}
