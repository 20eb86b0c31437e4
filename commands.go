// commands.go
//
// Cobra command tree.
//   serve      HTTP API
//   setup      install (or replace) a named vocabulary and build its table
//   vocabs     list stored vocabularies
//   status     report a vocabulary's table status and serving engine
//   evaluate   print the ranked guess table for a vocabulary
//   play       solve interactively, autoplay a hidden answer, or race the solver
//   allpairs   all-pairs judgement builder speaking the exec backend protocol

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	storeDriver string
	storePath   string
	engineMode  string

	// setup
	vocabFile   string
	useDefault  bool
	answersFile string
	resetup     bool
	floorWeight bool

	// evaluate / play
	criterion     string
	topK          int
	guesses       []string
	feedbacks     []string
	seed          int64
	autoplay      bool
	challengeMode bool
	answer        string

	rootCmd = &cobra.Command{
		Use:               "wordleai",
		Short:             "Word-guessing game solver: exact response tables and sampling estimates",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	setupCmd = &cobra.Command{
		Use:   "setup [name]",
		Short: "Install a named vocabulary and build its response table if needed",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetup,
	}
	vocabsCmd = &cobra.Command{
		Use:   "vocabs",
		Short: "List stored vocabularies",
		Args:  cobra.NoArgs,
		RunE:  runVocabs,
	}
	statusCmd = &cobra.Command{
		Use:   "status [name]",
		Short: "Show whether a vocabulary's response table is ready, stale or missing",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	evaluateCmd = &cobra.Command{
		Use:   "evaluate [name]",
		Short: "Rank next guesses, optionally after --guess/--feedback pairs",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluate,
	}
	playCmd = &cobra.Command{
		Use:   "play [name]",
		Short: "Solve interactively: enter the feedback for each suggested guess",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlay,
	}
	allpairsCmd = &cobra.Command{
		Use:   "allpairs",
		Short: "Read guess/answer words on stdin, write guess,target,code lines on stdout",
		Args:  cobra.NoArgs,
		RunE:  runAllPairs,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "wordleai.yaml", "config file (missing file = defaults)")
	pf.StringVar(&storeDriver, "store", "", "persister: sqlite, badger or memory")
	pf.StringVar(&storePath, "db", "", "database file (sqlite) or directory (badger)")
	pf.StringVar(&engineMode, "mode", "", "engine: auto, exact or approx")

	setupCmd.Flags().StringVar(&vocabFile, "vocabfile", "", "vocabulary file (\"word [weight]\" per line)")
	setupCmd.Flags().BoolVar(&useDefault, "default", false, "install the built-in word list")
	setupCmd.Flags().StringVar(&answersFile, "answers", "", "answer word file (defaults to every vocabulary word)")
	setupCmd.Flags().BoolVar(&resetup, "resetup", false, "replace an existing vocabulary of the same name")
	setupCmd.Flags().BoolVar(&floorWeight, "floor", false, "clamp negative weights to 0 instead of failing")

	for _, c := range []*cobra.Command{evaluateCmd, playCmd} {
		c.Flags().StringVar(&criterion, "criterion", "mean_entropy", "ranking criterion: max_n, mean_n or mean_entropy")
		c.Flags().Int64Var(&seed, "seed", 0, "random seed (0 derives one from the session id)")
	}
	evaluateCmd.Flags().IntVar(&topK, "top", 20, "rows to print (0 = all)")
	evaluateCmd.Flags().StringSliceVar(&guesses, "guess", nil, "guess already played (repeatable, pairs with --feedback)")
	evaluateCmd.Flags().StringSliceVar(&feedbacks, "feedback", nil, "feedback digits for the matching --guess, e.g. 20100")
	playCmd.Flags().BoolVar(&autoplay, "auto", false, "let the solver play against a hidden answer")
	playCmd.Flags().BoolVar(&challengeMode, "challenge", false, "race the solver on the same hidden answer")
	playCmd.Flags().StringVar(&answer, "answer", "", "hidden answer for --auto or --challenge (default: weighted random)")

	rootCmd.AddCommand(serveCmd, setupCmd, vocabsCmd, statusCmd, evaluateCmd, playCmd, allpairsCmd)
}
