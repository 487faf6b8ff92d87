// Command partydle generates hidden parties from a creature dataset, scores
// guesses against them, and serves the same operations over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/MJE43/partydle/internal/api"
	"github.com/MJE43/partydle/internal/config"
	"github.com/MJE43/partydle/internal/dataset"
	"github.com/MJE43/partydle/internal/party"
	"github.com/MJE43/partydle/internal/rules"
	"github.com/MJE43/partydle/internal/service"
	"github.com/MJE43/partydle/internal/store"
	"github.com/MJE43/partydle/internal/vault"
)

const usage = `usage: partydle <command> [flags]

commands:
  games      list the games in the dataset
  pool       show which entries the rules leave drawable
  generate   draw a new hidden party
  guess      score a guess against a party
  reveal     disclose a party's members and server seed
  verify     replay a revealed party from its seeds
  history    list stored parties
  settings   show or change the stored rules
  export     write a party to a JSON file
  import     store a party from a JSON file
  serve      run the HTTP API

environment:
  PARTYDLE_ADDR, PARTYDLE_DB_PATH, PARTYDLE_DATASET, PARTYDLE_KEYRING_SERVICE,
  PARTYDLE_SECRETS_FALLBACK, PARTYDLE_RULES_FILE, PARTYDLE_MAX_DRAWS
`

type command func(ctx context.Context, env config.Env, args []string) error

// stdout receives command output.
var stdout io.Writer = os.Stdout

var commands = map[string]command{
	"games":    runGames,
	"pool":     runPool,
	"generate": runGenerate,
	"guess":    runGuess,
	"reveal":   runReveal,
	"verify":   runVerify,
	"history":  runHistory,
	"settings": runSettings,
	"export":   runExport,
	"import":   runImport,
	"serve":    runServe,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, env, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "partydle %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	svc    *service.Service
	db     store.DB
	preset *config.RulesFile
}

func (a *app) Close() error { return a.db.Close() }

// open loads the dataset, the database and the optional rules preset.
// rulesPath overrides PARTYDLE_RULES_FILE.
func open(env config.Env, rulesPath string) (*app, error) {
	src, err := dataset.LoadFile(env.Dataset)
	if err != nil {
		return nil, err
	}
	for _, de := range src.Rejected {
		log.Printf("dataset: skipped %v", de)
	}

	opts := service.Options{MaxDraws: env.MaxDraws, Version: api.EngineVersion}
	if rulesPath == "" {
		rulesPath = env.RulesFile
	}
	var preset *config.RulesFile
	if rulesPath != "" {
		f, err := config.LoadRulesFile(rulesPath)
		if err != nil {
			return nil, err
		}
		preset = &f
		opts.Defaults = f.Rules
		if f.Script != "" {
			script, err := rules.LoadScript(f.Script)
			if err != nil {
				return nil, err
			}
			opts.HouseRule = script
		}
	}

	db, err := store.NewSQLiteDB(env.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	v := vault.New(env.KeyringService, env.SecretsFallback)
	return &app{svc: service.New(src, db, v, opts), db: db, preset: preset}, nil
}

// ruleFlags are the rule overrides shared by pool and generate.
type ruleFlags struct {
	rulesFile string
	game      int
	size      int
	set       string
}

func (rf *ruleFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&rf.rulesFile, "rules", "", "YAML rules preset (overrides PARTYDLE_RULES_FILE)")
	fs.IntVar(&rf.game, "game", -1, "game id")
	fs.IntVar(&rf.size, "size", 0, "party size")
	fs.StringVar(&rf.set, "set", "", "comma-separated rule overrides, e.g. allowBabies=true,allowDuplicates=true")
}

// resolve starts from the preset, or the stored settings when no preset is
// loaded, and applies the flags.
func (rf *ruleFlags) resolve(ctx context.Context, a *app) (rules.Config, error) {
	cfg := a.svc.Settings(ctx)
	if a.preset != nil {
		cfg = a.preset.Rules
	}
	pairs, err := parsePairs(splitList(rf.set))
	if err != nil {
		return rules.Config{}, err
	}
	if cfg, err = rules.FromPairs(cfg, pairs); err != nil {
		return rules.Config{}, err
	}
	if rf.game >= 0 {
		cfg.GameID = rf.game
	}
	if rf.size > 0 {
		cfg.PartySize = rf.size
	}
	return cfg, cfg.Validate()
}

func runGames(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("games", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGAME\tENTRIES")
	for _, g := range a.svc.Games() {
		entries := "-"
		if cat, err := a.svc.Catalog(g.ID); err == nil {
			entries = fmt.Sprint(cat.Len())
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", g.ID, g.Name, entries)
	}
	return tw.Flush()
}

func runPool(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("pool", flag.ContinueOnError)
	var rf ruleFlags
	rf.register(fs)
	verbose := fs.Bool("v", false, "list eligible entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, rf.rulesFile)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := rf.resolve(ctx, a)
	if err != nil {
		return err
	}
	report, err := a.svc.Pool(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "game %d: %d of %d entries eligible, %d equivalence classes\n",
		report.GameID, len(report.Eligible), report.Total, report.Classes)
	for _, reason := range report.SortedReasons() {
		fmt.Fprintf(stdout, "  rejected by %-28s %d\n", reason, report.Rejected[reason])
	}
	if report.Classes < cfg.PartySize {
		fmt.Fprintf(stdout, "warning: party size %d exceeds the %d classes available\n", cfg.PartySize, report.Classes)
	}
	if *verbose {
		for _, key := range report.Eligible {
			fmt.Fprintln(stdout, "  "+key)
		}
	}
	return nil
}

func runGenerate(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	var rf ruleFlags
	rf.register(fs)
	clientSeed := fs.String("client", "", "client seed (random when empty)")
	nonce := fs.Uint64("nonce", 0, "nonce")
	force := fs.Bool("force", false, "replace an unsolved party for the same game")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, rf.rulesFile)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := rf.resolve(ctx, a)
	if err != nil {
		return err
	}
	v, err := a.svc.Generate(ctx, service.GenerateRequest{
		Rules:      &cfg,
		ClientSeed: *clientSeed,
		Nonce:      *nonce,
		Force:      *force,
	})
	if errors.Is(err, service.ErrUnsolvedParty) {
		return fmt.Errorf("%w; pass -force to replace it", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "party %s\n", v.ID)
	fmt.Fprintf(stdout, "  game         %s (%d)\n", v.GameName, v.GameID)
	fmt.Fprintf(stdout, "  size         %d\n", v.Size)
	fmt.Fprintf(stdout, "  server hash  %s\n", v.ServerSeedHash)
	fmt.Fprintf(stdout, "  client seed  %s\n", v.ClientSeed)
	fmt.Fprintf(stdout, "  nonce        %d\n", v.Nonce)
	return nil
}

// partyID resolves -party, defaulting to the latest party of the stored
// settings' game.
func partyID(ctx context.Context, a *app, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	v, err := a.svc.LatestParty(ctx, a.svc.Settings(ctx).GameID)
	if err != nil {
		return "", fmt.Errorf("no party given and no latest party: %w", err)
	}
	return v.ID, nil
}

func runGuess(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("guess", flag.ContinueOnError)
	id := fs.String("party", "", "party id (latest when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	names := splitList(strings.Join(fs.Args(), ","))
	if len(names) == 0 {
		return errors.New("usage: partydle guess [-party ID] name[,name...]")
	}
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	pid, err := partyID(ctx, a, *id)
	if err != nil {
		return err
	}
	res, err := a.svc.Guess(ctx, pid, names)
	if err != nil {
		return err
	}
	printResults(stdout, res.Attempt, res.Results)
	if res.Solved {
		fmt.Fprintf(stdout, "solved in %d guesses\n", res.Attempt)
	}
	return nil
}

func printResults(w io.Writer, attempt int, results []party.SlotResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "#%d\tGUESS\tRESULT\tTYPE A\tTYPE B\tREGION\tGEN\tMETHOD\tFAMILY\n", attempt)
	for _, r := range results {
		typeB := fmt.Sprint(r.Counts.TypeB)
		if r.SingleType {
			typeB = "single"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\n",
			r.Slot+1, r.Guess, strings.ToUpper(string(r.Color)),
			r.Counts.TypeA, typeB, r.Counts.Region, r.Counts.Generation,
			r.Counts.EvolutionMethod, r.Counts.EvolutionFamily)
	}
	tw.Flush()
}

func runReveal(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("reveal", flag.ContinueOnError)
	id := fs.String("party", "", "party id (latest when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	pid, err := partyID(ctx, a, *id)
	if err != nil {
		return err
	}
	v, err := a.svc.Reveal(ctx, pid)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "party %s (%s, %d guesses, solved=%t)\n", v.ID, v.GameName, v.Guesses, v.Solved)
	for i, m := range v.Members {
		fmt.Fprintf(stdout, "  %d. %s\n", i+1, m)
	}
	if v.ServerSeed != "" {
		fmt.Fprintf(stdout, "server seed  %s\n", v.ServerSeed)
		fmt.Fprintf(stdout, "client seed  %s\n", v.ClientSeed)
		fmt.Fprintf(stdout, "nonce        %d\n", v.Nonce)
	}
	return nil
}

func runVerify(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	id := fs.String("party", "", "party id (latest when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	pid, err := partyID(ctx, a, *id)
	if err != nil {
		return err
	}
	v, err := a.svc.Verify(ctx, pid)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "hash matches  %t\n", v.HashMatch)
	fmt.Fprintf(stdout, "stored        %s\n", strings.Join(v.Stored, ", "))
	fmt.Fprintf(stdout, "replayed      %s\n", strings.Join(v.Replayed, ", "))
	if !v.Match {
		return errors.New("verification failed")
	}
	fmt.Fprintln(stdout, "verified")
	return nil
}

func runHistory(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	game := fs.Int("game", -1, "game id (all games when negative)")
	page := fs.Int("page", 1, "page")
	perPage := fs.Int("per-page", 20, "parties per page")
	guesses := fs.Bool("guesses", false, "print each party's guesses")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	parties, total, err := a.svc.History(ctx, *game, *page, *perPage)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGAME\tSIZE\tGUESSES\tSOLVED\tREVEALED\tCREATED")
	for _, p := range parties {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%t\t%t\t%s\n",
			p.ID, p.GameName, p.Size, p.Guesses, p.Solved, p.Revealed, p.CreatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d of %d parties\n", len(parties), total)

	if *guesses {
		for _, p := range parties {
			rows, err := a.svc.Guesses(ctx, p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "\n%s\n", p.ID)
			for _, g := range rows {
				printResults(stdout, g.Attempt, g.Results)
			}
		}
	}
	return nil
}

// runSettings handles "settings", "settings set k=v...", "settings save FILE"
// and "settings load FILE".
func runSettings(ctx context.Context, env config.Env, args []string) error {
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	sub := "show"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "show":
	case "set":
		pairs, err := parsePairs(args)
		if err != nil {
			return err
		}
		cfg, err := rules.FromPairs(a.svc.Settings(ctx), pairs)
		if err != nil {
			return err
		}
		if err := a.svc.SaveSettings(ctx, cfg); err != nil {
			return err
		}
	case "save":
		if len(args) != 1 {
			return errors.New("usage: partydle settings save FILE")
		}
		return config.WriteRulesFile(args[0], config.RulesFile{Rules: a.svc.Settings(ctx)})
	case "load":
		if len(args) != 1 {
			return errors.New("usage: partydle settings load FILE")
		}
		f, err := config.LoadRulesFile(args[0])
		if err != nil {
			return err
		}
		if err := a.svc.SaveSettings(ctx, f.Rules); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown settings command %q (show, set, save, load)", sub)
	}

	fmt.Fprint(stdout, a.svc.Settings(ctx).String())
	return nil
}

func runExport(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	id := fs.String("party", "", "party id (latest when empty)")
	out := fs.String("o", "", "output file (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	pid, err := partyID(ctx, a, *id)
	if err != nil {
		return err
	}
	if *out == "" {
		return a.svc.Export(ctx, pid, stdout)
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := a.svc.Export(ctx, pid, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runImport(ctx context.Context, env config.Env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: partydle import FILE")
	}
	a, err := open(env, "")
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	v, err := a.svc.Import(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported party %s (%s, %d members)\n", v.ID, v.GameName, v.Size)
	return nil
}

func runServe(ctx context.Context, env config.Env, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", env.Addr, "listen address")
	rulesFile := fs.String("rules", "", "YAML rules preset (overrides PARTYDLE_RULES_FILE)")
	timeout := fs.Duration("timeout", api.DefaultRequestTimeout, "per-request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := open(env, *rulesFile)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(a.svc, api.Options{RequestTimeout: *timeout})
	if err := srv.Start(*addr); err != nil {
		return err
	}
	log.Printf("partydle %s listening on http://%s", api.EngineVersion, srv.Addr())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx, "signal")
}

// parsePairs turns key=value arguments into a settings map.
func parsePairs(args []string) (map[string]string, error) {
	pairs := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		pairs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return pairs, nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
