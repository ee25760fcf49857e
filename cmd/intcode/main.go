// intcode runs IntCode programs from the command line.
//
// A program comes from a file (-program) or from the program store
// (-name). Its outputs are printed as a comma separated line. With
// -session, a machine that runs out of input is checkpointed and the next
// invocation with the same session continues it with fresh -input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/fortiblox/intcode/pkg/amplifier"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/config"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/programstore"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Configuration flags
var (
	configPath  = flag.String("config", "", "Path to intcode.toml")
	programPath = flag.String("program", "", "Program file to run")
	programName = flag.String("name", "", "Stored program to run")
	saveName    = flag.String("save", "", "Store the program under this name")
	inputList   = flag.String("input", "", "Comma separated input values")
	session     = flag.String("session", "", "Checkpoint session to resume and save")
	amplify     = flag.String("amplify", "", "Search amplifier phases: pipeline or feedback")
	maxSteps    = flag.Uint64("max-steps", 0, "Instruction budget per machine (0 = config value)")
	logLevel    = flag.String("log-level", "", "Log level: none, notice, info, debug")
	disassemble = flag.Bool("disassemble", false, "Print a listing of the program and exit")
	listStored  = flag.Bool("list", false, "List stored programs and checkpoints and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

var log = commonlog.GetLogger("intcode")

// exitAwaiting is the exit status when a machine stops for input.
const exitAwaiting = 2

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("intcode %s (%s)\n", Version, GitCommit)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "intcode: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	var logFile *string
	if cfg.Log.File != "" {
		logFile = &cfg.Log.File
	}
	commonlog.Configure(cfg.Verbosity(), logFile)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Noticef("received signal %v, shutting down", sig)
		cancel()
	}()

	code, err := run(ctx, cfg)
	if err != nil {
		log.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "intcode: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	if *maxSteps > 0 {
		cfg.Machine.MaxSteps = *maxSteps
	}
	if *logLevel != "" {
		if _, err := config.ParseLevel(*logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = *logLevel
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) (int, error) {
	if *listStored {
		return 0, list(cfg)
	}

	var checkpoints *checkpoint.Store
	if *session != "" {
		var err error
		if checkpoints, err = checkpoint.Open(cfg.CheckpointConfig()); err != nil {
			return 1, fmt.Errorf("open checkpoints: %w", err)
		}
		defer checkpoints.Close()
	}

	input, err := parseInput(*inputList)
	if err != nil {
		return 1, err
	}

	// A saved session takes precedence over any program flags.
	if checkpoints != nil {
		m, err := checkpoints.LoadMachine(*session)
		switch {
		case err == nil:
			log.Infof("resuming session %q at %d", *session, m.IP())
			if *maxSteps > 0 {
				m.ExtendBudget(*maxSteps)
			}
			m.Push(input...)
			return execute(m, checkpoints)
		case !errors.Is(err, checkpoint.ErrCheckpointNotFound):
			return 1, err
		}
	}

	program, err := loadProgram(cfg)
	if err != nil {
		return 1, err
	}

	if *disassemble {
		fmt.Print(intcode.Disassemble(program))
		return 0, nil
	}

	if *amplify != "" {
		return 0, search(ctx, cfg, program)
	}

	m := intcode.NewWithOptions(program, cfg.MachineOptions(), input...)
	return execute(m, checkpoints)
}

// loadProgram reads the program named by -program or -name and stores it
// when -save is given.
func loadProgram(cfg *config.Config) ([]int64, error) {
	if (*programPath == "") == (*programName == "") {
		return nil, errors.New("exactly one of -program or -name is required")
	}

	needStore := *programName != "" || *saveName != ""
	var store *programstore.BoltStore
	if needStore {
		var err error
		if store, err = programstore.Open(cfg.ProgramStoreConfig()); err != nil {
			return nil, fmt.Errorf("open program store: %w", err)
		}
		defer store.Close()
	}

	var program []int64
	if *programPath != "" {
		f, err := os.Open(*programPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if program, err = intcode.ReadProgram(f); err != nil {
			return nil, fmt.Errorf("%s: %w", *programPath, err)
		}
	} else {
		rec, err := store.GetByName(*programName)
		if err != nil {
			return nil, err
		}
		program = rec.Words
	}

	if *saveName != "" {
		id, err := store.Put(*saveName, program)
		if err != nil {
			return nil, fmt.Errorf("save program: %w", err)
		}
		fmt.Fprintf(os.Stderr, "stored %s as %q\n", id, *saveName)
	}
	return program, nil
}

func parseInput(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	values, err := intcode.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("bad -input: %w", err)
	}
	return values, nil
}

// execute runs m and prints its outputs. A machine that runs out of input
// is checkpointed when a session is active; a machine that halts ends the
// session.
func execute(m *intcode.Machine, checkpoints *checkpoint.Store) (int, error) {
	outputs, sig, err := m.Run()
	if len(outputs) > 0 {
		fmt.Println(intcode.Format(outputs))
	}
	if errors.Is(err, intcode.ErrStepBudgetExceeded) {
		return 1, fmt.Errorf("%w; raise -max-steps or machine.max-steps", err)
	}
	if err != nil {
		return 1, err
	}
	if left := m.StepsRemaining(); left != math.MaxUint64 {
		log.Infof("%d budgeted steps left", left)
	}

	switch sig.Status {
	case intcode.StatusAwaitingInput:
		if checkpoints == nil {
			fmt.Fprintf(os.Stderr, "awaiting input at %d after %d steps\n", m.IP(), m.Steps())
			return exitAwaiting, nil
		}
		if err := checkpoints.SaveMachine(*session, m); err != nil {
			return 1, err
		}
		fmt.Fprintf(os.Stderr, "awaiting input; session %q saved\n", *session)
		return exitAwaiting, nil

	default:
		log.Infof("halted after %d steps", m.Steps())
		if checkpoints != nil {
			if err := checkpoints.Delete(*session); err != nil && !errors.Is(err, checkpoint.ErrCheckpointNotFound) {
				return 1, err
			}
		}
		return 0, nil
	}
}

func search(ctx context.Context, cfg *config.Config, program []int64) error {
	mode, err := amplifier.ParseMode(*amplify)
	if err != nil {
		return err
	}

	res, err := amplifier.MaxSignal(ctx, program, mode.Phases(), mode, cfg.SearchConfig())
	if err != nil {
		return err
	}
	fmt.Printf("%d %s\n", res.Signal, intcode.Format(res.Phases))
	return nil
}

func list(cfg *config.Config) error {
	store, err := programstore.Open(cfg.ProgramStoreConfig())
	if err != nil {
		return fmt.Errorf("open program store: %w", err)
	}
	defer store.Close()

	programs, err := store.List()
	if err != nil {
		return err
	}
	for _, p := range programs {
		fmt.Printf("program  %s  %-20s %6d words  %s\n", p.ID, p.Name, p.Size, p.StoredAt.Format("2006-01-02 15:04:05"))
	}

	checkpoints, err := checkpoint.Open(cfg.CheckpointConfig())
	if err != nil {
		return fmt.Errorf("open checkpoints: %w", err)
	}
	defer checkpoints.Close()

	sessions, err := checkpoints.List()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Printf("session  %-20s %s at %d after %d steps\n", s.ID, s.Status, s.IP, s.Steps)
	}
	return nil
}
