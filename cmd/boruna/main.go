// Command boruna is the minimal CLI front-end for the execution substrate:
// it loads a compiled Module, wires a capability Gateway per the resolved
// Runtime configuration, and either runs it to completion under the
// deterministic ActorSystem, validates its structural invariants, or
// replays it against a previously recorded EventLog (§6 External
// Interfaces).
package main

import (
	"flag"
	"fmt"
	"os"

	"boruna/internal/actor"
	"boruna/internal/bytecode"
	"boruna/internal/capability"
	"boruna/internal/config"
	"boruna/internal/eventlog"
	"boruna/internal/log"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	case "replay":
		replayCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: boruna <run|validate|replay> [flags] <module-file> [log-file]")
}

// commonFlags registers the configuration overrides every subcommand
// accepts, grounded on the teacher's flag-based cmd/app/main.go shape.
func commonFlags(fs *flag.FlagSet, args []string) (configDir *string, overrides map[string]string) {
	overrides = map[string]string{}
	configDir = fs.String("config", "", "directory containing boruna.toml")
	policyFile := fs.String("policy", "", "path to a capability policy JSON file")
	maxRounds := fs.Int("max-rounds", 0, "override max_rounds (0 = use config default)")
	maxCycles := fs.Int("max-cycles", 0, "override max_cycles (0 = use config default)")
	budget := fs.Int("budget-per-round", 0, "override budget_per_round (0 = use config default)")
	logLevel := fs.String("log-level", "", "override log_level")
	logFile := fs.String("log-file", "", "override log_file")

	fs.Parse(args)

	if *policyFile != "" {
		overrides["policy_file"] = *policyFile
	}
	if *maxRounds != 0 {
		overrides["max_rounds"] = fmt.Sprint(*maxRounds)
	}
	if *maxCycles != 0 {
		overrides["max_cycles"] = fmt.Sprint(*maxCycles)
	}
	if *budget != 0 {
		overrides["budget_per_round"] = fmt.Sprint(*budget)
	}
	if *logLevel != "" {
		overrides["log_level"] = *logLevel
	}
	if *logFile != "" {
		overrides["log_file"] = *logFile
	}
	return configDir, overrides
}

func loadModule(path string) *bytecode.Module {
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("reading module %s: %v", path, err)
	}
	m, err := bytecode.FromBytes(data)
	if err != nil {
		fatalf("decoding module %s: %v", path, err)
	}
	if err := m.Validate(); err != nil {
		fatalf("module %s failed validation: %v", path, err)
	}
	return m
}

func loadPolicy(path string) capability.Policy {
	if path == "" {
		return capability.AllowAll()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("reading policy %s: %v", path, err)
	}
	p, err := capability.FromJSON(data)
	if err != nil {
		fatalf("decoding policy %s: %v", path, err)
	}
	return p
}

func hostHandler(cfg config.Runtime) *capability.HostHandler {
	db, err := capability.NewDBHandler(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		fatalf("opening database: %v", err)
	}
	var llm *capability.HostLlmCall
	if cfg.LlmEndpoint != "" {
		llm = capability.NewHostLlmCall(cfg.LlmEndpoint)
	}
	return capability.NewHostHandler(db, llm)
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configDir, overrides := commonFlags(fs, args)
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: boruna run [flags] <module-file>")
		os.Exit(2)
	}

	cfg := config.Load(*configDir, overrides)
	log.InitLogger(cfg.LogLevel, cfg.LogFile, true)
	defer log.Close()

	module := loadModule(rest[0])
	policy := loadPolicy(cfg.PolicyFile)
	handler := hostHandler(cfg)

	log.Info("running module %q (entry=%d, budget_per_round=%d, max_rounds=%d)", module.Name, module.Entry, cfg.BudgetPerRound, cfg.MaxRounds)
	sys := actor.NewSystem(module, policy, handler, cfg.BudgetPerRound, cfg.MaxRounds)
	result, err := sys.Run()
	if err != nil {
		log.Error("run failed: %v", err)
		fatalf("run failed: %v", err)
	}
	log.Info("run completed with %d actor(s), %d event(s) logged", len(sys.Actors), len(sys.Log.Events))
	fmt.Println(result.Inspect())
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: boruna validate <module-file>")
		os.Exit(2)
	}
	data, err := os.ReadFile(rest[0])
	if err != nil {
		fatalf("reading module %s: %v", rest[0], err)
	}
	m, err := bytecode.FromBytes(data)
	if err != nil {
		fmt.Printf("invalid: %v\n", err)
		os.Exit(1)
	}
	if err := m.Validate(); err != nil {
		fmt.Printf("invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func replayCmd(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configDir, overrides := commonFlags(fs, args)
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: boruna replay [flags] <module-file> <log-file>")
		os.Exit(2)
	}

	cfg := config.Load(*configDir, overrides)
	log.InitLogger(cfg.LogLevel, cfg.LogFile, true)
	defer log.Close()

	module := loadModule(rest[0])

	logData, err := os.ReadFile(rest[1])
	if err != nil {
		fatalf("reading log %s: %v", rest[1], err)
	}
	recorded, err := eventlog.FromJSON(logData)
	if err != nil {
		fatalf("decoding log %s: %v", rest[1], err)
	}

	log.Info("replaying module %q against %d recorded event(s)", module.Name, len(recorded.Events))
	handler := capability.NewReplayHandlerFromLog(recorded)
	sys := actor.NewSystem(module, capability.AllowAll(), handler, cfg.BudgetPerRound, cfg.MaxRounds)
	result, err := sys.Run()
	if err != nil {
		log.Error("replay run failed: %v", err)
		fatalf("replay run failed: %v", err)
	}

	verdict := eventlog.VerifyFullyEquivalent(recorded, sys.Log)
	fmt.Println(result.Inspect())
	if verdict.Identical() {
		log.Info("replay verified identical")
		fmt.Println("replay: Identical")
	} else {
		log.Warn("replay diverged: %s", verdict.Reason)
		fmt.Printf("replay: Diverged: %s\n", verdict.Reason)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "boruna: "+format+"\n", args...)
	os.Exit(1)
}
