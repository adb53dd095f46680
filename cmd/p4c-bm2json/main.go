// Command p4c-bm2json lowers a JSON-serialized P4 intermediate
// representation into the bmv2 runtime JSON configuration. Command-line
// option parsing, file I/O and packaging are outside the core (§1); this
// file is the thin external-collaborator shell around it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/p4lang/p4c-bm2json/internal/config"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
	"github.com/p4lang/p4c-bm2json/internal/policy"
	"github.com/p4lang/p4c-bm2json/internal/program"
	"github.com/p4lang/p4c-bm2json/internal/validator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch cmd := os.Args[1]; cmd {
	case "-h", "--help", "help":
		printUsage()
	case "-c", "--config":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		run(os.Args[3], os.Args[2], os.Args[2:])
	default:
		run(cmd, "", nil)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: p4c-bm2json [options] <ir.json>

Options:
  -c, --config       Specify config file: p4c-bm2json -c config.json <ir.json>
  -h, --help         Show this help message
  -metrics-addr addr Serve Prometheus metrics on addr (e.g. :9102);
                     must come after <ir.json>

Configuration:
  p4c-bm2json looks for configuration in:
    1. ./p4c-bm2json.json
    2. ./.p4c-bm2json.json
    3. ~/.config/p4c-bm2json/config.json`)
}

func run(irPath, configPath string, _ []string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "p4c-bm2json: internal bug: %v\n", r)
			os.Exit(2)
		}
	}()

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(irPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	if addr := metricsAddr(); addr != "" {
		reg := prometheus.NewRegistry()
		policy.Register(reg)
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			_ = http.ListenAndServe(addr, nil)
		}()
	}

	prog, err := loadProgram(irPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	sink := emitctl.NewSink(log)

	conv := &program.Converter{Arch: cfg.Model(), Sink: sink}
	doc := conv.Convert(prog, irPath)

	if sink.Count() > 0 {
		for _, d := range sink.Errors() {
			fmt.Fprintln(os.Stderr, d.String())
		}
		os.Exit(1)
	}

	if cfg.ValidateOutput() {
		ov, err := validator.NewOutputValidator()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := ov.Validate(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: output failed schema validation: %v\n", err)
			os.Exit(1)
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	for _, w := range sink.Warnings() {
		fmt.Fprintln(os.Stderr, "warning: "+w.String())
	}

	if cfg.EvaluateWarnings() {
		ctx := context.Background()
		eng, err := policy.New(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not prepare policy rules: %v\n", err)
			return
		}
		warnings, err := eng.Evaluate(ctx, conv.Facts())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: policy evaluation failed: %v\n", err)
			return
		}
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning: "+w.Message)
		}
	}
}

func metricsAddr() string {
	for i, a := range os.Args {
		if a == "-metrics-addr" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return ""
}

// loadProgram reads a JSON-serialized surrogate of the IR tree. The
// real front end hands the core an in-memory IR.P4Program directly;
// this CLI's JSON loading exists only so the core is independently
// runnable and testable without the full P4 compiler attached.
func loadProgram(path string) (*ir.P4Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	prog, err := ir.DecodeProgram(data)
	if err != nil {
		return nil, fmt.Errorf("parsing IR in %s: %w", path, err)
	}
	return prog, nil
}
