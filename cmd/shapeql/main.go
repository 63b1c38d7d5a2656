package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/hanpama/shapeql/internal/batch"
	"github.com/hanpama/shapeql/internal/catalog"
	"github.com/hanpama/shapeql/internal/compiler"
	"github.com/hanpama/shapeql/internal/eventbus"
	"github.com/hanpama/shapeql/internal/logging"
	"github.com/hanpama/shapeql/internal/manifest"
	"github.com/hanpama/shapeql/internal/otel"
	"github.com/hanpama/shapeql/internal/shape"
)

const rootUsage = `shapeql — GraphQL selection shape compiler

USAGE:
  shapeql <command> [flags]

COMMANDS:
  compile          Compile every operation of a manifest into .graphql files
  query            Compile one operation and print it
  list             List the types of a catalog
  help             Show help for any command
`

const compileUsage = `compile FLAGS:
  -catalog <dir>           Selection catalog directory (default: .)
  -manifest <file>         Operations manifest (required)
  -out <dir>               Output directory (required)
  -check                   Re-parse every generated document
  -concurrency N           Operations compiled at once (default: GOMAXPROCS)
  -log.level <level>       debug, info, warn or error (default: info)
  -log.json                Log as JSON
  -otel.endpoint <addr>    OTLP collector endpoint
  -otel.service <name>     OpenTelemetry service name (default: shapeql)
`

const queryUsage = `query FLAGS:
  -catalog <dir>           Selection catalog directory (default: .)
  -type <name>             Catalog type to select (required)
  -variant <v>             common, full, list or nav (default: full)
  -name <name>             Operation and root field name (default: type name
                           with a lower-case first letter)
  -input <type>            Input object type of the $input variable
  -mutation                Emit a mutation instead of a query
  -omit <path>             Dotted path to leave out. Repeatable
  -paginate                Wrap the list shape in a cursor connection
  -placeholders            Print fragment placeholders instead of definitions
  -log.level <level>       debug, info, warn or error (default: warn)
  -log.json                Log as JSON
`

const listUsage = `list FLAGS:
  -catalog <dir>           Selection catalog directory (default: .)
`

var stdout io.Writer = os.Stdout

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("shapeql", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer))
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "compile":
		return cmdCompile(cmdArgs)
	case "query":
		return cmdQuery(cmdArgs)
	case "list":
		return cmdList(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "compile":
		fmt.Fprint(stdout, compileUsage)
	case "query":
		fmt.Fprint(stdout, queryUsage)
	case "list":
		fmt.Fprint(stdout, listUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdCompile(args []string) error {
	catalogDir := "."
	manifestPath := ""
	outDir := ""
	check := false
	concurrency := 0
	logLevel := "info"
	logJSON := false
	otelEndpoint := ""
	otelService := "shapeql"

	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&catalogDir, "catalog", catalogDir, "Selection catalog directory")
	fs.StringVar(&manifestPath, "manifest", manifestPath, "Operations manifest")
	fs.StringVar(&outDir, "out", outDir, "Output directory")
	fs.BoolVar(&check, "check", check, "Re-parse every generated document")
	fs.IntVar(&concurrency, "concurrency", concurrency, "Operations compiled at once")
	fs.StringVar(&logLevel, "log.level", logLevel, "Log level")
	fs.BoolVar(&logJSON, "log.json", logJSON, "Log as JSON")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, compileUsage)
		return err
	}
	if manifestPath == "" {
		fmt.Fprint(os.Stderr, compileUsage)
		return fmt.Errorf("-manifest is required")
	}
	if outDir == "" {
		fmt.Fprint(os.Stderr, compileUsage)
		return fmt.Errorf("-out is required")
	}

	logger, err := logging.New(logJSON, logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	cat, err := catalog.NewFileSystem(catalogDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	opts := []batch.Option{batch.WithLogger(logger)}
	if concurrency > 0 {
		opts = append(opts, batch.WithConcurrency(concurrency))
	}
	if check {
		opts = append(opts, batch.WithCheck())
	}
	c := compiler.New(cat, compiler.WithLogger(logger))
	rep, err := batch.Run(context.Background(), c, cat, m, outDir, opts...)
	if rep != nil {
		for _, f := range rep.Written {
			fmt.Fprintln(stdout, f)
		}
	}
	return err
}

func cmdQuery(args []string) error {
	catalogDir := "."
	typeName := ""
	variant := ""
	name := ""
	input := ""
	mutation := false
	paginate := false
	placeholders := false
	logLevel := "warn"
	logJSON := false
	var omit stringListFlag

	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&catalogDir, "catalog", catalogDir, "Selection catalog directory")
	fs.StringVar(&typeName, "type", typeName, "Catalog type to select")
	fs.StringVar(&variant, "variant", variant, "Selection variant")
	fs.StringVar(&name, "name", name, "Operation name")
	fs.StringVar(&input, "input", input, "Input object type")
	fs.BoolVar(&mutation, "mutation", mutation, "Emit a mutation")
	fs.Var(&omit, "omit", "Dotted path to leave out")
	fs.BoolVar(&paginate, "paginate", paginate, "Wrap in a cursor connection")
	fs.BoolVar(&placeholders, "placeholders", placeholders, "Print fragment placeholders")
	fs.StringVar(&logLevel, "log.level", logLevel, "Log level")
	fs.BoolVar(&logJSON, "log.json", logJSON, "Log as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, queryUsage)
		return err
	}
	if typeName == "" {
		fmt.Fprint(os.Stderr, queryUsage)
		return fmt.Errorf("-type is required")
	}
	if variant != "" {
		if _, err := shape.ParseVariant(variant); err != nil {
			return err
		}
	}
	if name == "" {
		name = defaultOperationName(typeName)
	}

	logger, err := logging.New(logJSON, logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.NewFileSystem(catalogDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	ctx := context.Background()
	spec, err := cat.Lookup(ctx, typeName)
	if err != nil {
		return err
	}

	c := compiler.New(cat, compiler.WithLogger(logger))
	if paginate {
		if spec, err = c.Paginate(ctx, spec); err != nil {
			return err
		}
	}
	op := compiler.Operation{
		Kind:      compiler.KindQuery,
		Name:      name,
		InputType: input,
		Spec:      spec,
		Variant:   shape.Variant(variant),
		Omit:      omit,
	}
	if mutation {
		op.Kind = compiler.KindMutation
	}
	res, err := c.Assemble(ctx, op)
	if err != nil {
		return err
	}
	if placeholders {
		for _, f := range res.Fragments {
			fmt.Fprintf(stdout, "# %s\n%s\n\n", compiler.Placeholder(f.Name), f.Source)
		}
		fmt.Fprint(stdout, res.Document)
		return nil
	}
	logger.Debug("compiled", zap.String("operation", name), zap.Int("fragments", len(res.Fragments)))
	fmt.Fprint(stdout, res.Source())
	return nil
}

func cmdList(args []string) error {
	catalogDir := "."
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&catalogDir, "catalog", catalogDir, "Selection catalog directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, listUsage)
		return err
	}
	cat, err := catalog.NewFileSystem(catalogDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	ctx := context.Background()
	names, err := cat.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		spec, err := cat.Lookup(ctx, n)
		if err != nil {
			return err
		}
		var vs []string
		for _, v := range shape.Variants {
			if spec.Has(v) {
				vs = append(vs, string(v))
			}
		}
		fmt.Fprintf(stdout, "%s\t%v\n", n, vs)
	}
	return nil
}

func defaultOperationName(typeName string) string {
	if typeName == "" {
		return ""
	}
	b := []byte(typeName)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
