package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/shapeql/internal/catalog"
	"github.com/hanpama/shapeql/internal/compiler"
	eventbus "github.com/hanpama/shapeql/internal/eventbus"
	events "github.com/hanpama/shapeql/internal/events"
	"github.com/hanpama/shapeql/internal/language"
	"github.com/hanpama/shapeql/internal/logging"
	"github.com/hanpama/shapeql/internal/manifest"
	reqid "github.com/hanpama/shapeql/internal/reqid"
)

const fragmentsDir = "fragments"

type Options struct {
	Logger      *zap.Logger
	Concurrency int
	// Check re-parses every written document and fails the entry when a
	// spread has no definition or a definition is unused.
	Check bool
}

type Option func(*Options)

func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }
func WithConcurrency(n int) Option    { return func(o *Options) { o.Concurrency = n } }
func WithCheck() Option               { return func(o *Options) { o.Check = true } }

// Report summarizes a run. Written lists output files relative to the output
// directory, in manifest order with fragments after operations.
type Report struct {
	Succeeded int
	Failed    int
	Written   []string
}

type entryResult struct {
	files []string
	err   error
}

// Run compiles every manifest operation and writes the results under outDir.
// A failing entry does not stop the others; all failures are returned
// together.
func Run(ctx context.Context, c *compiler.Compiler, cat catalog.Catalog, m *manifest.Manifest, outDir string, opts ...Option) (*Report, error) {
	o := Options{Logger: zap.NewNop(), Concurrency: runtime.GOMAXPROCS(0)}
	for _, f := range opts {
		f(&o)
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if err := os.MkdirAll(filepath.Join(outDir, fragmentsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	ctx, batchID := reqid.NewBatchContext(ctx)
	eventbus.Publish(ctx, events.BatchStart{Manifest: m.Path, Operations: len(m.Operations)})
	start := time.Now()

	r := &runner{c: c, cat: cat, opt: o, outDir: outDir}
	results := make([]entryResult, len(m.Operations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for i, op := range m.Operations {
		i, op := i, op
		g.Go(func() error {
			files, err := r.compile(gctx, op)
			results[i] = entryResult{files: files, err: err}
			return nil
		})
	}
	_ = g.Wait()

	rep := &Report{}
	var result *multierror.Error
	var frags []string
	for _, res := range results {
		if res.err != nil {
			rep.Failed++
			result = multierror.Append(result, res.err)
			continue
		}
		rep.Succeeded++
		rep.Written = append(rep.Written, res.files[0])
		frags = append(frags, res.files[1:]...)
	}
	rep.Written = append(rep.Written, frags...)

	eventbus.Publish(ctx, events.BatchFinish{
		Manifest:  m.Path,
		Succeeded: rep.Succeeded,
		Failed:    rep.Failed,
		Duration:  time.Since(start),
	})
	o.Logger.Info("batch finished",
		logging.WithBatchID(batchID),
		zap.String("manifest", m.Path),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return rep, result.ErrorOrNil()
}

type runner struct {
	c      *compiler.Compiler
	cat    catalog.Catalog
	opt    Options
	outDir string

	written sync.Map // fragment name -> struct{}
}

// compile builds one entry and returns the files it wrote: the operation
// first, then fragments this entry was first to write.
func (r *runner) compile(ctx context.Context, op manifest.Operation) ([]string, error) {
	ctx, id := reqid.NewContext(ctx)
	batchID, _ := reqid.BatchFromContext(ctx)
	log := r.opt.Logger.With(logging.WithBatchID(batchID), logging.WithCompileID(id), zap.String("operation", op.Name))

	res, err := r.assemble(ctx, op)
	if err != nil {
		log.Error("compile failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op.Name, err)
	}
	src := res.Source()
	if r.opt.Check {
		if err := language.Check(src); err != nil {
			log.Error("generated document is invalid", zap.Error(err))
			return nil, fmt.Errorf("%s: check: %w", op.Name, err)
		}
	}

	name := op.Name + ".graphql"
	if err := os.WriteFile(filepath.Join(r.outDir, name), []byte(src), 0o644); err != nil {
		return nil, fmt.Errorf("%s: %w", op.Name, err)
	}
	files := []string{name}
	for _, f := range res.Fragments {
		if _, loaded := r.written.LoadOrStore(f.Name, struct{}{}); loaded {
			continue
		}
		rel := filepath.Join(fragmentsDir, f.Name+".graphql")
		if err := os.WriteFile(filepath.Join(r.outDir, rel), []byte(f.Source+"\n"), 0o644); err != nil {
			r.written.Delete(f.Name)
			return nil, fmt.Errorf("%s: fragment %s: %w", op.Name, f.Name, err)
		}
		files = append(files, rel)
	}
	log.Debug("compiled", zap.Int("fragments", len(res.Fragments)))
	return files, nil
}

func (r *runner) assemble(ctx context.Context, op manifest.Operation) (*compiler.Result, error) {
	cop := op.Compile(nil)
	if op.Type == "" {
		return r.c.Assemble(ctx, cop)
	}
	spec, err := r.cat.Lookup(ctx, op.Type)
	if err != nil {
		return nil, err
	}
	if op.Paginate {
		if spec, err = r.c.Paginate(ctx, spec, op.PageOptions()...); err != nil {
			return nil, err
		}
	}
	cop.Spec = spec
	return r.c.Assemble(ctx, cop)
}
