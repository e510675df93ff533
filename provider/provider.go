// Package provider implements the search provider side of the unirun
// protocol: it dispatches host commands, streams search hits one at a time
// with per-hit acknowledgment, and launches applications by hit id.
//
// A Provider is driven by a single goroutine calling Run. The only blocking
// points are channel reads and writes; the result set is owned by the
// Provider and never shared, so nothing is locked.
package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/machinefabric/unirun-apps/apps"
	"github.com/machinefabric/unirun-apps/resultset"
	"github.com/machinefabric/unirun-apps/unirun"
)

// Channel carries whole packages to and from the host
type Channel interface {
	ReadPackage() (*unirun.Package, error)
	WritePackage(pkg *unirun.Package) error
}

// Directory supplies the applications the provider searches and launches
type Directory interface {
	ListAll(ctx context.Context) ([]apps.Record, error)
	Search(ctx context.Context, query string) ([]apps.Record, error)
	Launch(ctx context.Context, rec apps.Record) error
	DeriveHit(rec apps.Record) unirun.Hit
}

// Provider is the command dispatcher
type Provider struct {
	ch          Channel
	dir         Directory
	results     *resultset.Set[apps.Record]
	showOnEmpty bool
	log         *zap.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithShowOnEmpty makes an empty query list every application
func WithShowOnEmpty(show bool) Option {
	return func(p *Provider) {
		p.showOnEmpty = show
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// New creates a provider talking to the host over ch
func New(ch Channel, dir Directory, opts ...Option) *Provider {
	p := &Provider{
		ch:      ch,
		dir:     dir,
		results: resultset.New[apps.Record](),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes commands until QUIT (returns nil) or a fatal transport or
// protocol error (returns an *Error). ctx is checked between commands, and
// once it is done Run returns ctx.Err() unwrapped. It cannot interrupt a
// blocked read, so callers close the channel to stop a waiting provider.
func (p *Provider) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.log.Debug("waiting for command")
		pkg, err := p.read("read command")
		if err != nil {
			return err
		}
		p.log.Debug("received", zap.Stringer("package", pkg))

		if pkg.Payload.Type != unirun.PayloadCommand {
			return protocolError("dispatch", "expected COMMAND, got %s", pkg.Payload.Type)
		}

		quit, err := p.handle(ctx, pkg.ID, *pkg.Payload.Command)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (p *Provider) handle(ctx context.Context, id unirun.PackageId, cmd unirun.Command) (bool, error) {
	switch cmd.Kind {
	case unirun.CommandQuit:
		p.log.Info("quit")
		// The process is exiting either way.
		if err := p.ch.WritePackage(unirun.NewOk(id)); err != nil {
			p.log.Debug("quit acknowledgment not delivered", zap.Error(err))
		}
		return true, nil

	case unirun.CommandAbort:
		return false, nil

	case unirun.CommandGetData:
		return false, p.getData(ctx, id, cmd.Query)

	case unirun.CommandActivate:
		return false, p.activate(ctx, id, cmd.HitID)

	default:
		return false, protocolError("dispatch", "unknown command %s", cmd.Kind)
	}
}

// lookup applies the empty-query policy before consulting the directory
func (p *Provider) lookup(ctx context.Context, query string) ([]apps.Record, error) {
	if query == "" {
		if p.showOnEmpty {
			return p.dir.ListAll(ctx)
		}
		return nil, nil
	}
	return p.dir.Search(ctx, query)
}

func (p *Provider) getData(ctx context.Context, id unirun.PackageId, query string) error {
	records, err := p.lookup(ctx, query)
	if err != nil {
		p.results.Clear()
		p.log.Warn("application lookup failed", zap.String("query", query), zap.Error(err))
		return p.write("reply GET_DATA", unirun.NewErr(id, err.Error()))
	}

	gen := p.results.Replace(records, p.dir.DeriveHit)
	p.log.Info("get data", zap.String("query", query), zap.Uint64("generation", gen), zap.Int("hits", len(records)))

	if err := p.write("reply GET_DATA", unirun.NewOk(id)); err != nil {
		return err
	}

	report, err := p.deliver()
	if err != nil {
		return err
	}
	p.log.Debug("delivery finished",
		zap.Uint64("generation", report.Generation),
		zap.Int("total", report.Total),
		zap.Int("delivered", report.Delivered),
		zap.Int("retries", report.Retries),
		zap.Bool("aborted", report.Aborted),
	)

	return p.write("send end of stream", unirun.NewAbort())
}

func (p *Provider) activate(ctx context.Context, id unirun.PackageId, hitID string) error {
	rec, ok := p.results.Lookup(hitID)
	if !ok {
		p.log.Warn("activate: unknown hit", zap.String("hit", hitID), zap.Uint64("generation", p.results.Generation()))
		return p.write("reply ACTIVATE", unirun.NewErr(id, NotFoundMessage))
	}

	if err := p.dir.Launch(ctx, rec); err != nil {
		p.log.Warn("activate: launch failed", zap.String("hit", hitID), zap.Error(err))
		return p.write("reply ACTIVATE", unirun.NewErr(id, err.Error()))
	}

	p.log.Info("activated", zap.String("hit", hitID))
	return p.write("reply ACTIVATE", unirun.NewOk(id))
}

func (p *Provider) read(op string) (*unirun.Package, error) {
	pkg, err := p.ch.ReadPackage()
	if errors.Is(err, unirun.ErrMalformedPackage) {
		return nil, &Error{Kind: KindProtocol, Op: op, Err: err}
	}
	if err != nil {
		return nil, transportError(op, err)
	}
	return pkg, nil
}

func (p *Provider) write(op string, pkg *unirun.Package) error {
	if err := p.ch.WritePackage(pkg); err != nil {
		return transportError(op, err)
	}
	return nil
}
