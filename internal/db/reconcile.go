package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
)

// SchemaConn is the part of a connection the reconciler needs.
type SchemaConn interface {
	Dialect() Dialect
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryInt(ctx context.Context, query string, args ...any) (int64, error)
	Commit() error
	Close() error
}

type outcome int

const (
	outcomeEnsured outcome = iota // conditional DDL ran, presence unknown
	outcomeApplied                // change was absent and has been made
	outcomePresent                // change already existed
)

// Reconciler brings an existing database up to the current additive schema.
type Reconciler struct {
	acquire func(ctx context.Context) (SchemaConn, error)
	ops     []SchemaOp
}

// NewReconciler creates a reconciler applying ops, in order, through connections from p.
func NewReconciler(p *Provider, ops []SchemaOp) *Reconciler {
	return &Reconciler{
		acquire: func(ctx context.Context) (SchemaConn, error) {
			c, err := p.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		ops: ops,
	}
}

// Reconcile applies every missing operation. Each statement commits on its own, so a
// failure part way leaves every earlier change in place and a later run resumes from there.
// It is safe to run repeatedly and from several processes at once: a change that another
// process made first surfaces as one of the enumerated already-applied codes and is ignored.
// Any other failure is a schema error and the caller must not continue.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	conn, err := r.acquire(ctx)
	if err != nil {
		return apperr.Schema(err, "failed to acquire connection for schema reconciliation")
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Printf("WARNING: failed to release schema connection: %v", cerr)
		}
	}()

	d := conn.Dialect()
	if !d.Valid() {
		return apperr.Schema(nil, "unsupported dialect %q", d)
	}

	var applied, present, ensured int
	for _, op := range r.ops {
		res, err := applyOp(ctx, conn, d, op)
		if err != nil {
			return apperr.Schema(err, "failed to %s", op)
		}
		if err := conn.Commit(); err != nil {
			return apperr.Schema(err, "failed to commit %s", op)
		}
		switch res {
		case outcomeApplied:
			applied++
			log.Printf("Schema: applied %s", op)
		case outcomePresent:
			present++
		default:
			ensured++
		}
	}
	log.Printf("Schema reconciliation on %s complete: %d applied, %d already present, %d ensured", d, applied, present, ensured)
	return nil
}

func applyOp(ctx context.Context, conn SchemaConn, d Dialect, op SchemaOp) (outcome, error) {
	if err := op.validate(d); err != nil {
		return 0, err
	}

	if d == DialectPostgres {
		if _, err := conn.Exec(ctx, op.conditionalDDL()); err != nil {
			if IsAlreadyApplied(d, err) {
				return outcomePresent, nil
			}
			return 0, err
		}
		return outcomeEnsured, nil
	}

	q, args := op.presenceQuery()
	n, err := conn.QueryInt(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("catalog lookup: %w", err)
	}
	if n > 0 {
		return outcomePresent, nil
	}
	if _, err := conn.Exec(ctx, op.plainDDL()); err != nil {
		if IsAlreadyApplied(d, err) {
			// Another instance made the change between our lookup and our DDL.
			return outcomePresent, nil
		}
		return 0, err
	}
	return outcomeApplied, nil
}
