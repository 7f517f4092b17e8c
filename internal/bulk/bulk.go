// Package bulk applies one action to every selected entity of a list.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/marketdesk/internal/domain"
	"github.com/simp-lee/marketdesk/internal/export"
)

// Action names a bulk operation. The set is open; collections decide which
// actions they offer.
type Action string

const (
	ActionPublish   Action = "publish"
	ActionUnpublish Action = "unpublish"
	ActionAccept    Action = "accept"
	ActionRefuse    Action = "refuse"
	ActionDuplicate Action = "duplicate"
	ActionExport    Action = "export"
	ActionDelete    Action = "delete"
	ActionBlock     Action = "block"
	ActionUnblock   Action = "unblock"
	ActionRestore   Action = "restore"
	ActionMarkRead  Action = "mark_read"
)

// Performer applies a non-export action to a single entity.
type Performer interface {
	Perform(ctx context.Context, action Action, item domain.Entity) error
}

// Exporter serialises entities locally. It never touches the network.
type Exporter func(items []domain.Entity) (*export.File, error)

// Result aggregates the outcome of one bulk run. Succeeded+Failed == Total.
type Result struct {
	Action    Action       `json:"action"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Export    *export.File `json:"-"`
}

// Summary renders the result for a banner.
func (r Result) Summary() string {
	if r.Action == ActionExport {
		if r.Failed > 0 {
			return fmt.Sprintf("Export échoué (%d éléments)", r.Total)
		}
		return fmt.Sprintf("%d éléments exportés", r.Succeeded)
	}
	if r.Failed == 0 {
		return fmt.Sprintf("%d réussi(s)", r.Succeeded)
	}
	return fmt.Sprintf("%d réussi(s), %d échoué(s)", r.Succeeded, r.Failed)
}

// Level is the notice level matching the outcome.
func (r Result) Level() string {
	switch {
	case r.Failed == 0:
		return domain.NoticeSuccess
	case r.Succeeded == 0:
		return domain.NoticeError
	default:
		return domain.NoticeWarning
	}
}

// Executor fans an action out over a selection.
type Executor struct {
	performer Performer
	exporter  Exporter
}

// NewExecutor creates an Executor.
func NewExecutor(p Performer, exp Exporter) *Executor {
	return &Executor{performer: p, exporter: exp}
}

// Execute runs action on every item. All calls are in flight before any
// outcome is awaited, and one failure never cancels the others. Only an empty
// selection, an unusable executor or a failed export return an error.
func (e *Executor) Execute(ctx context.Context, action Action, items []domain.Entity) (Result, error) {
	res := Result{Action: action, Total: len(items)}
	if len(items) == 0 {
		return res, domain.NewAppError(domain.CodeValidation, "aucun élément sélectionné", nil)
	}
	if action == "" {
		return res, domain.NewAppError(domain.CodeValidation, "action requise", nil)
	}

	if action == ActionExport {
		return e.export(items, res)
	}
	if e.performer == nil {
		return res, domain.NewAppError(domain.CodeInternal, "no performer configured", nil)
	}

	var succeeded, failed atomic.Int64
	var g errgroup.Group
	for _, item := range items {
		g.Go(func() error {
			if err := e.performer.Perform(ctx, action, item); err != nil {
				failed.Add(1)
				slog.DebugContext(ctx, "bulk item failed",
					"action", string(action),
					"id", item.ID(),
					"error", err,
				)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res.Succeeded = int(succeeded.Load())
	res.Failed = int(failed.Load())
	slog.InfoContext(ctx, "bulk action finished",
		"action", string(action),
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
	)
	return res, nil
}

func (e *Executor) export(items []domain.Entity, res Result) (Result, error) {
	if e.exporter == nil {
		res.Failed = res.Total
		return res, domain.NewAppError(domain.CodeValidation, "export non disponible", nil)
	}
	f, err := e.exporter(items)
	if err != nil {
		res.Failed = res.Total
		return res, domain.NewAppError(domain.CodeInternal, "export échoué", err)
	}
	res.Succeeded = res.Total
	res.Export = f
	return res, nil
}
