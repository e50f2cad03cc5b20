package cli

import (
	"context"
	"errors"

	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/common"
)

func (a *App) sync(ctx context.Context) {
	report, err := a.engine.Run(ctx)
	if errors.Is(err, common.ErrSyncInFlight) {
		a.printf("A synchronization pass is already running\n")
		return
	}
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Resolved %d, failed %d, remaining %d\n", report.Resolved, report.Failed, report.Remaining)
}

func (a *App) pending(ctx context.Context) {
	all, err := a.repos.Changes.GetAll(ctx)
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	if len(all) == 0 {
		a.printf("Queue is empty\n")
		return
	}

	for _, c := range all {
		line := string(c.Op) + " " + string(c.Kind) + " " + c.TargetID
		if c.State == models.ChangeStateFailed {
			a.printf("%s — FAILED: %s\n", line, c.LastError)
			continue
		}
		a.printf("%s — queued %s\n", line, c.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}
