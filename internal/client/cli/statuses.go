package cli

import (
	"context"
	"time"

	"github.com/larder-app/larder/internal/client/models"
)

func (a *App) classify(ctx context.Context, args []string) {
	if len(args) < 2 {
		a.printf("Usage: classify <id> <classification> [flag ...]\n")
		return
	}

	st := &models.Status{
		ItemID:         args[0],
		Classification: args[1],
		Flags:          args[2:],
	}

	expiry, err := GetSimpleText(a.reader, "Expiry date (YYYY-MM-DD, empty to skip)", a.out)
	if err == nil && expiry != "" {
		d, perr := time.Parse("2006-01-02", expiry)
		if perr != nil {
			a.printf("Invalid date: %s\n", expiry)
			return
		}
		st.ExpiryDates = []time.Time{d.UTC()}
	}

	saved, err := a.gw.PutStatus(ctx, st)
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Classified %s as %s\n", saved.ItemID, saved.Classification)
}

func (a *App) declassify(ctx context.Context, args []string) {
	if len(args) != 1 {
		a.printf("Usage: declassify <id>\n")
		return
	}
	if err := a.gw.DeleteStatus(ctx, args[0]); err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Reverted %s to %s\n", args[0], models.Unclassified)
}
