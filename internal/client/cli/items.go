package cli

import (
	"context"
	"errors"

	"github.com/larder-app/larder/internal/client/models"
	"github.com/larder-app/larder/internal/client/tempid"
	"github.com/larder-app/larder/internal/common"
)

func (a *App) list(ctx context.Context) {
	items, err := a.gw.ListItems(ctx)
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	if len(items) == 0 {
		a.printf("No items yet\n")
		return
	}

	statuses, err := a.gw.ListStatuses(ctx)
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	byItem := make(map[string]models.Status, len(statuses))
	for _, st := range statuses {
		byItem[st.ItemID] = st
	}

	for _, it := range items {
		class := models.Unclassified
		if st, ok := byItem[it.ID]; ok {
			class = st.Classification
		}
		marker := ""
		if tempid.IsTemporary(it.ID) {
			marker = " (not synced)"
		}
		a.printf("%s  %s [%s] @ %s — %s%s\n", it.ID, it.Name, it.Category, it.Location, class, marker)
	}
}

func (a *App) add(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Item name", a.out)
	if err != nil || name == "" {
		a.printf("Item name is required\n")
		return
	}
	category, _ := GetSimpleText(a.reader, "Category", a.out)
	location, _ := GetSimpleText(a.reader, "Location", a.out)

	created, err := a.gw.CreateItem(ctx, &models.Item{Name: name, Category: category, Location: location})
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Added %s\n", created.ID)
}

func (a *App) show(ctx context.Context, args []string) {
	if len(args) != 1 {
		a.printf("Usage: show <id>\n")
		return
	}

	it, err := a.gw.GetItem(ctx, args[0])
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("ID:        %s\n", it.ID)
	a.printf("Name:      %s\n", it.Name)
	a.printf("Category:  %s\n", it.Category)
	a.printf("Location:  %s\n", it.Location)

	st, err := a.gw.GetStatus(ctx, it.ID)
	if errors.Is(err, common.ErrNotFound) {
		a.printf("Status:    %s\n", models.Unclassified)
		return
	}
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Status:    %s (version %d)\n", st.Classification, st.Version)
	for _, d := range st.ExpiryDates {
		a.printf("Expires:   %s\n", d.Format("2006-01-02"))
	}
	if len(st.Flags) > 0 {
		a.printf("Flags:     %v\n", st.Flags)
	}
}

func (a *App) move(ctx context.Context, args []string) {
	if len(args) != 2 {
		a.printf("Usage: move <id> <location>\n")
		return
	}

	updated, err := a.gw.UpdateItem(ctx, &models.Item{ID: args[0], Location: args[1]})
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Moved %s to %s\n", updated.Name, updated.Location)
}

func (a *App) remove(ctx context.Context, args []string) {
	if len(args) != 1 {
		a.printf("Usage: rm <id>\n")
		return
	}
	if err := a.gw.DeleteItem(ctx, args[0]); err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	a.printf("Deleted %s\n", args[0])
}
