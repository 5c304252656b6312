package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
)

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) AddBaby(ctx context.Context) error {
	name, err := a.ask("Enter name")
	if err != nil {
		return err
	}
	birth, err := a.ask("Enter birth date (yyyy-mm-dd, optional)")
	if err != nil {
		return err
	}
	birthDate, err := ParseDate(birth, a.loc)
	if err != nil {
		return err
	}
	gender, err := a.ask("Enter gender (optional)")
	if err != nil {
		return err
	}

	b, err := a.records.CreateBaby(ctx, models.Baby{Name: name, BirthDate: birthDate, Gender: optionalText(gender)})
	if err != nil {
		return err
	}

	st, err := a.records.Settings().Get(ctx)
	if err != nil {
		return err
	}
	if st.ActiveBabyID == "" {
		if err := a.records.Settings().SetActiveBaby(ctx, b.ExternalID); err != nil {
			return err
		}
	}
	a.printf("Added %s (%s)\n", b.Name, b.ExternalID)
	return nil
}

func (a *App) Babies(ctx context.Context) error {
	list, err := a.records.ListBabies(ctx)
	if err != nil {
		return err
	}
	active, _ := a.activeBaby(ctx)
	for _, b := range list {
		mark := " "
		if b.ExternalID == active {
			mark = "*"
		}
		line := mark + " " + b.ExternalID + "  " + b.Name
		if b.BirthDate != nil {
			line += "  born " + time.UnixMilli(*b.BirthDate).In(a.loc).Format(time.DateOnly)
		}
		a.printf("%s\n", line)
	}
	return nil
}

func (a *App) UseBaby(ctx context.Context, args []string) error {
	id, err := oneArg(args, "use <baby id>")
	if err != nil {
		return err
	}
	b, err := a.records.Babies().Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Deleted {
		return common.ErrNotFound
	}
	return a.records.Settings().SetActiveBaby(ctx, id)
}

func (a *App) DeleteBaby(ctx context.Context, args []string) error {
	id, err := oneArg(args, "delbaby <baby id>")
	if err != nil {
		return err
	}
	return a.records.DeleteBaby(ctx, id)
}
