package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/filex"
	"github.com/dmitrijs2005/feedkeeper/internal/netx"
)

// Export asks the server to archive the household dataset and downloads
// the archive through the returned presigned link.
func (a *App) Export(ctx context.Context, args []string) error {
	if a.gateway == nil {
		return common.ErrNotConfigured
	}
	hh, err := a.households.HouseholdID(ctx)
	if err != nil {
		return err
	}
	if hh == "" {
		return errors.New("not in a household")
	}

	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		dir, err := filex.EnsureSubDir("", a.config.ExportDir)
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "feedkeeper-"+hh+".json")
	}

	link, err := a.gateway.ArchiveHousehold(ctx, hh)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := netx.DownloadPresigned(ctx, a.http, link.URL, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("download archive: %w", err)
	}
	a.printf("Saved %d bytes to %s\n", n, path)
	return nil
}
