package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iliyamo/casefiles/internal/model"
)

var (
	// ErrRecordsFetch wraps a failure to read the case file list.
	ErrRecordsFetch = errors.New("load case files")
	// ErrConfigFetch wraps a failure to read the site config.
	ErrConfigFetch = errors.New("load site config")
)

// RecordSource lists the catalog in display order.
type RecordSource interface {
	ListOrdered(ctx context.Context) ([]model.CaseFile, error)
}

// ConfigSource reads the singleton config.
type ConfigSource interface {
	Get(ctx context.Context) (model.SiteConfig, error)
}

// Snapshot is what a visitor session loads once on entry.
type Snapshot struct {
	Store    *Store
	MusicURL *string
}

// Load issues the record and config reads concurrently and returns once
// both have resolved.  A config failure leaves MusicURL nil and is reported
// alongside the snapshot; a record failure yields an empty catalog.  Both
// errors are joined when both reads fail.
func Load(ctx context.Context, records RecordSource, config ConfigSource) (Snapshot, error) {
	var (
		wg        sync.WaitGroup
		files     []model.CaseFile
		cfg       model.SiteConfig
		errFiles  error
		errConfig error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		files, errFiles = records.ListOrdered(ctx)
	}()
	go func() {
		defer wg.Done()
		cfg, errConfig = config.Get(ctx)
	}()
	wg.Wait()

	snap := Snapshot{Store: NewStore(nil)}
	var errs []error
	if errFiles != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrRecordsFetch, errFiles))
	} else {
		snap.Store = NewStore(files)
	}
	if errConfig != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrConfigFetch, errConfig))
	} else {
		snap.MusicURL = cfg.MusicURL
	}
	return snap, errors.Join(errs...)
}
