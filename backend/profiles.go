package backend

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/qyinm/yentui/types"
)

// ProfileResult is the outcome of one company lookup in a batch.
type ProfileResult struct {
	Company string
	Profile types.CompanyProfile
	Err     error
}

// FetchProfiles fetches several company profiles with at most limit requests
// in flight. Results keep the order of companies; a failed lookup only sets
// that entry's Err.
func FetchProfiles(ctx context.Context, b types.Backend, companies []string, limit int) []ProfileResult {
	results := make([]ProfileResult, len(companies))
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range companies {
		results[i].Company = name
		g.Go(func() error {
			profile, err := b.GetCompanyProfile(gctx, name)
			results[i].Profile = profile
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}
