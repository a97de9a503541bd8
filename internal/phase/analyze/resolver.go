package analyze

import (
	"context"

	"github.com/tribixbite/imaginize/internal/aiclient"
	"github.com/tribixbite/imaginize/internal/catalog"
	"github.com/tribixbite/imaginize/internal/rescache"
	"github.com/tribixbite/imaginize/internal/scheduler"
	"github.com/tribixbite/imaginize/internal/state"
)

// cachingResolver implements catalog.Resolver by checking the entity
// resolution cache before falling through to the AI facade. The facade
// call goes through the scheduler like every other AI call, so a 429 from
// entity resolution gets the same retry/backoff treatment as the unified
// analyze call instead of surfacing on the first attempt. It lives here
// (not in internal/catalog or internal/aiclient) so neither of those
// packages needs to import the other.
type cachingResolver struct {
	cache  *rescache.Cache
	client aiclient.Client
	cfg    aiclient.AnalyzeConfig
	sched  *scheduler.Scheduler
}

func (r *cachingResolver) Resolve(ctx context.Context, candidateType catalog.EntityType, candidateName, existingName string) (bool, float64, error) {
	key := rescache.Key{NewName: candidateName, NewType: string(candidateType), ExistingName: existingName}
	if v, ok := r.cache.Get(key); ok {
		return v.IsMatch, v.Confidence, nil
	}

	var res aiclient.ResolveResult
	var resolveErr error
	r.sched.Run(ctx, string(state.PhaseAnalyze), []scheduler.Task{
		func(taskCtx context.Context) (any, error) {
			return r.client.ResolveEntity(taskCtx, string(candidateType), candidateName, existingName, r.cfg)
		},
	}, func(result scheduler.Result) {
		if result.Err != nil {
			resolveErr = result.Err
			return
		}
		res, _ = result.Value.(aiclient.ResolveResult)
	})
	if resolveErr != nil {
		return false, 0, resolveErr
	}

	r.cache.Put(key, rescache.Value{IsMatch: res.IsMatch, Confidence: res.Confidence, Reasoning: res.Reasoning})
	return res.IsMatch, res.Confidence, nil
}

var _ catalog.Resolver = (*cachingResolver)(nil)
