package probe

import (
	"context"

	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

// SweepResult summarizes one update-upstream-versions run.
type SweepResult struct {
	Checked int
	Found   int
	Bad     int
}

// Sweep probes every package this shard owns and updates its Version
// record, implementing spec.md §4.3's "run probes, sharded by node hash"
// (spec.md §6). A probe that returns an error marks the package's Version
// record bad rather than aborting the sweep, the same "never let one
// job's error abort the loop" rule the Migration Scheduler follows.
func Sweep(ctx context.Context, st *store.Store, d *Dispatcher, job, nJobs int) (*SweepResult, error) {
	keys, err := st.KeysPrefix(ctx, "package:")
	if err != nil {
		return nil, err
	}

	res := &SweepResult{}
	for _, key := range keys {
		ph := store.NewLazyHandle[record.Package](st, key)
		if err := ph.Load(ctx); err != nil {
			continue
		}
		if !ph.Loaded() || !OwnedByShard(ph.Value.Name, job, nJobs) {
			continue
		}

		res.Checked++
		err := st.WithWriteScope(ctx, store.Key(record.VersionKey(ph.Value.Name)), func(ctx context.Context) error {
			vh := store.NewLazyHandle[record.Version](st, store.Key(record.VersionKey(ph.Value.Name)))
			if err := vh.Load(ctx); err != nil {
				return err
			}

			result, probeErr := d.Probe(ctx, &ph.Value)
			switch {
			case probeErr != nil:
				// A genuine probe failure (network, parse): mark bad.
				// Unavailable (unrecognized source, empty feed) is not
				// an error per spec.md §4.3 and leaves the record alone.
				res.Bad++
				vh.Value.Bad = &record.BadState{Kind: "probe", Reason: probeErr.Error()}
			case result.Kind == Found:
				res.Found++
				vh.Value.NewVersion = result.Version
				vh.Value.Bad = nil
			}
			vh.MarkDirty()
			_, err := vh.Flush(ctx)
			return err
		})
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
