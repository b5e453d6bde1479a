package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/sharing"
)

// Download reads every record of the schema from all nodes and reassembles it.
func (v *VaultClient) Download(ctx context.Context, schemaID string) ([]interfaces.Record, error) {
	return v.DownloadFiltered(ctx, schemaID, nil)
}

// DownloadFiltered is Download with a node-side filter. The filter can only
// match fields stored in plaintext; shares differ per node.
//
// The read is all or nothing: the first node error stops the fan-out, and a
// record that cannot be reassembled fails the whole call.
func (v *VaultClient) DownloadFiltered(ctx context.Context, schemaID string, filter map[string]any) ([]interfaces.Record, error) {
	if filter == nil {
		filter = map[string]any{}
	}

	n := len(v.apis)
	groups := make(map[string][]interfaces.Record)
	lastNode := make(map[string]int)
	var order []string

	for i, api := range v.apis {
		log := v.nodeLog(i)
		start := time.Now()
		data, err := api.ReadData(ctx, schemaID, filter)
		if err != nil {
			log.Error("read failed", slog.String("schema", schemaID), slog.Any("err", err))
			return nil, err
		}
		log.Debug("read shards",
			slog.String("schema", schemaID),
			slog.Int("records", len(data)),
			slog.Duration("duration", time.Since(start)))

		for _, shard := range data {
			id, ok := shard[interfaces.IDKey].(string)
			if !ok {
				return nil, fmt.Errorf("%w: node %d returned a shard without a string _id", interfaces.ErrReconstruction, i)
			}
			if from, seen := lastNode[id]; !seen {
				order = append(order, id)
			} else if from == i {
				return nil, fmt.Errorf("%w: node %d returned more than one shard for record %s", interfaces.ErrReconstruction, i, id)
			}
			lastNode[id] = i
			groups[id] = append(groups[id], shard)
		}
	}

	records := make([]interfaces.Record, 0, len(order))
	for _, id := range order {
		group := groups[id]
		if len(group) != n {
			return nil, fmt.Errorf("%w: record %s has %d of %d shards", interfaces.ErrReconstruction, id, len(group), n)
		}
		record, err := sharing.Unify(v.nodes.ClusterKey, group, nil)
		if err != nil {
			if !errors.Is(err, interfaces.ErrReconstruction) {
				err = fmt.Errorf("%w: %w", interfaces.ErrReconstruction, err)
			}
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		records = append(records, record)
	}
	return records, nil
}
