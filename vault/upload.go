package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/sharing"
	"github.com/ruteri/nildb-agentkit/validation"
)

// Upload secret-shares records and writes one shard batch to every node. It
// returns the record ids in input order. The input records are not modified.
//
// Every node's shards are validated against the schema before the first write,
// so a *interfaces.ValidationError means nothing was sent. A failure at node 0
// returns its *interfaces.NodeError; a failure at a later node returns a
// *interfaces.PartialWriteError, and earlier nodes keep their shards until
// Compensate is called.
func (v *VaultClient) Upload(ctx context.Context, schemaID string, records []interfaces.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to upload", interfaces.ErrValidation)
	}

	schema, err := v.FindSchema(ctx, schemaID, nil)
	if err != nil {
		return nil, err
	}
	validator, err := validation.Compile(schemaID, schema)
	if err != nil {
		return nil, fmt.Errorf("schema %s is not a valid Draft-07 schema: %w", schemaID, err)
	}

	key := v.nodes.ClusterKey
	lifted := make([]interfaces.Record, len(records))
	ids := make([]string, len(records))
	for j, record := range records {
		lifted[j] = sharing.CloneRecord(record)
		if lifted[j] == nil {
			lifted[j] = interfaces.Record{}
		}
		id, err := sharing.MarkAndSplit(key, lifted[j], v.policy)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", j, err)
		}
		ids[j] = id
	}

	shards, err := sharing.Allot(lifted, key.Nodes())
	if err != nil {
		return nil, err
	}

	for i, shard := range shards {
		if err := validation.Validate(validator, shard); err != nil {
			return nil, &interfaces.ValidationError{Node: i, Err: err}
		}
	}

	var succeeded []int
	for i, shard := range shards {
		log := v.nodeLog(i)
		start := time.Now()
		if err := v.apis[i].CreateData(ctx, schemaID, shard); err != nil {
			log.Error("upload failed",
				slog.String("schema", schemaID),
				slog.Duration("duration", time.Since(start)),
				slog.Any("err", err))
			if len(succeeded) == 0 {
				return nil, err
			}
			return nil, &interfaces.PartialWriteError{
				SchemaID:  schemaID,
				RecordIDs: ids,
				Succeeded: succeeded,
				Failed:    i,
				Err:       err,
			}
		}
		log.Debug("uploaded shards",
			slog.String("schema", schemaID),
			slog.Int("records", len(shard)),
			slog.Duration("duration", time.Since(start)))
		succeeded = append(succeeded, i)
	}

	v.log.Info("upload completed", slog.String("schema", schemaID), slog.Int("records", len(ids)))
	return ids, nil
}

// Compensate deletes the shards a partial write left on the nodes that
// accepted them. It tries every node and returns the joined failures.
func (v *VaultClient) Compensate(ctx context.Context, partial *interfaces.PartialWriteError) error {
	if partial == nil || len(partial.RecordIDs) == 0 {
		return nil
	}

	ids := make([]any, len(partial.RecordIDs))
	for i, id := range partial.RecordIDs {
		ids[i] = id
	}
	filter := map[string]any{interfaces.IDKey: map[string]any{"$in": ids}}

	var errs []error
	for _, i := range partial.Succeeded {
		if i < 0 || i >= len(v.apis) {
			errs = append(errs, fmt.Errorf("node index %d out of range", i))
			continue
		}
		if err := v.apis[i].DeleteData(ctx, partial.SchemaID, filter); err != nil {
			v.nodeLog(i).Error("compensation failed", slog.String("schema", partial.SchemaID), slog.Any("err", err))
			errs = append(errs, err)
			continue
		}
		v.nodeLog(i).Info("removed orphaned shards",
			slog.String("schema", partial.SchemaID),
			slog.Int("records", len(ids)))
	}
	return errors.Join(errs...)
}
