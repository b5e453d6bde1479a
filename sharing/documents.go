package sharing

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/ruteri/nildb-agentkit/interfaces"
)

// IDPolicy decides what happens to record identifiers before sharing.
type IDPolicy int

const (
	// IDPolicyRegenerate replaces every _id key, at any mapping depth, with a
	// fresh UUID, and adds a top-level _id if the record has none.
	IDPolicyRegenerate IDPolicy = iota

	// IDPolicyPreserve keeps a caller-supplied top-level _id and only generates
	// one when it is absent or empty.
	IDPolicyPreserve
)

// ParseIDPolicy maps "regenerate" (or "") and "preserve" to a policy.
func ParseIDPolicy(s string) (IDPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regenerate":
		return IDPolicyRegenerate, nil
	case "preserve":
		return IDPolicyPreserve, nil
	default:
		return 0, fmt.Errorf("%w: unknown id policy %q", interfaces.ErrConfiguration, s)
	}
}

func (p IDPolicy) String() string {
	switch p {
	case IDPolicyRegenerate:
		return "regenerate"
	case IDPolicyPreserve:
		return "preserve"
	default:
		return fmt.Sprintf("IDPolicy(%d)", int(p))
	}
}

// DefaultUnifyIgnore are node-maintained fields that legitimately differ between shards.
var DefaultUnifyIgnore = []string{"_created", "_updated"}

// AssignRecordID normalizes the identifiers of record in place according to
// policy and returns the resulting top-level _id.
func AssignRecordID(record interfaces.Record, policy IDPolicy) (string, error) {
	switch policy {
	case IDPolicyRegenerate:
		regenerateIDs(record)
		id := uuid.NewString()
		record[interfaces.IDKey] = id
		return id, nil
	case IDPolicyPreserve:
		existing, found := record[interfaces.IDKey]
		if !found || existing == "" || existing == nil {
			id := uuid.NewString()
			record[interfaces.IDKey] = id
			return id, nil
		}
		id, ok := existing.(string)
		if !ok {
			return "", fmt.Errorf("%w: _id must be a string, got %T", interfaces.ErrValidation, existing)
		}
		return id, nil
	default:
		return "", fmt.Errorf("unknown id policy %d", int(policy))
	}
}

// regenerateIDs replaces nested _id keys. Secret payloads under $share are left untouched.
func regenerateIDs(doc map[string]any) {
	for key, value := range doc {
		if key == interfaces.ShareKey {
			continue
		}
		if key == interfaces.IDKey {
			doc[key] = uuid.NewString()
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			regenerateIDs(nested)
		}
	}
}

// LiftSecretFields walks the mappings of doc (not lists) and rewrites every
// mapping holding a $share key: the key is removed and $allot is set to the
// per-node shares of its value. Other keys of that mapping are kept.
func LiftSecretFields(key *ClusterKey, doc map[string]any) error {
	return liftSecretFields(key, doc, "")
}

func liftSecretFields(key *ClusterKey, doc map[string]any, path string) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		value := doc[k]
		if k == interfaces.ShareKey {
			shares, err := key.Encrypt(value)
			if err != nil {
				return fmt.Errorf("field %s: %w", displayPath(path), err)
			}
			delete(doc, interfaces.ShareKey)
			doc[interfaces.AllotKey] = shares
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			if err := liftSecretFields(key, nested, path+"."+k); err != nil {
				return err
			}
		}
	}
	return nil
}

// MarkAndSplit runs AssignRecordID followed by LiftSecretFields and returns the record id.
func MarkAndSplit(key *ClusterKey, record interfaces.Record, policy IDPolicy) (string, error) {
	id, err := AssignRecordID(record, policy)
	if err != nil {
		return "", err
	}
	if err := LiftSecretFields(key, record); err != nil {
		return "", err
	}
	return id, nil
}

// Allot shards a batch of lifted records across nodes. The result has one list
// per node; list i holds, for every record in order, the shard for node i.
// Every $allot mapping becomes {"$share": share_i}.
func Allot(records []interfaces.Record, nodes int) ([][]interfaces.Record, error) {
	if nodes < 1 {
		return nil, fmt.Errorf("%w: node count must be positive", interfaces.ErrAllotment)
	}

	out := make([][]interfaces.Record, nodes)
	for i := range out {
		out[i] = make([]interfaces.Record, 0, len(records))
	}

	for j, record := range records {
		variants, err := allotValue(record, nodes, "")
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", j, err)
		}
		for i := range variants {
			out[i] = append(out[i], variants[i].(map[string]any))
		}
	}
	return out, nil
}

func allotValue(value any, nodes int, path string) ([]any, error) {
	variants := make([]any, nodes)

	switch v := value.(type) {
	case map[string]any:
		maps := make([]map[string]any, nodes)
		for i := range maps {
			maps[i] = make(map[string]any, len(v))
			variants[i] = maps[i]
		}

		if raw, found := v[interfaces.AllotKey]; found {
			shares, ok := raw.([]any)
			if !ok || len(shares) != nodes {
				return nil, fmt.Errorf("%w: field %s must carry %d shares", interfaces.ErrAllotment, displayPath(path), nodes)
			}
			for i := range maps {
				maps[i][interfaces.ShareKey] = shares[i]
			}
		}

		for k, child := range v {
			if k == interfaces.AllotKey {
				continue
			}
			childVariants, err := allotValue(child, nodes, path+"."+k)
			if err != nil {
				return nil, err
			}
			for i := range maps {
				maps[i][k] = childVariants[i]
			}
		}
	case []any:
		lists := make([][]any, nodes)
		for i := range lists {
			lists[i] = make([]any, len(v))
		}
		for idx, elem := range v {
			elemVariants, err := allotValue(elem, nodes, fmt.Sprintf("%s[%d]", path, idx))
			if err != nil {
				return nil, err
			}
			for i := range lists {
				lists[i][idx] = elemVariants[i]
			}
		}
		for i := range lists {
			variants[i] = lists[i]
		}
	default:
		for i := range variants {
			variants[i] = value
		}
	}
	return variants, nil
}

// Unify reassembles one record from its shards, one per node in node order.
// Each {"$share": ...} mapping is replaced by its plaintext value; when the
// mapping had sibling keys they are unified too and the plaintext is put back
// under $share. Top-level keys in ignore are taken from the first shard
// without comparison. A nil ignore uses DefaultUnifyIgnore.
func Unify(key *ClusterKey, shards []interfaces.Record, ignore []string) (interfaces.Record, error) {
	if len(shards) != key.Nodes() {
		return nil, fmt.Errorf("%w: expected %d shards, got %d", interfaces.ErrReconstruction, key.Nodes(), len(shards))
	}
	if ignore == nil {
		ignore = DefaultUnifyIgnore
	}

	values := make([]any, len(shards))
	for i, s := range shards {
		if s == nil {
			return nil, fmt.Errorf("%w: shard %d is empty", interfaces.ErrReconstruction, i)
		}
		values[i] = map[string]any(s)
	}

	ignored := make(map[string]any)
	stripped := make([]any, len(shards))
	for i, v := range values {
		m := cloneShallow(v.(map[string]any))
		for _, k := range ignore {
			if i == 0 {
				if val, ok := m[k]; ok {
					ignored[k] = val
				}
			}
			delete(m, k)
		}
		stripped[i] = m
	}

	unified, err := unifyValue(key, stripped, "")
	if err != nil {
		return nil, err
	}
	record, ok := unified.(map[string]any)
	if !ok {
		// a top-level marker produces a bare value
		return nil, fmt.Errorf("%w: record root is a secret value", interfaces.ErrReconstruction)
	}
	for k, v := range ignored {
		record[k] = v
	}
	return record, nil
}

func unifyValue(key *ClusterKey, values []any, path string) (any, error) {
	switch first := values[0].(type) {
	case map[string]any:
		maps := make([]map[string]any, len(values))
		for i, v := range values {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: field %s has mismatched types across shards", interfaces.ErrReconstruction, displayPath(path))
			}
			if len(m) != len(first) {
				return nil, fmt.Errorf("%w: field %s has mismatched keys across shards", interfaces.ErrReconstruction, displayPath(path))
			}
			maps[i] = m
		}

		var plaintext any
		_, isSecret := first[interfaces.ShareKey]
		if isSecret {
			shares := make([]any, len(maps))
			for i, m := range maps {
				share, ok := m[interfaces.ShareKey]
				if !ok {
					return nil, fmt.Errorf("%w: field %s missing share from node %d", interfaces.ErrReconstruction, displayPath(path), i)
				}
				shares[i] = share
			}
			decrypted, err := key.Decrypt(shares)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", displayPath(path), err)
			}
			if len(first) == 1 {
				return decrypted, nil
			}
			plaintext = decrypted
		}

		out := make(map[string]any, len(first))
		for k := range first {
			if isSecret && k == interfaces.ShareKey {
				out[k] = plaintext
				continue
			}
			children := make([]any, len(maps))
			for i, m := range maps {
				child, ok := m[k]
				if !ok {
					return nil, fmt.Errorf("%w: field %s missing from node %d", interfaces.ErrReconstruction, displayPath(path+"."+k), i)
				}
				children[i] = child
			}
			unified, err := unifyValue(key, children, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = unified
		}
		return out, nil
	case []any:
		lists := make([][]any, len(values))
		for i, v := range values {
			l, ok := v.([]any)
			if !ok || len(l) != len(first) {
				return nil, fmt.Errorf("%w: list %s differs across shards", interfaces.ErrReconstruction, displayPath(path))
			}
			lists[i] = l
		}
		out := make([]any, len(first))
		for idx := range first {
			elems := make([]any, len(lists))
			for i := range lists {
				elems[i] = lists[i][idx]
			}
			unified, err := unifyValue(key, elems, fmt.Sprintf("%s[%d]", path, idx))
			if err != nil {
				return nil, err
			}
			out[idx] = unified
		}
		return out, nil
	default:
		for i := 1; i < len(values); i++ {
			if !reflect.DeepEqual(first, values[i]) {
				return nil, fmt.Errorf("%w: field %s differs between node 0 and node %d", interfaces.ErrReconstruction, displayPath(path), i)
			}
		}
		return first, nil
	}
}

// CloneRecord deep-copies the mappings and lists of a record.
func CloneRecord(record interfaces.Record) interfaces.Record {
	if record == nil {
		return nil
	}
	return cloneValue(map[string]any(record)).(map[string]any)
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return value
	}
}

func cloneShallow(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return strings.TrimPrefix(path, ".")
}
