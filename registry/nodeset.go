package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/nildb-agentkit/cryptoutils"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/sharing"
)

// Config carries the organization credentials used to authenticate to nodes.
type Config struct {
	// OrgDID is the organization identifier, used as the token issuer.
	OrgDID string

	// SecretKeyHex is the hex-encoded secp256k1 private key of the organization.
	SecretKeyHex string

	// TokenTTL is the bearer lifetime. Zero means cryptoutils.DefaultNodeTokenTTL.
	TokenTTL time.Duration

	// Now overrides the clock used for token timestamps.
	Now func() time.Time

	Log *slog.Logger
}

// NodeSet is the authenticated cluster: the ordered nodes with their bearer
// tokens and the cluster key sized to them. Node order is significant; share i
// of every value belongs to Nodes[i].
type NodeSet struct {
	Nodes      []interfaces.Node
	ClusterKey *sharing.ClusterKey
	OrgDID     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the bearer tokens are no longer valid at now.
// Tokens are never refreshed; a stale NodeSet must be re-initialized.
func (s *NodeSet) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Size returns the number of nodes.
func (s *NodeSet) Size() int {
	return len(s.Nodes)
}

// Initialize resolves the organization's nodes through svc, signs one bearer
// token per node and generates a store cluster key for the cluster.
func Initialize(ctx context.Context, cfg Config, svc interfaces.RegistrationService) (*NodeSet, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	if cfg.OrgDID == "" {
		return nil, fmt.Errorf("%w: organization DID is not configured", interfaces.ErrConfiguration)
	}
	if cfg.SecretKeyHex == "" {
		return nil, fmt.Errorf("%w: organization secret key is not configured", interfaces.ErrConfiguration)
	}

	key, err := cryptoutils.ParseSecretKeyHex(cfg.SecretKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrConfiguration, err)
	}

	configs, err := svc.FetchNodes(ctx, cfg.OrgDID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRegistration, err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: registration service returned no nodes", interfaces.ErrRegistration)
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = cryptoutils.DefaultNodeTokenTTL
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	issuedAt := now()

	nodes := make([]interfaces.Node, len(configs))
	for i, nc := range configs {
		if nc.URL == "" || nc.DID == "" {
			return nil, fmt.Errorf("%w: node %d is missing url or did", interfaces.ErrRegistration, i)
		}
		nc.URL = strings.TrimRight(nc.URL, "/")

		bearer, err := cryptoutils.IssueNodeToken(key, cfg.OrgDID, nc.DID, issuedAt, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to sign token for node %d: %w", i, err)
		}
		nodes[i] = interfaces.Node{NodeConfig: nc, Bearer: bearer}
	}

	clusterKey, err := sharing.GenerateClusterKey(len(nodes), sharing.Operations{Store: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRegistration, err)
	}

	log.Info("initialized node set",
		slog.String("org", cfg.OrgDID),
		slog.Int("nodes", len(nodes)),
		slog.Time("expires", issuedAt.Add(ttl)))

	return &NodeSet{
		Nodes:      nodes,
		ClusterKey: clusterKey,
		OrgDID:     cfg.OrgDID,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(ttl),
	}, nil
}
