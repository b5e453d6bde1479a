package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ruteri/nildb-agentkit/api/clients"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/registry"
	"github.com/ruteri/nildb-agentkit/sharing"
)

// Config holds the optional collaborators of a VaultClient.
type Config struct {
	Log *slog.Logger

	// HTTPClient is shared by the default node clients.
	HTTPClient *http.Client

	// NodeFactory overrides how per-node clients are built. Nil means
	// clients.Factory(HTTPClient, Log).
	NodeFactory interfaces.NodeAPIFactory

	// Synthesizer is required by LookupSchema and CreateSchema only.
	Synthesizer interfaces.SchemaSynthesizer

	// IDPolicy controls how record identifiers are assigned on upload.
	IDPolicy sharing.IDPolicy
}

// VaultClient runs the distributed catalog, write and read paths against an
// initialized NodeSet. It is not safe for concurrent use.
type VaultClient struct {
	nodes  *registry.NodeSet
	apis   []interfaces.NodeAPI
	synth  interfaces.SchemaSynthesizer
	policy sharing.IDPolicy
	log    *slog.Logger
}

// New binds a VaultClient to nodes. The NodeSet must come from registry.Initialize.
func New(nodes *registry.NodeSet, cfg Config) (*VaultClient, error) {
	if nodes == nil || len(nodes.Nodes) == 0 {
		return nil, fmt.Errorf("%w: node set is not initialized", interfaces.ErrConfiguration)
	}
	if nodes.ClusterKey == nil {
		return nil, fmt.Errorf("%w: node set has no cluster key", interfaces.ErrConfiguration)
	}
	if nodes.ClusterKey.Nodes() != len(nodes.Nodes) {
		return nil, errors.New("cluster key does not match node count")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	factory := cfg.NodeFactory
	if factory == nil {
		factory = clients.Factory(cfg.HTTPClient, log)
	}

	apis := make([]interfaces.NodeAPI, len(nodes.Nodes))
	for i, node := range nodes.Nodes {
		apis[i] = factory(i, node)
	}

	return &VaultClient{
		nodes:  nodes,
		apis:   apis,
		synth:  cfg.Synthesizer,
		policy: cfg.IDPolicy,
		log:    log,
	}, nil
}

// Nodes returns the node set the client is bound to.
func (v *VaultClient) Nodes() *registry.NodeSet {
	return v.nodes
}

func (v *VaultClient) nodeLog(i int) *slog.Logger {
	return v.log.With(slog.Int("node", i), slog.String("url", v.nodes.Nodes[i].URL))
}
