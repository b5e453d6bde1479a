package vaultcommon

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ruteri/nildb-agentkit/api/clients"
	"github.com/ruteri/nildb-agentkit/config"
	"github.com/ruteri/nildb-agentkit/registry"
	"github.com/ruteri/nildb-agentkit/textmodel"
	"github.com/ruteri/nildb-agentkit/vault"
	"github.com/urfave/cli/v2"
)

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "YAML configuration file",
}

var OrgDIDFlag = &cli.StringFlag{
	Name:  "org-did",
	Usage: "organization DID, overrides " + config.EnvOrgID,
}

var SecretKeyFlag = &cli.StringFlag{
	Name:  "secret-key",
	Usage: "hex-encoded secp256k1 organization key, overrides " + config.EnvSecretKey,
}

var RegistrationURLFlag = &cli.StringFlag{
	Name:  "registration-url",
	Usage: "node registration service endpoint, overrides " + config.EnvRegistrationURL,
}

var IDPolicyFlag = &cli.StringFlag{
	Name:  "id-policy",
	Usage: "record id handling on upload: 'regenerate' or 'preserve'",
}

var TextModelFlag = &cli.StringFlag{
	Name:  "model",
	Usage: "text model used for schema lookup and creation, overrides " + config.EnvOpenAIModel,
}

var VaultFlags = []cli.Flag{
	ConfigFileFlag,
	OrgDIDFlag,
	SecretKeyFlag,
	RegistrationURLFlag,
	IDPolicyFlag,
	TextModelFlag,
}

// LoadConfig reads the config file and environment, then applies flags that
// were set on the command line.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(cCtx.String(ConfigFileFlag.Name))
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{OrgDIDFlag.Name, &cfg.OrgDID},
		{SecretKeyFlag.Name, &cfg.SecretKey},
		{RegistrationURLFlag.Name, &cfg.RegistrationURL},
		{IDPolicyFlag.Name, &cfg.IDPolicy},
		{TextModelFlag.Name, &cfg.TextModel.Model},
	}
	for _, o := range overrides {
		if cCtx.IsSet(o.flag) {
			*o.dst = cCtx.String(o.flag)
		}
	}
	return cfg, nil
}

// SetupVault resolves the organization's nodes and returns a bound client.
// The text model is only configured when requireTextModel is set or an API
// key is available.
func SetupVault(cCtx *cli.Context, logger *slog.Logger, requireTextModel bool) (*vault.VaultClient, error) {
	cfg, err := LoadConfig(cCtx)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(requireTextModel); err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	regCfg := cfg.Registry()
	regCfg.Log = logger
	nodes, err := registry.Initialize(cCtx.Context, regCfg, &registry.Client{
		URL:        cfg.RegistrationURL,
		HTTPClient: httpClient,
		Log:        logger,
	})
	if err != nil {
		return nil, err
	}

	vaultCfg := vault.Config{
		Log:         logger,
		HTTPClient:  httpClient,
		NodeFactory: clients.Factory(httpClient, logger),
		IDPolicy:    cfg.Policy(),
	}
	if cfg.TextModel.APIKey != "" {
		vaultCfg.Synthesizer = textmodel.NewOpenAIClient(cfg.TextModel.APIKey, cfg.TextModel.Model,
			textmodel.WithBaseURL(cfg.TextModel.BaseURL),
			textmodel.WithHTTPClient(httpClient),
			textmodel.WithLogger(logger))
	}

	v, err := vault.New(nodes, vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	return v, nil
}
