package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/nildb-agentkit/cmd/flags"
	"github.com/ruteri/nildb-agentkit/cmd/vaultcommon"
	"github.com/ruteri/nildb-agentkit/cryptoutils"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/urfave/cli/v2"
)

var flagSchema = &cli.StringFlag{
	Name:     "schema",
	Required: true,
	Usage:    "schema UUID",
}

var flagDescription = &cli.StringFlag{
	Name:     "description",
	Required: true,
	Usage:    "natural language description of the schema",
}

var flagFile = &cli.StringFlag{
	Name:  "file",
	Usage: "JSON file with a record or a list of records, '-' reads stdin",
}

var flagData = &cli.StringFlag{
	Name:  "data",
	Usage: "inline JSON record or list of records",
}

var flagCompensate = &cli.BoolFlag{
	Name:  "compensate",
	Usage: "delete shards left on nodes when an upload fails part way",
}

var flagFilter = &cli.StringFlag{
	Name:  "filter",
	Usage: "JSON filter on plaintext fields",
}

func main() {
	app := &cli.App{
		Name:  "vault",
		Usage: "Store and retrieve secret-shared records on a nildb cluster",
		Flags: append(append([]cli.Flag{}, flags.LogFlags...), flags.LogServiceFlagFn("vault")),
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "generate an organization secp256k1 key pair",
				Action: func(cCtx *cli.Context) error {
					key, err := crypto.GenerateKey()
					if err != nil {
						return err
					}
					return printJSON(map[string]string{
						"secret_key": cryptoutils.SecretKeyHex(key),
						"public_key": cryptoutils.PublicKeyHex(&key.PublicKey),
						"did":        cryptoutils.NilDID(&key.PublicKey),
					})
				},
			},
			{
				Name:  "nodes",
				Usage: "resolve the organization's nodes",
				Flags: vaultcommon.VaultFlags,
				Action: func(cCtx *cli.Context) error {
					v, err := vaultcommon.SetupVault(cCtx, flags.SetupLoggerTo(cCtx, os.Stderr), false)
					if err != nil {
						return err
					}
					nodes := v.Nodes()
					configs := make([]interfaces.NodeConfig, len(nodes.Nodes))
					for i, n := range nodes.Nodes {
						configs[i] = n.NodeConfig
					}
					return printJSON(map[string]any{
						"org_did":    nodes.OrgDID,
						"nodes":      configs,
						"expires_at": nodes.ExpiresAt,
					})
				},
			},
			{
				Name:  "create-schema",
				Usage: "create a schema from a description with the text model",
				Flags: append([]cli.Flag{flagDescription}, vaultcommon.VaultFlags...),
				Action: func(cCtx *cli.Context) error {
					v, err := vaultcommon.SetupVault(cCtx, flags.SetupLoggerTo(cCtx, os.Stderr), true)
					if err != nil {
						return err
					}
					id, document, err := v.CreateSchema(cCtx.Context, cCtx.String(flagDescription.Name))
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"schema_uuid": id, "schema": document})
				},
			},
			{
				Name:  "lookup-schema",
				Usage: "find the catalog schema best matching a description",
				Flags: append([]cli.Flag{flagDescription}, vaultcommon.VaultFlags...),
				Action: func(cCtx *cli.Context) error {
					v, err := vaultcommon.SetupVault(cCtx, flags.SetupLoggerTo(cCtx, os.Stderr), true)
					if err != nil {
						return err
					}
					id, schema, err := v.LookupSchema(cCtx.Context, cCtx.String(flagDescription.Name))
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"schema_uuid": id, "schema": schema})
				},
			},
			{
				Name:  "schemas",
				Usage: "list the schema catalog",
				Flags: vaultcommon.VaultFlags,
				Action: func(cCtx *cli.Context) error {
					v, err := vaultcommon.SetupVault(cCtx, flags.SetupLoggerTo(cCtx, os.Stderr), false)
					if err != nil {
						return err
					}
					schemas, err := v.FetchSchemas(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(schemas)
				},
			},
			{
				Name:  "upload",
				Usage: "secret-share records and store them on every node",
				Flags: append([]cli.Flag{flagSchema, flagFile, flagData, flagCompensate}, vaultcommon.VaultFlags...),
				Action: func(cCtx *cli.Context) error {
					records, err := readRecords(cCtx)
					if err != nil {
						return err
					}
					logger := flags.SetupLoggerTo(cCtx, os.Stderr)
					v, err := vaultcommon.SetupVault(cCtx, logger, false)
					if err != nil {
						return err
					}

					ids, err := v.Upload(cCtx.Context, cCtx.String(flagSchema.Name), records)
					var partial *interfaces.PartialWriteError
					if errors.As(err, &partial) && cCtx.Bool(flagCompensate.Name) {
						if cerr := v.Compensate(cCtx.Context, partial); cerr != nil {
							logger.Error("Compensation failed", "err", cerr)
						} else {
							logger.Info("Removed partially written shards", "nodes", partial.Succeeded)
						}
					}
					if err != nil {
						return err
					}
					return printJSON(ids)
				},
			},
			{
				Name:  "download",
				Usage: "read and reassemble every record of a schema",
				Flags: append([]cli.Flag{flagSchema, flagFilter}, vaultcommon.VaultFlags...),
				Action: func(cCtx *cli.Context) error {
					var filter map[string]any
					if raw := cCtx.String(flagFilter.Name); raw != "" {
						if err := json.Unmarshal([]byte(raw), &filter); err != nil {
							return fmt.Errorf("invalid --filter: %w", err)
						}
					}
					v, err := vaultcommon.SetupVault(cCtx, flags.SetupLoggerTo(cCtx, os.Stderr), false)
					if err != nil {
						return err
					}
					records, err := v.DownloadFiltered(cCtx.Context, cCtx.String(flagSchema.Name), filter)
					if err != nil {
						return err
					}
					return printJSON(records)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// readRecords accepts a single JSON object or a list of objects.
func readRecords(cCtx *cli.Context) ([]interfaces.Record, error) {
	var raw []byte
	switch {
	case cCtx.String(flagData.Name) != "":
		raw = []byte(cCtx.String(flagData.Name))
	case cCtx.String(flagFile.Name) == "-":
		var err error
		if raw, err = io.ReadAll(os.Stdin); err != nil {
			return nil, err
		}
	case cCtx.String(flagFile.Name) != "":
		var err error
		if raw, err = os.ReadFile(cCtx.String(flagFile.Name)); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("one of --file or --data is required")
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var record interfaces.Record
		if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
			return nil, fmt.Errorf("invalid record: %w", err)
		}
		return []interfaces.Record{record}, nil
	}
	var records []interfaces.Record
	if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
		return nil, fmt.Errorf("invalid records: %w", err)
	}
	return records, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
