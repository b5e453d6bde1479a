package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ruteri/nildb-agentkit/actions"
	"github.com/ruteri/nildb-agentkit/cmd/flags"
	"github.com/ruteri/nildb-agentkit/cmd/vaultcommon"
	"github.com/ruteri/nildb-agentkit/common"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "vault-mcp",
		Usage: "Serve the nildb vault actions as MCP tools over stdio",
		Flags: append(append(append([]cli.Flag{}, flags.LogFlags...), flags.LogServiceFlagFn("vault-mcp")), vaultcommon.VaultFlags...),
		Action: func(cCtx *cli.Context) error {
			// stdout carries the protocol
			logger := flags.SetupLoggerTo(cCtx, os.Stderr)

			v, err := vaultcommon.SetupVault(cCtx, logger, true)
			if err != nil {
				logger.Error("Failed to initialize vault", "err", err)
				return err
			}
			provider, err := actions.New(v, logger)
			if err != nil {
				return err
			}

			s := server.NewMCPServer("nildb-vault", common.Version, server.WithToolCapabilities(false))
			for _, a := range provider.Actions() {
				s.AddTool(toolFor(a), toolHandler(provider, a.Name, logger))
			}

			logger.Info("Serving vault tools over stdio", slog.Int("tools", len(provider.Actions())))
			return server.ServeStdio(s)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func toolHandler(p *actions.Provider, name string, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}
		out, err := p.Invoke(ctx, name, args)
		if err != nil {
			return nil, err
		}
		logger.Debug("Tool invoked", slog.String("tool", name), slog.Bool("error", out.IsError))
		if out.IsError {
			return mcp.NewToolResultError(out.Content), nil
		}
		return mcp.NewToolResultText(out.Content), nil
	}
}
