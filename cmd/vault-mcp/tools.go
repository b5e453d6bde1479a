package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ruteri/nildb-agentkit/actions"
)

// Tool parameters for each action. Descriptions come from the action itself.
var toolParams = map[string][]mcp.ToolOption{
	actions.LookupSchema: {
		mcp.WithString("schema_description",
			mcp.Required(),
			mcp.Description("a complete description of the desired nildb schema")),
	},
	actions.CreateSchema: {
		mcp.WithString("schema_description",
			mcp.Required(),
			mcp.Description("a complete description of the desired nildb schema")),
	},
	actions.DataUpload: {
		mcp.WithString("schema_uuid",
			mcp.Required(),
			mcp.Description("the UUID obtained from the lookup_schema tool")),
		mcp.WithArray("data_to_store",
			mcp.Required(),
			mcp.Description("data to store in the database that validates against desired schema"),
			mcp.Items(map[string]any{"type": "object"})),
	},
	actions.DataDownload: {
		mcp.WithString("schema_uuid",
			mcp.Required(),
			mcp.Description("the UUID obtained from the lookup_schema tool")),
	},
}

func toolFor(a actions.Action) mcp.Tool {
	opts := append([]mcp.ToolOption{mcp.WithDescription(a.Description)}, toolParams[a.Name]...)
	return mcp.NewTool(a.Name, opts...)
}
