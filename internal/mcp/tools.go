package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/rollcall/internal/dispatch"
)

// PressInput is a button press forwarded by the chat front-end.
type PressInput struct {
	Operator dispatch.Operator `json:"operator" jsonschema:"the user who pressed the button"`
	Chat     dispatch.Chat     `json:"chat" jsonschema:"the chat the button was pressed in"`
	Route    string            `json:"route" jsonschema:"route token carried by the button"`
}

// CommandInput is a slash command forwarded by the chat front-end.
type CommandInput struct {
	Operator dispatch.Operator `json:"operator" jsonschema:"the user who sent the command"`
	Chat     dispatch.Chat     `json:"chat" jsonschema:"the chat the command was sent in"`
	Name     string            `json:"name" jsonschema:"command name with or without the leading slash"`
	Args     string            `json:"args,omitempty" jsonschema:"raw text after the command name"`
}

func registerTools(server *sdkmcp.Server, d Dispatcher) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "press",
		Description: "Handle an inline button press and return what to render",
	}, pressHandler(d))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "command",
		Description: "Handle a slash command and return what to render",
	}, commandHandler(d))
}

func pressHandler(d Dispatcher) sdkmcp.ToolHandlerFor[PressInput, dispatch.Render] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in PressInput) (*sdkmcp.CallToolResult, dispatch.Render, error) {
		if in.Operator.ID == 0 {
			return nil, dispatch.Render{}, fmt.Errorf("%w: operator.id is required", ErrInvalidArguments)
		}
		if strings.TrimSpace(in.Route) == "" {
			return nil, dispatch.Render{}, fmt.Errorf("%w: route is required", ErrInvalidArguments)
		}
		return nil, d.HandleRoute(ctx, in.Operator, in.Chat, in.Route), nil
	}
}

func commandHandler(d Dispatcher) sdkmcp.ToolHandlerFor[CommandInput, dispatch.Render] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CommandInput) (*sdkmcp.CallToolResult, dispatch.Render, error) {
		if in.Operator.ID == 0 {
			return nil, dispatch.Render{}, fmt.Errorf("%w: operator.id is required", ErrInvalidArguments)
		}
		if strings.TrimSpace(in.Name) == "" {
			return nil, dispatch.Render{}, fmt.Errorf("%w: name is required", ErrInvalidArguments)
		}
		return nil, d.HandleCommand(ctx, in.Operator, in.Chat, in.Name, in.Args), nil
	}
}
