package mcp

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/rollcall/internal/dispatch"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) HandleRoute(ctx context.Context, op dispatch.Operator, chat dispatch.Chat, token string) dispatch.Render {
	args := m.Called(ctx, op, chat, token)
	return args.Get(0).(dispatch.Render)
}

func (m *mockDispatcher) HandleCommand(ctx context.Context, op dispatch.Operator, chat dispatch.Chat, name, rest string) dispatch.Render {
	args := m.Called(ctx, op, chat, name, rest)
	return args.Get(0).(dispatch.Render)
}

func connect(t *testing.T, d Dispatcher) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(Config{Dispatcher: d})
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func decodeRender(t *testing.T, res *sdkmcp.CallToolResult) dispatch.Render {
	t.Helper()
	require.False(t, res.IsError, "tool returned error: %+v", res.Content)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	var r dispatch.Render
	require.NoError(t, json.Unmarshal([]byte(text.Text), &r))
	return r
}

func TestPressForwardsToDispatcher(t *testing.T) {
	d := &mockDispatcher{}
	op := dispatch.Operator{ID: 100, DisplayName: "Teacher"}
	chat := dispatch.Chat{ID: 100, Type: dispatch.ChatPrivate}
	want := dispatch.Render{
		Text: "Choose a group",
		Menu: [][]dispatch.Button{{{Label: "G1", Route: "att_group::G1"}}},
	}
	d.On("HandleRoute", mock.Anything, op, chat, "menu_attendance").Return(want)

	session := connect(t, d)
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name: "press",
		Arguments: map[string]any{
			"operator": map[string]any{"id": 100, "display_name": "Teacher"},
			"chat":     map[string]any{"id": 100, "type": "private"},
			"route":    "menu_attendance",
		},
	})
	require.NoError(t, err)
	require.Equal(t, want, decodeRender(t, res))
	d.AssertExpectations(t)
}

func TestCommandForwardsToDispatcher(t *testing.T) {
	d := &mockDispatcher{}
	op := dispatch.Operator{ID: 200}
	chat := dispatch.Chat{ID: -5, Type: dispatch.ChatGroup}
	want := dispatch.Render{Text: "Log chat set to -5."}
	d.On("HandleCommand", mock.Anything, op, chat, "/set_log_chat", "").Return(want)

	session := connect(t, d)
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name: "command",
		Arguments: map[string]any{
			"operator": map[string]any{"id": 200},
			"chat":     map[string]any{"id": -5, "type": "group"},
			"name":     "/set_log_chat",
		},
	})
	require.NoError(t, err)
	require.Equal(t, want, decodeRender(t, res))
	d.AssertExpectations(t)
}

func TestUnauthorizedRenderPassesThrough(t *testing.T) {
	d := &mockDispatcher{}
	d.On("HandleRoute", mock.Anything, dispatch.Operator{ID: 999}, dispatch.Chat{ID: 999}, "toggle::Ali").
		Return(dispatch.Render{Alert: "Not allowed", Notice: dispatch.NoticeUnauthorized})

	session := connect(t, d)
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name: "press",
		Arguments: map[string]any{
			"operator": map[string]any{"id": 999},
			"chat":     map[string]any{"id": 999},
			"route":    "toggle::Ali",
		},
	})
	require.NoError(t, err)
	r := decodeRender(t, res)
	require.Equal(t, dispatch.NoticeUnauthorized, r.Notice)
	require.Empty(t, r.Text)
}

func TestMissingOperatorIsToolError(t *testing.T) {
	d := &mockDispatcher{}
	session := connect(t, d)

	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name: "press",
		Arguments: map[string]any{
			"operator": map[string]any{"id": 0},
			"chat":     map[string]any{"id": 1},
			"route":    "noop",
		},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	d.AssertNotCalled(t, "HandleRoute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestToolsAndDocsAreListed(t *testing.T) {
	session := connect(t, &mockDispatcher{})
	ctx := context.Background()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"press", "command"}, names)

	res, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "rollcall://docs/routes"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "final_confirm")
}
