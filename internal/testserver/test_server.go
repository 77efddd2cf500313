// Package testserver runs the full HTTP stack against an in-memory database
// for functional tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/rollcall/internal/app"
	"github.com/rpggio/rollcall/internal/config"
	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server *httptest.Server
	App    *app.App
	Token  string
}

// New starts a server whose sessions are authorized for operators and whose
// /mcp endpoint requires token.
func New(t *testing.T, token string, operators ...int64) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.DB.Path = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "unused.json")
	cfg.Timezone = "UTC"
	cfg.Operators = operators
	cfg.SeedGroups = []attendance.Group{
		{Name: "G1", Code: "101", Students: []string{"A", "B", "C"}},
	}

	a, err := app.Build(context.Background(), cfg, nil)
	require.NoError(t, err)

	mcpServer := a.MCPServer("test", nil)
	handler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)
	server := httptest.NewServer(transport.NewServer(handler, transport.AuthMiddleware(transport.StaticToken(token))))

	ts := &TestServer{
		Server: server,
		App:    a,
		Token:  token,
	}

	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})

	return ts
}

// Connect opens an MCP client session over streamable HTTP using token.
func (ts *TestServer) Connect(t *testing.T, token string) (*sdkmcp.ClientSession, error) {
	t.Helper()
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	return client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearer{token: token, next: http.DefaultTransport}},
	}, nil)
}

type bearer struct {
	token string
	next  http.RoundTripper
}

func (b bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}
