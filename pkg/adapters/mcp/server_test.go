package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/aretw0/tendril/pkg/tools"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T) *fileops.Workspace {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/project/a.txt", []byte("hello\n"), 0o644))
	ws, err := fileops.New("/project", fileops.WithFs(fs))
	require.NoError(t, err)
	return ws
}

func connect(t *testing.T, s *Server) *client.Client {
	t.Helper()
	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0"}
	_, err = c.Initialize(ctx, init)
	require.NoError(t, err)
	return c
}

func call(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

func text(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			return tc.Text
		}
	}
	return ""
}

func TestServer_ReadOnlyByDefault(t *testing.T) {
	s := NewServer(newWorkspace(t), "test")

	assert.Contains(t, s.Exposed(), tools.ReadFile)
	assert.NotContains(t, s.Exposed(), tools.WriteToFile)
	assert.NotContains(t, s.Exposed(), tools.AskFollowup)

	c := connect(t, s)
	listed, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, listed.Tools, len(s.Exposed()))

	res := call(t, c, tools.ReadFile, map[string]any{"path": "a.txt"})
	assert.False(t, res.IsError)
	assert.Contains(t, text(res), "hello")
}

func TestServer_AllowWrites(t *testing.T) {
	ws := newWorkspace(t)
	s := NewServer(ws, "test", AllowWrites(true))
	assert.Contains(t, s.Exposed(), tools.WriteToFile)

	c := connect(t, s)
	res := call(t, c, tools.WriteToFile, map[string]any{"path": "b.txt", "content": "new\n"})
	require.False(t, res.IsError, text(res))

	got, err := ws.Read("b.txt")
	require.NoError(t, err)
	assert.Equal(t, "new\n", got)
}

func TestServer_ToolFailureIsErrorResult(t *testing.T) {
	c := connect(t, NewServer(newWorkspace(t), "test"))

	res := call(t, c, tools.ReadFile, map[string]any{"path": "missing.txt"})
	assert.True(t, res.IsError)
	assert.NotEmpty(t, text(res))
}

func TestServer_CatalogResource(t *testing.T) {
	c := connect(t, NewServer(newWorkspace(t), "test"))

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "tendril://tools"
	res, err := c.ReadResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	tc, ok := res.Contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Contains(t, tc.Text, `"write_to_file"`)
}
