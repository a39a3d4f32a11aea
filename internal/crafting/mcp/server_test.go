package mcp_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/craftlist-server/internal/crafting/db"
	"github.com/rsned/craftlist-server/internal/crafting/engine"
	"github.com/rsned/craftlist-server/internal/crafting/mcp"
	"github.com/rsned/craftlist-server/internal/crafting/metrics"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

type rpcResponse struct {
	ID     any             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *mcp.Error      `json:"error"`
}

func newTestServer(t *testing.T) (*mcp.Server, *metrics.Collector) {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenAndInit(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.NewItemStore(database).BulkInsertItems(ctx, []crafting.Item{
		{ID: 1, Name: "Iron Ore"},
		{ID: 2, Name: "Iron Ingot"},
	}))
	require.NoError(t, db.NewRecipeStore(database).BulkInsertRecipes(ctx, []crafting.Recipe{
		{ID: 10, ItemID: 2, Yield: 1, Ingredients: []crafting.Ingredient{{ItemID: 1, Amount: 2}}},
	}))

	collector, err := metrics.NewCollector()
	require.NoError(t, err)

	eng, err := engine.New(database, engine.Options{Recorder: collector})
	require.NoError(t, err)

	return mcp.NewServer(eng, nil, collector), collector
}

func serve(t *testing.T, s *mcp.Server, requests ...string) []rpcResponse {
	t.Helper()

	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(strings.Join(requests, "\n")+"\n"), &out))

	var responses []rpcResponse
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var r rpcResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		responses = append(responses, r)
	}
	return responses
}

func TestServer_Handshake(t *testing.T) {
	s, _ := newTestServer(t)

	responses := serve(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)

	require.Len(t, responses, 2, "notifications are not answered")

	var initResult mcp.InitializeResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &initResult))
	assert.Equal(t, "craftlist", initResult.ServerInfo.Name)
	assert.NotNil(t, initResult.Capabilities.Tools)

	var list mcp.ToolsListResult
	require.NoError(t, json.Unmarshal(responses[1].Result, &list))
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"craft_list", "craft_cost", "max_craftable", "bill_of_materials", "recipe_lookup", "component_uses",
	}, names)
}

func TestServer_CraftListCall(t *testing.T) {
	s, collector := newTestServer(t)

	responses := serve(t, s,
		`{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"craft_list","arguments":{"items":[{"item_id":2,"quantity":3}],"character_inventory":[{"item_id":1,"quantity":4}]}}}`,
	)

	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)
	assert.Equal(t, "a", responses[0].ID)

	var result mcp.ToolCallResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Content, 1)

	var list crafting.CraftListResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &list))
	require.Len(t, list.Outputs, 1)
	assert.Equal(t, "Iron Ingot", list.Outputs[0].Name)
	assert.Equal(t, uint32(2), list.Outputs[0].QuantityCanCraft)
	assert.Equal(t, uint32(6), list.Totals.Needed[1])
	assert.Equal(t, uint32(4), list.Totals.Ready[1])

	count, err := testutil.GatherAndCount(collector.Registry(), "craftlist_server_tool_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestServer_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	responses := serve(t, s,
		`{not json`,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"price_history","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"craft_list","arguments":{"items":[]}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"craft_list","arguments":{"items":"many"}}}`,
	)

	require.Len(t, responses, 5)
	codes := make([]int, len(responses))
	for i, r := range responses {
		require.NotNil(t, r.Error, "response %d", i)
		codes[i] = r.Error.Code
	}
	assert.Equal(t, []int{
		mcp.ErrCodeParse,
		mcp.ErrCodeMethodNotFound,
		mcp.ErrCodeInvalidParams,
		mcp.ErrCodeInternal,
		mcp.ErrCodeInvalidParams,
	}, codes)
	assert.Contains(t, responses[3].Error.Message, engine.ErrNoItems.Error())
}
