package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/ragblade"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

// MethodNotFound answers a request for a method no endpoint serves.
func MethodNotFound(req JSONRPCRequest) mcp.JSONRPCMessage {
	return errorResponse(req.ID, mcp.METHOD_NOT_FOUND, "method not found")
}

// ParseError answers a body that is not a JSON-RPC request.
func ParseError(err error) mcp.JSONRPCMessage {
	return errorResponse(mcp.RequestId{}, mcp.PARSE_ERROR, err.Error())
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `ragblade answers questions from a private document collection.

Add knowledge first, then ask:
- add_text: store a piece of text
- scrape_website: store the visible text of a web page
- ask_documents: answer a question using only the stored documents, with sources
- store_stats: show how many chunks are stored
- clear_store: delete everything stored`

const (
	ToolAskDocuments  = "ask_documents"
	ToolAddText       = "add_text"
	ToolScrapeWebsite = "scrape_website"
	ToolStoreStats    = "store_stats"
	ToolClearStore    = "clear_store"
)

func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolAskDocuments,
			mcp.WithDescription("Answer a question from the stored documents. The answer cites its sources."),
			mcp.WithString("message",
				mcp.Required(),
				mcp.Description("The question to answer"),
			),
		),
		mcp.NewTool(ToolAddText,
			mcp.WithDescription("Split, embed and store a piece of text."),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("The text to store"),
			),
		),
		mcp.NewTool(ToolScrapeWebsite,
			mcp.WithDescription("Fetch a web page and store its visible text."),
			mcp.WithString("url",
				mcp.Required(),
				mcp.Description("An http or https URL"),
			),
		),
		mcp.NewTool(ToolStoreStats,
			mcp.WithDescription("Report the vector collection and the number of stored chunks."),
		),
		mcp.NewTool(ToolClearStore,
			mcp.WithDescription("Delete every stored chunk."),
		),
	}
}

// NewEndpoints maps each supported JSON-RPC method to its endpoint.
func NewEndpoints(svc ragblade.Service) map[mcp.MCPMethod]MCPEndpoint {
	return map[mcp.MCPMethod]MCPEndpoint{
		mcp.MethodInitialize: InitializeEndpoint(svc),
		mcp.MethodPing:       PingEndpoint(svc),
		mcp.MethodToolsList:  ListToolsEndpoint(svc),
		mcp.MethodToolsCall:  CallToolEndpoint(svc),
	}
}

func InitializeEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "ragblade",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

var errToolNotFound = errors.New("tool not found")

func CallToolEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		result, err := callTool(ctx, svc, params)
		if err != nil {
			if errors.Is(err, errToolNotFound) {
				return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
			}

			// tool failures are reported to the model, not as protocol errors
			result = mcp.NewToolResultError(err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func callTool(ctx context.Context, svc ragblade.Service, params mcp.CallToolParams) (*mcp.CallToolResult, error) {
	args, _ := params.Arguments.(map[string]any)

	switch params.Name {
	case ToolAskDocuments:
		reply, err := svc.Chat(ctx, stringArg(args, "message"))
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(reply), nil

	case ToolAddText:
		n, err := svc.IngestText(ctx, stringArg(args, "text"))
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(fmt.Sprintf("%s (%d chunks)", ragblade.MessageTextAdded, n)), nil

	case ToolScrapeWebsite:
		n, err := svc.IngestURL(ctx, stringArg(args, "url"))
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(fmt.Sprintf("%s (%d chunks)", ragblade.MessageWebsiteAdded, n)), nil

	case ToolStoreStats:
		stats, err := svc.Stats(ctx)
		if err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(fmt.Sprintf("%s: collection %s holds %d chunks",
			ragblade.MessageStoreReady, stats.Collection, stats.Count)), nil

	case ToolClearStore:
		if err := svc.Clear(ctx); err != nil {
			return nil, err
		}

		return mcp.NewToolResultText(ragblade.MessageStoreCleared), nil

	default:
		return nil, fmt.Errorf("%w: %s", errToolNotFound, params.Name)
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
