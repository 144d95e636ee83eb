// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the macro folder tree for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mfolders/internal/folders"
	"github.com/starford/mfolders/internal/models"
)

// Server wraps the MCP server with folder tools.
type Server struct {
	mcp      *server.MCPServer
	engine   *folders.Engine
	iconsDir string
}

// New creates a new MCP server with all folder tools registered.
func New(engine *folders.Engine, iconsDir string) *Server {
	s := &Server{engine: engine, iconsDir: iconsDir}

	s.mcp = server.NewMCPServer(
		"Macro Folders",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("Return the visible folder tree with the entries in each folder."),
	), s.listTree)

	s.mcp.AddTool(mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder, optionally nested under another folder."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Folder title")),
		mcp.WithString("parent_id", mcp.Description("Parent folder id (empty for a root folder)")),
		mcp.WithString("color", mcp.Description("Background hex color, e.g. #335577")),
	), s.createFolder)

	s.mcp.AddTool(mcp.NewTool("add_entry",
		mcp.WithDescription("Move an entry into a folder. It leaves its previous folder."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Target folder id")),
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Entry id")),
	), s.addEntry)

	s.mcp.AddTool(mcp.NewTool("remove_entry",
		mcp.WithDescription("Take an entry out of a folder. Without hard it is hidden, not deleted."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder id")),
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Entry id")),
		mcp.WithBoolean("hard", mcp.Description("Delete the macro instead of hiding it")),
	), s.removeEntry)

	s.mcp.AddTool(mcp.NewTool("move_folder",
		mcp.WithDescription("Move a folder and its subtree under another folder, or to the root."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder to move")),
		mcp.WithString("dest", mcp.Description("Destination folder id; empty or \"root\" for the root")),
	), s.moveFolder)

	s.mcp.AddTool(mcp.NewTool("delete_folder",
		mcp.WithDescription("Delete a folder. Its entries move to the parent folder unless delete_contents is set."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder to delete")),
		mcp.WithBoolean("delete_contents", mcp.Description("Also delete the folder's entries on the host")),
	), s.deleteFolder)

	s.mcp.AddTool(mcp.NewTool("set_folder_permission",
		mcp.WithDescription("Apply a permission level to every entry directly inside a folder."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder id")),
		mcp.WithString("level", mcp.Required(), mcp.Description("Permission level"),
			mcp.Enum("none", "limited", "observer", "owner")),
	), s.setFolderPermission)

	s.mcp.AddTool(mcp.NewTool("search_entries",
		mcp.WithDescription("Case-insensitive search of entry names. Returns matching entries and their folders."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchEntries)

	s.mcp.AddTool(mcp.NewTool("export_folders",
		mcp.WithDescription("Export the flat folder map as JSON."),
	), s.exportFolders)

	s.mcp.AddTool(mcp.NewTool("get_folder_contract",
		mcp.WithDescription("Returns the folder map format contract. "+
			"Call this before editing an exported map."),
	), s.getFolderContract)

	s.mcp.AddTool(mcp.NewTool("set_folder_icon",
		mcp.WithDescription("Download an image (http(s) URL or base64 data URI) and set it as a folder's icon."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name for the stored icon")),
	), s.setFolderIcon)

	s.mcp.AddResource(
		mcp.NewResource("mfolders://folder-format", "Folder Map Format",
			mcp.WithResourceDescription("Flat folder map format used by export and import."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFolderFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTree(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roots, err := s.engine.Tree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(roots)
}

func (s *Server) createFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.engine.CreateFolder(ctx, folders.FolderInput{
		Title:    title,
		ParentID: req.GetString("parent_id", ""),
		Color:    req.GetString("color", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", f.ID)), nil
}

func (s *Server) addEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entryID, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.AddEntry(ctx, folderID, entryID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s -> %s", entryID, folderID)), nil
}

func (s *Server) removeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entryID, err := req.RequireString("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.RemoveEntry(ctx, folderID, entryID, req.GetBool("hard", false)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", entryID)), nil
}

func (s *Server) setFolderPermission(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("level")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	level, ok := models.ParsePermission(raw)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown permission level %q", raw)), nil
	}
	n, err := s.engine.SetFolderPermission(ctx, folderID, level)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("permission %s: %d entries", level, n)), nil
}

func (s *Server) moveFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.MoveFolder(ctx, id, req.GetString("dest", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.engine.PathName(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s", path)), nil
}

func (s *Server) deleteFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.engine.DeleteFolder(ctx, id, req.GetBool("delete_contents", false)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) searchEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}
	res, err := s.engine.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.EntryIDs) == 0 {
		return mcp.NewToolResultText("no entries found"), nil
	}
	return jsonResult(res)
}

func (s *Server) exportFolders(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.engine.ExportState(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getFolderContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FolderFormatContract), nil
}

func (s *Server) readFolderFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "mfolders://folder-format",
			MIMEType: "text/markdown",
			Text:     FolderFormatContract,
		},
	}, nil
}
