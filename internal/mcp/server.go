package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/cotizaciones-splitter/internal/archive"
	"github.com/a3tai/cotizaciones-splitter/internal/config"
	"github.com/a3tai/cotizaciones-splitter/internal/pdf"
	"github.com/a3tai/cotizaciones-splitter/internal/processor"
	"github.com/a3tai/cotizaciones-splitter/internal/statement"
)

// Tool names
const (
	ToolUpload     = "upload_statements"
	ToolProcess    = "process_statements"
	ToolPreview    = "preview_statements"
	ToolValidate   = "validate_statements"
	ToolList       = "list_statements"
	ToolServerInfo = "server_info"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	uploads    *uploadStore
	logger     *slog.Logger
	tools      []ToolInfo
}

// ToolInfo describes an available tool in server_info output
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  string `json:"parameters"`
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, logger *slog.Logger) (*Server, error) {
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		uploads:    newUploadStore(),
		logger:     logger,
	}

	s.registerTools()

	return s, nil
}

// addTool registers a tool and records it for server_info
func (s *Server) addTool(tool mcp.Tool, params string, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, ToolInfo{Name: tool.Name, Description: tool.Description, Parameters: params})
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		ToolUpload,
		mcp.WithDescription("Load a batch of contribution statements (PDF) and return a document handle"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF, absolute or relative to the configured directory"),
		),
	), "path (required)", s.handleUpload)

	s.addTool(mcp.NewTool(
		ToolProcess,
		mcp.WithDescription("Split a statement batch into one named PDF per page and write them as a zip archive"),
		mcp.WithString("handle",
			mcp.Description("Document handle returned by "+ToolUpload),
		),
		mcp.WithString("path",
			mcp.Description("Path to the PDF when no handle is given"),
		),
		mcp.WithString("policy",
			mcp.Description("Naming policy: lenient keeps incomplete pages with fallback names, strict drops them"),
			mcp.Enum(string(statement.PolicyLenient), string(statement.PolicyStrict)),
		),
		mcp.WithString("output",
			mcp.Description("Archive path (default "+archive.SuggestedName+" beside the source)"),
		),
	), "handle or path, policy (optional), output (optional)", s.handleProcess)

	s.addTool(mcp.NewTool(
		ToolPreview,
		mcp.WithDescription("Show the fields and file name each page would get, without writing anything"),
		mcp.WithString("handle",
			mcp.Description("Document handle returned by "+ToolUpload),
		),
		mcp.WithString("path",
			mcp.Description("Path to the PDF when no handle is given"),
		),
		mcp.WithString("policy",
			mcp.Description("Naming policy to preview"),
			mcp.Enum(string(statement.PolicyLenient), string(statement.PolicyStrict)),
		),
	), "handle or path, policy (optional)", s.handlePreview)

	s.addTool(mcp.NewTool(
		ToolValidate,
		mcp.WithDescription("Check that a file is a readable PDF and report its page count"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF"),
		),
	), "path (required)", s.handleValidate)

	s.addTool(mcp.NewTool(
		ToolList,
		mcp.WithDescription("List statement batches (PDF files) in a directory"),
		mcp.WithString("directory",
			mcp.Description("Directory to list (uses the configured directory if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional case-insensitive file name filter"),
		),
	), "directory (optional), query (optional)", s.handleList)

	s.addTool(mcp.NewTool(
		ToolServerInfo,
		mcp.WithDescription("Get server information, defaults and available tools"),
	), "none", s.handleServerInfo)
}

// processorFor builds an orchestrator, overriding the configured policy when
// the caller names one
func (s *Server) processorFor(policy string) (*processor.Processor, error) {
	if policy == "" {
		policy = s.config.Policy
	}
	p, err := statement.ParsePolicy(policy)
	if err != nil {
		return nil, err
	}
	search, err := statement.ParseMonthSearch(s.config.MonthSearch)
	if err != nil {
		return nil, err
	}

	return processor.New(s.pdfService, s.pdfService, processor.Options{
		Policy:      p,
		MonthSearch: search,
		Workers:     s.config.Workers,
		Logger:      s.logger,
	}), nil
}

// source resolves the handle or path arguments to the batch bytes and the
// path they came from
func (s *Server) source(args map[string]any) (*upload, bool, error) {
	if handle := stringArg(args, "handle"); handle != "" {
		u, err := s.uploads.get(handle)
		if err != nil {
			return nil, false, err
		}
		return u, true, nil
	}

	path := stringArg(args, "path")
	if path == "" {
		return nil, false, errors.New("either handle or path is required")
	}

	resolved, err := s.pdfService.ResolvePath(path)
	if err != nil {
		return nil, false, err
	}
	data, err := s.pdfService.ReadSource(resolved)
	if err != nil {
		return nil, false, err
	}
	return &upload{Path: resolved, Data: data}, false, nil
}

// Handler functions
func (s *Server) handleUpload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.pdfService.ResolvePath(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.pdfService.ReadSource(resolved)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.pdfService.Load(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages := doc.PageCount()
	doc.Close()

	u := s.uploads.put(resolved, data, pages)
	s.logger.Info("statement batch uploaded", "handle", u.ID, "path", resolved, "pages", pages)

	text := fmt.Sprintf("Uploaded: %s\n", resolved)
	text += fmt.Sprintf("Handle: %s\n", u.ID)
	text += fmt.Sprintf("Pages: %d\n", pages)
	text += fmt.Sprintf("Size: %d bytes\n", len(data))
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleProcess(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	src, fromHandle, err := s.source(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if fromHandle {
		defer s.uploads.release(src.ID)
	}

	proc, err := s.processorFor(stringArg(args, "policy"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output := stringArg(args, "output")
	if output == "" {
		output = filepath.Join(filepath.Dir(src.Path), archive.SuggestedName)
	}
	output, err = s.pdfService.ResolvePath(output)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := proc.Process(ctx, src.Data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := archive.WriteFile(output, result.Archive); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatProcessResult(src.Path, output, proc.Policy(), result)), nil
}

func (s *Server) handlePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	src, _, err := s.source(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	proc, err := s.processorFor(stringArg(args, "policy"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	previews, err := proc.Preview(ctx, src.Data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPreview(src.Path, proc.Policy(), previews)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("Valid PDF: %s (%d pages)", result.Path, result.Pages)
	} else {
		responseText = fmt.Sprintf("Invalid PDF: %s\nReason: %s", result.Path, result.Message)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req := pdf.PDFSearchDirectoryRequest{
		Directory: stringArg(args, "directory"),
		Query:     stringArg(args, "query"),
	}

	result, err := s.pdfService.PDFSearchDirectory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No PDF files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = s.formatSearchDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// Formatting methods
func (s *Server) formatProcessResult(source, output string, policy statement.Policy, result *processor.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed: %s\n", source)
	fmt.Fprintf(&b, "Archive: %s (%d bytes)\n", output, len(result.Archive))
	fmt.Fprintf(&b, "Policy: %s\n", policy)
	fmt.Fprintf(&b, "Pages: %d, files in archive: %d\n", result.Pages, result.Artifacts)
	fmt.Fprintf(&b, "Run: %s\n", result.RunID)

	b.WriteString("\nEntries:\n")
	for _, e := range result.Entries {
		fmt.Fprintf(&b, "  %s\n", e)
	}

	if len(result.Warnings) == 0 {
		b.WriteString("\nNo warnings\n")
		return b.String()
	}
	fmt.Fprintf(&b, "\nWarnings (%d):\n", len(result.Warnings))
	for _, w := range result.WarningStrings() {
		fmt.Fprintf(&b, "  %s\n", w)
	}
	return b.String()
}

func (s *Server) formatPreview(source string, policy statement.Policy, previews []processor.PagePreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Preview: %s (%d pages, policy %s)\n\n", source, len(previews), policy)

	for _, p := range previews {
		fmt.Fprintf(&b, "Page %d:\n", p.Page)
		fmt.Fprintf(&b, "  Name: %s\n", fieldText(p.Fields.FullName))
		fmt.Fprintf(&b, "  RUT: %s\n", fieldText(p.Fields.IDCode))
		fmt.Fprintf(&b, "  Month: %s\n", fieldText(p.Fields.Month))
		if p.Filename != "" {
			fmt.Fprintf(&b, "  File: %s\n", p.Filename)
		} else {
			b.WriteString("  File: (dropped)\n")
		}
		if p.Warning != nil {
			fmt.Fprintf(&b, "  Warning: %s\n", p.Warning.String())
		}
	}
	return b.String()
}

func (s *Server) formatSearchDirectoryResult(result *pdf.PDFSearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Directory: %s\n", s.pdfService.ConfiguredDirectory())
	text += fmt.Sprintf("Max File Size: %d MB\n", s.pdfService.GetMaxFileSize()/(1024*1024))
	text += fmt.Sprintf("Policy: %s\n", s.config.Policy)
	text += fmt.Sprintf("Month Search: %s\n", s.config.MonthSearch)
	text += fmt.Sprintf("Workers: %d\n", s.config.Workers)
	text += fmt.Sprintf("Open Handles: %d\n", s.uploads.len())

	text += "\nAvailable Tools:\n"
	for _, tool := range s.tools {
		text += fmt.Sprintf("\n- %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\nUsage: call " + ToolUpload + " with a PDF path, then " + ToolProcess + " with the returned handle. " +
		"Each page becomes COTIZACIONES_<MONTH>_<RUT>_<NAME>.pdf inside " + archive.SuggestedName + ".\n"
	return text
}

func fieldText(f statement.Field) string {
	if !f.Found {
		return "(missing)"
	}
	return f.Value
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode", "directory", s.config.PDFDirectory)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx ends
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server in server mode", "address", addr, "directory", s.config.PDFDirectory)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
