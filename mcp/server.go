// Package mcp exposes the regs client as MCP (Model Context Protocol) tools
// over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperengineering/regs"
)

// Server wraps the MCP server with regs tools.
type Server struct {
	client    *regs.Client
	owner     string
	mcpServer *server.MCPServer
	session   *Session // refs for records shown in this session
}

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server with regs tools registered. Changes are
// attributed to the client's configured owner.
func NewServer(client *regs.Client, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{
		client:  client,
		owner:   client.Owner(),
		session: NewSession(),
	}

	s.mcpServer = server.NewMCPServer(
		"regs",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()

	return s
}

// Run serves MCP over stdin/stdout until the input closes.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "regs_list", Description: "List measurement records, filtered and sorted"},
		{Name: "regs_show", Description: "Show one record with its measurements"},
		{Name: "regs_create", Description: "Create a measurement record"},
		{Name: "regs_measure", Description: "Set or clear one measurement on a record"},
		{Name: "regs_deliver", Description: "Mark a record delivered or not delivered"},
		{Name: "regs_delete", Description: "Delete a record"},
		{Name: "regs_sync", Description: "Synchronize local records with the remote store"},
		{Name: "regs_stats", Description: "Show collection statistics"},
		{Name: "regs_profiles", Description: "List local profiles"},
	}
}

// CallTool executes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	switch name {
	case "regs_list":
		return s.handleList(ctx, args)
	case "regs_show":
		return s.handleShow(ctx, args)
	case "regs_create":
		return s.handleCreate(ctx, args)
	case "regs_measure":
		return s.handleMeasure(ctx, args)
	case "regs_deliver":
		return s.handleDeliver(ctx, args)
	case "regs_delete":
		return s.handleDelete(ctx, args)
	case "regs_sync":
		return s.handleSync(ctx, args)
	case "regs_stats":
		return s.handleStats(ctx, args)
	case "regs_profiles":
		return s.handleProfiles(ctx, args)
	default:
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
}

func (s *Server) registerTools() {
	recordArg := mcp.WithString("record",
		mcp.Description("Session ref (R1, R2, ...) from regs_list, or a record id"),
		mcp.Required(),
	)

	s.mcpServer.AddTool(mcp.NewTool("regs_list",
		mcp.WithDescription("List measurement records. Returns session refs (R1, R2, ...) usable by the other tools."),
		mcp.WithArray("categories",
			mcp.Description("Only these categories: Clothes, Curtains, Others"),
			mcp.WithStringItems(),
		),
		mcp.WithString("sync_status",
			mcp.Description("all, synced or unsynced (default: all)"),
			mcp.Enum("all", "synced", "unsynced"),
		),
		mcp.WithString("delivery_status",
			mcp.Description("all, delivered or undelivered (default: all)"),
			mcp.Enum("all", "delivered", "undelivered"),
		),
		mcp.WithString("sort",
			mcp.Description("newest, oldest, title_asc or title_desc (default: newest)"),
			mcp.Enum("newest", "oldest", "title_asc", "title_desc"),
		),
	), s.wrap(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("regs_show",
		mcp.WithDescription("Show a record with every measurement that has a value."),
		recordArg,
	), s.wrap(s.handleShow))

	s.mcpServer.AddTool(mcp.NewTool("regs_create",
		mcp.WithDescription("Create a measurement record with an empty measurement sheet for its category."),
		mcp.WithString("title", mcp.Description("Record title (max 200 chars)"), mcp.Required()),
		mcp.WithString("category",
			mcp.Description("Clothes, Curtains or Others"),
			mcp.Enum("Clothes", "Curtains", "Others"),
			mcp.Required(),
		),
		mcp.WithString("description", mcp.Description("Free-form notes")),
		mcp.WithString("deadline", mcp.Description("Delivery deadline, free text")),
	), s.wrap(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("regs_measure",
		mcp.WithDescription("Set one measurement on a record. Omit value to clear it."),
		recordArg,
		mcp.WithString("group", mcp.Description("Measurement group, e.g. arms or dimensions"), mcp.Required()),
		mcp.WithString("field", mcp.Description("Measurement field, e.g. sleeveLength or width"), mcp.Required()),
		mcp.WithNumber("value", mcp.Description("Value in the category unit (cm, yd or in)")),
	), s.wrap(s.handleMeasure))

	s.mcpServer.AddTool(mcp.NewTool("regs_deliver",
		mcp.WithDescription("Mark a record delivered, or not delivered."),
		recordArg,
		mcp.WithBoolean("delivered", mcp.Description("Delivered state (default: true)")),
	), s.wrap(s.handleDeliver))

	s.mcpServer.AddTool(mcp.NewTool("regs_delete",
		mcp.WithDescription("Delete a record locally and from the remote store."),
		recordArg,
	), s.wrap(s.handleDelete))

	s.mcpServer.AddTool(mcp.NewTool("regs_sync",
		mcp.WithDescription("Push pending records, pull the owner's records from the remote store and merge them."),
	), s.wrap(s.handleSync))

	s.mcpServer.AddTool(mcp.NewTool("regs_stats",
		mcp.WithDescription("Show collection statistics: totals by category, sync and delivery state."),
	), s.wrap(s.handleStats))

	s.mcpServer.AddTool(mcp.NewTool("regs_profiles",
		mcp.WithDescription("List local profiles that have a database."),
	), s.wrap(s.handleProfiles))
}

type toolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

func (s *Server) wrap(h toolHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, req.GetArguments())
		if err != nil {
			return nil, err
		}
		return toMCPResult(result), nil
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: r.Content,
			},
		},
		IsError: r.IsError,
	}
}

func toolError(format string, a ...any) *ToolResult {
	return &ToolResult{Content: fmt.Sprintf(format, a...), IsError: true}
}

// Internal handlers

func (s *Server) handleList(ctx context.Context, args map[string]any) (*ToolResult, error) {
	opts := regs.DefaultFilterOptions()
	opts.Locale = s.client.Config().LocaleTag()

	for _, name := range toStringSlice(args["categories"]) {
		c, err := regs.ParseCategory(name)
		if err != nil {
			return toolError("invalid category: %s", name), nil
		}
		opts.Categories = append(opts.Categories, c)
	}

	var err error
	if opts.SyncStatus, err = regs.ParseSyncStatus(stringArg(args, "sync_status")); err != nil {
		return toolError("%v", err), nil
	}
	if opts.DeliveryStatus, err = regs.ParseDeliveryStatus(stringArg(args, "delivery_status")); err != nil {
		return toolError("%v", err), nil
	}
	if opts.SortBy, err = regs.ParseSortBy(stringArg(args, "sort")); err != nil {
		return toolError("%v", err), nil
	}

	records, err := s.client.List(ctx, opts)
	if err != nil {
		return toolError("list failed: %v", err), nil
	}
	return &ToolResult{Content: s.formatList(records, opts.Active())}, nil
}

func (s *Server) handleShow(ctx context.Context, args map[string]any) (*ToolResult, error) {
	id, res := s.recordArg(args)
	if res != nil {
		return res, nil
	}
	rec, err := s.client.Get(ctx, id)
	if err != nil {
		return s.recordError("show", id, err), nil
	}
	return &ToolResult{Content: s.formatRecord(rec)}, nil
}

func (s *Server) handleCreate(ctx context.Context, args map[string]any) (*ToolResult, error) {
	title := stringArg(args, "title")
	if strings.TrimSpace(title) == "" {
		return toolError("title is required"), nil
	}
	category, err := regs.ParseCategory(stringArg(args, "category"))
	if err != nil {
		return toolError("invalid category: %q (use Clothes, Curtains or Others)", stringArg(args, "category")), nil
	}

	rec, err := s.client.Create(ctx, s.owner, regs.CreateParams{
		Title:            title,
		Category:         category,
		Description:      stringArg(args, "description"),
		DeliveryDeadline: stringArg(args, "deadline"),
	})
	if err != nil {
		return toolError("create failed: %v", err), nil
	}

	ref := s.session.Track(rec.ID)
	return &ToolResult{Content: fmt.Sprintf("Created [%s] %s (%s), %s.", ref, rec.Title, rec.Category, syncLabel(*rec))}, nil
}

func (s *Server) handleMeasure(ctx context.Context, args map[string]any) (*ToolResult, error) {
	id, res := s.recordArg(args)
	if res != nil {
		return res, nil
	}
	group, field := stringArg(args, "group"), stringArg(args, "field")
	if group == "" || field == "" {
		return toolError("group and field are required"), nil
	}

	var value *float64
	if v, ok := args["value"].(float64); ok {
		value = regs.Float(v)
	}

	rec, err := s.client.UpdateMeasurements(ctx, s.owner, id, regs.Measurements{group: {field: value}})
	if err != nil {
		return s.recordError("measure", id, err), nil
	}

	ref := s.session.Track(rec.ID)
	if value == nil {
		return &ToolResult{Content: fmt.Sprintf("Cleared %s.%s on [%s] %s.", group, field, ref, rec.Title)}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("Set %s.%s = %g %s on [%s] %s.", group, field, *value, rec.Category.Unit(), ref, rec.Title)}, nil
}

func (s *Server) handleDeliver(ctx context.Context, args map[string]any) (*ToolResult, error) {
	id, res := s.recordArg(args)
	if res != nil {
		return res, nil
	}
	delivered := true
	if v, ok := args["delivered"].(bool); ok {
		delivered = v
	}

	rec, err := s.client.ToggleDelivered(ctx, s.owner, id, delivered)
	if err != nil {
		return s.recordError("deliver", id, err), nil
	}
	state := "delivered"
	if !rec.Delivered {
		state = "not delivered"
	}
	return &ToolResult{Content: fmt.Sprintf("[%s] %s marked %s.", s.session.Track(rec.ID), rec.Title, state)}, nil
}

func (s *Server) handleDelete(ctx context.Context, args map[string]any) (*ToolResult, error) {
	id, res := s.recordArg(args)
	if res != nil {
		return res, nil
	}
	if err := s.client.Delete(ctx, s.owner, id); err != nil {
		return s.recordError("delete", id, err), nil
	}
	s.session.Forget(id)
	return &ToolResult{Content: fmt.Sprintf("Deleted %s.", id)}, nil
}

func (s *Server) handleSync(ctx context.Context, _ map[string]any) (*ToolResult, error) {
	result, err := s.client.Sync(ctx, s.owner)
	if err != nil {
		return toolError("sync failed: %v", err), nil
	}
	return &ToolResult{Content: formatSyncResult(result)}, nil
}

// recordArg resolves the "record" argument to a record id.
func (s *Server) recordArg(args map[string]any) (string, *ToolResult) {
	ref := strings.TrimSpace(stringArg(args, "record"))
	if ref == "" {
		return "", toolError("record is required")
	}
	return s.session.ResolveID(ref), nil
}

func (s *Server) recordError(op, id string, err error) *ToolResult {
	if errors.Is(err, regs.ErrNotFound) {
		return toolError("record not found: %s\nUse regs_list to see available records.", id)
	}
	return toolError("%s failed: %v", op, err)
}

// Formatting functions

func (s *Server) formatList(records []regs.Record, filtered bool) string {
	if len(records) == 0 {
		if filtered {
			return "No records match the filters."
		}
		return "No records yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d records:\n\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&sb, "[%s] %s (%s)\n", s.session.Track(r.ID), r.Title, r.Category)
		fmt.Fprintf(&sb, "    %s | %s | %s\n", r.Timestamp, syncLabel(r), deliveryLabel(r))
		if r.DeliveryDeadline != nil {
			fmt.Fprintf(&sb, "    Deadline: %s\n", *r.DeliveryDeadline)
		}
	}
	return sb.String()
}

func (s *Server) formatRecord(r *regs.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", s.session.Track(r.ID), r.Title)
	fmt.Fprintf(&sb, "  ID: %s\n", r.ID)
	fmt.Fprintf(&sb, "  Category: %s\n", r.Category)
	fmt.Fprintf(&sb, "  Created: %s\n", r.Timestamp)
	if r.Description != "" {
		fmt.Fprintf(&sb, "  Description: %s\n", r.Description)
	}
	if r.DeliveryDeadline != nil {
		fmt.Fprintf(&sb, "  Deadline: %s\n", *r.DeliveryDeadline)
	}
	fmt.Fprintf(&sb, "  Status: %s, %s\n", syncLabel(*r), deliveryLabel(*r))

	filled := r.Measurements.Filled(r.Category)
	if len(filled) == 0 {
		sb.WriteString("  Measurements: none yet\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "  Measurements (%s):\n", r.Category.Unit())
	for _, g := range regs.Schema(r.Category) {
		fields := r.Measurements[g.Name]
		printed := false
		for _, f := range g.Fields {
			v := fields[f]
			if v == nil {
				continue
			}
			if !printed {
				fmt.Fprintf(&sb, "    %s:\n", g.Name)
				printed = true
			}
			fmt.Fprintf(&sb, "      %s: %g\n", f, *v)
		}
	}
	return sb.String()
}

func formatSyncResult(r *regs.SyncResult) string {
	if r.Offline {
		return fmt.Sprintf("Offline: no signed-in owner or remote configured. %d local records unchanged.", len(r.Records))
	}
	var sb strings.Builder
	if r.PullFailed {
		sb.WriteString("Sync incomplete: remote unreachable, showing local records.\n")
	} else {
		sb.WriteString("Sync completed.\n")
	}
	fmt.Fprintf(&sb, "  Pushed: %d", r.Pushed)
	if r.PushFailed > 0 {
		fmt.Fprintf(&sb, " (%d failed, will retry)", r.PushFailed)
	}
	sb.WriteString("\n")
	if r.DeletesFlushed > 0 {
		fmt.Fprintf(&sb, "  Deletes sent: %d\n", r.DeletesFlushed)
	}
	if !r.PullFailed {
		fmt.Fprintf(&sb, "  Pulled: %d\n", r.Pulled)
	}
	if r.Dropped > 0 {
		fmt.Fprintf(&sb, "  Removed (deleted remotely): %d\n", r.Dropped)
	}
	fmt.Fprintf(&sb, "  Records: %d\n", len(r.Records))
	return sb.String()
}

func syncLabel(r regs.Record) string {
	if r.IsSynced() {
		return "synced"
	}
	return "pending sync"
}

func deliveryLabel(r regs.Record) string {
	if r.Delivered {
		return "delivered"
	}
	return "not delivered"
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// toStringSlice converts various array types to []string.
// Handles []any, []string, and nil.
func toStringSlice(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		result := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}
