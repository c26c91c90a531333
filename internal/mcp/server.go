package mcp

import (
	"context"
	"fmt"
	"strings"

	"tasklist-cli/internal/model"
	"tasklist-cli/internal/store"
	"tasklist-cli/internal/view"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

const (
	serverName    = "tasklist"
	serverVersion = "0.1.0"
)

// NewServer exposes st as MCP tools.
func NewServer(st *store.Store, log logrus.FieldLogger) *server.MCPServer {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	s := server.NewMCPServer(serverName, serverVersion)

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks as shown in the list view: filtered, searched, and sorted (incomplete first, then due date, priority, creation time)."),
		mcp.WithString("filter", mcp.Description("all|active|completed (default all)")),
		mcp.WithString("search", mcp.Description("Case-insensitive title substring")),
		mcp.WithString("order", mcp.Description("smart|manual (default smart; manual keeps stored order)")),
	), listTasksHandler(st))

	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task at the end of the list."),
		mcp.WithString("title", mcp.Description("Task title (must not be blank)"), mcp.Required()),
		mcp.WithString("due", mcp.Description("Due date YYYY-MM-DD")),
		mcp.WithString("priority", mcp.Description("high|normal|low (default normal)")),
	), createTaskHandler(st))

	s.AddTool(mcp.NewTool("update_task_title",
		mcp.WithDescription("Rename a task."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title (must not be blank)"), mcp.Required()),
	), updateTitleHandler(st))

	s.AddTool(mcp.NewTool("set_task_completed",
		mcp.WithDescription("Mark a task completed or not completed."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithBoolean("completed", mcp.Description("Completion state (default true)")),
	), setCompletedHandler(st))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("id", mcp.Description("Task id"), mcp.Required()),
	), deleteTaskHandler(st))

	s.AddTool(mcp.NewTool("duplicate_task",
		mcp.WithDescription("Copy a task's title, due date, and priority into a new incomplete task."),
		mcp.WithString("id", mcp.Description("Source task id"), mcp.Required()),
	), duplicateTaskHandler(st))

	s.AddTool(mcp.NewTool("complete_all_tasks",
		mcp.WithDescription("Mark every task completed."),
	), completeAllHandler(st))

	s.AddTool(mcp.NewTool("clear_completed_tasks",
		mcp.WithDescription("Delete every completed task."),
	), clearCompletedHandler(st))

	s.AddTool(mcp.NewTool("delete_all_tasks",
		mcp.WithDescription("Delete every task. Irreversible; requires confirm=true."),
		mcp.WithBoolean("confirm", mcp.Description("Must be true"), mcp.Required()),
	), deleteAllHandler(st, log))

	s.AddTool(mcp.NewTool("reorder_tasks",
		mcp.WithDescription("Apply a new visible order. The given ids take the list positions they currently occupy, in the given order; other tasks keep their positions. Unknown ids are ignored."),
		mcp.WithArray("ids", mcp.Description("Task ids in their new order"), mcp.Required(), mcp.WithStringItems()),
	), reorderHandler(st))

	return s
}

// Serve runs the MCP server on stdio until stdin closes.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func listTasksHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter, err := view.ParseFilter(mcp.ParseString(request, "filter", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		order, err := view.ParseOrder(mcp.ParseString(request, "order", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tasks := view.ProjectOrdered(st.Tasks(), filter, mcp.ParseString(request, "search", ""), order)
		return jsonResult(map[string]any{
			"tasks": tasks,
			"count": len(tasks),
			"label": view.CountLabel(len(tasks)),
		})
	}
}

func createTaskHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title := mcp.ParseString(request, "title", "")
		var due *string
		if d := mcp.ParseString(request, "due", ""); d != "" {
			due = &d
		}
		priority := model.Priority(mcp.ParseString(request, "priority", ""))
		t, err := st.Create(ctx, title, due, priority)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(t)
	}
}

func updateTitleHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		title := mcp.ParseString(request, "title", "")
		if strings.TrimSpace(title) == "" {
			return mcp.NewToolResultError("title must not be empty"), nil
		}
		if _, ok := st.Get(id); !ok {
			return notFound(id), nil
		}
		if _, err := st.UpdateTitle(ctx, id, title); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		t, _ := st.Get(id)
		return jsonResult(t)
	}
}

func setCompletedHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		completed := mcp.ParseBoolean(request, "completed", true)
		ok, err := st.SetCompleted(ctx, id, completed)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return notFound(id), nil
		}
		t, _ := st.Get(id)
		return jsonResult(t)
	}
}

func deleteTaskHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		ok, err := st.Delete(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return notFound(id), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task '%s' deleted", id)), nil
	}
}

func duplicateTaskHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "id", "")
		t, ok, err := st.Duplicate(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return notFound(id), nil
		}
		return jsonResult(t)
	}
}

func completeAllHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := st.CompleteAll(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Marked %s completed", view.CountLabel(st.Len()))), nil
	}
}

func clearCompletedHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := st.ClearCompleted(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Removed %s", view.CountLabel(n))), nil
	}
}

func deleteAllHandler(st *store.Store, log logrus.FieldLogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !mcp.ParseBoolean(request, "confirm", false) {
			return mcp.NewToolResultError("refusing to delete all tasks without confirm=true"), nil
		}
		n, err := st.DeleteAll(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.WithField("removed", n).Info("deleted all tasks via mcp")
		return mcp.NewToolResultText(fmt.Sprintf("Removed %s", view.CountLabel(n))), nil
	}
}

func reorderHandler(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := request.RequireStringSlice("ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := st.Reorder(ctx, ids); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"tasks": st.Tasks()})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func notFound(id string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Task with id '%s' not found", id))
}
