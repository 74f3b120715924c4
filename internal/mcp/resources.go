package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/gymplan/internal/models"
	"github.com/claude/gymplan/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// recentLimit bounds the recent_* resources.
const recentLimit = 14

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	workouts, err := h.ds.ListPlanWorkouts(ctx, uid, storage.PlanFilter{Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, workouts)
}

func (h *handlers) recentImports(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	logs, err := h.ds.QueryImportLogs(ctx, uid, recentLimit)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, logs)
}

func (h *handlers) categories(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, models.Categories)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
