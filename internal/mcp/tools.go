package mcp

import (
	"context"
	"errors"

	"github.com/claude/gymplan/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolParsePlanText = mcp.NewTool("parse_plan_text",
	mcp.WithDescription("Parse the text of a training-plan document into workouts without storing them. Each weekday marker (MONDAY, TUESDAY, ...) becomes one workout with exercises grouped into Warmup, Buy-in, Block 1-4, Main and Cooldown."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Plan text, e.g. pasted from a PDF")),
	mcp.WithString("file_name", mcp.Description("Source name recorded on each workout. Defaults to 'Workout'.")),
)

var toolListPlanWorkouts = mcp.NewTool("list_plan_workouts",
	mcp.WithDescription("List stored plan workouts, newest first, with their exercises."),
	mcp.WithString("program", mcp.Description("Filter by program name (e.g. 'GYM DAILY')")),
	mcp.WithString("week", mcp.Description("Filter by week (e.g. 'Week 11' or just '11')")),
	mcp.WithString("day", mcp.Description("Filter by weekday (e.g. 'MONDAY')"),
		mcp.Enum("MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY")),
	mcp.WithNumber("limit", mcp.Description("Maximum workouts to return. Defaults to 100.")),
)

var toolGetPlanWorkout = mcp.NewTool("get_plan_workout",
	mcp.WithDescription("Get one stored plan workout by id, including all exercises in category order."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolGetWorkoutSessions = mcp.NewTool("get_workout_sessions",
	mcp.WithDescription("Get the logged sessions of a plan workout: per exercise, the weight and reps of each set."),
	mcp.WithString("workout_id", mcp.Required(), mcp.Description("Workout id")),
)

// --- Tool handlers ---

func (h *handlers) parsePlanText(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text parameter is required"), nil
	}

	workouts := h.parser.Parse(text, req.GetString("file_name", ""))
	if len(workouts) == 0 {
		return mcp.NewToolResultText("No workouts found in the text."), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) listPlanWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := storage.PlanFilter{
		Program: req.GetString("program", ""),
		Week:    req.GetString("week", ""),
		Day:     req.GetString("day", ""),
		Limit:   req.GetInt("limit", 0),
	}

	uid := UserIDFromContext(ctx)
	workouts, err := h.ds.ListPlanWorkouts(ctx, uid, filter)
	if err != nil {
		h.log.Error("mcp list_plan_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getPlanWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)
	workout, err := h.ds.GetPlanWorkout(ctx, id, uid)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_plan_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workout)
}

func (h *handlers) getWorkoutSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("workout_id")
	if err != nil {
		return mcp.NewToolResultError("workout_id parameter is required"), nil
	}

	uid := UserIDFromContext(ctx)
	sessions, err := h.ds.QueryWorkoutSessions(ctx, id, uid)
	if err != nil {
		h.log.Error("mcp get_workout_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
