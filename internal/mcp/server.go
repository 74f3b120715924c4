package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/gymplan/internal/ingest/plan"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, parser *plan.Parser, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("GymPlan", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("GymPlan training-plan server. Parse plan text into workouts, browse stored plan workouts and their logged sessions. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, parser: parser, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolParsePlanText, Handler: h.parsePlanText},
		server.ServerTool{Tool: toolListPlanWorkouts, Handler: h.listPlanWorkouts},
		server.ServerTool{Tool: toolGetPlanWorkout, Handler: h.getPlanWorkout},
		server.ServerTool{Tool: toolGetWorkoutSessions, Handler: h.getWorkoutSessions},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resRecentImports, Handler: h.recentImports},
		server.ServerResource{Resource: resCategories, Handler: h.categories},
	)

	return s
}

// HTTPHandler serves s over streamable HTTP. userID resolves the caller of
// each request; it runs after the REST identity middleware so both surfaces
// agree on who is asking.
func HTTPHandler(s *server.MCPServer, userID func(*http.Request) int) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return WithUserID(ctx, userID(r))
		}),
	)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds     DataSource
	parser *plan.Parser
	log    *slog.Logger
}

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"gymplan://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("The most recently uploaded plan workouts with their exercises"),
	mcp.WithMIMEType("application/json"),
)

var resRecentImports = mcp.NewResource(
	"gymplan://recent_imports",
	"Recent Imports",
	mcp.WithResourceDescription("Outcome of the latest plan uploads and directory imports"),
	mcp.WithMIMEType("application/json"),
)

var resCategories = mcp.NewResource(
	"gymplan://categories",
	"Training Categories",
	mcp.WithResourceDescription("Exercise categories in the order they appear within a workout"),
	mcp.WithMIMEType("application/json"),
)
