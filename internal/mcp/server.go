package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/addrmatch/internal/config"
	"github.com/Aman-CERP/addrmatch/internal/matcher"
	"github.com/Aman-CERP/addrmatch/internal/normalize"
	"github.com/Aman-CERP/addrmatch/internal/rank"
	"github.com/Aman-CERP/addrmatch/internal/shard"
	"github.com/Aman-CERP/addrmatch/internal/source"
	"github.com/Aman-CERP/addrmatch/internal/street"
	"github.com/Aman-CERP/addrmatch/internal/telemetry"
	"github.com/Aman-CERP/addrmatch/internal/watcher"
	"github.com/Aman-CERP/addrmatch/pkg/version"
)

// StreetMatcher resolves streets by postcode or place.
type StreetMatcher interface {
	MatchByPostcode(ctx context.Context, street, postcode string) (street.MatchedStreet, error)
	MatchByPlace(ctx context.Context, street, place string) (street.MatchedStreet, error)
}

var _ StreetMatcher = (*street.Matcher)(nil)

// Server is the addrmatch MCP server.
type Server struct {
	mcp        *mcp.Server
	cfg        *config.Config
	normalizer *normalize.Normalizer
	searcher   *shard.Searcher
	streets    StreetMatcher
	rootPath   string
	watchDirs  []string
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolMatchAddress,
		Description: "Rank candidate addresses by similarity to a query. Pass the candidates inline " +
			"or name a directory of candidate files. Tolerates typos, abbreviations (qu, ch, str) and reordered house numbers.",
	},
	{
		Name: ToolMatchStreet,
		Description: "Find the official Swiss street for a street with house number, searching the given " +
			"postcode or place first and then every location.",
	},
	{
		Name:        ToolNormalizeAddress,
		Description: "Show the normalized forms addrmatch compares, useful to understand a score.",
	},
}

// Option configures a Server.
type Option func(*Server)

// WithSearcher sets the directory searcher. Defaults to a file searcher
// with the configured cache size.
func WithSearcher(s *shard.Searcher) Option {
	return func(srv *Server) {
		srv.searcher = s
	}
}

// WithStreetMatcher enables match_street.
func WithStreetMatcher(m StreetMatcher) Option {
	return func(srv *Server) {
		srv.streets = m
	}
}

// WithRootPath sets the directory that dir arguments are resolved against
// and confined to.
func WithRootPath(root string) Option {
	return func(srv *Server) {
		srv.rootPath = root
	}
}

// WithWatchDirs names shard directories whose cached entries are dropped
// when their files change. Used only when cache.watch is enabled.
func WithWatchDirs(dirs ...string) Option {
	return func(srv *Server) {
		srv.watchDirs = append(srv.watchDirs, dirs...)
	}
}

// WithMetrics sets the query metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(srv *Server) {
		srv.metrics = m
	}
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		normalizer: cfg.Normalizer(),
		rootPath:   ".",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = telemetry.New(telemetry.DefaultConfig())
	}
	if s.searcher == nil {
		s.searcher = shard.NewSearcher(source.Files{},
			shard.WithNormalizer(s.normalizer),
			shard.WithCache(cfg.Cache.Size))
	}
	root, err := filepath.Abs(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}
	s.rootPath = root

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "addrmatch",
			Version: version.Short(),
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Metrics returns a snapshot of the queries answered so far.
func (s *Server) Metrics() telemetry.Snapshot {
	return s.metrics.Snapshot()
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name and returns its markdown rendering.
// Arguments use the same JSON shape as the MCP tool inputs.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolMatchAddress:
		var in MatchAddressInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := s.matchAddress(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatMatches(out), nil
	case ToolMatchStreet:
		var in MatchStreetInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := s.matchStreet(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatStreet(out), nil
	case ToolNormalizeAddress:
		var in NormalizeAddressInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, err := s.normalizeAddress(in)
		if err != nil {
			return nil, err
		}
		return FormatNormalized(out), nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) registerTools() {
	for _, t := range tools {
		tool := &mcp.Tool{Name: t.Name, Description: t.Description}
		switch t.Name {
		case ToolMatchAddress:
			mcp.AddTool(s.mcp, tool, s.mcpMatchAddressHandler)
		case ToolMatchStreet:
			mcp.AddTool(s.mcp, tool, s.mcpMatchStreetHandler)
		case ToolNormalizeAddress:
			mcp.AddTool(s.mcp, tool, s.mcpNormalizeAddressHandler)
		}
		s.logger.Debug("mcp_tool_registered", slog.String("name", t.Name))
	}
	s.logger.Info("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpMatchAddressHandler(ctx context.Context, _ *mcp.CallToolRequest, in MatchAddressInput) (
	*mcp.CallToolResult,
	MatchAddressOutput,
	error,
) {
	out, err := s.matchAddress(ctx, in)
	if err != nil {
		return nil, MatchAddressOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpMatchStreetHandler(ctx context.Context, _ *mcp.CallToolRequest, in MatchStreetInput) (
	*mcp.CallToolResult,
	MatchStreetOutput,
	error,
) {
	out, err := s.matchStreet(ctx, in)
	if err != nil {
		return nil, MatchStreetOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) mcpNormalizeAddressHandler(_ context.Context, _ *mcp.CallToolRequest, in NormalizeAddressInput) (
	*mcp.CallToolResult,
	NormalizeAddressOutput,
	error,
) {
	out, err := s.normalizeAddress(in)
	if err != nil {
		return nil, NormalizeAddressOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) matchAddress(ctx context.Context, in MatchAddressInput) (MatchAddressOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return MatchAddressOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if (len(in.Candidates) > 0) == (in.Dir != "") {
		return MatchAddressOutput{}, NewInvalidParamsError("exactly one of candidates or dir is required")
	}

	cfg := s.cfg.MatchConfig()
	if in.Sensitivity != nil {
		cfg.Sensitivity = *in.Sensitivity
	}
	if in.Keep != nil {
		cfg.Keep = min(*in.Keep, MaxKeep)
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("match_address_started",
		slog.String("request_id", requestID),
		slog.Int("candidates", len(in.Candidates)),
		slog.String("dir", in.Dir),
		slog.Float64("sensitivity", cfg.Sensitivity),
		slog.Int("keep", cfg.Keep))

	var matches []rank.Match
	if in.Dir != "" {
		dir, err := s.resolveDir(in.Dir)
		if err != nil {
			return MatchAddressOutput{}, err
		}
		matches, err = s.searcher.SearchDir(ctx, in.Query, dir, cfg)
		if err != nil {
			s.logger.Warn("match_address_failed",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()))
			return MatchAddressOutput{}, MapError(err)
		}
	} else {
		m, err := matcher.New(cfg, in.Candidates, matcher.WithNormalizer(s.normalizer))
		if err != nil {
			return MatchAddressOutput{}, MapError(err)
		}
		matches = m.FindMatches(in.Query)
	}

	out := MatchAddressOutput{Query: in.Query, Matches: make([]MatchOutput, len(matches))}
	for i, m := range matches {
		out.Matches[i] = MatchOutput{Text: m.Text, Score: m.Score, Source: s.relative(m.Source)}
	}

	elapsed := time.Since(start)
	s.metrics.Record(telemetry.Event{
		Tool: ToolMatchAddress, Query: in.Query, Results: len(out.Matches), Latency: elapsed,
	})
	s.logger.Info("match_address_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", elapsed),
		slog.Int("result_count", len(out.Matches)))
	return out, nil
}

func (s *Server) matchStreet(ctx context.Context, in MatchStreetInput) (MatchStreetOutput, error) {
	if s.streets == nil {
		return MatchStreetOutput{}, MapError(ErrStreetDataMissing)
	}
	if strings.TrimSpace(in.Street) == "" {
		return MatchStreetOutput{}, NewInvalidParamsError("street parameter is required")
	}

	var (
		res   street.MatchedStreet
		err   error
		start = time.Now()
	)
	if in.Postcode != "" || in.Place == "" {
		res, err = s.streets.MatchByPostcode(ctx, in.Street, in.Postcode)
	} else {
		res, err = s.streets.MatchByPlace(ctx, in.Street, in.Place)
	}
	if err != nil {
		return MatchStreetOutput{}, MapError(err)
	}

	results := 0
	if res.Found() {
		results = 1
	}
	s.metrics.Record(telemetry.Event{
		Tool: ToolMatchStreet, Query: in.Street, Results: results, Latency: time.Since(start),
	})
	s.logger.Info("match_street_completed",
		slog.Bool("found", res.Found()),
		slog.Bool("in_requested_location", res.Source != ""))

	return MatchStreetOutput{
		Query:  in.Street,
		Found:  res.Found(),
		Street: res.Street,
		Score:  res.Score,
		Source: s.relative(res.Source),
	}, nil
}

func (s *Server) normalizeAddress(in NormalizeAddressInput) (NormalizeAddressOutput, error) {
	if in.Text == "" {
		return NormalizeAddressOutput{}, NewInvalidParamsError("text parameter is required")
	}
	f := s.normalizer.Form(in.Text)
	return NormalizeAddressOutput{Canonical: f.Canonical, Surface: f.Surface}, nil
}

// resolveDir joins dir onto the root and rejects paths that leave it.
func (s *Server) resolveDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.rootPath, dir)
	}
	dir = filepath.Clean(dir)
	rel, err := filepath.Rel(s.rootPath, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", NewInvalidParamsError(fmt.Sprintf("dir %q is outside the server root", dir))
	}
	return dir, nil
}

// relative shortens a source path under the root for display.
func (s *Server) relative(path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(s.rootPath, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// Serve runs the server on the given transport until ctx is canceled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	if transport != "stdio" {
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}

	if s.cfg.Cache.Watch {
		for _, dir := range s.watchDirs {
			go func() {
				if err := s.searcher.Watch(ctx, dir, watcher.DefaultOptions()); err != nil {
					s.logger.Warn("cache_watch_stopped",
						slog.String("dir", dir),
						slog.String("error", err.Error()))
				}
			}()
		}
	}

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	s.logMetrics()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// logMetrics writes a summary of the session's queries.
func (s *Server) logMetrics() {
	snap := s.metrics.Snapshot()
	attrs := []any{
		slog.Int64("total_queries", snap.TotalQueries),
		slog.Int64("zero_results", snap.ZeroResultCount),
		slog.Int64("repeats", snap.RepeatCount),
		slog.Any("tools", snap.ToolCounts),
		slog.Any("latency", snap.Latency),
	}
	if len(snap.TopTokens) > 0 {
		attrs = append(attrs, slog.String("top_token", snap.TopTokens[0].Token))
	}
	s.logger.Info("query_metrics_summary", attrs...)
}

func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
