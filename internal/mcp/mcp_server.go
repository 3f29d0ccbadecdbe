// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var (
	metricNames = []string{
		"composite", "exposure", "residual", "companion", "expected",
		"composite_z", "exposure_z",
		"composite_pct", "exposure_pct", "residual_pct", "companion_pct",
	}
	breakNames = []string{"equal", "quantile", "natural", "diverging"}
)

// NewMCPServer initializes and configures the envgap MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Environmental Health Gap Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: compute_index ---
	s.AddTool(mcp.NewTool("compute_index",
		mcp.WithDescription("Compute the weighted health burden composite, exposure regression and residual gap for every entity in a dataset, ranked by a metric."),
		mcp.WithString("input_path", mcp.Description("Path to the dataset (CSV, JSON, XLSX or shapefile). Defaults to the configured input.")),
		mcp.WithString("weights", mcp.Description("Measure weights such as 'asthma:0.5,copd:0.3'.")),
		mcp.WithString("active", mcp.Description("Comma-separated measures included in the composite. Defaults to all.")),
		mcp.WithString("metric", mcp.Description("Metric used for ranking and classes. Defaults to 'composite'."), mcp.Enum(metricNames...)),
		mcp.WithString("breaks", mcp.Description("Classification method. Defaults per metric."), mcp.Enum(breakNames...)),
		mcp.WithNumber("classes", mcp.Description("Number of classes.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of entities returned.")),
	), h.handleComputeIndex)

	// --- 2. Tool: classify_metric ---
	s.AddTool(mcp.NewTool("classify_metric",
		mcp.WithDescription("Classify one derived metric into map classes and report the breaks, labels and member counts."),
		mcp.WithString("metric", mcp.Description("Metric to classify."), mcp.Required(), mcp.Enum(metricNames...)),
		mcp.WithString("breaks", mcp.Description("Classification method."), mcp.Enum(breakNames...)),
		mcp.WithNumber("classes", mcp.Description("Number of classes.")),
		mcp.WithString("input_path", mcp.Description("Path to the dataset.")),
		mcp.WithString("weights", mcp.Description("Measure weights such as 'asthma:0.5,copd:0.3'.")),
		mcp.WithString("active", mcp.Description("Comma-separated active measures.")),
	), h.handleClassifyMetric)

	// --- 3. Tool: normalize_weights ---
	s.AddTool(mcp.NewTool("normalize_weights",
		mcp.WithDescription("Show the effective weights the composite applies after clamping, deactivation and normalization."),
		mcp.WithString("weights", mcp.Description("Measure weights such as 'asthma:0.5,copd:0.3'."), mcp.Required()),
		mcp.WithString("active", mcp.Description("Comma-separated active measures.")),
		mcp.WithString("input_path", mcp.Description("Dataset whose measure columns define the measure list.")),
	), h.handleNormalizeWeights)

	// --- 4. Tool: compare_configs ---
	s.AddTool(mcp.NewTool("compare_configs",
		mcp.WithDescription("Compare entity percentiles between the base weighting and a target weighting or active set."),
		mcp.WithString("target_weights", mcp.Description("Target measure weights.")),
		mcp.WithString("target_active", mcp.Description("Target comma-separated active measures.")),
		mcp.WithString("weights", mcp.Description("Base measure weights.")),
		mcp.WithString("active", mcp.Description("Base comma-separated active measures.")),
		mcp.WithString("input_path", mcp.Description("Path to the dataset.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of entities returned.")),
	), h.handleCompareConfigs)

	return s
}

// StartMCPServer starts the envgap MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
