package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/huangsam/envgap/core"
	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// configFor clones the base config and applies the request's arguments.
func (h *toolHandler) configFor(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	err := contract.ApplyOverrides(cfg, contract.Overrides{
		Input:         request.GetString("input_path", ""),
		Weights:       request.GetString("weights", ""),
		Active:        request.GetString("active", ""),
		Metric:        request.GetString("metric", ""),
		Breaks:        request.GetString("breaks", ""),
		Classes:       request.GetInt("classes", 0),
		Limit:         request.GetInt("limit", 0),
		TargetWeights: request.GetString("target_weights", ""),
		TargetActive:  request.GetString("target_active", ""),
	})
	return cfg, err
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) handleComputeIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	report, err := core.GetIndexReport(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("index failed: %v", err)), nil
	}
	return jsonResult(report), nil
}

// classifyResult is the payload of classify_metric.
type classifyResult struct {
	schema.Classification
	Counts []int `json:"counts"`
}

func (h *toolHandler) handleClassifyMetric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if request.GetString("metric", "") == "" {
		return mcp.NewToolResultError("invalid parameters: metric is required"), nil
	}
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	class, counts, err := core.GetClassification(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
	}
	return jsonResult(classifyResult{Classification: class, Counts: counts}), nil
}

// weightsResult is the payload of normalize_weights.
type weightsResult struct {
	Measures   []schema.MeasureKey `json:"measures"`
	Raw        schema.Weights      `json:"raw"`
	Active     []schema.MeasureKey `json:"active"`
	Normalized schema.Weights      `json:"normalized"`
}

func (h *toolHandler) handleNormalizeWeights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if request.GetString("weights", "") == "" {
		return mcp.NewToolResultError("invalid parameters: weights is required"), nil
	}
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if cfg.InputPath == "" && len(cfg.Measures) == 0 {
		// Without a dataset the weight keys are the measure list.
		cfg.Measures = slices.Sorted(maps.Keys(cfg.Weights))
	}

	idx, normalized, err := core.GetWeights(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("weights failed: %v", err)), nil
	}
	return jsonResult(weightsResult{
		Measures:   idx.Measures,
		Raw:        idx.Weights,
		Active:     idx.ActiveMeasures(),
		Normalized: normalized,
	}), nil
}

func (h *toolHandler) handleCompareConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid comparison parameters: %v", err)), nil
	}

	result, err := core.GetComparison(core.WithSuppressHeader(ctx), cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}
	return jsonResult(result), nil
}
