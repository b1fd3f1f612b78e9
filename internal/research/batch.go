package research

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

// BatchItem pairs a caller-chosen id with the blind input to estimate.
type BatchItem struct {
	CustomID string
	Input    *types.BlindInput
}

// BatchOptions tune a batch estimation run.
type BatchOptions struct {
	Premium                  bool
	WebSearchMaxUses         int
	HighValueVolumeThreshold float64
	// VolumeMap maps custom id to market volume; the largest volume
	// decides the model tier for the whole batch.
	VolumeMap    map[string]float64
	PollInterval time.Duration
	Timeout      time.Duration
}

// EstimateBatch submits every item as one message batch and polls until
// it ends. On timeout the batch is cancelled and an empty map is
// returned so the caller can fall back to synchronous estimation.
// Failed or unparseable items are skipped, not fatal.
func (c *Client) EstimateBatch(ctx context.Context, items []BatchItem, opts BatchOptions) (map[string]*Result, error) {
	if len(items) == 0 {
		return map[string]*Result{}, nil
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Hour
	}

	var maxVolume float64
	for _, v := range opts.VolumeMap {
		if v > maxVolume {
			maxVolume = v
		}
	}
	model := c.selectModel(maxVolume, opts.HighValueVolumeThreshold, opts.Premium)

	create := batchCreateRequest{Requests: make([]batchRequestItem, 0, len(items))}
	for _, item := range items {
		create.Requests = append(create.Requests, batchRequestItem{
			CustomID: item.CustomID,
			Params:   *c.estimateRequest(model, item.Input, opts.WebSearchMaxUses),
		})
	}

	var batch batchResponse
	if err := c.post(ctx, batchesPath, create, &batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	c.logger.Info("research-batch-created",
		zap.String("batch-id", batch.ID),
		zap.Int("items", len(items)),
		zap.String("model", model))

	ended, err := c.pollBatch(ctx, &batch, opts.PollInterval, opts.Timeout)
	if err != nil {
		return nil, err
	}
	if !ended {
		c.logger.Warn("research-batch-timeout",
			zap.String("batch-id", batch.ID),
			zap.Duration("timeout", opts.Timeout))
		c.cancelBatch(ctx, batch.ID)
		return map[string]*Result{}, nil
	}

	return c.collectBatchResults(ctx, &batch, model, len(items))
}

// pollBatch waits for the batch to end. Returns false on timeout.
func (c *Client) pollBatch(ctx context.Context, batch *batchResponse, interval, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}

		var current batchResponse
		err := c.roundTrip(ctx, "GET", c.baseURL+batchesPath+"/"+batch.ID, nil, &current)
		if err != nil {
			return false, fmt.Errorf("poll batch %s: %w", batch.ID, err)
		}
		*batch = current

		if current.ProcessingStatus == "ended" {
			c.logger.Info("research-batch-ended",
				zap.String("batch-id", batch.ID),
				zap.Int("succeeded", current.RequestCounts.Succeeded),
				zap.Int("errored", current.RequestCounts.Errored),
				zap.Int("expired", current.RequestCounts.Expired))
			return true, nil
		}

		c.logger.Debug("research-batch-processing",
			zap.String("batch-id", batch.ID),
			zap.Int("succeeded", current.RequestCounts.Succeeded),
			zap.Int("processing", current.RequestCounts.Processing))
	}

	return false, nil
}

func (c *Client) cancelBatch(ctx context.Context, batchID string) {
	err := c.roundTrip(ctx, "POST", c.baseURL+batchesPath+"/"+batchID+"/cancel", nil, nil)
	if err != nil {
		c.logger.Warn("research-batch-cancel-failed",
			zap.String("batch-id", batchID), zap.Error(err))
	}
}

// collectBatchResults streams the results file and parses each
// succeeded entry at batch token pricing.
func (c *Client) collectBatchResults(ctx context.Context, batch *batchResponse, model string, total int) (map[string]*Result, error) {
	if batch.ResultsURL == "" {
		return map[string]*Result{}, nil
	}

	data, err := c.get(ctx, batch.ResultsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch batch results: %w", err)
	}

	results := make(map[string]*Result)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var entry batchResultEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			c.logger.Warn("research-batch-entry-undecodable", zap.Error(err))
			continue
		}

		if entry.Result.Type != "succeeded" {
			c.logger.Warn("research-batch-item-failed",
				zap.String("custom-id", entry.CustomID),
				zap.String("status", entry.Result.Type))
			continue
		}

		msg := entry.Result.Message
		text := msg.text()
		if strings.TrimSpace(text) == "" {
			c.logger.Warn("research-batch-item-empty", zap.String("custom-id", entry.CustomID))
			continue
		}

		result, err := parseEstimate(text)
		if err != nil {
			c.logger.Warn("research-batch-item-unparseable",
				zap.String("custom-id", entry.CustomID), zap.Error(err))
			continue
		}

		result.Model = model
		result.InputTokens = msg.Usage.InputTokens
		result.OutputTokens = msg.Usage.OutputTokens
		result.CostUSD = costUSD(model, msg.Usage.InputTokens, msg.Usage.OutputTokens, true)

		EstimatesTotal.WithLabelValues(model).Inc()
		TokensTotal.WithLabelValues(model, "input").Add(float64(result.InputTokens))
		TokensTotal.WithLabelValues(model, "output").Add(float64(result.OutputTokens))
		CostUSDTotal.Add(result.CostUSD)

		results[entry.CustomID] = result
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan batch results: %w", err)
	}

	c.logger.Info("research-batch-collected",
		zap.String("batch-id", batch.ID),
		zap.Int("parsed", len(results)),
		zap.Int("total", total))

	return results, nil
}
