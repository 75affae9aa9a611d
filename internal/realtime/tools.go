package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// transactionResult is the canned success response for simulated purchases.
type transactionResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// diagnosticResult is the canned response for the simulated network
// diagnostic.
type diagnosticResult struct {
	Status         string `json:"status"`
	SignalStrength string `json:"signal_strength"`
	LatencyMS      int    `json:"latency_ms"`
}

// errorResult answers a tool call that could not be executed.
type errorResult struct {
	Error string `json:"error"`
}

// dispatchTool parses and executes one tool call, always answering the model
// keyed by the call's id. Unknown tool names get an explicit error response.
func (s *Session) dispatchTool(ctx context.Context, call ToolCall) {
	req, err := parseToolCall(call)
	if err != nil {
		s.logger.Warn("rejected tool call",
			zap.String("tool", call.Name),
			zap.String("id", call.ID),
			zap.Error(err),
		)
		s.sendToolResponse(call, errorResult{Error: err.Error()})
		return
	}

	switch args := req.(type) {
	case *SearchPlansArgs:
		s.runSearchTool(ctx, call, args)
	case *NetworkDiagnosticArgs:
		s.runSimulatedTool(ctx, call, "diagnostic", map[string]any{})
	case *PurchaseMobilePlanArgs:
		s.runSimulatedTool(ctx, call, "purchase_mobile", map[string]any{"plan": args.Plan})
	case *PurchaseFibrePlanArgs:
		s.runSimulatedTool(ctx, call, "purchase_fibre", map[string]any{"plan": args.Plan})
	case *PurchaseRoamingPassArgs:
		s.runSimulatedTool(ctx, call, "purchase_roaming", map[string]any{
			"pass":    args.Pass,
			"country": args.Country,
		})
	}
}

// runSearchTool invokes the retrieval engine and answers with the retrieval
// response. If the top result carries a URL it is surfaced as a navigate
// event so the UI can follow the answer to its page.
func (s *Session) runSearchTool(ctx context.Context, call ToolCall, args *SearchPlansArgs) {
	resp, err := s.search.Retrieve(ctx, args.Query, searchResultCount)
	if err != nil {
		s.logger.Error("search tool failed", zap.String("query", args.Query), zap.Error(err))
		s.sendToolResponse(call, errorResult{Error: "Failed to search"})
		return
	}

	s.sendToolResponse(call, resp)

	if len(resp.Results) > 0 && resp.Results[0].URL != "" {
		s.emit(Event{Kind: EventNavigate, URL: resp.Results[0].URL})
	}
}

// runSimulatedTool models a backend side effect: a start event immediately,
// an artificial delay, then a canned success response plus a complete event.
// This is a demo surface - the shape of the protocol is what matters, not
// the fake transaction semantics.
func (s *Session) runSimulatedTool(ctx context.Context, call ToolCall, action string, data map[string]any) {
	s.emit(Event{Kind: EventToolAction, Action: ToolAction{
		Action: action + "_start",
		Data:   data,
	}})

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.toolDelay):
	}

	completeData := make(map[string]any, len(data)+1)
	for k, v := range data {
		completeData[k] = v
	}

	var result any
	if action == "diagnostic" {
		result = diagnosticResult{
			Status:         "success",
			SignalStrength: "strong",
			LatencyMS:      23,
		}
	} else {
		txnID := "CD-" + strings.ToUpper(uuid.NewString()[:8])
		completeData["transaction_id"] = txnID
		result = transactionResult{
			Status:        "success",
			TransactionID: txnID,
		}
	}

	s.sendToolResponse(call, result)

	s.emit(Event{Kind: EventToolAction, Action: ToolAction{
		Action: action + "_complete",
		Data:   completeData,
	}})
}

// sendToolResponse answers a tool call with the given payload. The model will
// not continue its turn until this arrives.
func (s *Session) sendToolResponse(call ToolCall, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal tool response", zap.String("tool", call.Name), zap.Error(err))
		return
	}

	err = s.transport.Send(ClientMessage{ToolResponse: &ToolResponse{
		ID:     call.ID,
		Name:   call.Name,
		Result: raw,
	}})
	if err != nil {
		if errors.Is(err, ErrTransportClosed) {
			s.disconnect("send on closed transport")
			return
		}
		s.logger.Error("failed to send tool response",
			zap.String("tool", call.Name),
			zap.String("id", call.ID),
			zap.Error(err),
		)
	}
}
