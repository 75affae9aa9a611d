// Package realtime implements the bidirectional tool-calling session protocol
// used by the voice assistant: audio and transcript turns stream in from a
// generative model while structured tool calls are intercepted, executed
// locally, and answered before the model continues.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTransportClosed indicates a send failed because the underlying channel
// is closed. It transitions the session to Disconnected; any other send error
// is treated as transient.
var ErrTransportClosed = errors.New("transport closed")

// ErrUnknownTool rejects tool calls whose name is not in the fixed tool set.
var ErrUnknownTool = errors.New("unknown tool")

// ServerMessage is one message from the model over the transport. Multiple
// fields may be set on a single message.
type ServerMessage struct {
	// InputTranscript is an incremental user speech-to-text fragment.
	InputTranscript string
	// OutputTranscript is an incremental model speech-to-text fragment.
	OutputTranscript string
	// Audio is an inline payload to be played back immediately.
	Audio []byte
	// TurnComplete marks the end of the model's turn.
	TurnComplete bool
	// Interrupted signals the model aborted its turn (e.g. the user spoke
	// over it).
	Interrupted bool
	// ToolCalls are structured function invocations to execute locally.
	ToolCalls []ToolCall
}

// ToolCall is a function invocation request emitted by the model mid-turn.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ClientMessage is one outbound message to the model.
type ClientMessage struct {
	// Audio is a chunk of realtime microphone input.
	Audio []byte
	// ToolResponse answers a previously received tool call.
	ToolResponse *ToolResponse
}

// ToolResponse is sent back keyed by the originating call's ID; the model
// will not continue its turn until it arrives.
type ToolResponse struct {
	ID     string
	Name   string
	Result json.RawMessage
}

// Transport is the session's connection to the model provider. Implemented
// externally; tests inject fakes.
type Transport interface {
	// Connect opens the session and returns the server message stream. The
	// stream closes when the remote side closes the session.
	Connect(ctx context.Context) (<-chan ServerMessage, error)
	// Send pushes one client message. Returns ErrTransportClosed (possibly
	// wrapped) when the channel is gone.
	Send(msg ClientMessage) error
	// Close tears the session down.
	Close() error
}

// Tool names in the fixed dispatch set.
const (
	ToolSearchPlans         = "search_plans"
	ToolNetworkDiagnostic   = "run_network_diagnostic"
	ToolPurchaseMobilePlan  = "purchase_mobile_plan"
	ToolPurchaseFibrePlan   = "purchase_fibre_plan"
	ToolPurchaseRoamingPass = "purchase_roaming_pass"
)

// ToolRequest is the tagged union over known tool arguments.
type ToolRequest interface {
	toolName() string
}

// SearchPlansArgs asks for a plan search with the user's query.
type SearchPlansArgs struct {
	Query string `json:"query"`
}

// NetworkDiagnosticArgs starts a simulated network diagnostic.
type NetworkDiagnosticArgs struct{}

// PurchaseMobilePlanArgs simulates a mobile plan purchase.
type PurchaseMobilePlanArgs struct {
	Plan string `json:"plan"`
}

// PurchaseFibrePlanArgs simulates a fibre plan purchase.
type PurchaseFibrePlanArgs struct {
	Plan string `json:"plan"`
}

// PurchaseRoamingPassArgs simulates a roaming pass purchase.
type PurchaseRoamingPassArgs struct {
	Pass    string `json:"pass"`
	Country string `json:"country"`
}

func (SearchPlansArgs) toolName() string         { return ToolSearchPlans }
func (NetworkDiagnosticArgs) toolName() string   { return ToolNetworkDiagnostic }
func (PurchaseMobilePlanArgs) toolName() string  { return ToolPurchaseMobilePlan }
func (PurchaseFibrePlanArgs) toolName() string   { return ToolPurchaseFibrePlan }
func (PurchaseRoamingPassArgs) toolName() string { return ToolPurchaseRoamingPass }

// parseToolCall dispatches on the call name into a strongly-typed argument
// struct. Unknown names are rejected explicitly, never silently ignored.
func parseToolCall(call ToolCall) (ToolRequest, error) {
	unmarshal := func(v ToolRequest) (ToolRequest, error) {
		if len(call.Args) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(call.Args, v); err != nil {
			return nil, fmt.Errorf("invalid arguments for %s: %w", call.Name, err)
		}
		return v, nil
	}

	switch call.Name {
	case ToolSearchPlans:
		return unmarshal(&SearchPlansArgs{})
	case ToolNetworkDiagnostic:
		return unmarshal(&NetworkDiagnosticArgs{})
	case ToolPurchaseMobilePlan:
		return unmarshal(&PurchaseMobilePlanArgs{})
	case ToolPurchaseFibrePlan:
		return unmarshal(&PurchaseFibrePlanArgs{})
	case ToolPurchaseRoamingPass:
		return unmarshal(&PurchaseRoamingPassArgs{})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
}
