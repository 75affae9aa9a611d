package realtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/telsona/plan-assist/internal/server"
)

const (
	// maxQueuedAudioChunks bounds the outbound queue while the session is
	// not yet connected; oldest chunks are dropped first.
	maxQueuedAudioChunks = 50

	// flushChunkDelay spaces out queued chunks on connect so the flush
	// doesn't overwhelm the channel with a burst.
	flushChunkDelay = 10 * time.Millisecond

	// DefaultToolDelay is the artificial latency of simulated tools,
	// modeling a backend operation.
	DefaultToolDelay = 2500 * time.Millisecond

	// searchResultCount is the k passed to the retrieval engine for the
	// search tool.
	searchResultCount = 5

	eventBufferSize = 64
)

// Searcher executes the search tool. *server.Service implements it.
type Searcher interface {
	Retrieve(ctx context.Context, query string, k int) (*server.RetrievalResponse, error)
}

// Session maintains one bidirectional streaming session with the model,
// multiplexing user audio, model turns, and tool calls over one transport.
// Exactly one session is active per conversation instance.
type Session struct {
	transport Transport
	search    Searcher
	logger    *zap.Logger
	toolDelay time.Duration

	mu         sync.Mutex
	state      State
	audioQueue [][]byte
	turnText   strings.Builder
	cancel     context.CancelFunc
	closed     bool

	events chan Event
	wg     sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithToolDelay overrides the simulated tool latency (tests use a short one).
func WithToolDelay(d time.Duration) Option {
	return func(s *Session) { s.toolDelay = d }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a session over the given transport. The session starts
// Disconnected; call Connect to begin streaming.
func NewSession(transport Transport, search Searcher, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		search:    search,
		logger:    zap.NewNop(),
		toolDelay: DefaultToolDelay,
		state:     StateDisconnected,
		events:    make(chan Event, eventBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the channel the UI layer subscribes to. It is closed by
// Stop after all in-flight work has drained.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect performs the session handshake and starts the message-processing
// loop. Audio queued before the connection opened is flushed with small
// inter-chunk delays.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.state != StateDisconnected {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: StateConnecting})

	ctx, cancel := context.WithCancel(ctx)

	msgs, err := s.transport.Connect(ctx)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		s.emit(Event{Kind: EventStateChanged, State: StateDisconnected})
		return fmt.Errorf("session handshake failed: %w", err)
	}

	s.mu.Lock()
	s.cancel = cancel
	s.state = StateConnected
	s.mu.Unlock()
	s.emit(Event{Kind: EventStateChanged, State: StateConnected})

	go s.flushAudioQueue()

	s.wg.Add(1)
	go s.readLoop(ctx, msgs)

	return nil
}

// readLoop processes server messages until the context is canceled or the
// remote side closes the stream.
func (s *Session) readLoop(ctx context.Context, msgs <-chan ServerMessage) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				s.disconnect("remote closed session")
				return
			}
			s.handleMessage(ctx, msg)
		}
	}
}

// handleMessage fans one server message out into events and tool dispatch.
// Tool handling is asynchronous so a slow tool never blocks the audio path.
func (s *Session) handleMessage(ctx context.Context, msg ServerMessage) {
	if msg.OutputTranscript != "" {
		s.mu.Lock()
		s.turnText.WriteString(msg.OutputTranscript)
		s.mu.Unlock()
		s.emit(Event{Kind: EventTranscript, Transcript: TranscriptEvent{
			Source: SourceAssistant,
			Text:   msg.OutputTranscript,
		}})
	}

	if msg.InputTranscript != "" {
		s.emit(Event{Kind: EventTranscript, Transcript: TranscriptEvent{
			Source: SourceUser,
			Text:   msg.InputTranscript,
		}})
	}

	if len(msg.Audio) > 0 {
		s.emit(Event{Kind: EventAudio, Audio: msg.Audio})
	}

	if msg.Interrupted {
		// Abandon the turn's transcript accumulation; playback stops on the
		// UI side when it sees the event.
		s.mu.Lock()
		s.turnText.Reset()
		s.mu.Unlock()
		s.emit(Event{Kind: EventInterrupted})
	}

	if msg.TurnComplete {
		s.mu.Lock()
		s.turnText.Reset()
		s.mu.Unlock()
		s.emit(Event{Kind: EventTranscript, Transcript: TranscriptEvent{
			Source:  SourceAssistant,
			IsFinal: true,
		}})
	}

	for _, call := range msg.ToolCalls {
		s.wg.Add(1)
		go func(call ToolCall) {
			defer s.wg.Done()
			s.dispatchTool(ctx, call)
		}(call)
	}
}

// SendAudio pushes one chunk of microphone audio. Chunks produced before the
// session is Connected are queued (bounded, oldest dropped first). A send on
// a closed transport transitions the session to Disconnected, which also
// halts local capture; other send failures requeue the chunk.
func (s *Session) SendAudio(chunk []byte) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.queueLocked(chunk)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.transport.Send(ClientMessage{Audio: chunk}); err != nil {
		if errors.Is(err, ErrTransportClosed) {
			s.disconnect("send on closed transport")
			return
		}
		s.logger.Warn("audio send failed, requeueing chunk", zap.Error(err))
		s.mu.Lock()
		s.queueLocked(chunk)
		s.mu.Unlock()
	}
}

func (s *Session) queueLocked(chunk []byte) {
	s.audioQueue = append(s.audioQueue, chunk)
	if len(s.audioQueue) > maxQueuedAudioChunks {
		s.audioQueue = s.audioQueue[1:]
	}
}

// flushAudioQueue drains chunks queued before the connection opened.
func (s *Session) flushAudioQueue() {
	s.mu.Lock()
	queue := s.audioQueue
	s.audioQueue = nil
	s.mu.Unlock()

	if len(queue) == 0 {
		return
	}
	s.logger.Debug("flushing queued audio", zap.Int("chunks", len(queue)))

	for _, chunk := range queue {
		s.SendAudio(chunk)
		time.Sleep(flushChunkDelay)
	}
}

// disconnect transitions to Disconnected (terminal) and cancels the
// processing loop. Safe to call multiple times.
func (s *Session) disconnect(reason string) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info("session disconnected", zap.String("reason", reason))
	if cancel != nil {
		cancel()
	}
	s.emit(Event{Kind: EventStateChanged, State: StateDisconnected})
}

// Stop ends the session: disconnects, closes the transport, waits for
// in-flight tool handlers, and closes the event channel.
func (s *Session) Stop() {
	s.disconnect("stopped")

	s.mu.Lock()
	s.audioQueue = nil
	s.mu.Unlock()

	if err := s.transport.Close(); err != nil {
		s.logger.Warn("transport close failed", zap.Error(err))
	}

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// emit publishes an event without blocking the protocol loops; if the
// subscriber has fallen this far behind, the event is dropped and logged.
func (s *Session) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn("event channel full, dropping event")
	}
}
