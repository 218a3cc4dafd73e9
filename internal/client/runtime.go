package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/bridge/api"
	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/pkg/events"
)

// Runtime drives one conversation against the bridge's HTTP surface: it
// creates the session on the first message, consumes the SSE stream into
// an AgentState, and posts out-of-band responses. Consumers read state
// through GetSnapshot and are notified of changes through Subscribe.
type Runtime struct {
	baseURL string
	httpc   *http.Client
	logger  *logger.Logger

	mu        sync.Mutex
	state     *AgentState
	snapshot  *AgentState
	sessionID string
	connected bool
	cancel    context.CancelFunc

	nextListener int
	listeners    map[int]func()
}

// NewRuntime creates a runtime for the bridge rooted at baseURL, e.g.
// "http://localhost:8080/api/v1".
func NewRuntime(baseURL string, log *logger.Logger) *Runtime {
	return &Runtime{
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpc:     &http.Client{},
		logger:    log,
		state:     NewAgentState(),
		listeners: make(map[int]func()),
	}
}

// SendMessage sends a user turn. The first call creates the session and
// attaches to its event stream; later calls push follow-up turns into the
// running session.
func (r *Runtime) SendMessage(ctx context.Context, text string) error {
	r.mu.Lock()
	sessionID := r.sessionID
	r.mu.Unlock()

	if sessionID == "" {
		return r.createSession(ctx, text)
	}

	return r.post(ctx, "/sessions/"+sessionID+"/messages", api.PushMessageRequest{Message: text})
}

func (r *Runtime) createSession(ctx context.Context, text string) error {
	body, err := json.Marshal(api.CreateSessionRequest{Message: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("create session: unexpected status %d", resp.StatusCode)
	}

	var created api.CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("create session: decode response: %w", err)
	}

	r.mu.Lock()
	r.sessionID = created.SessionID
	r.mu.Unlock()

	return r.connect(created.SessionID)
}

// connect opens the SSE stream and spawns the read loop. Any transport
// error is treated as end-of-stream.
func (r *Runtime) connect(sessionID string) error {
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/sessions/"+sessionID+"/events", nil)
	if err != nil {
		cancel()
		return err
	}

	resp, err := r.httpc.Do(req)
	if err != nil {
		cancel()
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return fmt.Errorf("event stream: unexpected status %d", resp.StatusCode)
	}

	r.mu.Lock()
	r.cancel = cancel
	r.connected = true
	r.mu.Unlock()

	go r.readLoop(resp.Body)
	return nil
}

func (r *Runtime) readLoop(body io.ReadCloser) {
	defer body.Close()
	defer r.disconnect()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		e, err := events.DecodeEvent(line)
		if err != nil {
			r.logger.Debug("dropping undecodable event", zap.Error(err))
			continue
		}
		if e == nil {
			return // [DONE]
		}

		r.applyEvent(*e)
	}
}

func (r *Runtime) applyEvent(e events.AgentEvent) {
	r.mu.Lock()
	Apply(r.state, e)
	r.snapshot = nil
	listeners := make([]func(), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (r *Runtime) disconnect() {
	r.mu.Lock()
	r.connected = false
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
}

// GetSnapshot returns the current state. The returned pointer is stable
// until the next event is applied, so callers can compare snapshots by
// identity to detect change.
func (r *Runtime) GetSnapshot() *AgentState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot == nil {
		r.snapshot = r.state.Clone()
	}
	return r.snapshot
}

// Subscribe registers a change listener and returns its unsubscribe
// function.
func (r *Runtime) Subscribe(fn func()) func() {
	r.mu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Connected reports whether the event stream is attached.
func (r *Runtime) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// RespondToPermission resolves a pending permission request.
func (r *Runtime) RespondToPermission(ctx context.Context, id, behavior string, updatedInput map[string]any) error {
	return r.respond(ctx, api.RespondRequest{
		Kind:         api.RespondKindPermission,
		ID:           id,
		Behavior:     behavior,
		UpdatedInput: updatedInput,
	})
}

// RespondToQuestion answers a pending user question.
func (r *Runtime) RespondToQuestion(ctx context.Context, id, answer string) error {
	return r.respond(ctx, api.RespondRequest{
		Kind:   api.RespondKindQuestion,
		ID:     id,
		Answer: answer,
	})
}

func (r *Runtime) respond(ctx context.Context, req api.RespondRequest) error {
	r.mu.Lock()
	sessionID := r.sessionID
	r.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("no active session")
	}
	return r.post(ctx, "/sessions/"+sessionID+"/respond", req)
}

// Interrupt asks the engine to stop the current turn.
func (r *Runtime) Interrupt(ctx context.Context) error {
	r.mu.Lock()
	sessionID := r.sessionID
	r.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("no active session")
	}
	return r.post(ctx, "/sessions/"+sessionID+"/interrupt", struct{}{})
}

// Destroy tears the runtime down: the stream detaches and all listeners
// are dropped. The server-side session is left to its own lifecycle.
func (r *Runtime) Destroy() {
	r.disconnect()

	r.mu.Lock()
	r.listeners = make(map[int]func())
	r.mu.Unlock()
}

func (r *Runtime) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: unexpected status %d: %s", path, resp.StatusCode, string(data))
	}
	return nil
}
