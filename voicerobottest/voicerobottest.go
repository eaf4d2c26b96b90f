// Package voicerobottest provides an in-memory voice-robot backend for
// tests and local demos.
//
// The server speaks the same HTTP API as the real backend: the same
// routes, envelopes and status codes. Replies are scripted instead of
// generated by a model.
package voicerobottest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const timeLayout = "2006-01-02 15:04:05"

// Finish reasons stored with a reply. Replies cut short by the client are
// stored with FinishAbort and a marker appended to their content.
const (
	FinishStop  = "stop"
	FinishAbort = "abort"
	abortSuffix = " (aborted)"
)

// Assistant is the wire form of an assistant.
type Assistant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	GmtCreate   string `json:"gmt_create"`
	GmtModified string `json:"gmt_modified"`
	TimeStamp   string `json:"time_stamp"`
}

// Message is the wire form of one stored exchange.
type Message struct {
	Input     Input  `json:"input"`
	Output    Output `json:"output"`
	Usage     Usage  `json:"usage"`
	GmtCreate string `json:"gmt_create"`
}

// Input is what the client sent.
type Input struct {
	Prompt string `json:"prompt"`
	Send   string `json:"send"`
}

// Output is what the assistant answered.
type Output struct {
	FinishReason string `json:"finish_reason"`
	Content      string `json:"content"`
}

// Usage is the token accounting of one exchange.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type result struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Code    int    `json:"code,omitempty"`
	Data    any    `json:"data"`
}

// Server is a fake backend listening on a local port.
type Server struct {
	*httptest.Server

	reply      func(in Input) []string
	chunkDelay time.Duration
	heartbeat  time.Duration

	mu         sync.Mutex
	assistants []Assistant
	histories  map[string][]Message
	streams    int
}

// Option configures a [Server].
type Option func(*Server)

// WithReply sets the chunks streamed back for a message. The default
// echoes the sent text word by word.
func WithReply(fn func(in Input) []string) Option {
	return func(s *Server) { s.reply = fn }
}

// WithChunkDelay pauses between streamed chunks.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) { s.chunkDelay = d }
}

// WithHeartbeat sends heartbeat records at interval d while a reply is
// waiting for its next chunk. It only has an effect with a chunk delay.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) { s.heartbeat = d }
}

// NewServer starts a server. Close it when done.
func NewServer(opts ...Option) *Server {
	s := &Server{reply: echo, histories: make(map[string][]Message)}
	for _, o := range opts {
		o(s)
	}
	s.Server = httptest.NewServer(s.Router())
	return s
}

// Router returns the HTTP routes without starting a listener.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/voice-robot/v1").Subrouter()

	a := v1.PathPrefix("/assistant").Subrouter()
	a.HandleFunc("", s.handleListAssistants).Methods(http.MethodGet)
	a.HandleFunc("", s.handleCreateAssistant).Methods(http.MethodPost)
	a.HandleFunc("/{id}", s.handleUpdateAssistant).Methods(http.MethodPatch)
	a.HandleFunc("/{id}", s.handleDeleteAssistant).Methods(http.MethodDelete)

	h := v1.PathPrefix("/history").Subrouter()
	h.HandleFunc("/{assistant_id}", s.handleGetHistory).Methods(http.MethodGet)
	h.HandleFunc("/{assistant_id}", s.handleResetHistory).Methods(http.MethodDelete)
	h.HandleFunc("/{assistant_id}", s.handleAppendHistory).Methods(http.MethodPost)
	h.HandleFunc("/{assistant_id}/stream-process", s.handleStream).Methods(http.MethodPost)
	return r
}

// Seed stores an assistant directly, assigning id and timestamps, and
// returns the stored copy.
func (s *Server) Seed(name, description, prompt string) Assistant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(Assistant{Name: name, Description: description, Prompt: prompt})
}

// Messages returns a copy of the stored history of an assistant.
func (s *Server) Messages(assistantID string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.histories[assistantID]...)
}

// Streams returns how many stream requests have finished.
func (s *Server) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams
}

func (s *Server) create(a Assistant) Assistant {
	now := time.Now().Format(timeLayout)
	a.ID = uuid.NewString()
	a.GmtCreate = now
	a.GmtModified = now
	a.TimeStamp = now
	s.assistants = append(s.assistants, a)
	s.histories[a.ID] = []Message{greeting(a, "Welcome to "+a.Name+"! I am ready to help.", now)}
	return a
}

func greeting(a Assistant, text, now string) Message {
	return Message{
		Input:     Input{Prompt: a.Prompt},
		Output:    Output{FinishReason: FinishStop, Content: text},
		GmtCreate: now,
	}
}

func (s *Server) find(id string) (int, bool) {
	for i, a := range s.assistants {
		if a.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Server) handleListAssistants(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]Assistant{}, s.assistants...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, result{Success: true, Msg: "ok", Code: http.StatusOK, Data: list})
}

func (s *Server) handleCreateAssistant(w http.ResponseWriter, r *http.Request) {
	var a Assistant
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSON(w, http.StatusOK, result{Msg: "invalid request body", Code: http.StatusBadRequest})
		return
	}
	if strings.TrimSpace(a.Name) == "" {
		writeJSON(w, http.StatusOK, result{Msg: "name is required", Code: http.StatusBadRequest})
		return
	}
	if strings.TrimSpace(a.Prompt) == "" {
		writeJSON(w, http.StatusOK, result{Msg: "create failed", Code: http.StatusInternalServerError})
		return
	}
	s.mu.Lock()
	saved := s.create(a)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, result{Success: true, Msg: "created", Code: http.StatusOK, Data: saved})
}

func (s *Server) handleUpdateAssistant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var upd Assistant
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusOK, result{Msg: "invalid request body", Code: http.StatusBadRequest})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(id)
	if !ok || strings.TrimSpace(upd.Name) == "" {
		writeJSON(w, http.StatusOK, result{Msg: "update failed", Code: http.StatusInternalServerError})
		return
	}
	now := time.Now().Format(timeLayout)
	a := &s.assistants[i]
	a.Name = upd.Name
	a.Description = upd.Description
	a.Prompt = upd.Prompt
	a.GmtModified = now
	a.TimeStamp = now
	writeJSON(w, http.StatusOK, result{Success: true, Msg: "updated", Code: http.StatusOK, Data: *a})
}

func (s *Server) handleDeleteAssistant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(id)
	if !ok {
		writeJSON(w, http.StatusOK, result{Msg: "delete failed", Code: http.StatusInternalServerError})
		return
	}
	s.assistants = append(s.assistants[:i], s.assistants[i+1:]...)
	delete(s.histories, id)
	writeJSON(w, http.StatusOK, result{Success: true, Msg: "deleted", Code: http.StatusOK})
}

// historyTarget resolves the assistant of a history route, writing the
// error response itself when it cannot.
func (s *Server) historyTarget(w http.ResponseWriter, r *http.Request) (Assistant, bool) {
	id := mux.Vars(r)["assistant_id"]
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, result{Msg: "invalid assistant id"})
		return Assistant{}, false
	}
	i, ok := s.find(id)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, result{Msg: "assistant not found"})
		return Assistant{}, false
	}
	return s.assistants[i], true
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.historyTarget(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true, Msg: "ok", Data: map[string]any{
		"assistant_id": a.ID,
		"messages":     append([]Message{}, s.histories[a.ID]...),
	}})
}

func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.historyTarget(w, r)
	if !ok {
		return
	}
	now := time.Now().Format(timeLayout)
	s.histories[a.ID] = []Message{greeting(a, "Conversation reset, welcome back to "+a.Name+"!", now)}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendHistory(w http.ResponseWriter, r *http.Request) {
	var m Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, result{Msg: "invalid message"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.historyTarget(w, r)
	if !ok {
		return
	}
	m.GmtCreate = time.Now().Format(timeLayout)
	s.histories[a.ID] = append(s.histories[a.ID], m)
	writeJSON(w, http.StatusCreated, result{Success: true, Msg: "saved", Data: m})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, result{Msg: "invalid message: " + err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	send := func(v any) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	id := mux.Vars(r)["assistant_id"]
	s.mu.Lock()
	i, ok := s.find(id)
	var a Assistant
	if ok {
		a = s.assistants[i]
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.streams++
		s.mu.Unlock()
	}()

	if !ok {
		send(map[string]string{"error": "assistant not found"})
		return
	}
	if in.Prompt == "" {
		in.Prompt = a.Prompt
	}

	var ticker <-chan time.Time
	if s.heartbeat > 0 {
		t := time.NewTicker(s.heartbeat)
		defer t.Stop()
		ticker = t.C
	}

	var full strings.Builder
	aborted := false
chunks:
	for _, chunk := range s.reply(in) {
		if s.chunkDelay > 0 {
			timer := time.NewTimer(s.chunkDelay)
		wait:
			for {
				select {
				case <-r.Context().Done():
					timer.Stop()
					aborted = true
					break chunks
				case <-ticker:
					send(map[string]bool{"heartbeat": true})
				case <-timer.C:
					break wait
				}
			}
		}
		if r.Context().Err() != nil {
			aborted = true
			break
		}
		full.WriteString(chunk)
		send(map[string]string{"content": chunk})
	}

	usage := Usage{InputTokens: len(in.Send) / 4, OutputTokens: full.Len() / 4}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	out := Output{FinishReason: FinishStop, Content: full.String()}
	if aborted {
		out = Output{FinishReason: FinishAbort, Content: full.String() + abortSuffix}
	}

	s.mu.Lock()
	if _, still := s.find(id); still {
		s.histories[id] = append(s.histories[id], Message{
			Input:     in,
			Output:    out,
			Usage:     usage,
			GmtCreate: time.Now().Format(timeLayout),
		})
	}
	s.mu.Unlock()

	if !aborted {
		send(map[string]any{"done": true, "usage": usage})
	}
}

// echo streams the sent text back one word at a time.
func echo(in Input) []string {
	words := strings.Fields(in.Send)
	chunks := make([]string, len(words))
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		chunks[i] = w
	}
	return chunks
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
