package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/store"
	"github.com/wanjiru/triagedesk/internal/version"
)

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/search", s.handleSearch)

	mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", s.handleConversationMessages)

	mux.HandleFunc("GET /api/messages", s.handleListMessages)
	mux.HandleFunc("GET /api/messages/{id}", s.handleGetMessage)

	mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	mux.HandleFunc("POST /api/customers", s.handleCreateCustomer)
	mux.HandleFunc("GET /api/customers/{id}", s.handleGetCustomer)
	mux.HandleFunc("PATCH /api/customers/{id}", s.handleUpdateCustomer)

	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("POST /api/agents", s.handleCreateAgent)
	mux.HandleFunc("GET /api/agents/stats", s.handleAgentStats)
	mux.HandleFunc("GET /api/agents/{id}", s.handleGetAgent)
	mux.HandleFunc("PATCH /api/agents/{id}/status", s.handleUpdateAgentStatus)

	mux.HandleFunc("GET /api/canned-responses", s.handleListCanned)
	mux.HandleFunc("POST /api/canned-responses", s.handleCreateCanned)
	mux.HandleFunc("PUT /api/canned-responses/{id}", s.handleUpdateCanned)
	mux.HandleFunc("DELETE /api/canned-responses/{id}", s.handleDeleteCanned)

	mux.HandleFunc("/", handleNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

// writeStoreError maps store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already in use")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}

func queryInt64(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	AgentsOnline  int    `json:"agentsOnline"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		AgentsOnline:  s.hub.Online(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	res, err := s.store.Search(r.Context(), q, queryInt(r, "limit"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	f := store.ConversationFilter{
		Status: domain.ConversationStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	list, err := s.store.ListConversations(r.Context(), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []store.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	conv, err := s.store.Conversation(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	cust, err := s.store.Customer(r.Context(), conv.CustomerID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"customer":     cust,
	})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	msgs, err := s.store.ConversationMessages(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.MessageFilter{
		CustomerID: queryInt64(r, "customerId"),
		Direction:  domain.MessageDirection(q.Get("direction")),
		Status:     domain.MessageStatus(q.Get("status")),
		Urgency:    domain.UrgencyLevel(q.Get("urgency")),
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	}
	msgs, err := s.store.ListMessages(r.Context(), f)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	msg, err := s.store.Message(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCustomers(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []domain.Customer{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createCustomerRequest struct {
	UserID        int64  `json:"userId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	AccountStatus string `json:"accountStatus"`
	CreditScore   *int   `json:"creditScore"`
	AccountAge    string `json:"accountAge"`
	LoanStatus    string `json:"loanStatus"`
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	cust, created, err := s.store.EnsureCustomer(r.Context(), store.CustomerSeed{
		UserID:        req.UserID,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		AccountStatus: req.AccountStatus,
		CreditScore:   req.CreditScore,
		AccountAge:    req.AccountAge,
		LoanStatus:    req.LoanStatus,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, cust)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	cust, err := s.store.Customer(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cust)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var up store.CustomerProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	cust, err := s.store.UpdateCustomerProfile(r.Context(), id, up)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cust)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListAgents(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []domain.Agent{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createAgentRequest struct {
	Name   string             `json:"name"`
	Email  string             `json:"email"`
	Status domain.AgentStatus `json:"status"`
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	agent, err := s.store.CreateAgent(r.Context(), req.Name, req.Email, req.Status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleAgentStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.AgentStatusCounts(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	agent, err := s.store.Agent(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

type updateAgentStatusRequest struct {
	Status domain.AgentStatus `json:"status"`
}

func (s *Server) handleUpdateAgentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req updateAgentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	switch req.Status {
	case domain.AgentAvailable, domain.AgentBusy, domain.AgentOffline:
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if err := s.store.UpdateAgentStatus(r.Context(), id, req.Status); err != nil {
		writeStoreError(w, err)
		return
	}
	agent, err := s.store.Agent(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleListCanned(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCannedResponses(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []domain.CannedResponse{}
	}
	writeJSON(w, http.StatusOK, list)
}

type cannedRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (s *Server) handleCreateCanned(w http.ResponseWriter, r *http.Request) {
	var req cannedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	cr, err := s.store.CreateCannedResponse(r.Context(), req.Title, req.Content, req.Category)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cr)
}

func (s *Server) handleUpdateCanned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req cannedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	cr, err := s.store.UpdateCannedResponse(r.Context(), id, req.Title, req.Content, req.Category)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

func (s *Server) handleDeleteCanned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.store.DeleteCannedResponse(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
