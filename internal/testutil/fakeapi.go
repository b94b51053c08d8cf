package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"tasksync/internal/failure"
	"tasksync/internal/service"
)

// SessionCookie is the cookie the fake API issues on sign-in.
const SessionCookie = "jwt"

// Request is one request observed by FakeAPI.
type Request struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}

// FakeAPI serves FakeService over the REST routes of the real API.
// Protected routes require the session cookie issued by login or register.
type FakeAPI struct {
	Service *FakeService
	Server  *httptest.Server

	mu       sync.Mutex
	requests []Request
}

// NewFakeAPI starts a server over svc. It is closed when the test ends.
func NewFakeAPI(t *testing.T, svc *FakeService) *FakeAPI {
	t.Helper()
	api := &FakeAPI{Service: svc}
	api.Server = httptest.NewServer(api.Handler())
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the base URL of the server.
func (a *FakeAPI) URL() string { return a.Server.URL }

// Requests returns the observed requests in arrival order.
func (a *FakeAPI) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Request(nil), a.requests...)
}

// Handler returns the routed handler with request capture.
func (a *FakeAPI) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/users/login", a.login).Methods(http.MethodPost)
	r.HandleFunc("/api/users/register", a.register).Methods(http.MethodPost)
	r.HandleFunc("/api/users/logout", a.logout).Methods(http.MethodPost)
	r.HandleFunc("/api/users/profile", a.protected(a.updateProfile)).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks", a.protected(a.listTasks)).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks", a.protected(a.createTask)).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/{id}", a.protected(a.updateTask)).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{id}", a.protected(a.deleteTask)).Methods(http.MethodDelete)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not found"})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(r, w, req)
		a.mu.Lock()
		a.requests = append(a.requests, Request{
			Method:   req.Method,
			Path:     req.URL.Path,
			Status:   m.Code,
			Duration: m.Duration,
		})
		a.mu.Unlock()
	})
}

func (a *FakeAPI) protected(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if c, err := req.Cookie(SessionCookie); err != nil || c.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized, no token"})
			return
		}
		h(w, req)
	}
}

func (a *FakeAPI) login(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, req, &body) {
		return
	}
	u, err := a.Service.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	setSession(w, u.ID)
	writeJSON(w, http.StatusOK, wireUser(u))
}

func (a *FakeAPI) register(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, req, &body) {
		return
	}
	u, err := a.Service.Register(req.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	setSession(w, u.ID)
	writeJSON(w, http.StatusCreated, wireUser(u))
}

func (a *FakeAPI) logout(w http.ResponseWriter, req *http.Request) {
	if err := a.Service.Logout(req.Context()); err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (a *FakeAPI) updateProfile(w http.ResponseWriter, req *http.Request) {
	var body service.ProfileUpdate
	if !decode(w, req, &body) {
		return
	}
	u, err := a.Service.UpdateProfile(req.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wireUser(u))
}

func (a *FakeAPI) listTasks(w http.ResponseWriter, req *http.Request) {
	ts, err := a.Service.ListTasks(req.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(ts))
	for _, t := range ts {
		out = append(out, wireTask(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *FakeAPI) createTask(w http.ResponseWriter, req *http.Request) {
	var body service.TaskFields
	if !decode(w, req, &body) {
		return
	}
	t, err := a.Service.CreateTask(req.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wireTask(t))
}

func (a *FakeAPI) updateTask(w http.ResponseWriter, req *http.Request) {
	var body service.TaskPatch
	if !decode(w, req, &body) {
		return
	}
	t, err := a.Service.UpdateTask(req.Context(), mux.Vars(req)["id"], body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wireTask(t))
}

func (a *FakeAPI) deleteTask(w http.ResponseWriter, req *http.Request) {
	id, err := a.Service.DeleteTask(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func setSession(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "session-" + userID, Path: "/", HttpOnly: true})
}

// wireUser and wireTask render records the way the server does, with
// "_id" identifiers.
func wireUser(u service.User) map[string]any {
	return map[string]any{"_id": u.ID, "name": u.Name, "email": u.Email}
}

func wireTask(t service.Task) map[string]any {
	return map[string]any{
		"_id":         t.ID,
		"title":       t.Title,
		"description": t.Description,
		"priority":    t.Priority,
		"status":      t.Status,
		"dueDate":     t.DueDate,
		"order":       t.Order,
	}
}

func decode(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	var fe *failure.Error
	if errors.As(err, &fe) && fe.Kind == failure.Rejected {
		writeJSON(w, fe.Status, map[string]string{"message": fe.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
