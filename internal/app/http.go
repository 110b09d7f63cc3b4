package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"binder/api/internal/export"
	"binder/api/internal/search"
)

const (
	defaultActor = "anonymous"
	maxBodyBytes = 5 << 20
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ready, checks := s.service.Readiness(ctx)
		status, statusCode := "ready", http.StatusOK
		if !ready {
			status, statusCode = "not_ready", http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     ready,
			"status": status,
			"checks": checks,
		})
		return
	}

	actor := actorFromRequest(r)

	if r.URL.Path == "/api/documents" {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListDocuments(r.Context())
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"documents": items})
			return
		case http.MethodPost:
			var body struct {
				Title string `json:"title"`
			}
			if err := decodeBody(w, r, &body); err != nil {
				writeBodyError(w, err)
				return
			}
			payload, err := s.service.CreateDocument(r.Context(), body.Title, actor)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
			return
		}
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		query := r.URL.Query()
		text := strings.TrimSpace(query.Get("q"))
		if text == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "q is required", nil)
			return
		}
		resp := s.service.Search(r.Context(), search.Query{
			Text:       text,
			DocumentID: strings.TrimSpace(query.Get("documentId")),
			Limit:      queryInt(query.Get("limit"), 20),
			Offset:     queryInt(query.Get("offset"), 0),
		})
		writeJSON(w, http.StatusOK, resp)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "documents" {
		documentID := parts[2]
		s.handleDocuments(w, r, actor, documentID, parts)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request, actor, documentID string, parts []string) {
	if len(parts) == 3 && r.Method == http.MethodGet {
		summary, err := s.service.GetDocumentSummary(r.Context(), documentID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": summary})
		return
	}

	if len(parts) == 3 && r.Method == http.MethodPatch {
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			writeBodyError(w, err)
			return
		}
		summary, err := s.service.RenameDocument(r.Context(), documentID, actor, body.Title)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": summary})
		return
	}

	if len(parts) == 4 && parts[3] == "outline" && r.Method == http.MethodGet {
		payload, err := s.service.GetOutline(r.Context(), documentID, strings.TrimSpace(r.URL.Query().Get("view")))
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 6 && parts[3] == "outline" && parts[5] == "controls" && r.Method == http.MethodGet {
		payload, err := s.service.GetControls(r.Context(), documentID, parts[4])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "moves" && r.Method == http.MethodPost {
		var body struct {
			NodeID    string `json:"nodeId"`
			Direction string `json:"direction"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			writeBodyError(w, err)
			return
		}
		payload, err := s.service.Move(r.Context(), documentID, actor, strings.TrimSpace(body.NodeID), body.Direction)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "resequencing" {
		var (
			payload map[string]any
			err     error
		)
		switch r.Method {
		case http.MethodGet:
			payload, err = s.service.ResequencingState(r.Context(), documentID)
		case http.MethodPost:
			payload, err = s.service.EnterResequencing(r.Context(), documentID, actor)
		case http.MethodDelete:
			payload, err = s.service.DiscardResequencing(r.Context(), documentID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 5 && parts[3] == "resequencing" && parts[4] == "commit" && r.Method == http.MethodPost {
		payload, err := s.service.CommitResequencing(r.Context(), documentID, actor)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "contents" && r.Method == http.MethodPost {
		var body struct {
			ParentID string `json:"parentId"`
			Name     string `json:"name"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			writeBodyError(w, err)
			return
		}
		payload, err := s.service.AddContent(r.Context(), documentID, actor, strings.TrimSpace(body.ParentID), body.Name)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
		return
	}

	if len(parts) == 5 && parts[3] == "contents" && r.Method == http.MethodPatch {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			writeBodyError(w, err)
			return
		}
		payload, err := s.service.RenameContent(r.Context(), documentID, actor, parts[4], body.Name)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 6 && parts[3] == "contents" && parts[5] == "body" {
		nodeID := parts[4]
		switch r.Method {
		case http.MethodGet:
			body, err := s.service.GetBody(r.Context(), documentID, nodeID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		case http.MethodPut:
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeBodyError(w, err)
				return
			}
			payload, err := s.service.PutBody(r.Context(), documentID, actor, nodeID, data)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		}
	}

	if len(parts) == 4 && parts[3] == "history" && r.Method == http.MethodGet {
		payload, err := s.service.History(r.Context(), documentID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 5 && parts[3] == "history" && r.Method == http.MethodGet {
		payload, err := s.service.HistoryVersion(r.Context(), documentID, parts[4])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if len(parts) == 4 && parts[3] == "export" && r.Method == http.MethodPost {
		var body struct {
			NodeID          string `json:"nodeId"`
			Format          string `json:"format"`
			IncludeChildren bool   `json:"includeChildren"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			writeBodyError(w, err)
			return
		}
		if strings.TrimSpace(body.NodeID) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "nodeId is required", nil)
			return
		}
		format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(body.Format)))
		if err != nil {
			writeMappedError(w, err)
			return
		}

		result, err := s.service.ExportNode(r.Context(), export.Request{
			DocumentID:      documentID,
			NodeID:          strings.TrimSpace(body.NodeID),
			Format:          format,
			IncludeChildren: body.IncludeChildren,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}

		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("X-Export-Sections", strconv.Itoa(result.Sections))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","actor":%q,"status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			actorFromRequest(r),
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Actor, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Export-Sections, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.Printf("request failed: %v", err)
	}
	writeError(w, status, code, message, details)
}

// decodeBody reads one JSON value of at most maxBodyBytes. An empty body
// leaves target untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose):
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", fmt.Sprintf("body exceeds %d bytes", maxBodyBytes), nil)
		return
	}
	writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
}

// actorFromRequest names the acting user. Authentication happens in front of
// the API, which forwards the user name in X-Actor.
func actorFromRequest(r *http.Request) string {
	actor := strings.TrimSpace(r.Header.Get("X-Actor"))
	if actor == "" {
		return defaultActor
	}
	return actor
}

func queryInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
