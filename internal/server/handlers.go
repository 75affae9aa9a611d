package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// retrievalRequest is the body for POST /api/chat/retrieval.
type retrievalRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// answerRequest is the body for POST /api/chat/answer.
type answerRequest struct {
	Query string `json:"query"`
}

// errorResponse is the error envelope for all endpoints.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewRetrievalHandler serves POST /api/chat/retrieval: embed the query, run
// hybrid search, return ranked results.
func NewRetrievalHandler(svc *Service, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		var req retrievalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Query is required and must be a string", "")
			return
		}

		resp, err := svc.Retrieve(r.Context(), req.Query, req.K)
		if err != nil {
			if errors.Is(err, ErrEmptyQuery) {
				writeError(w, http.StatusBadRequest, "Query is required and must be a string", "")
				return
			}
			logger.Error("retrieval request failed", zap.String("query", req.Query), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to retrieve documents", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// NewAnswerHandler serves POST /api/chat/answer: retrieval plus answer
// generation. The response is always a well-formed answer payload; transform
// failures degrade to a canned message inside the transformer.
func NewAnswerHandler(svc *Service, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
			return
		}

		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Query is required and must be a string", "")
			return
		}

		resp, err := svc.Answer(r.Context(), req.Query)
		if err != nil {
			if errors.Is(err, ErrEmptyQuery) {
				writeError(w, http.StatusBadRequest, "Query is required and must be a string", "")
				return
			}
			logger.Error("answer request failed", zap.String("query", req.Query), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to generate answer", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}
