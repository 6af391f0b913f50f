// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/poiesic/policyqa/answer"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorStatus maps a pipeline error to an HTTP status.
func errorStatus(err error) int {
	if errors.Is(err, answer.ErrDependencyUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// handleChat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgMissingQuestion)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, msgMissingQuestion)
		return
	}

	ans, err := s.answerer.Answer(r.Context(), question)
	if err != nil {
		s.logger.Error("answer failed", "request_id", RequestID(r.Context()), "err", err)
		writeError(w, errorStatus(err), err.Error())
		return
	}

	text, sources := answer.SplitSources(ans.Text)
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Question:  question,
		Answer:    text,
		Citations: sources,
	})
}

// handleHealth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: ServiceName})
}

// handleIndex renders the empty form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, pageData{})
}

// handleAsk answers a form submission.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		s.renderPage(w, http.StatusBadRequest, pageData{Error: msgMissingQuestion})
		return
	}

	ans, err := s.answerer.Answer(r.Context(), question)
	if err != nil {
		s.logger.Error("answer failed", "request_id", RequestID(r.Context()), "err", err)
		s.renderPage(w, errorStatus(err), pageData{Question: question, Error: err.Error()})
		return
	}

	text, sources := answer.SplitSources(ans.Text)
	s.renderPage(w, http.StatusOK, pageData{
		Question: question,
		Answer:   text,
		Sources:  sources,
	})
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "err", err)
	}
}
