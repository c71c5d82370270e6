package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/assistant"
	"github.com/Keyring-Network/keyring-notes/internal/llm"
	"github.com/Keyring-Network/keyring-notes/internal/store"
	"github.com/Keyring-Network/keyring-notes/internal/validation"
)

var retryHint = regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)\s*s`)

type askRequest struct {
	Message string `json:"message" validate:"required"`
	Lang    string `json:"lang" validate:"omitempty,oneof=en pl"`
}

type planRequest struct {
	Message string                  `json:"message" validate:"required"`
	Lang    string                  `json:"lang" validate:"omitempty,oneof=en pl"`
	History []assistant.HistoryTurn `json:"history" validate:"dive"`
}

type confirmRequest struct {
	planRequest
	Tags []string `json:"tags" validate:"min=1,dive,required"`
}

func (r *planRequest) input() assistant.PlanInput {
	return assistant.PlanInput{Message: r.Message, Lang: r.Lang, History: r.History}
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeRequest(w, r, &req, func() {
		req.Message = strings.TrimSpace(req.Message)
		req.Lang = normalizeLang(req.Lang)
	}) {
		return
	}
	if s.assistant == nil {
		http.Error(w, "assistant unavailable", http.StatusServiceUnavailable)
		return
	}
	answer, err := s.assistant.AnswerQuestion(r.Context(), ownerFrom(r.Context()), assistant.AskInput{
		Message: req.Message,
		Lang:    req.Lang,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, answer)
}

func (s *Server) plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeRequest(w, r, &req, req.normalize) {
		return
	}
	if s.planner == nil {
		http.Error(w, "planner unavailable", http.StatusServiceUnavailable)
		return
	}
	result, err := s.planner.PlanningTurn(r.Context(), ownerFrom(r.Context()), req.input())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decodeRequest(w, r, &req, func() {
		req.normalize()
		for i, tag := range req.Tags {
			req.Tags[i] = strings.TrimSpace(tag)
		}
	}) {
		return
	}
	if s.planner == nil {
		http.Error(w, "planner unavailable", http.StatusServiceUnavailable)
		return
	}
	result, err := s.planner.ConfirmTags(r.Context(), ownerFrom(r.Context()), assistant.ConfirmInput{
		PlanInput: req.input(),
		Tags:      req.Tags,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (r *planRequest) normalize() {
	r.Message = strings.TrimSpace(r.Message)
	r.Lang = normalizeLang(r.Lang)
}

func normalizeLang(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// decodeRequest reads a JSON body into dst, applies normalize and validates
// the result. It writes a 400 and returns false on any failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, normalize func()) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	if normalize != nil {
		normalize()
	}
	if err := validation.Struct(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var rateErr llm.RateLimitError
	switch {
	case errors.Is(err, assistant.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &rateErr):
		if seconds, ok := retryAfterSeconds(rateErr.Message); ok {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, store.ErrTagExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.logger.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// retryAfterSeconds extracts a "retry in Ns" hint, rounding up to whole seconds.
func retryAfterSeconds(message string) (int, bool) {
	match := retryHint.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	seconds := int(math.Ceil(value))
	if seconds < 1 {
		seconds = 1
	}
	return seconds, true
}
