package api

import (
	"net/http"
	"strings"

	"github.com/Keyring-Network/keyring-notes/internal/store"
)

type createResourceRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	URL         string   `json:"url" validate:"omitempty,url"`
	Tags        []string `json:"tags" validate:"dive,required"`
}

type tagRequest struct {
	Tag   string `json:"tag" validate:"required"`
	Title string `json:"title"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type tagResponse struct {
	ID    string `json:"id"`
	Tag   string `json:"tag"`
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

func (s *Server) createResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if !decodeRequest(w, r, &req, func() {
		req.Title = strings.TrimSpace(req.Title)
		req.Description = strings.TrimSpace(req.Description)
		req.URL = strings.TrimSpace(req.URL)
		for i, tag := range req.Tags {
			req.Tags[i] = strings.TrimSpace(tag)
		}
	}) {
		return
	}
	resource := store.Resource{
		OwnerID:     ownerFrom(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Tags:        req.Tags,
	}
	if err := s.store.AddResource(r.Context(), resource); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONStatus(w, map[string]string{"status": "created"}, http.StatusCreated)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]tagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, toTagResponse(tag))
	}
	writeJSON(w, out)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeRequest(w, r, &req, func() {
		req.Tag = strings.TrimSpace(req.Tag)
		req.Title = strings.TrimSpace(req.Title)
		req.Color = strings.TrimSpace(req.Color)
	}) {
		return
	}
	created, err := s.store.CreateTag(r.Context(), ownerFrom(r.Context()), store.UserTag{
		Tag:   req.Tag,
		Title: req.Title,
		Color: req.Color,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSONStatus(w, toTagResponse(created), http.StatusCreated)
}

func toTagResponse(tag store.UserTag) tagResponse {
	return tagResponse{ID: tag.ID, Tag: tag.Tag, Title: tag.Title, Color: tag.Color}
}
