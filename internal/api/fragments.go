package api

import (
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/keyring-notes/internal/store"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

type ingestFragmentsRequest struct {
	SourceName string `json:"source_name" validate:"required_without=NoteTitle"`
	NoteTitle  string `json:"note_title"`
	Content    string `json:"content" validate:"required"`
}

type ingestFragmentsResponse struct {
	Fragments int `json:"fragments"`
	Skipped   int `json:"skipped"`
}

func (s *Server) ingestFragments(w http.ResponseWriter, r *http.Request) {
	if s.cfg.FragmentMaxContentBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.FragmentMaxContentBytes))
	}
	var req ingestFragmentsRequest
	if !decodeRequest(w, r, &req, func() {
		req.SourceName = strings.TrimSpace(req.SourceName)
		req.NoteTitle = strings.TrimSpace(req.NoteTitle)
		req.Content = strings.TrimSpace(req.Content)
	}) {
		return
	}

	ownerID := ownerFrom(r.Context())
	paragraphs := splitParagraphs(req.Content, s.cfg.FragmentChunkChars, s.cfg.FragmentChunkOverlap, s.cfg.FragmentMaxChunks)
	created, skipped := 0, 0
	for _, paragraph := range paragraphs {
		if len([]rune(paragraph)) < s.cfg.FragmentMinContentChars {
			skipped++
			continue
		}
		fragment := store.Fragment{
			OwnerID:    ownerID,
			Content:    paragraph,
			SourceName: req.SourceName,
			NoteTitle:  req.NoteTitle,
			ChunkIndex: created,
		}
		if err := s.store.AddFragment(r.Context(), fragment); err != nil {
			s.logger.Error("add fragment failed",
				zap.String("owner_id", ownerID),
				zap.Int("chunk_index", created),
				zap.Error(err),
			)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		created++
	}
	writeJSONStatus(w, ingestFragmentsResponse{Fragments: created, Skipped: skipped}, http.StatusCreated)
}

// splitParagraphs cuts content on blank lines and windows any paragraph longer
// than maxChars runes. At most maxChunks pieces are returned when maxChunks > 0.
func splitParagraphs(content string, maxChars int, overlap int, maxChunks int) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	chunks := []string{}
	for _, paragraph := range paragraphBreak.Split(content, -1) {
		paragraph = normalizeContent(paragraph)
		if paragraph == "" {
			continue
		}
		for _, chunk := range chunkContent(paragraph, maxChars, overlap) {
			chunks = append(chunks, chunk)
			if maxChunks > 0 && len(chunks) >= maxChunks {
				return chunks
			}
		}
	}
	return chunks
}

func chunkContent(content string, maxChars int, overlap int) []string {
	if maxChars <= 0 {
		return []string{content}
	}
	runes := []rune(content)
	if len(runes) <= maxChars {
		return []string{content}
	}
	step := maxChars - overlap
	if step <= 0 {
		step = maxChars
	}
	chunks := []string{}
	for start := 0; start < len(runes); start += step {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func normalizeContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	return strings.Join(strings.Fields(trimmed), " ")
}
