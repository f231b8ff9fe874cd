package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/greencred/greencred/internal/app/engagement"
	"github.com/greencred/greencred/internal/app/ledger"
	"github.com/greencred/greencred/internal/domain"
)

// ─── Ledger & Action API ────────────────────────────────────────────────────
//
// GET  /api/ledger                 — balance, level, history, redeemed rewards
// GET  /api/actions?window=        — history, optionally today|week|month
// POST /api/actions                — log an action (JSON or multipart with proof)
// GET  /api/actions/{id}           — one action
// GET  /api/catalog/actions        — the activity table

// actionView adds display fields to an action.
type actionView struct {
	domain.Action
	TimeAgo string `json:"time_ago"`
}

func (s *Server) view(a domain.Action) actionView {
	return actionView{Action: a, TimeAgo: domain.TimeAgo(a.CreatedAt, s.now())}
}

func (s *Server) views(actions []domain.Action) []actionView {
	out := make([]actionView, len(actions))
	for i, a := range actions {
		out[i] = s.view(a)
	}
	return out
}

// handleLedger returns the full snapshot.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_tokens":     snap.TotalTokens,
		"level":            snap.Level,
		"progress":         engagement.Progress(snap.TotalTokens),
		"actions":          s.views(snap.Actions),
		"redeemed_rewards": snap.RedeemedRewardIDs,
		"pending":          engagement.CountByStatus(snap.Actions).Pending,
		"taken_at":         snap.TakenAt,
	})
}

// handleListActions returns history, newest first.
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	win, ok := engagement.ParseWindow(r.URL.Query().Get("window"))
	if !ok {
		writeError(w, http.StatusBadRequest, "window must be today, week or month")
		return
	}
	actions := engagement.FilterWindow(s.ledger.Snapshot().Actions, win, s.now())

	if cat := r.URL.Query().Get("category"); cat != "" {
		c, err := domain.ParseCategory(cat)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		filtered := actions[:0]
		for _, a := range actions {
			if a.Category == c {
				filtered = append(filtered, a)
			}
		}
		actions = filtered
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window":  string(win),
		"count":   len(actions),
		"tokens":  engagement.SumTokens(actions),
		"actions": s.views(actions),
	})
}

// handleGetAction returns one action by ID.
func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := s.ledger.Action(id)
	if !ok {
		writeDomainError(w, fmt.Errorf("%w: %s", domain.ErrActionNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, s.view(a))
}

// submitBody is the JSON form of a submission. Proof, when present, describes
// media already held by the client; only its type reaches the ledger.
type submitBody struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Tokens      int    `json:"tokens"`
	Proof       *struct {
		MIMEType string `json:"mime_type"`
		Filename string `json:"filename"`
	} `json:"proof,omitempty"`
}

// handleSubmitAction logs an action.
func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	var (
		req ledger.SubmitRequest
		err error
	)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		req, err = s.parseMultipart(w, r)
	} else {
		req, err = parseJSONSubmit(r)
	}
	if err != nil {
		var he *httpError
		if errors.As(err, &he) {
			writeError(w, he.status, he.msg)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.ledger.SubmitAction(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	a, _ := s.ledger.Action(id)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"action":  s.view(a),
		"balance": s.ledger.Balance(),
	})
}

func parseJSONSubmit(r *http.Request) (ledger.SubmitRequest, error) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return ledger.SubmitRequest{}, fmt.Errorf("invalid JSON: %w", err)
	}
	req := ledger.SubmitRequest{
		Category:    body.Category,
		Description: body.Description,
		TokenValue:  body.Tokens,
	}
	if body.Proof != nil {
		if !acceptedProof(body.Proof.MIMEType) {
			return req, unsupportedMedia(body.Proof.MIMEType)
		}
		req.Media = &domain.Media{
			Ref:      uuid.NewString(),
			MIMEType: body.Proof.MIMEType,
			Filename: body.Proof.Filename,
		}
	}
	return req, nil
}

// parseMultipart reads form fields and an optional "file" part. The upload is
// drained and discarded; the ledger keeps a generated reference only.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (ledger.SubmitRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return ledger.SubmitRequest{}, &httpError{http.StatusRequestEntityTooLarge, "proof upload too large"}
		}
		return ledger.SubmitRequest{}, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	tokens, err := strconv.Atoi(strings.TrimSpace(r.FormValue("tokens")))
	if err != nil {
		return ledger.SubmitRequest{}, fmt.Errorf("%w: tokens must be an integer", domain.ErrInvalidTokenValue)
	}
	req := ledger.SubmitRequest{
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		TokenValue:  tokens,
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, fmt.Errorf("read proof: %w", err)
	}
	defer file.Close()

	mt := header.Header.Get("Content-Type")
	if !acceptedProof(mt) {
		return req, unsupportedMedia(mt)
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return req, fmt.Errorf("read proof: %w", err)
	}
	req.Media = &domain.Media{Ref: uuid.NewString(), MIMEType: mt, Filename: header.Filename}
	return req, nil
}

// acceptedProof allows image/* and video/*.
func acceptedProof(mt string) bool {
	mt = strings.ToLower(strings.TrimSpace(mt))
	return strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "video/")
}

type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func unsupportedMedia(mt string) error {
	return &httpError{http.StatusUnsupportedMediaType, fmt.Sprintf("proof must be an image or video, got %q", mt)}
}

// handleCatalogActions returns the activity table grouped by category.
func (s *Server) handleCatalogActions(w http.ResponseWriter, r *http.Request) {
	type group struct {
		Category   domain.Category   `json:"category"`
		Activities []domain.Activity `json:"activities"`
	}
	var out []group
	for _, c := range domain.Categories() {
		if rows := s.catalog.ByCategory(c); len(rows) > 0 {
			out = append(out, group{Category: c, Activities: rows})
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
}
