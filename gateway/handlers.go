package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/c360/textann/entity"
	"github.com/c360/textann/model"
	"github.com/c360/textann/reply"
)

// annotateRequest is the body of POST /v1/annotate.
type annotateRequest struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Types    []entity.Type `json:"types,omitempty"`

	// ReferenceTime anchors relative date expressions. Absent means now.
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
	// TimeZone is an IANA zone name, e.g. "Europe/Berlin".
	TimeZone string `json:"time_zone,omitempty"`
	// Locale disambiguates numeric date formats, BCP-47 form.
	Locale string `json:"locale,omitempty"`
}

type annotateResponse struct {
	Language    string              `json:"language"`
	Annotations []entity.Annotation `json:"annotations"`
}

func (g *Gateway) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	id, ok := model.FromLanguageTag(req.Language)
	if !ok {
		g.writeError(w, http.StatusUnprocessableEntity, "unsupported language")
		return
	}

	params := entity.DefaultParams()
	if len(req.Types) > 0 {
		params.TypesFilter = entity.NewTypeSet(req.Types...)
	}
	if req.ReferenceTime != nil {
		params.ReferenceTime = *req.ReferenceTime
	}
	if req.TimeZone != "" {
		loc, err := time.LoadLocation(req.TimeZone)
		if err != nil {
			g.writeError(w, http.StatusBadRequest, "unknown time zone")
			return
		}
		params.ReferenceTimeZone = loc
	}
	params.PreferredLocale = req.Locale

	annotator, err := g.annotators.AnnotatorFor(id)
	if err != nil {
		g.logger.Warn("annotator lookup failed", "language", id, "error", err)
		g.writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
		return
	}

	annotations, err := annotator.Annotate(r.Context(), req.Text, params)
	if err != nil {
		g.logger.Warn("annotation failed", "language", id, "error", err)
		g.writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
		return
	}
	if annotations == nil {
		annotations = []entity.Annotation{}
	}

	g.writeJSON(w, http.StatusOK, annotateResponse{
		Language:    id.LanguageTag(),
		Annotations: annotations,
	})
}

// modelStatus is one entry of GET /v1/models.
type modelStatus struct {
	Language string `json:"language"`
	State    string `json:"state"`
}

func (g *Gateway) handleListModels(w http.ResponseWriter, _ *http.Request) {
	ids := model.AllIdentifiers()
	statuses := make([]modelStatus, 0, len(ids))
	for _, id := range ids {
		statuses = append(statuses, modelStatus{
			Language: id.LanguageTag(),
			State:    g.models.StateOf(id).String(),
		})
	}
	g.writeJSON(w, http.StatusOK, map[string]any{"models": statuses})
}

func (g *Gateway) handleModelStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := model.FromLanguageTag(r.PathValue("tag"))
	if !ok {
		g.writeError(w, http.StatusNotFound, "unknown language model")
		return
	}
	g.writeJSON(w, http.StatusOK, modelStatus{
		Language: id.LanguageTag(),
		State:    g.models.StateOf(id).String(),
	})
}

// handleDownload starts a model download. The default response is 202 with
// the transfer still running; ?wait=true blocks until the model is
// available or the request context ends.
func (g *Gateway) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := model.FromLanguageTag(r.PathValue("tag"))
	if !ok {
		g.writeError(w, http.StatusNotFound, "unknown language model")
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		if err := g.models.DownloadIfNeeded(r.Context(), id, g.conditions); err != nil {
			g.logger.Warn("download failed", "language", id, "error", err)
			g.writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
			return
		}
		g.writeJSON(w, http.StatusOK, modelStatus{
			Language: id.LanguageTag(),
			State:    model.StateAvailable.String(),
		})
		return
	}

	if _, err := g.models.RequestDownload(id, g.conditions); err != nil {
		g.logger.Warn("download request failed", "language", id, "error", err)
		g.writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
		return
	}
	g.writeJSON(w, http.StatusAccepted, modelStatus{
		Language: id.LanguageTag(),
		State:    g.models.StateOf(id).String(),
	})
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := model.FromLanguageTag(r.PathValue("tag"))
	if !ok {
		g.writeError(w, http.StatusNotFound, "unknown language model")
		return
	}

	if err := g.models.Delete(r.Context(), id); err != nil {
		g.logger.Warn("model delete failed", "language", id, "error", err)
		g.writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// repliesRequest is the body of POST /v1/replies.
type repliesRequest struct {
	Conversation []reply.Message `json:"conversation"`
}

func (g *Gateway) handleReplies(w http.ResponseWriter, r *http.Request) {
	var req repliesRequest
	if !g.decodeBody(w, r, &req) {
		return
	}

	result, err := g.replier.SuggestReplies(r.Context(), req.Conversation)
	if err != nil {
		g.logger.Warn("reply suggestion failed", "error", err)
		g.writeError(w, mapErrorToHTTPStatus(err), sanitizeError(err))
		return
	}
	g.writeJSON(w, http.StatusOK, result)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	g.mu.RLock()
	running := g.running
	startTime := g.startTime
	g.mu.RUnlock()

	if !running {
		// Handler can be mounted without Start, e.g. behind httptest.
		startTime = time.Now()
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime":   time.Since(startTime).String(),
		"requests": g.requestsTotal.Load(),
		"failed":   g.requestsFailed.Load(),
	})
}

// decodeBody reads and decodes a JSON request body, enforcing the size
// limit. A false return means the error response was already written.
func (g *Gateway) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer func() { _ = r.Body.Close() }()

	bodyReader := io.LimitReader(r.Body, g.config.MaxRequestSize+1)
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		g.writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if int64(len(body)) > g.config.MaxRequestSize {
		g.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		g.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// Compile-time check that the reply ranker satisfies the gateway's
// dependency interface.
var _ Replier = (*reply.Ranker)(nil)
