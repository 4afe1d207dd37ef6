package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jomessina-code/EVS14/internal/adapt"
	"github.com/jomessina-code/EVS14/internal/domain"
	"github.com/jomessina-code/EVS14/internal/imaging"
	"github.com/jomessina-code/EVS14/internal/preset"
	"github.com/jomessina-code/EVS14/internal/session"
)

type catalogResponse struct {
	GameTypes     []preset.NamedOption      `json:"gameTypes"`
	GraphicStyles []preset.NamedOption      `json:"graphicStyles"`
	Ambiances     []preset.NamedOption      `json:"ambiances"`
	Subjects      []preset.NamedOption      `json:"subjects"`
	Languages     []preset.NamedOption      `json:"languages"`
	Formats       []domain.FormatDefinition `json:"formats"`
	Presets       []domain.UniversePreset   `json:"presets"`
}

type adaptationRequest struct {
	Format domain.Format         `json:"format"`
	Text   *domain.TextSelection `json:"text,omitempty"`
	Crop   *domain.CropHint      `json:"crop,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"credentialsReady": s.pipe.Credentials().Ready(),
	})
}

func (s *Server) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{
		GameTypes:     preset.GameTypes(),
		GraphicStyles: preset.GraphicStyles(),
		Ambiances:     preset.Ambiances(),
		Subjects:      preset.Subjects(),
		Languages:     preset.Languages(),
		Formats:       domain.Formats(),
		Presets:       s.catalog.All(),
	})
}

func (s *Server) selectCredentials(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey string `json:"apiKey"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "select credentials", err)
		return
	}
	if strings.TrimSpace(body.APIKey) == "" {
		s.fail(w, r, "select credentials", fmt.Errorf("%w: apiKey is required", errBadRequest))
		return
	}
	if err := s.pipe.SelectCredentials(r.Context(), body.APIKey); err != nil {
		s.fail(w, r, "select credentials", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (s *Server) createPreset(w http.ResponseWriter, r *http.Request) {
	var p domain.UniversePreset
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, "create preset", err)
		return
	}
	saved, err := s.catalog.Add(p)
	if err != nil {
		s.fail(w, r, "create preset", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) updatePreset(w http.ResponseWriter, r *http.Request) {
	var p domain.UniversePreset
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, "update preset", err)
		return
	}
	saved, err := s.catalog.Update(mux.Vars(r)["id"], p)
	if err != nil {
		s.fail(w, r, "update preset", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.catalog.Delete(id); err != nil {
		s.fail(w, r, "delete preset", err)
		return
	}
	s.sessions.RemoveUniverse(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) suggestPreset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "suggest preset", err)
		return
	}
	ctx, cancel := s.runContext(r)
	defer cancel()

	draft, err := s.pipe.SuggestPreset(ctx, body.Theme)
	if err != nil {
		s.fail(w, r, "suggest preset", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	st := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"id": st.ID()})
}

func (s *Server) getSnapshot(w http.ResponseWriter, _ *http.Request, st *session.State) {
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) getOptions(w http.ResponseWriter, _ *http.Request, st *session.State) {
	writeJSON(w, http.StatusOK, st.Options())
}

// putOptions merges the body over the current options; absent fields keep their value.
func (s *Server) putOptions(w http.ResponseWriter, r *http.Request, st *session.State) {
	opts := st.Options()
	if err := decodeJSON(w, r, &opts); err != nil {
		s.fail(w, r, "update options", err)
		return
	}
	if !opts.Format.Valid() {
		s.fail(w, r, "update options", fmt.Errorf("%w: unknown format %q", errBadRequest, opts.Format))
		return
	}
	writeJSON(w, http.StatusOK, st.SetOptions(opts))
}

func (s *Server) toggleUniverse(w http.ResponseWriter, r *http.Request, st *session.State) {
	var (
		active bool
		err    error
	)
	opts := st.UpdateOptions(func(o *domain.GenerationOptions) {
		active, err = s.catalog.Toggle(o, mux.Vars(r)["id"])
	})
	if err != nil {
		s.fail(w, r, "toggle universe", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active, "options": opts})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, st *session.State) {
	if st.Busy(domain.ActivityPipeline) {
		s.fail(w, r, "generate", errBusy)
		return
	}
	ctx, cancel := s.runContext(r)
	defer cancel()

	result, err := s.pipe.Generate(ctx, st)
	if err != nil {
		s.fail(w, r, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) variation(w http.ResponseWriter, r *http.Request, st *session.State) {
	if st.Busy(domain.ActivityPipeline) {
		s.fail(w, r, "variation", errBusy)
		return
	}
	ctx, cancel := s.runContext(r)
	defer cancel()

	result, err := s.pipe.Variation(ctx, st)
	if err != nil {
		s.fail(w, r, "variation", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) modify(w http.ResponseWriter, r *http.Request, st *session.State) {
	var body struct {
		Request string `json:"request"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "modify", err)
		return
	}
	if st.Busy(domain.ActivityPipeline) {
		s.fail(w, r, "modify", errBusy)
		return
	}
	ctx, cancel := s.runContext(r)
	defer cancel()

	result, err := s.pipe.Modify(ctx, st, body.Request)
	if err != nil {
		s.fail(w, r, "modify", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) adapt(w http.ResponseWriter, r *http.Request, st *session.State) {
	var body []adaptationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "adapt", err)
		return
	}
	cur, ok := st.Current()
	if !ok {
		s.fail(w, r, "adapt", adapt.ErrNoMaster)
		return
	}

	reqs := make([]adapt.Request, 0, len(body))
	for _, b := range body {
		if !b.Format.Valid() {
			s.fail(w, r, "adapt", fmt.Errorf("%w: unknown format %q", errBadRequest, b.Format))
			return
		}
		req := adapt.Request{Format: b.Format, Crop: b.Crop}
		if b.Text != nil {
			req.Text = *b.Text
		} else if !cur.Options.HideText {
			req.Text = domain.DefaultTextSelection(cur.Options)
		}
		if req.Crop == nil {
			if hint, ok := domain.DefaultCropHint(b.Format); ok {
				req.Crop = &hint
			}
		}
		reqs = append(reqs, req)
	}

	if st.Busy(domain.ActivityAdaptation) {
		s.fail(w, r, "adapt", errBusy)
		return
	}
	ctx, cancel := s.runContext(r)
	defer cancel()

	results, err := s.adapter.Run(ctx, st, reqs)
	if err != nil {
		s.fail(w, r, "adapt", err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) getPrompt(w http.ResponseWriter, _ *http.Request, st *session.State) {
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":     s.pipe.CurrentPrompt(st),
		"customized": st.PromptOverride() != "",
	})
}

func (s *Server) refinePrompt(w http.ResponseWriter, r *http.Request, st *session.State) {
	var body struct {
		Feedback string `json:"feedback"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "refine prompt", err)
		return
	}
	ctx, cancel := s.runContext(r)
	defer cancel()

	prompt, err := s.pipe.RefinePrompt(ctx, st, body.Feedback)
	if err != nil {
		s.fail(w, r, "refine prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (s *Server) correctText(w http.ResponseWriter, r *http.Request, st *session.State) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "correct text", err)
		return
	}
	ctx, cancel := s.runContext(r)
	defer cancel()

	text, err := s.pipe.CorrectText(ctx, st, body.Text)
	if err != nil {
		s.fail(w, r, "correct text", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) getHistory(w http.ResponseWriter, _ *http.Request, st *session.State) {
	writeJSON(w, http.StatusOK, st.History())
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request, st *session.State) {
	if err := st.DeleteHistory(mux.Vars(r)["hid"]); err != nil {
		s.fail(w, r, "delete history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restoreHistory(w http.ResponseWriter, r *http.Request, st *session.State) {
	if st.Busy(domain.ActivityPipeline) {
		s.fail(w, r, "restore history", errBusy)
		return
	}
	result, err := st.Restore(mux.Vars(r)["hid"])
	if err != nil {
		s.fail(w, r, "restore history", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, st *session.State) {
	enc := s.encoding
	if v := r.URL.Query().Get("encoding"); v != "" {
		enc = imaging.ParseEncoding(v)
	}

	pack, err := s.pipe.ExportPack(st, enc, imaging.DefaultWebPQuality)
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}

	var buf bytes.Buffer
	skipped, err := pack.WriteZip(&buf)
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}
	if len(skipped) > 0 {
		s.logger.Warn("export skipped formats", "session_id", st.ID(), "count", len(skipped))
	}

	w.Header().Set("content-type", "application/zip")
	w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", pack.ArchiveName()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) events(w http.ResponseWriter, r *http.Request, st *session.State) {
	s.hub.Serve(w, r, st.ID(), st.Progress(domain.ActivityPipeline), st.Progress(domain.ActivityAdaptation))
}
