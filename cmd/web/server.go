package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"classic-jersey-studio/internal/catalog"
	"classic-jersey-studio/internal/config"
	"classic-jersey-studio/internal/media"
	"classic-jersey-studio/internal/quote"
	"classic-jersey-studio/internal/session"
	"classic-jersey-studio/internal/wizard"
)

const (
	sessionCookie = "jersey_session"
	maxLogoBytes  = 10 << 20
	quickTimeout  = 30 * time.Second
)

type ctxKey struct{}

type server struct {
	sessions       *session.Store
	mockups        wizard.Generator
	tint           wizard.Generator
	quotes         *quote.Dispatcher
	engine         string
	requestTimeout time.Duration
	logger         *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

type stepView struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// stepViews holds the copy shown for each step.
var stepViews = map[wizard.Step]stepView{
	wizard.Landing:      {Title: "Make it Classic.", Subtitle: "Design your school leavers jersey."},
	wizard.ChooseDesign: {Title: "Choose your Style", Subtitle: "Select from one of our top three best sellers."},
	wizard.ChooseColors: {Title: "Select your Colours", Subtitle: "Pick the colours for your jersey."},
	wizard.UploadLogo:   {Title: "Add Your Logo", Subtitle: "Upload your school logo to be placed on the chest."},
	wizard.Preview:      {Title: "Your legacy, made real.", Subtitle: "Your design is ready for review."},
}

type stateResponse struct {
	Step       string          `json:"step"`
	StepIndex  int             `json:"stepIndex"`
	View       stepView        `json:"view"`
	Design     *catalog.Design `json:"design,omitempty"`
	Colors     []catalog.Color `json:"colors"`
	MaxColors  int             `json:"maxColors"`
	HasLogo    bool            `json:"hasLogo"`
	ResultURL  string          `json:"resultUrl,omitempty"`
	Generating string          `json:"generating,omitempty"`
	CanAdvance bool            `json:"canAdvance"`
}

type catalogResponse struct {
	Designs []catalog.Design `json:"designs"`
	Colors  []catalog.Color  `json:"colors"`
}

func (s *server) routes(static fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(quickTimeout))

			r.Get("/catalog", s.handleCatalog)
			r.Get("/state", s.handleState)
			r.Post("/next", s.handleNext)
			r.Post("/back", s.handleBack)
			r.Post("/reset", s.handleReset)
			r.Post("/design/{id}", s.handleDesign)
			r.Post("/colors/{hex}", s.handleColor)
			r.Post("/logo", s.handleLogo)
			r.Delete("/logo", s.handleClearLogo)
			r.Post("/quote", s.handleQuote)
			r.Get("/result", s.handleResult)
		})

		// Generation carries its own deadline.
		r.Post("/generate/{gender}", s.handleGenerate)
		r.Post("/tint", s.handleTint)
	})

	if static != nil {
		r.Handle("/*", http.FileServer(http.FS(static)))
	}
	return r
}

func (s *server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var resp catalogResponse
	s.sessions.View(sessionID(r), func(wz *wizard.Wizard) {
		resp = catalogResponse{Designs: wz.Catalog().Designs(), Colors: wz.Catalog().Colors()}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, http.StatusOK)
}

func (s *server) handleNext(w http.ResponseWriter, r *http.Request) {
	var ok bool
	s.sessions.Update(sessionID(r), func(wz *wizard.Wizard) { ok = wz.Next() })
	if !ok {
		writeJSON(w, http.StatusConflict, apiError{Error: "complete this step first"})
		return
	}
	s.respondState(w, r, http.StatusOK)
}

func (s *server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.sessions.Update(sessionID(r), func(wz *wizard.Wizard) { wz.Back() })
	s.respondState(w, r, http.StatusOK)
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	var busy bool
	s.sessions.Update(sessionID(r), func(wz *wizard.Wizard) {
		if _, busy = wz.InFlight(); !busy {
			wz.Reset()
		}
	})
	if busy {
		writeJSON(w, http.StatusConflict, apiError{Error: "a mockup is still rendering"})
		return
	}
	s.respondState(w, r, http.StatusOK)
}

func (s *server) handleDesign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var onStep, ok bool
	s.sessions.Update(sessionID(r), func(wz *wizard.Wizard) {
		if onStep = wz.Step() == wizard.ChooseDesign; onStep {
			ok = wz.SelectDesign(id)
		}
	})
	switch {
	case !onStep:
		writeJSON(w, http.StatusConflict, apiError{Error: "styles can only be chosen on the design step"})
	case !ok:
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown design"})
	default:
		s.respondState(w, r, http.StatusOK)
	}
}

func (s *server) handleColor(w http.ResponseWriter, r *http.Request) {
	// "#" arrives percent-encoded; bare "FFFFFF" is accepted too.
	hex, err := url.PathUnescape(chi.URLParam(r, "hex"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid colour"})
		return
	}
	var onStep, known, ok bool
	s.sessions.Update(sessionID(r), func(wz *wizard.Wizard) {
		if onStep = wz.Step() == wizard.ChooseColors; !onStep {
			return
		}
		if _, known = wz.Catalog().FindColor(hex); known {
			ok = wz.ToggleColor(hex)
		}
	})
	switch {
	case !onStep:
		writeJSON(w, http.StatusConflict, apiError{Error: "colours can only be changed on the colour step"})
	case !known:
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown colour"})
	case !ok:
		writeJSON(w, http.StatusConflict, apiError{Error: "colour limit reached for this design"})
	default:
		s.respondState(w, r, http.StatusOK)
	}
}

func (s *server) handleLogo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLogoBytes+1<<20)
	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("logo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing logo"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxLogoBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "failed to read logo"})
		return
	}
	if len(data) > maxLogoBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "logo is larger than 10 MB"})
		return
	}

	img := media.Image{MimeType: media.DetectMimeType(header.Header.Get("Content-Type"), data), Data: data}
	if !media.IsImage(img.MimeType) {
		writeJSON(w, http.StatusUnsupportedMediaType, apiError{Error: "logo must be an image"})
		return
	}

	var onStep bool
	s.sessions.Update(sessionID(r), func(wz *wizard.Wizard) {
		if onStep = wz.Step() == wizard.UploadLogo; onStep {
			wz.SetLogo(img)
		}
	})
	if !onStep {
		writeJSON(w, http.StatusConflict, apiError{Error: "logos can only be added on the logo step"})
		return
	}
	s.respondState(w, r, http.StatusOK)
}

func (s *server) handleClearLogo(w http.ResponseWriter, r *http.Request) {
	var onStep bool
	s.sessions.Update(sessionID(r), func(wz *wizard.Wizard) {
		if onStep = wz.Step() == wizard.UploadLogo; onStep {
			wz.ClearLogo()
		}
	})
	if !onStep {
		writeJSON(w, http.StatusConflict, apiError{Error: "logos can only be removed on the logo step"})
		return
	}
	s.respondState(w, r, http.StatusOK)
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	gender, ok := wizard.ParseGender(chi.URLParam(r, "gender"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "gender must be mens or womens"})
		return
	}

	engine := s.engine
	if q := r.URL.Query().Get("engine"); q != "" {
		engine = q
	}
	gen := s.mockups
	if engine == config.EngineTint || gen == nil {
		gen = s.tint
	}
	s.generate(w, r, gender, gen)
}

func (s *server) handleTint(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, wizard.Mens, s.tint)
}

// generate holds the session lock only to begin and finish so other requests
// for the same session stay responsive while the model runs.
func (s *server) generate(w http.ResponseWriter, r *http.Request, gender wizard.Gender, gen wizard.Generator) {
	if gen == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "mockup generation is not configured"})
		return
	}

	id := sessionID(r)
	var (
		req       wizard.Request
		ok, inUse bool
	)
	s.sessions.Update(id, func(wz *wizard.Wizard) {
		if _, inUse = wz.InFlight(); inUse {
			return
		}
		req, ok = wz.BeginGenerate(gender)
	})
	switch {
	case inUse:
		writeJSON(w, http.StatusConflict, apiError{Error: "a mockup is already rendering"})
		return
	case !ok:
		writeJSON(w, http.StatusConflict, apiError{Error: "choose a design and at least one colour first"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	img, genErr := gen.Generate(ctx, req)

	var err error
	s.sessions.Update(id, func(wz *wizard.Wizard) { err = wz.FinishGenerate(img, genErr) })
	if err != nil {
		s.logger.Error("mockup generation failed", "err", err, "design", req.Design.ID, "gender", string(gender))
		writeJSON(w, http.StatusBadGateway, apiError{Error: "We encountered an issue crafting your AI mockup. Please try again."})
		return
	}
	s.respondState(w, r, http.StatusOK)
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var contact quote.Contact
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&contact); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json"})
		return
	}

	var (
		result     *media.Image
		designName string
		colorNames []string
	)
	s.sessions.View(sessionID(r), func(wz *wizard.Wizard) {
		result = wz.Design().Result
		if d, ok := wz.Selected(); ok {
			designName = d.Name
		}
		colorNames = wz.ColorNames()
	})
	if result == nil {
		writeJSON(w, http.StatusConflict, apiError{Error: "generate a mockup first"})
		return
	}

	dispatch, err := s.quotes.Submit(r.Context(), contact, result, designName, colorNames)
	if errors.Is(err, quote.ErrInvalidContact) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "quote request failed"})
		return
	}
	writeJSON(w, http.StatusOK, dispatch)
}

func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	var result *media.Image
	var designName string
	s.sessions.View(sessionID(r), func(wz *wizard.Wizard) {
		result = wz.Design().Result
		if d, ok := wz.Selected(); ok {
			designName = d.Name
		}
	})
	if result == nil {
		writeJSON(w, http.StatusNotFound, apiError{Error: "no result yet"})
		return
	}

	w.Header().Set("content-type", result.MimeType)
	w.Header().Set("content-length", strconv.Itoa(len(result.Data)))
	w.Header().Set("content-disposition", `inline; filename="`+quote.AttachmentName(designName)+`"`)
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *server) respondState(w http.ResponseWriter, r *http.Request, status int) {
	var resp stateResponse
	s.sessions.View(sessionID(r), func(wz *wizard.Wizard) { resp = buildState(wz) })
	writeJSON(w, status, resp)
}

func buildState(wz *wizard.Wizard) stateResponse {
	d := wz.Design()
	resp := stateResponse{
		Step:       wz.Step().String(),
		StepIndex:  int(wz.Step()),
		View:       stepViews[wz.Step()],
		Colors:     wz.SelectedColors(),
		MaxColors:  wz.MaxColors(),
		HasLogo:    d.Logo != nil,
		CanAdvance: wz.CanAdvance(),
	}
	if sel, ok := wz.Selected(); ok {
		resp.Design = &sel
	}
	if d.Result != nil {
		resp.ResultURL = "/api/result"
	}
	if g, pending := wz.InFlight(); pending {
		resp.Generating = string(g)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}
