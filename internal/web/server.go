// Package web exposes the engine over plain HTML links and forms. Every
// request maps to exactly one Apply or CurrentView call; nothing is kept
// between requests. A successful action answers 303 See Other to the index,
// which shows the outcome carried in the query.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/idolab/internal/balance"
	"github.com/tatianab/idolab/internal/models"
	"github.com/tatianab/idolab/internal/rules"
)

//go:embed templates/page.html
var templateFS embed.FS

// Simulation is the engine surface the bridge depends on.
type Simulation interface {
	Apply(rules.Action) (rules.Outcome, error)
	CurrentView() *models.World
}

type Server struct {
	sim     Simulation
	balance balance.Balance
	parser  rules.Parser
	page    *template.Template
	log     *slog.Logger
}

func NewServer(sim Simulation, b balance.Balance, log *slog.Logger) *Server {
	funcs := template.FuncMap{
		"actionURL": actionURL,
		"hidden":    hiddenParams,
	}
	page := template.Must(template.New("page.html").Funcs(funcs).ParseFS(templateFS, "templates/page.html"))
	return &Server{
		sim:     sim,
		balance: b,
		parser:  rules.NewParser(b),
		page:    page,
		log:     log,
	}
}

// Handler returns the routed handler, wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /state.yaml", s.handleState)
	mux.HandleFunc("GET /action/{kind}", s.handleAction)
	mux.HandleFunc("POST /action/{kind}", s.handleAction)
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled. A failure to bind is
// returned immediately.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("web bridge listening", "addr", ln.Addr().String())
	if port := portOf(ln.Addr()); port != "" {
		for _, ip := range localAddrs() {
			s.log.Info("reachable at", "url", "http://"+net.JoinHostPort(ip, port)+"/")
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// outcomeView is an outcome as carried through the redirect after an action.
type outcomeView struct {
	Summary string
	Changes string
}

type pageData struct {
	World      *models.World
	Outcome    *outcomeView
	Choices    []rules.Choice
	Candidates []rules.Candidate
	Specs      []rules.Spec
	Balance    balance.Balance
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var out *outcomeView
	if q := r.URL.Query(); q.Has("outcome") {
		out = &outcomeView{Summary: q.Get("outcome"), Changes: q.Get("changes")}
	}
	s.render(w, s.sim.CurrentView(), out)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.reject(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	a, err := s.parser.Parse(r.PathValue("kind"), r.Form)
	if err != nil {
		s.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.sim.Apply(a)
	if err != nil {
		var rv *rules.RuleViolation
		if errors.As(err, &rv) {
			s.reject(w, http.StatusConflict, "rejected: "+rv.Error())
			return
		}
		s.reject(w, http.StatusBadRequest, err.Error())
		return
	}
	// Redirect so a reload shows the page again instead of repeating the
	// action. The index reads the world afresh; if another client acted in
	// between, the page shows that later state too.
	http.Redirect(w, r, outcomeURL(out), http.StatusSeeOther)
}

// outcomeURL is the index page showing out.
func outcomeURL(out rules.Outcome) string {
	q := url.Values{"outcome": {out.Summary}, "changes": {out.Delta.String()}}
	return "/?" + q.Encode()
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	data, err := yaml.Marshal(s.sim.CurrentView())
	if err != nil {
		s.log.Error("marshal snapshot", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Write(data)
}

func (s *Server) render(w http.ResponseWriter, world *models.World, out *outcomeView) {
	data := pageData{
		World:   world,
		Outcome: out,
		Choices: rules.Legal(world, s.balance),
		Specs:   rules.Specs,
		Balance: s.balance,
	}
	if world.Calendar.Phase == models.PhaseCEO {
		data.Candidates = rules.CandidatePool(world, s.balance)
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.log.Error("render page", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (s *Server) reject(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%s\n\nBack: /\n", msg)
}

func actionURL(a rules.Action) template.URL {
	u := url.URL{Path: "/action/" + string(a.Kind()), RawQuery: a.Params().Encode()}
	return template.URL(u.String())
}

// hiddenParams returns the parameters a budget form carries unchanged.
func hiddenParams(a rules.Action) map[string]string {
	out := map[string]string{}
	for k, v := range a.Params() {
		if k != "budget" && len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"dur", time.Since(start),
		)
	})
}

func portOf(addr net.Addr) string {
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return port
}

// localAddrs lists the machine's IPv4 addresses, loopback first, so a phone
// on the same network knows where to point.
func localAddrs() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return []string{"127.0.0.1"}
	}
	out := []string{"127.0.0.1"}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
			continue
		}
		out = append(out, ipnet.IP.String())
	}
	return out
}
