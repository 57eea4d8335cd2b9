package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"walk-ca/internal/app"
	"walk-ca/internal/driver"
	"walk-ca/internal/series"
	"walk-ca/internal/stream"
	"walk-ca/internal/walk"
)

func newServeCmd(cfg *app.Config) *cobra.Command {
	var autoplay bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a live simulation and stream it over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := newLogger(cmd, cfg)

			hub := stream.NewHub(log)
			go hub.Run(ctx)

			drv := driver.New(cfg.DriverConfig(), driver.WithLogger(log))
			drv.Subscribe(hub)
			defer drv.Pause()
			if autoplay {
				if err := drv.Play(ctx); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           newRouter(drv, hub),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("http server listening", "addr", cfg.Addr, "ws", "/ws")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoplay, "autoplay", true, "start in play mode")
	return cmd
}

// stateResponse is the body of GET /api/state.
type stateResponse struct {
	Mode     string         `json:"mode"`
	Interval string         `json:"interval"`
	Seed     int64          `json:"seed"`
	State    walk.State     `json:"state"`
	Points   []series.Point `json:"points"`
}

type controlServer struct {
	drv *driver.Driver
}

func newRouter(drv *driver.Driver, hub *stream.Hub) *mux.Router {
	s := &controlServer{drv: drv}
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/step", s.handleStep).Methods(http.MethodPost)
	api.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)

	r.HandleFunc("/ws", hub.ServeWS)
	return r
}

func (s *controlServer) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *controlServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	// play mode outlives the request
	if err := s.drv.Play(context.Background()); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *controlServer) handlePause(w http.ResponseWriter, r *http.Request) {
	s.drv.Pause()
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *controlServer) handleStep(w http.ResponseWriter, r *http.Request) {
	res, err := s.drv.StepOnce()
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleReset accepts optional ?size= and ?seed= queries. Without a size the
// current size is kept; a seed restarts that seed's run from the beginning.
func (s *controlServer) handleReset(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]string)
	for key := range r.URL.Query() {
		if v := r.URL.Query().Get(key); v != "" {
			params[key] = v
		}
	}
	cfg := walk.FromMap(params)
	if _, ok := params["size"]; !ok {
		cfg.Size = 0
	}
	s.drv.Apply(cfg)
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *controlServer) snapshot() stateResponse {
	return stateResponse{
		Mode:     s.drv.Mode().String(),
		Interval: s.drv.Interval().String(),
		Seed:     s.drv.Seed(),
		State:    s.drv.State(),
		Points:   s.drv.Points(),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
