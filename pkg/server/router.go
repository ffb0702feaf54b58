package server

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/showroomhq/showroom/pkg/callqueue"
	"github.com/showroomhq/showroom/pkg/chat"
	"github.com/showroomhq/showroom/pkg/collab"
	"github.com/showroomhq/showroom/pkg/inventory"
	"github.com/showroomhq/showroom/pkg/stream"
	"github.com/showroomhq/showroom/pkg/wire"
	"github.com/showroomhq/showroom/pkg/ws"
)

// Router assembles the component graph and mounts every endpoint on one
// mux. Construction wires; Run (on Server) starts the moving parts.
type Router struct {
	settings Settings

	store       *callqueue.Store
	service     *callqueue.Service
	janitor     *callqueue.Janitor
	backend     stream.Backend
	broadcaster *ws.Broadcaster
	rooms       *collab.Manager

	mux *http.ServeMux
}

func NewRouter(settings Settings) (*Router, error) {
	store := callqueue.NewStore()

	backend, err := stream.NewBackend(stream.Settings{
		RedisEnabled:  settings.RedisEnabled,
		RedisAddr:     settings.RedisAddr,
		RedisGroup:    settings.RedisGroup,
		RedisConsumer: settings.RedisConsumer,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build stream backend")
	}

	repPool := wire.NewPool("monitors", 0, nil)
	broadcaster := ws.NewBroadcaster(store, backend, repPool)
	service := callqueue.NewService(store, broadcaster)
	janitor := callqueue.NewJanitor(store, broadcaster, settings.JanitorInterval, settings.GraceWindow, settings.CollabTTL)
	rooms := collab.NewManager(settings.RoomIdleTimeout)
	handler := ws.NewHandler(service, repPool)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ws/call", handler.ServeShopper)
	mux.HandleFunc("/api/ws/calls/monitor", handler.ServeRep)
	mux.Handle("/api/ws/collaboration/{shopperId}", handler.ServeCollab(rooms))
	mux.Handle("GET /api/cars", inventory.NewCatalog())

	if settings.OpenAIAPIKey != "" {
		llm, err := chat.NewOpenAI(settings.OpenAIAPIKey, settings.OpenAIModel)
		if err != nil {
			return nil, errors.Wrap(err, "build llm provider")
		}
		mux.Handle("POST /api/chat", chat.NewHandler(llm, chat.NewManager()))
	} else {
		log.Warn().Str("component", "server").Msg("no LLM API key configured, chat endpoint disabled")
		mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "assistant unavailable", http.StatusServiceUnavailable)
		})
	}

	return &Router{
		settings:    settings,
		store:       store,
		service:     service,
		janitor:     janitor,
		backend:     backend,
		broadcaster: broadcaster,
		rooms:       rooms,
		mux:         mux,
	}, nil
}

func (r *Router) Store() *callqueue.Store     { return r.store }
func (r *Router) Service() *callqueue.Service { return r.service }
func (r *Router) Mux() *http.ServeMux         { return r.mux }

// BuildHTTPServer constructs the http.Server with the listen address from
// settings. Duplex connections hijack out of these timeouts after the
// upgrade; they only bound the plain HTTP surface.
func (r *Router) BuildHTTPServer() *http.Server {
	return &http.Server{
		Addr:              r.settings.Addr(),
		Handler:           r.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
