package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paulmach/orb/geojson"

	"github.com/unklstewy/flightarcs/internal/bootstrap"
	"github.com/unklstewy/flightarcs/internal/session"
	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/arcs"
	"github.com/unklstewy/flightarcs/pkg/coordinates"
	"github.com/unklstewy/flightarcs/pkg/mapsink"
	"github.com/unklstewy/flightarcs/pkg/routing"
)

const geoJSONContentType = "application/geo+json"

// Server holds the HTTP router and the assembled runtime
type Server struct {
	router *chi.Mux
	rt     *bootstrap.Runtime
}

func newServer(rt *bootstrap.Runtime) *Server {
	s := &Server{router: chi.NewRouter(), rt: rt}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	// Map pages are usually served from another origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleGetStatus)

		r.Get("/airports", s.handleGetAirports)
		r.Get("/airports/{code}", s.handleGetAirport)

		r.Get("/routes/{code}", s.handleGetRoutes)
		r.Get("/routes/{code}/arcs", s.handleGetArcs)
	})

	if s.rt.Metrics != nil {
		r.Handle("/metrics", s.rt.Metrics.Handler())
	}
}

// newSession builds a throwaway map session for one request. A seed query
// parameter makes the draws reproducible.
func (s *Server) newSession(r *http.Request) (*session.Session, *mapsink.Memory, error) {
	opts := s.rt.SessionOptions()
	if raw := r.URL.Query().Get("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, nil, errBadSeed
		}
		opts.Random = routing.NewSource(seed)
	}

	sink := mapsink.NewMemory(s.rt.InitialCamera())
	sess := session.New(sink, s.rt.Catalog, s.rt.Origin, opts)
	if err := sess.Start(r.Context(), s.rt.IconLoader()); err != nil {
		return nil, nil, err
	}
	return sess, sink, nil
}

var errBadSeed = errors.New("seed must be an integer")

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.rt.Config
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"origin":   s.rt.Origin.Code(),
		"airports": s.rt.Catalog.Len(),
		"hubs":     len(s.rt.Catalog.Hubs()),
		"dataset":  cfg.Dataset.Source,
		"routing": map[string]interface{}{
			"directProbability":  cfg.Routing.DirectProbability,
			"sampleProbability":  cfg.Routing.SampleProbability,
			"partnerProbability": cfg.Routing.PartnerProbability,
			"maxLegKm":           cfg.Routing.MaxLegKm,
			"arcPoints":          cfg.Routing.ArcPoints,
		},
		"metrics": s.rt.Metrics != nil,
	})
}

func (s *Server) handleGetAirports(w http.ResponseWriter, r *http.Request) {
	fc := s.rt.Catalog.FeatureCollection()
	if r.URL.Query().Get("hubs") == "true" {
		fc = geojson.NewFeatureCollection()
		for _, a := range s.rt.Catalog.Hubs() {
			fc.Append(a.Feature())
		}
	}
	respondGeoJSON(w, fc)
}

// handleGetAirport returns the airport feature and the card a click on it opens.
func (s *Server) handleGetAirport(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, chi.URLParam(r, "code"))
	if !ok {
		return
	}

	sess, _, err := s.newSession(r)
	if err != nil {
		s.fail(w, "inspect", err)
		return
	}
	popup := sess.Inspect(a)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"airport": a.Feature(),
		"popup": map[string]interface{}{
			"title":    popup.Title,
			"subtitle": popup.Subtitle,
			"image":    popup.Image,
			"offset":   popup.Offset,
			"action":   popup.Action,
		},
	})
}

type routeResponse struct {
	Path       string        `json:"path"`
	Via        string        `json:"via,omitempty"`
	DistanceKm float64       `json:"distanceKm"`
	Legs       []legResponse `json:"legs"`
}

type legResponse struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKm float64 `json:"distanceKm"`
	DistanceNm float64 `json:"distanceNm"`
	Bearing    float64 `json:"bearing"` // initial heading, degrees true
}

func newRouteResponse(r routing.Route) (routeResponse, error) {
	km, err := r.DistanceKm()
	if err != nil {
		return routeResponse{}, err
	}
	resp := routeResponse{Path: r.String(), DistanceKm: km}
	if wp, ok := r.Waypoint(); ok {
		resp.Via = wp.Code()
	}
	for _, leg := range r.Legs() {
		legKm, err := leg.DistanceKm()
		if err != nil {
			return routeResponse{}, err
		}
		resp.Legs = append(resp.Legs, legResponse{
			From:       leg.From.Code(),
			To:         leg.To.Code(),
			DistanceKm: legKm,
			DistanceNm: coordinates.DistanceNauticalMiles(leg.From.Position, leg.To.Position),
			Bearing:    coordinates.Bearing(leg.From.Position, leg.To.Position),
		})
	}
	return resp, nil
}

func (s *Server) handleGetRoutes(w http.ResponseWriter, r *http.Request) {
	out, sink, ok := s.commit(w, r)
	if !ok {
		return
	}

	routes := make([]routeResponse, 0, len(out.Routes))
	for _, route := range out.Routes {
		resp, err := newRouteResponse(route)
		if err != nil {
			s.fail(w, "routes", err)
			return
		}
		routes = append(routes, resp)
	}

	cam := sink.Camera()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"origin":      s.rt.Origin.Code(),
		"destination": out.Destination.Code(),
		"routes":      routes,
		"sampled":     out.Sampled,
		"rejected":    out.Rejected,
		"arcs":        arcs.FeatureCollection(out.Arcs),
		"camera": map[string]interface{}{
			"bounds": [][2]float64{
				{cam.Bounds.Min.Lon(), cam.Bounds.Min.Lat()},
				{cam.Bounds.Max.Lon(), cam.Bounds.Max.Lat()},
			},
			"padding": cam.Padding,
		},
	})
}

// handleGetArcs returns only the arc features. layer=direct or layer=partner
// narrows them to one styled layer.
func (s *Server) handleGetArcs(w http.ResponseWriter, r *http.Request) {
	out, _, ok := s.commit(w, r)
	if !ok {
		return
	}

	list := out.Arcs
	direct, partner := arcs.Split(out.Arcs)
	switch r.URL.Query().Get("layer") {
	case "":
	case "direct":
		list = direct
	case "partner":
		list = partner
	default:
		respondError(w, http.StatusBadRequest, "layer must be direct or partner")
		return
	}
	respondGeoJSON(w, arcs.FeatureCollection(list))
}

// commit selects the destination in the URL on a fresh session.
func (s *Server) commit(w http.ResponseWriter, r *http.Request) (session.Outcome, *mapsink.Memory, bool) {
	dest, ok := s.lookup(w, chi.URLParam(r, "code"))
	if !ok {
		return session.Outcome{}, nil, false
	}

	sess, sink, err := s.newSession(r)
	if err != nil {
		s.fail(w, "routes", err)
		return session.Outcome{}, nil, false
	}
	out, err := sess.SelectDestination(dest)
	if err != nil {
		s.fail(w, "routes", err)
		return session.Outcome{}, nil, false
	}
	return out, sink, true
}

func (s *Server) lookup(w http.ResponseWriter, code string) (airports.Airport, bool) {
	a, err := s.rt.Catalog.Lookup(code)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return airports.Airport{}, false
	}
	return a, true
}

// fail maps an error to a status code, logs server faults and counts them.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	var invalid *coordinates.InvalidCoordinateError
	switch {
	case errors.Is(err, errBadSeed):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalid):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled):
		return
	default:
		s.rt.Logger.Error("Request failed", "operation", op, "error", err)
		s.rt.ObserveError(op)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	data, err := fc.MarshalJSON()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode features")
		return
	}
	w.Header().Set("Content-Type", geoJSONContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
