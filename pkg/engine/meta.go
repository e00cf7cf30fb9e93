package engine

import (
	"net/http"
	"time"

	"github.com/sasquatch989/mockingj/pkg/httputil"
	"github.com/sasquatch989/mockingj/pkg/schema"
)

// EndpointInfo describes one endpoint on /__mockingj/endpoints.
type EndpointInfo struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operationId,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Statuses    []string `json:"statuses"`
	Default     int      `json:"defaultStatus"`
}

// HealthInfo is the body of /__mockingj/health.
type HealthInfo struct {
	Status    string `json:"status"`
	Title     string `json:"title,omitempty"`
	Version   string `json:"specVersion,omitempty"`
	Endpoints int    `json:"endpoints"`
	Schemas   int    `json:"schemas"`
	LoadedAt  string `json:"loadedAt,omitempty"`
	Uptime    int    `json:"uptimeSeconds"`
	Cache     *int   `json:"cacheEntries,omitempty"`
}

type metaHandler struct {
	e   *Engine
	mux *http.ServeMux
}

func newMetaHandler(e *Engine) *metaHandler {
	h := &metaHandler{e: e, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET "+MetaPrefix+"health", h.handleHealth)
	h.mux.HandleFunc("GET "+MetaPrefix+"endpoints", h.handleEndpoints)
	h.mux.HandleFunc("GET "+MetaPrefix+"schemas", h.handleSchemas)
	h.mux.HandleFunc("GET "+MetaPrefix+"schemas/{name}", h.handleSchema)
	h.mux.HandleFunc("POST "+MetaPrefix+"reload", h.handleReload)
	h.mux.HandleFunc("DELETE "+MetaPrefix+"cache", h.handleCache)
	h.mux.Handle("GET "+MetaPrefix+"metrics", e.metrics.Handler())
	return h
}

func (h *metaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *metaHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := HealthInfo{Status: "ok", Uptime: int(h.e.Uptime().Seconds())}
	if c := h.e.cache; c != nil {
		n := c.Len()
		info.Cache = &n
	}
	snap := h.e.current.Load()
	if snap == nil {
		info.Status = "not_loaded"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, info)
		return
	}
	info.Title = snap.graph.Title()
	info.Version = snap.graph.Version()
	info.Endpoints = len(snap.graph.Endpoints())
	info.Schemas = len(snap.graph.Names())
	info.LoadedAt = snap.loadedAt.UTC().Format(time.RFC3339)
	httputil.WriteOK(w, info)
}

func (h *metaHandler) handleEndpoints(w http.ResponseWriter, _ *http.Request) {
	eps := h.e.GetEndpoints()
	out := make([]EndpointInfo, 0, len(eps))
	for _, ep := range eps {
		out = append(out, DescribeEndpoint(ep))
	}
	httputil.WriteOK(w, out)
}

// DescribeEndpoint summarizes ep for listings.
func DescribeEndpoint(ep *schema.Endpoint) EndpointInfo {
	return EndpointInfo{
		Method:      ep.Method,
		Path:        ep.Path,
		OperationID: ep.OperationID,
		Summary:     ep.Summary,
		Statuses:    ep.StatusKeys(),
		Default:     ep.DefaultStatusCode(),
	}
}

func (h *metaHandler) handleSchemas(w http.ResponseWriter, _ *http.Request) {
	names := h.e.GetSchemas()
	if names == nil {
		names = []string{}
	}
	httputil.WriteOK(w, names)
}

func (h *metaHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	g := h.e.Graph()
	if g == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "not_loaded", ErrNotLoaded.Error())
		return
	}
	n, ok := g.Named(name)
	if !ok {
		httputil.WriteNotFound(w, "schema_not_found", "no schema named "+name)
		return
	}
	httputil.WriteOK(w, g.ExportJSONSchema(n.ID))
}

func (h *metaHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.e.Reload(r.Context()); err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, "reload_failed", err.Error())
		return
	}
	httputil.WriteOK(w, map[string]int{
		"endpoints": len(h.e.GetEndpoints()),
		"schemas":   len(h.e.GetSchemas()),
	})
}

func (h *metaHandler) handleCache(w http.ResponseWriter, r *http.Request) {
	c := h.e.cache
	if c == nil {
		httputil.WriteOK(w, map[string]int{"removed": 0})
		return
	}
	var removed int
	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		removed = c.Invalidate(prefix)
	} else {
		removed = c.Clear()
	}
	h.e.log.Info("cache invalidated", "prefix", r.URL.Query().Get("prefix"), "removed", removed)
	httputil.WriteOK(w, map[string]int{"removed": removed})
}
