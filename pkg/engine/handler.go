package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/sasquatch989/mockingj/internal/matching"
	"github.com/sasquatch989/mockingj/pkg/assembler"
	"github.com/sasquatch989/mockingj/pkg/httputil"
	"github.com/sasquatch989/mockingj/pkg/schema"
	"github.com/sasquatch989/mockingj/pkg/validation"
)

// Request controls.
const (
	HeaderStatus   = "X-Mock-Status"
	HeaderScenario = "X-Mock-Scenario"
	QueryStatus    = "__status"
	QueryScenario  = "__scenario"
	QuerySelect    = "__select"
)

// MetaPrefix is the path prefix of the meta endpoints.
const MetaPrefix = "/__mockingj/"

// MaxRequestBodySize bounds request bodies read for validation.
const MaxRequestBodySize = 10 << 20

// routeUnmatched labels requests that matched no endpoint.
const routeUnmatched = "unmatched"

// ServeHTTP implements http.Handler.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, MetaPrefix) {
		e.meta.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	rec := newStatusRecorder(w)
	route := e.serveMock(rec, r)
	elapsed := time.Since(start)

	e.metrics.ObserveRequest(r.Method, route, rec.statusCode, elapsed)
	e.log.Debug("served mock request",
		"method", r.Method,
		"path", r.URL.Path,
		"route", route,
		"status", rec.statusCode,
		"duration", elapsed)
}

// serveMock writes the response and returns the route label for metrics.
func (e *Engine) serveMock(w http.ResponseWriter, r *http.Request) string {
	snap := e.current.Load()
	if snap == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "not_loaded", ErrNotLoaded.Error())
		return routeUnmatched
	}

	m, allowed, found := snap.router.Lookup(r.Method, r.URL.Path)
	if !found {
		if len(allowed) > 0 {
			httputil.WriteMethodNotAllowed(w, allowed)
		} else {
			httputil.WriteNotFound(w, "not_found", fmt.Sprintf("no endpoint matches %s %s", r.Method, r.URL.Path))
		}
		return routeUnmatched
	}
	ep := m.Value

	status, err := selectStatus(r, ep)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid_status", err.Error())
		return ep.Path
	}

	if e.validateRequests {
		result, err := e.validateRequest(snap, ep, m.Params, w, r)
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body exceeds maximum allowed size")
			return ep.Path
		case err != nil:
			httputil.WriteBadRequest(w, "unreadable_body", err.Error())
			return ep.Path
		case !result.Valid:
			validation.NewErrorResponse(result, http.StatusBadRequest).WriteResponse(w)
			return ep.Path
		}
	}

	if err := e.wait(r.Context()); err != nil {
		e.writeBuildError(w, ep, err)
		return ep.Path
	}

	resp, err := e.asm.Build(r.Context(), snap.graph, ep, status, scenarioOf(r))
	if err != nil {
		e.writeBuildError(w, ep, err)
		return ep.Path
	}

	body := resp.Body
	if expr := r.URL.Query().Get(QuerySelect); expr != "" && resp.Value != nil {
		selected, err := matching.Select(expr, resp.Value)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid_select", err.Error())
			return ep.Path
		}
		if body, err = json.Marshal(selected); err != nil {
			httputil.WriteInternalError(w, "encode_failed", err.Error())
			return ep.Path
		}
		resp.Headers.Set("Content-Type", httputil.ContentTypeJSON)
	}

	h := w.Header()
	for k, vs := range resp.Headers {
		h[k] = vs
	}
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead && body != nil && bodyAllowed(resp.Status) {
		_, _ = w.Write(body)
	}
	return ep.Path
}

// selectStatus reads the requested status, falling back to the endpoint's
// default status.
func selectStatus(r *http.Request, ep *schema.Endpoint) (int, error) {
	raw := r.Header.Get(HeaderStatus)
	if raw == "" {
		raw = r.URL.Query().Get(QueryStatus)
	}
	if raw == "" {
		return ep.DefaultStatusCode(), nil
	}
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || code < 100 || code > 599 {
		return 0, fmt.Errorf("status %q is not an HTTP status code", raw)
	}
	return code, nil
}

func scenarioOf(r *http.Request) string {
	if s := r.Header.Get(HeaderScenario); s != "" {
		return s
	}
	return r.URL.Query().Get(QueryScenario)
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}

// validateRequest checks parameters and, for JSON bodies, the request body.
func (e *Engine) validateRequest(snap *snapshot, ep *schema.Endpoint, params map[string]string, w http.ResponseWriter, r *http.Request) (*validation.Result, error) {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	result := validation.ValidateParameters(snap.graph, ep.Parameters, validation.ParamValues{
		Path:    params,
		Query:   r.URL.Query(),
		Headers: r.Header,
		Cookies: cookies,
	})
	if !ep.RequestBody.Valid() {
		return result, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		if ep.RequestRequired {
			result.AddError(&validation.FieldError{
				Field:    "$",
				Location: validation.LocationBody,
				Code:     validation.ErrCodeRequired,
				Message:  "request body is required",
			})
		}
		return result, nil
	}

	mediaType := r.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = ep.RequestMediaType
	}
	if !assembler.IsJSON(mediaType) {
		return result, nil
	}
	v, err := snap.bodies.For(ep.RequestBody)
	if err != nil {
		e.log.Warn("request body schema did not compile, skipping body validation",
			"endpoint", ep.ID(),
			"error", err)
		return result, nil
	}
	result.Merge(v.ValidateJSON(body))
	return result, nil
}

// wait applies the configured response delay. It returns early with the
// context's error when the request is cancelled.
func (e *Engine) wait(ctx context.Context) error {
	if e.delay.Max <= 0 {
		return nil
	}
	d := e.delay.Min
	if spread := e.delay.Max - e.delay.Min; spread > 0 {
		d += rand.N(spread + 1)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) writeBuildError(w http.ResponseWriter, ep *schema.Endpoint, err error) {
	var ae *assembler.AssemblyError
	switch {
	case errors.As(err, &ae):
		details := map[string]any{"hint": ae.Hint()}
		if ae.Path != "" {
			details["path"] = ae.Path
		}
		if ae.Result != nil {
			details["errors"] = ae.Result.Errors
		}
		httputil.WriteErrorWithDetails(w, ae.StatusCode(), string(ae.Kind), ae.Error(), details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.log.Debug("request abandoned", "endpoint", ep.ID(), "error", err)
		httputil.WriteError(w, http.StatusServiceUnavailable, "cancelled", err.Error())
	default:
		e.log.Error("response assembly failed", "endpoint", ep.ID(), "error", err)
		httputil.WriteInternalError(w, "assembly_failed", err.Error())
	}
}
