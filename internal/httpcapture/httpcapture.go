// Package httpcapture snapshots the inbound HTTP request metadata that
// becomes a job's CapturedContext (spec.md §3 "headers, route_params,
// query_params"), adapted from the teacher's api.Handlers reading
// c.Get/c.Params/c.Query ad hoc at each call site into a single,
// reusable capture step.
package httpcapture

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kaushik2901/async-endpoints/internal/jobs"
)

// Capture snapshots headers and query params from a stdlib request.
// RouteParams is left empty since net/http carries no router of its own;
// callers using a stdlib-compatible router should merge their own
// extracted path params in afterward.
func Capture(r *http.Request) jobs.CapturedContext {
	headers := make(map[string][]*string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = toPointerSlice(values)
	}

	query := make(map[string][]*string)
	for name, values := range r.URL.Query() {
		query[name] = toPointerSlice(values)
	}

	return jobs.CapturedContext{
		Headers:     headers,
		QueryParams: query,
	}
}

// CaptureFiber snapshots headers, route params, and query params from a
// fiber.Ctx, the routing collaborator cmd/apiserver is built on.
func CaptureFiber(c *fiber.Ctx) jobs.CapturedContext {
	headers := make(map[string][]*string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		v := string(value)
		headers[k] = append(headers[k], &v)
	})

	route := make(map[string]*string)
	for key, value := range c.AllParams() {
		v := value
		route[key] = &v
	}

	query := make(map[string][]*string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		v := string(value)
		query[k] = append(query[k], &v)
	})

	return jobs.CapturedContext{
		Headers:     headers,
		RouteParams: route,
		QueryParams: query,
	}
}

func toPointerSlice(values []string) []*string {
	out := make([]*string, len(values))
	for i, v := range values {
		v := v
		out[i] = &v
	}
	return out
}
