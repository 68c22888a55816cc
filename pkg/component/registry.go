package component

import (
	"fmt"
	"runtime/debug"
	"sync"

	"visuallm-be/internal/pkg/logger"
	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/element"
)

// Response is the result of one successful invocation.
type Response struct {
	Component       string
	Fields          Fields
	ChangedElements map[string]element.Payload
}

// Body flattens the response into the JSON envelope sent to the frontend.
func (r Response) Body() map[string]any {
	body := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		body[k] = v
	}
	body["result"] = "success"
	body["changedElements"] = r.ChangedElements
	return body
}

// Route describes a registered endpoint.
type Route struct {
	Component string
	Method    Method
	Path      string
	FetchAll  bool
}

// Description is a component with all of its elements serialized.
type Description struct {
	Name     string
	Title    string
	Elements []element.Payload
}

type entry struct {
	// mu serializes callbacks on one component.
	mu        sync.Mutex
	component Component
}

type route struct {
	owner    *entry
	endpoint Endpoint
}

type routeKey struct {
	method Method
	path   string
}

// Registry is built once at startup and dispatches requests to components.
type Registry struct {
	entries []*entry
	byName  map[string]*entry
	routes  map[routeKey]*route
	order   []Route
	logger  logger.ILogger
}

func NewRegistry(log logger.ILogger) *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		routes: make(map[routeKey]*route),
		logger: log,
	}
}

// Register adds c and its endpoints. Names and (method, path) pairs must be unique.
func (r *Registry) Register(c Component) error {
	if c.Name() == "" {
		return fmt.Errorf("component has no name")
	}
	if _, dup := r.byName[c.Name()]; dup {
		return fmt.Errorf("component %q already registered", c.Name())
	}

	e := &entry{component: c}
	endpoints := c.Endpoints()
	seen := make(map[routeKey]bool, len(endpoints))
	for _, ep := range endpoints {
		key := routeKey{method: ep.Method, path: ep.Path}
		if _, dup := r.routes[key]; dup || seen[key] {
			return fmt.Errorf("endpoint %s %s of %q already registered", ep.Method, ep.Path, c.Name())
		}
		if ep.Callback == nil {
			return fmt.Errorf("endpoint %s %s of %q has no callback", ep.Method, ep.Path, c.Name())
		}
		seen[key] = true
	}

	r.entries = append(r.entries, e)
	r.byName[c.Name()] = e
	for _, ep := range endpoints {
		r.routes[routeKey{method: ep.Method, path: ep.Path}] = &route{owner: e, endpoint: ep}
		r.order = append(r.order, Route{Component: c.Name(), Method: ep.Method, Path: ep.Path, FetchAll: ep.FetchAll})
	}

	r.logger.Info("Registry", "Component registered", map[string]interface{}{
		"component": c.Name(),
		"endpoints": len(endpoints),
	})
	return nil
}

// Routes lists endpoints in registration order.
func (r *Registry) Routes() []Route {
	return append([]Route(nil), r.order...)
}

// Invoke runs the endpoint's callback with the owning component locked, then
// collects and clears the changed elements. On error nothing is collected, so the
// dirty flags survive until the next successful response.
func (r *Registry) Invoke(method Method, path string, req Request) (resp Response, err error) {
	rt, ok := r.routes[routeKey{method: method, path: path}]
	if !ok {
		return Response{}, apperr.New(apperr.ErrUnknownEndpoint, "path", "%s %s", method, path)
	}

	owner := rt.owner
	owner.mu.Lock()
	defer owner.mu.Unlock()

	name := owner.component.Name()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Registry", "Callback panicked", map[string]interface{}{
				"component": name,
				"path":      path,
				"panic":     fmt.Sprint(p),
				"stack":     string(debug.Stack()),
			})
			err = fmt.Errorf("callback %s %s panicked: %v", method, path, p)
		}
	}()

	fields, err := rt.endpoint.Callback(req)
	if err != nil {
		r.logger.Warn("Registry", "Callback failed", map[string]interface{}{
			"component": name,
			"path":      path,
			"kind":      string(apperr.KindOf(err)),
			"field":     apperr.FieldOf(err),
			"error":     err.Error(),
		})
		return Response{}, err
	}

	changed := make(map[string]element.Payload)
	if rt.endpoint.FetchAll {
		for _, e := range r.entries {
			collect(e.component.Elements(), false, changed)
		}
	} else {
		collect(owner.component.Elements(), false, changed)
	}

	r.logger.Debug("Registry", "Callback succeeded", map[string]interface{}{
		"component": name,
		"path":      path,
		"changed":   len(changed),
	})
	return Response{Component: name, Fields: fields, ChangedElements: changed}, nil
}

// Describe serializes every element of every component and clears their flags.
// It backs the initial page load.
func (r *Registry) Describe() []Description {
	out := make([]Description, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		d := Description{Name: e.component.Name(), Title: e.component.Title()}
		for _, el := range e.component.Elements() {
			p, _ := el.Flush(true)
			d.Elements = append(d.Elements, p)
		}
		e.mu.Unlock()
		out = append(out, d)
	}
	return out
}
