package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// opsRoute is one GET endpoint of the ops surface.
type opsRoute struct {
	path   string
	handle httprouter.Handle
}

// profiles are the runtime profiles served by name under /ops/debug/pprof/.
var profiles = []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"}

// opsRoutes lists the ops endpoints. Profiling ones come only when enabled.
func (api *APIHandler) opsRoutes() []opsRoute {
	routes := []opsRoute{
		{"/ops/configs", api.GetConfigs},
		{"/ops/stats", api.GetStatistics},
		{"/ops/maintenance", api.Maintenance},
		{"/ops/journal", api.GetJournal},
		{"/ops/debug/vars", GetMemStats},
		{"/ops/debug/gc", api.RunGC},
		{"/ops/debug/fos", api.FreeOSMemory},
	}
	if !api.config.ProfilerEnable {
		return routes
	}

	routes = append(routes,
		opsRoute{"/ops/debug/pprof/", api.OpsHandlerWrapper(http.HandlerFunc(pprof.Index))},
		opsRoute{"/ops/debug/pprof/profile", api.GetCPUProfile},
		opsRoute{"/ops/debug/pprof/trace", api.GetTraceProfile},
		opsRoute{"/ops/debug/pprof/symbol", api.GetSymbol},
		opsRoute{"/ops/debug/pprof/cmdline", api.GetCmdLine},
	)
	for _, name := range profiles {
		routes = append(routes, opsRoute{"/ops/debug/pprof/" + name, api.OpsHandlerWrapper(pprof.Handler(name))})
	}
	return routes
}

// SetupOpsRoutes mounts the ops endpoints behind the ops middlewares stack.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	for _, route := range api.opsRoutes() {
		router.GET(route.path, m.ops(route.handle))
	}
	return router
}
