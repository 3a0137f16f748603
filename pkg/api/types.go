package api

import (
	"github.com/platinummonkey/modhost/pkg/host"
	"github.com/platinummonkey/modhost/pkg/module"
)

// ModuleView describes an admitted module
type ModuleView struct {
	module.Ident
	Kind            host.Kind `json:"kind"`
	Location        string    `json:"location,omitempty"`
	State           string    `json:"state"`
	FileExtensions  []string  `json:"file_extensions"`
	InstallPath     string    `json:"install_path,omitempty"`
	SupportsInstall bool      `json:"supports_install"`
	Plugins         int       `json:"plugins"`
}

// DiscoverRequest is the optional body of POST /api/v1/discover
type DiscoverRequest struct {
	Modules []string `json:"modules,omitempty"`
	Select  []string `json:"select,omitempty"`
}

// LocationView is the outcome of discovery at one location
type LocationView struct {
	Location   string `json:"location"`
	Registered int    `json:"registered"`
	Error      string `json:"error,omitempty"`
}

// ModuleDiscoveryView is the outcome of discovery for one module
type ModuleDiscoveryView struct {
	Module      string         `json:"module"`
	AutoError   string         `json:"auto_error,omitempty"`
	Candidates  []string       `json:"candidates"`
	Locations   []LocationView `json:"locations"`
	Interrupted bool           `json:"interrupted,omitempty"`
	Registered  int            `json:"registered"`
}

// DiscoverResponse is returned by POST /api/v1/discover
type DiscoverResponse struct {
	Registered int                   `json:"registered"`
	Modules    []ModuleDiscoveryView `json:"modules"`
}

// EnabledRequest is the body of PUT /api/v1/plugins/{id}/enabled
type EnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Modules int    `json:"modules"`
	Plugins int    `json:"plugins"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func newDiscoverResponse(s *host.DiscoverySummary) DiscoverResponse {
	resp := DiscoverResponse{Registered: s.Registered(), Modules: []ModuleDiscoveryView{}}
	for i := range s.Modules {
		md := &s.Modules[i]
		view := ModuleDiscoveryView{
			Module:      md.Module,
			AutoError:   errString(md.AutoErr),
			Candidates:  md.Candidates,
			Locations:   []LocationView{},
			Interrupted: md.Interrupted != nil,
			Registered:  md.Registered(),
		}
		for _, lr := range md.Locations {
			view.Locations = append(view.Locations, LocationView{
				Location:   lr.Location,
				Registered: lr.Registered,
				Error:      errString(lr.Err),
			})
		}
		resp.Modules = append(resp.Modules, view)
	}
	return resp
}
