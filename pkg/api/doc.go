// Package api serves a read-mostly HTTP view of the module host.
//
// Routes:
//
//	GET  /api/v1/modules                   admitted modules
//	GET  /api/v1/plugins                   known plugins (?module=, ?kind=)
//	GET  /api/v1/plugins/{id}              one plugin
//	PUT  /api/v1/plugins/{id}/enabled      enable or disable a plugin
//	POST /api/v1/plugins/revalidate        revalidate plugins (?fast=false for thorough)
//	POST /api/v1/discover                  run discovery
//	GET  /healthz                          liveness
//	GET  /metrics                          Prometheus metrics
package api
