// Package admin serves the flatten admin API.
//
// Endpoints:
//
//	POST /flush                  flush by pattern (query or JSON body); no pattern clears the folder
//	POST /flush/routes/{name}    flush the pages of a named route (JSON params)
//	POST /flush/actions/{name}   flush the pages of a named action (JSON params)
//	GET  /healthz /readyz /health /health/{name}
//	GET  /metrics
//
// Flush endpoints require an authenticated identity holding the flush role
// and are rate limited. Health and metrics endpoints are open.
package admin
