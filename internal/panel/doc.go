// Package panel serves the browser map client as an embedded asset.
//
// The page (web/index.html plus its script and stylesheet) is compiled into
// the binary with go:embed. It polls get_devices every three seconds, draws
// one Leaflet marker per device, and posts to rename_device. All API URLs
// are relative, so the page works behind any host or path prefix.
package panel
