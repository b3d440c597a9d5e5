// internal/upstream/endpoint.go

// Package upstream implements the address resolution and multi-candidate
// request dispatch used to talk to the proxied microservices. Upstream API
// contracts vary between deployments, so every operation is expressed as an
// ordered plan of request shapes rather than a single hardcoded call.
package upstream

import "strings"

// VersionPrefix is the API version segment shared by the upstreams.
const VersionPrefix = "/api/v1"

// Endpoint is the resolved address of one upstream service. Immutable after
// construction; built once at startup from configuration.
type Endpoint struct {
	name   string
	base   string
	prefix string
}

// NewEndpoint normalizes a configured base URL. Trailing slashes are removed,
// a trailing "/docs" segment is stripped (operators paste documentation URLs),
// and the version prefix is detected so URL() produces a correctly versioned
// path whether the operator configured the bare host or the versioned root.
func NewEndpoint(name, rawURL string) Endpoint {
	base := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	base = strings.TrimSuffix(base, "/docs")
	base = strings.TrimRight(base, "/")

	prefix := VersionPrefix
	if strings.HasSuffix(base, VersionPrefix) {
		prefix = ""
	}

	return Endpoint{name: name, base: base, prefix: prefix}
}

// Name returns the canonical service key.
func (e Endpoint) Name() string { return e.name }

// Base returns the cleaned configured base URL.
func (e Endpoint) Base() string { return e.base }

// Prefix returns the version prefix to prepend to logical paths. Empty when
// the configured base already carries it.
func (e Endpoint) Prefix() string { return e.prefix }

// Versioned reports whether the configured base already includes the version
// prefix.
func (e Endpoint) Versioned() bool { return e.prefix == "" }

// Root returns the unversioned root of the service.
func (e Endpoint) Root() string {
	return strings.TrimSuffix(e.base, VersionPrefix)
}

// URL joins the base, the resolved version prefix, and a logical path.
func (e Endpoint) URL(path string) string {
	return e.base + e.prefix + path
}

// RootURL joins the unversioned root and a path, bypassing the version
// prefix. Used by health probing fallbacks.
func (e Endpoint) RootURL(path string) string {
	return e.Root() + path
}
