// Package client builds the outbound clients used by the transports: a
// pooled HTTP client tuned from settings, an AWS client factory with
// optional role assumption, and the host deny list consulted before any
// webhook connection is opened.
package client
