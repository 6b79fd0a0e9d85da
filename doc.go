// Package main provides the entry point for the go-sso-gateway service.
// The gateway authenticates requests from identity headers injected by a
// trusted reverse proxy, provisions local user records on first login, and
// re-validates established sessions against the live header claims on every
// request. It exposes a small REST API for the caller identity and for the
// administration of users and the authenticator configuration.
package main
