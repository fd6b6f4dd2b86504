// Package api exposes the HTTP interface of enpeakd: roleplay sessions,
// free conversation tutoring, scenario authoring and the community catalog.
// Handlers translate registry error codes into status codes and a uniform
// {"error": {"code", "message"}} body.
package api
