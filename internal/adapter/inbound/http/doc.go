// Package http exposes the head catalog to a presentation layer as a JSON
// API.
//
// # Endpoints
//
// Every catalog operation returns the render model of the user's grid:
//
//	POST   /v1/users/{user}/catalog/open       open the category grid
//	POST   /v1/users/{user}/catalog/category   {"category": "..."}
//	POST   /v1/users/{user}/catalog/search     {"query": "..."}
//	POST   /v1/users/{user}/catalog/favorites  show favorites
//	POST   /v1/users/{user}/catalog/next       next page
//	POST   /v1/users/{user}/catalog/prev       previous page
//	POST   /v1/users/{user}/catalog/back       back to the category grid
//	POST   /v1/users/{user}/catalog/close      close the catalog
//	GET    /v1/users/{user}/catalog            current render model
//	DELETE /v1/users/{user}/session            drop the session
//
// Item operations:
//
//	POST /v1/users/{user}/favorites/toggle  {"category": "...", "item": "..."}
//	POST /v1/users/{user}/acquire           {"category": "...", "item": "..."}
//	GET  /v1/users/{user}/inventory         granted items
//	GET  /v1/users/{user}/balance           ledger balance
//
// Catalog:
//
//	GET  /v1/categories     loaded categories
//	POST /v1/admin/reload   reload catalog definitions
//
// /health and /metrics are served without authentication.
//
// # Authentication
//
// When API keys are configured every /v1 request needs
// "Authorization: Bearer <key>". Without keys the API is open and the admin
// routes only accept loopback clients.
//
// # Rate limiting
//
// With a rate limiter configured, per-user routes are limited per user and
// answer 429 with a Retry-After header.
package http
