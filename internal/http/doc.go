// Package httpapp provides the HTTP server for Quill.
//
//	@title						Quill API
//	@version					2.0
//	@description				A small blog-post API with username/password authentication,
//	@description				flat-file JSON persistence and versioned routes.
//	@description
//	@description				## Versions
//	@description
//	@description				The same resources are served under `/api/v1` and `/api/v2`.
//	@description				v2 adds ownership checks on edits and deletes, a wider sort
//	@description				allow-list, and returns an empty list (not 404) for a search
//	@description				with no matches. Unversioned `/api/...` paths are a legacy
//	@description				alias for v1.
//	@description
//	@description				## Authentication
//	@description
//	@description				Register once, then exchange the credentials for a token:
//	@description				```bash
//	@description				curl -X POST /api/v2/register -d '{"username":"bob","password":"secret"}'
//	@description				curl -X POST /api/v2/login -d '{"username":"bob","password":"secret"}'
//	@description				# Returns: {"message": "Login successful", "token": "..."}
//	@description				```
//	@description				Send the token on every write:
//	@description				```bash
//	@description				curl -X POST /api/v2/posts -H "Authorization: Bearer TOKEN" -d '{...}'
//	@description				```
//	@description				Tokens live in server memory only; a restart invalidates them.
//
//	@contact.name				Quill
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token from the login endpoint
//
//	@tag.name					Posts
//	@tag.description			Create, browse, edit, delete and like blog posts. Listing supports category filters, sorting and pagination.
//
//	@tag.name					Search
//	@tag.description			Case-insensitive substring search over title, content and author.
//
//	@tag.name					Authentication
//	@tag.description			Username/password registration and login returning a bearer token.
//
//	@tag.name					Stats
//	@tag.description			Site-wide counters (v2 only).
package httpapp
