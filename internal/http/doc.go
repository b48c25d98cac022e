// Package httpapp provides the HTTP server for Storyblog.
//
//	@title						Storyblog API
//	@version					1.0
//	@description				A minimal blog-post CRUD API with username/password authentication.
//	@description
//	@description				## Authentication
//	@description
//	@description				There are no sessions, cookies, or tokens. Every mutating request
//	@description				carries `username` and `password` fields in its JSON body and is
//	@description				re-verified against the stored bcrypt hash:
//	@description				```bash
//	@description				curl -X POST /posts -d '{
//	@description				  "username": "alice", "password": "s3cret",
//	@description				  "title": "Hello", "content": "...",
//	@description				  "author": {"firstName": "Alice", "lastName": "Ames"}
//	@description				}'
//	@description				```
//	@description				A failed check answers 401 without saying whether the username or
//	@description				the password was wrong.
//
//	@license.name				MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@tag.name					Users
//	@tag.description			Account registration and the authentication probe.
//
//	@tag.name					Posts
//	@tag.description			Blog post CRUD. Reads are public, writes require credentials.
package httpapp
