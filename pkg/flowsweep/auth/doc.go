// Package auth implements the browser-driven OAuth2 authorization-code flow
// with PKCE used to authenticate against a Salesforce instance: credential
// generation, the single-use local callback listener, and the token exchange.
package auth
