// Package main provides the entry point of the Profile API, the identity
// service of the Data-Centric Design platform. It serves the login, consent
// and logout pages of the OAuth2 authorization server, stores the person
// accounts with gorm and manages groups and access policies on the policy
// engine. Protected routes are guarded by token introspection and policy checks.
package main
