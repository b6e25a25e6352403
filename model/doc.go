// Package model defines the provider-agnostic abstractions for interacting
// with language models inside researchcrew.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (Anthropic, OpenAI) implement the Model interface so agents and
// flows remain decoupled from vendor SDKs.
package model
