// Package whisperapi is an HTTP client for OpenAI-compatible audio
// transcription endpoints.
//
// # Request
//
// Each chunk is posted to <base_url>/audio/transcriptions as multipart form
// data with the fields file, model, response_format and chunking_strategy,
// authenticated with a bearer token. The defaults target the diarizing
// model and its diarized_json response format.
//
// # Retry Behaviour
//
// The client retries HTTP 408/429/5xx responses and network errors with
// exponential backoff (base 1s, max 10s, 3 attempts by default), honouring
// Retry-After. Context cancellation aborts retries immediately. Other
// non-2xx responses fail at once with a *StatusError.
package whisperapi
