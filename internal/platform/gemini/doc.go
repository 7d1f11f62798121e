// Package gemini connects the application to Google's Gemini API.
//
// Client implements generation.Provider: it sends one prompt to one model and
// classifies the result as success, quota exhaustion or failure, leaving
// retries and model rotation to the generation package. Embedder produces
// the vectors used for similar-word lookups.
//
// Both talk to the API through the Models service of google.golang.org/genai.
package gemini
