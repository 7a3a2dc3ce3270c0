// Package llm provides ragpipe.Model implementations for answer
// generation, currently backed by the OpenAI chat completions API.
package llm

import "github.com/smallnest/ragpipe"

// Model is the generation interface chains consume.
type Model = ragpipe.Model
