package api

import (
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/Octopus-Moneycoach/coaching-ai/server"
)

var logger = log.GetLogger("Api")

// Handlers holds references to server components
type Handlers struct {
	server *server.Server
}

// NewHandlers creates a new Handlers instance with server reference
func NewHandlers(srv *server.Server) *Handlers {
	return &Handlers{server: srv}
}
