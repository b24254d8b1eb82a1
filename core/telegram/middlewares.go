package telegram

import (
	"github.com/m3rciful/postbot/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain for bots.
// Recovery runs outermost so a panic anywhere below still reaches the bot's OnError.
func DefaultMiddlewares() []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}
}
