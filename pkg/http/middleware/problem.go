package middleware

import (
	"net/http"

	"github.com/Sokol111/hrms-commons/pkg/http/problems"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// problemMiddleware turns the first gin error into an RFC 7807 response when
// nothing has been written yet.
func problemMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		first := c.Errors[0]
		problem, ok := first.Meta.(*problems.Problem)
		if !ok {
			status := c.Writer.Status()
			if status < http.StatusBadRequest {
				status = http.StatusInternalServerError
			}
			problem = problems.New(status, first.Error())
		}
		if problem.Status == 0 {
			problem.Status = http.StatusInternalServerError
		}
		problems.Write(c, problem)
	}
}

// ProblemModule provides problem details middleware.
func ProblemModule(priority int) fx.Option {
	return provide(func() Middleware {
		return Middleware{Priority: priority, Handler: problemMiddleware()}
	})
}
